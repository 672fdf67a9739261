// Package db contains things related to the database connection
package db

import (
	"fmt"

	"bitwise74/fileshare-api/model"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
		dsn = viper.GetString("db.dsn")
	)

	switch viper.GetString("db.driver") {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn))
	default:
		db, err = gorm.Open(sqlite.Open(dsn))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema. Separate from New so tests can
// run it against their own in-memory databases
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		model.User{},
		model.File{},
		model.ShareGrant{},
		model.ActivityLogEntry{},
		model.Blob{},
	)
	if err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return nil
}
