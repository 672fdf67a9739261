// Package storage holds the encrypted content blobs. File metadata stays
// in the main database, only opaque ciphertext goes through a Store
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var ErrBlobNotFound = errors.New("blob not found")

type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New picks the backend from storage.type
func New(db *gorm.DB) (Store, error) {
	switch t := viper.GetString("storage.type"); t {
	case "db":
		return NewDBStore(db), nil
	case "s3":
		return NewS3Store()
	default:
		return nil, fmt.Errorf("invalid storage type %q", t)
	}
}
