package storage

import (
	"context"
	"errors"
	"fmt"

	"bitwise74/fileshare-api/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore keeps blobs in the main database. Default backend, good enough
// for small deployments and keeps the whole system on one datastore
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Put(ctx context.Context, key string, data []byte) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data"}),
		}).
		Create(&model.Blob{Key: key, Data: data}).
		Error
	if err != nil {
		return fmt.Errorf("failed to store blob, %w", err)
	}

	return nil
}

func (s *DBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob model.Blob

	err := s.db.WithContext(ctx).Where("key = ?", key).First(&blob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to load blob, %w", err)
	}

	return blob.Data, nil
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(model.Blob{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete blob, %w", err)
	}

	return nil
}
