package service

import (
	"context"
	"database/sql"
	"fmt"

	"bitwise74/fileshare-api/model"

	"gorm.io/gorm"
)

// UserCount is one (email, count) rollup row
type UserCount struct {
	Email string `json:"email"`
	Count int64  `json:"count"`
}

// Overview is the operator-facing snapshot. Admin accounts are excluded
// from the per-user rollups
type Overview struct {
	TotalUploads   int64       `json:"total_uploads"`
	TotalShares    int64       `json:"total_shares"`
	UploadsPerUser []UserCount `json:"uploads_per_user"`
	SharesPerUser  []UserCount `json:"shares_per_user"`
}

// Stats computes read-only rollups. No write path
type Stats struct {
	db *gorm.DB
}

func NewStats(db *gorm.DB) *Stats {
	return &Stats{db: db}
}

// Overview runs every count inside one read transaction so a single
// caller never sees partially updated numbers
func (s *Stats) Overview(ctx context.Context) (*Overview, error) {
	var out Overview

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(model.File{}).Count(&out.TotalUploads).Error; err != nil {
			return err
		}

		if err := tx.Model(model.ShareGrant{}).Count(&out.TotalShares).Error; err != nil {
			return err
		}

		err := tx.Model(model.User{}).
			Select("users.email, COUNT(files.id) AS count").
			Joins("LEFT JOIN files ON files.owner_id = users.id").
			Where("users.role = ?", model.RoleUser).
			Group("users.email").
			Order("count DESC, users.email ASC").
			Scan(&out.UploadsPerUser).
			Error
		if err != nil {
			return err
		}

		return tx.Model(model.User{}).
			Select("users.email, COUNT(share_grants.id) AS count").
			Joins("LEFT JOIN files ON files.owner_id = users.id").
			Joins("LEFT JOIN share_grants ON share_grants.file_id = files.id").
			Where("users.role = ?", model.RoleUser).
			Group("users.email").
			Order("count DESC, users.email ASC").
			Scan(&out.SharesPerUser).
			Error
	}, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return &out, nil
}
