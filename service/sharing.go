package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitwise74/fileshare-api/model"
	"bitwise74/fileshare-api/validators"

	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// Sharing grants and revokes per-file, per-user capabilities. Ownership is
// implicit and never stored as a grant
type Sharing struct {
	db    *gorm.DB
	audit *Audit
	locks *FileLocks
}

func NewSharing(db *gorm.DB, audit *Audit, locks *FileLocks) *Sharing {
	return &Sharing{
		db:    db,
		audit: audit,
		locks: locks,
	}
}

// Share upserts the (file, grantee) grant. Re-sharing replaces the
// permission instead of duplicating the row
func (s *Sharing) Share(ctx context.Context, grantorID, fileName, granteeEmail string, perm model.Permission) (*model.ShareGrant, error) {
	if !perm.Valid() {
		return nil, fmt.Errorf("%w: unsupported permission %q", ErrInvalidInput, perm)
	}

	if err := validators.EmailValidator(granteeEmail); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	granteeEmail = strings.ToLower(granteeEmail)

	var grantor model.User

	err := s.db.WithContext(ctx).Where("id = ?", grantorID).First(&grantor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if grantor.Locked {
		return nil, ErrAccountLocked
	}

	if granteeEmail == grantor.Email {
		return nil, fmt.Errorf("%w: can't share a file with yourself", ErrInvalidInput)
	}

	file, err := s.resolveOwned(ctx, grantorID, fileName)
	if err != nil {
		return nil, err
	}

	var grantee model.User

	err = s.db.WithContext(ctx).Where("email = ?", granteeEmail).First(&grantee).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
		}
		if viper.GetBool("share.require_registered") {
			return nil, ErrUnknownRecipient
		}
	} else if grantee.Role.IsAdmin() {
		return nil, fmt.Errorf("%w: files can't be shared with admin accounts", ErrAccessDenied)
	}

	unlock := s.locks.lock(file.ID)
	defer unlock()

	grant := model.ShareGrant{
		FileID:       file.ID,
		GrantorID:    grantorID,
		GranteeEmail: granteeEmail,
		Permission:   perm,
		CreatedAt:    time.Now().UnixMilli(),
	}

	var entry model.ActivityLogEntry

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The file may have been deleted between the resolve and taking
		// the per-file lock
		var n int64
		if err := tx.Model(model.File{}).Where("id = ?", file.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: file no longer exists", ErrNotFound)
		}

		res := tx.Model(model.ShareGrant{}).
			Where("file_id = ? AND grantee_email = ?", file.ID, granteeEmail).
			Update("permission", perm)
		if res.Error != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, res.Error)
		}

		if res.RowsAffected == 0 {
			if err := tx.Create(&grant).Error; err != nil {
				return fmt.Errorf("%w: %s", ErrUnavailable, err)
			}
		}

		entry, err = s.audit.Append(tx, grantor.Email, model.ActionShare,
			fmt.Sprintf("shared '%s' with %s", file.Name, granteeEmail))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Dispatch(entry)
	return &grant, nil
}

// Revoke removes a grant. Revoking a grant that doesn't exist is a no-op
// success and leaves no audit entry
func (s *Sharing) Revoke(ctx context.Context, grantorID, fileName, granteeEmail string) error {
	granteeEmail = strings.ToLower(granteeEmail)

	file, err := s.resolveOwned(ctx, grantorID, fileName)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(file.ID)
	defer unlock()

	var (
		entry   model.ActivityLogEntry
		removed bool
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("file_id = ? AND grantee_email = ?", file.ID, granteeEmail).
			Delete(model.ShareGrant{})
		if res.Error != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, res.Error)
		}

		if res.RowsAffected == 0 {
			return nil
		}
		removed = true

		var grantor model.User
		if err := tx.Where("id = ?", grantorID).First(&grantor).Error; err != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}

		entry, err = s.audit.Append(tx, grantor.Email, model.ActionRevoke,
			fmt.Sprintf("revoked access to '%s' for %s", file.Name, granteeEmail))
		return err
	})
	if err != nil {
		return err
	}

	if removed {
		s.audit.Dispatch(entry)
	}
	return nil
}

// Check reports whether user may exercise the requested capability on the
// file. Owners always may, grantees according to their grant. want must be
// PermissionView or PermissionDownload
func (s *Sharing) Check(ctx context.Context, fileID uint, userID string, want model.Permission) (bool, error) {
	var file model.File

	err := s.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: unknown file", ErrNotFound)
		}
		return false, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if file.OwnerID == userID {
		return true, nil
	}

	var user model.User

	err = s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: unknown user", ErrNotFound)
		}
		return false, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	var grant model.ShareGrant

	err = s.db.WithContext(ctx).
		Where("file_id = ? AND grantee_email = ?", fileID, user.Email).
		First(&grant).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	switch want {
	case model.PermissionView:
		return grant.Permission.AllowsView(), nil
	case model.PermissionDownload:
		return grant.Permission.AllowsDownload(), nil
	default:
		return false, fmt.Errorf("%w: capability must be view or download", ErrInvalidInput)
	}
}

// resolveOwned finds the grantor's file by name. A file by that name owned
// by someone else yields ErrNotOwner so callers can answer 403 instead of
// a misleading 404
func (s *Sharing) resolveOwned(ctx context.Context, ownerID, name string) (*model.File, error) {
	var file model.File

	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND name = ?", ownerID, name).
		First(&file).
		Error
	if err == nil {
		return &file, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	var n int64

	if err := s.db.WithContext(ctx).Model(model.File{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if n > 0 {
		return nil, ErrNotOwner
	}

	return nil, fmt.Errorf("%w: no file named '%s'", ErrNotFound, name)
}
