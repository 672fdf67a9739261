package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/fileshare-api/model"
	"bitwise74/fileshare-api/pkg/security"
	"bitwise74/fileshare-api/storage"

	"github.com/gabriel-vasile/mimetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const blobKeyLen = 21

// Files owns file metadata and the encrypted content blobs. All content
// passes through the cipher, plaintext never reaches the store
type Files struct {
	db      *gorm.DB
	blobs   storage.Store
	cipher  *security.Cipher
	audit   *Audit
	sharing *Sharing
	locks   *FileLocks
}

func NewFiles(db *gorm.DB, blobs storage.Store, cipher *security.Cipher, audit *Audit, sharing *Sharing, locks *FileLocks) *Files {
	return &Files{
		db:      db,
		blobs:   blobs,
		cipher:  cipher,
		audit:   audit,
		sharing: sharing,
		locks:   locks,
	}
}

// Upload stores a new encrypted file. The metadata row and its audit entry
// commit in one transaction after the blob write, so a client that
// disconnects mid-upload never leaves a partially visible file
func (f *Files) Upload(ctx context.Context, ownerID, name, mime string, data []byte) (*model.File, error) {
	var owner model.User

	err := f.db.WithContext(ctx).Where("id = ?", ownerID).First(&owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if owner.Locked {
		return nil, ErrAccountLocked
	}

	if name == "" {
		return nil, fmt.Errorf("%w: file name can't be empty", ErrInvalidInput)
	}

	if int64(len(data)) > viper.GetInt64("upload.max_size") {
		return nil, ErrPayloadTooLarge
	}

	// Clients lie about content types, sniff the real one
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(data).String()
	}

	key, err := gonanoid.New(blobKeyLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	enc, err := f.cipher.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if err := f.blobs.Put(ctx, key, enc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	file := model.File{
		OwnerID:   ownerID,
		Name:      name,
		MimeType:  mime,
		BlobKey:   key,
		Size:      int64(len(data)),
		CreatedAt: time.Now().UnixMilli(),
	}

	var entry model.ActivityLogEntry

	err = f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&file).Error; err != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}

		entry, err = f.audit.Append(tx, owner.Email, model.ActionUpload, name)
		return err
	})
	if err != nil {
		// The blob is orphaned without the metadata row, clean it up
		if derr := f.blobs.Delete(ctx, key); derr != nil {
			zap.L().Error("Failed to clean up orphaned blob", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}

	f.audit.Dispatch(entry)
	return &file, nil
}

// Get returns metadata if the requester is the owner or holds a grant that
// allows viewing
func (f *Files) Get(ctx context.Context, fileID uint, requesterID string) (*model.File, error) {
	file, err := f.authorize(ctx, fileID, requesterID, model.PermissionView)
	if err != nil {
		return nil, err
	}

	return file, nil
}

// Preview returns the decrypted content for viewing. Requires the view
// capability, a download-only grant is not enough
func (f *Files) Preview(ctx context.Context, fileID uint, requesterID string) (*model.File, []byte, error) {
	return f.open(ctx, fileID, requesterID, model.PermissionView)
}

// Download returns the decrypted content for fetching and audits the
// download. Requires the download capability, a view-only grant is not
// enough
func (f *Files) Download(ctx context.Context, fileID uint, requesterID string) (*model.File, []byte, error) {
	file, data, err := f.open(ctx, fileID, requesterID, model.PermissionDownload)
	if err != nil {
		return nil, nil, err
	}

	var requester model.User

	if err := f.db.WithContext(ctx).Where("id = ?", requesterID).First(&requester).Error; err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if _, err := f.audit.Record(ctx, requester.Email, model.ActionDownload, file.Name); err != nil {
		// Downloads must not be observable without an audit trail
		return nil, nil, err
	}

	return file, data, nil
}

func (f *Files) open(ctx context.Context, fileID uint, requesterID string, want model.Permission) (*model.File, []byte, error) {
	file, err := f.authorize(ctx, fileID, requesterID, want)
	if err != nil {
		return nil, nil, err
	}

	blob, err := f.blobs.Get(ctx, file.BlobKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, nil, fmt.Errorf("%w: file content is missing", ErrNotFound)
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	data, err := f.cipher.Decrypt(blob)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return file, data, nil
}

func (f *Files) authorize(ctx context.Context, fileID uint, requesterID string, want model.Permission) (*model.File, error) {
	ok, err := f.sharing.Check(ctx, fileID, requesterID, want)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrAccessDenied
	}

	var file model.File

	if err := f.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown file", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return &file, nil
}

// Delete removes a file, cascades every grant referencing it and audits
// the deletion, all in one transaction. Owner only
func (f *Files) Delete(ctx context.Context, fileID uint, requesterID string) error {
	unlock := f.locks.lock(fileID)
	defer unlock()

	var file model.File

	err := f.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: unknown file", ErrNotFound)
		}
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if file.OwnerID != requesterID {
		return fmt.Errorf("%w: only the owner may delete a file", ErrAccessDenied)
	}

	var owner model.User

	if err := f.db.WithContext(ctx).Where("id = ?", requesterID).First(&owner).Error; err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	var entry model.ActivityLogEntry

	err = f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", fileID).Delete(model.ShareGrant{}).Error; err != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}

		if err := tx.Where("id = ?", fileID).Delete(model.File{}).Error; err != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}

		entry, err = f.audit.Append(tx, owner.Email, model.ActionDelete, file.Name)
		return err
	})
	if err != nil {
		return err
	}

	f.audit.Dispatch(entry)

	// Blob cleanup is best effort, the metadata row is the source of truth
	if err := f.blobs.Delete(ctx, file.BlobKey); err != nil {
		zap.L().Error("Failed to delete blob", zap.String("key", file.BlobKey), zap.Error(err))
	}

	return nil
}

// DeleteByName resolves the owner's file by its name and deletes it
func (f *Files) DeleteByName(ctx context.Context, ownerID, name string) error {
	var file model.File

	err := f.db.WithContext(ctx).
		Where("owner_id = ? AND name = ?", ownerID, name).
		First(&file).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no file named '%s'", ErrNotFound, name)
		}
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return f.Delete(ctx, file.ID, ownerID)
}

// ListOwned returns metadata only, newest first. Content is resolved
// lazily per file on preview/download
func (f *Files) ListOwned(ctx context.Context, ownerID string) ([]model.File, error) {
	var files []model.File

	err := f.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&files).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return files, nil
}

// SharedFile is one row of a grantee's incoming share list
type SharedFile struct {
	FileID     uint             `json:"file_id"`
	Name       string           `json:"name"`
	MimeType   string           `json:"mime_type"`
	Size       int64            `json:"size"`
	OwnerEmail string           `json:"owner_email"`
	Permission model.Permission `json:"permission"`
	SharedAt   int64            `json:"shared_at"`
}

// ListSharedWith returns the metadata of every file shared with the given
// email, newest grant first
func (f *Files) ListSharedWith(ctx context.Context, email string) ([]SharedFile, error) {
	var shared []SharedFile

	err := f.db.WithContext(ctx).
		Model(model.ShareGrant{}).
		Select("files.id AS file_id, files.name, files.mime_type, files.size, users.email AS owner_email, share_grants.permission, share_grants.created_at AS shared_at").
		Joins("JOIN files ON files.id = share_grants.file_id").
		Joins("JOIN users ON users.id = files.owner_id").
		Where("share_grants.grantee_email = ?", email).
		Order("share_grants.created_at DESC, share_grants.id DESC").
		Scan(&shared).
		Error
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return shared, nil
}
