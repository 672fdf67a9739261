package model

// Permission is the capability attached to a single grant. "view" allows
// previews only, "download" allows fetching only, "view_download" both.
// Ownership is never represented as a grant, owners hold every capability
// implicitly
type Permission string

const (
	PermissionView         Permission = "view"
	PermissionDownload     Permission = "download"
	PermissionViewDownload Permission = "view_download"
)

func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionDownload || p == PermissionViewDownload
}

func (p Permission) AllowsView() bool {
	return p == PermissionView || p == PermissionViewDownload
}

func (p Permission) AllowsDownload() bool {
	return p == PermissionDownload || p == PermissionViewDownload
}

// ShareGrant holds at most one row per (file, grantee) pair. Re-sharing
// the same file with the same user overwrites the permission
type ShareGrant struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	FileID       uint       `gorm:"not null;index;uniqueIndex:idx_file_grantee" json:"file_id"`
	GrantorID    string     `gorm:"not null" json:"-"`
	GranteeEmail string     `gorm:"not null;index;uniqueIndex:idx_file_grantee" json:"grantee_email"`
	Permission   Permission `gorm:"not null" json:"permission"`
	CreatedAt    int64      `gorm:"not null" json:"created_at"`
}
