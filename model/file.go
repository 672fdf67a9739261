package model

type File struct {
	ID      uint   `gorm:"primaryKey;autoIncrement;index" json:"id"`
	OwnerID string `gorm:"index;not null" json:"-"`

	// Original file name as uploaded. Different users may own files with
	// the same name, so the encrypted content lives under BlobKey instead
	Name     string `gorm:"not null" json:"name"`
	MimeType string `json:"mime_type"`
	BlobKey  string `gorm:"uniqueIndex" json:"-"`

	// Size of the plaintext, not the encrypted blob
	Size      int64 `json:"size"`
	CreatedAt int64 `gorm:"not null" json:"created_at"`

	Grants []ShareGrant `gorm:"foreignKey:FileID" json:"-"`
}
