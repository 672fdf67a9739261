package model

// Blob backs the default database blob store. Data is the encrypted
// content, never plaintext
type Blob struct {
	Key  string `gorm:"primaryKey"`
	Data []byte `gorm:"not null"`
}
