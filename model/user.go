// Package model defines database models
package model

// Role is a closed enumeration. Call sites go through IsAdmin instead
// of comparing raw strings
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"` // Stored lowercased
	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"not null;default:user" json:"role"`
	// Locked is written only by the account lock manager. A locked user
	// can't authenticate until an admin unlocks them
	Locked    bool  `gorm:"not null;default:false" json:"locked"`
	CreatedAt int64 `gorm:"not null" json:"created_at"`

	Files []File `gorm:"foreignKey:OwnerID" json:"-"`
}
