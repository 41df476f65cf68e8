package models

import "time"

// WebAccount represents a player account in the web-facing store. It is the
// source of truth for email, credential hash, and identity linkage.
type WebAccount struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username     string `gorm:"type:varchar(50);not null;uniqueIndex"` // Unique login name.
	Email        string `gorm:"type:varchar(100)"`                     // Contact email.
	PasswordHash string `gorm:"type:varchar(255);not null"`            // Stored credential.

	SupabaseUID *string `gorm:"type:varchar(36);uniqueIndex"` // External identity reference (UUID).
	GameUserUID *uint64 `gorm:"index"`                        // Linked game account UID, set after first login.

	WebAccessLevel int `gorm:"not null;default:1"` // Site access level.

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	LastLoginAt *time.Time ``                                // Last successful login, nil until first login.
}

// TableName maps WebAccount onto the legacy users table.
func (WebAccount) TableName() string { return "users" }
