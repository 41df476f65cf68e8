package models

import "time"

// PointLedger holds the per-account points/rewards balance provisioned at
// registration together with the web account.
type PointLedger struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	WebUserID uint64 `gorm:"not null;uniqueIndex"` // Owning web account ID.
	Points    int    `gorm:"not null;default:0"`   // Reward point balance.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName maps PointLedger onto the legacy user_points table.
func (PointLedger) TableName() string { return "user_points" }
