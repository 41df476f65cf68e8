package models

import "time"

// GameStatus represents the game account presence state.
type GameStatus int

// GameStatus constants define presence states consumed by the game server.
const (
	// GameStatusOffline marks an account with no active session.
	GameStatusOffline GameStatus = 0
	// GameStatusOnline marks an account with an active game session.
	GameStatusOnline GameStatus = 1
)

// GameAccount represents a player account in the game-engine store. The game
// server reads this table directly, so column semantics follow its schema:
// UserID is the (truncated) login name and Password mirrors the credential
// the player most recently authenticated with.
type GameAccount struct {
	UserUID uint64 `gorm:"primaryKey;autoIncrement"` // Store-assigned UID.

	UserID   string `gorm:"type:varchar(18);not null;uniqueIndex"` // Game login name, truncated to 18 chars.
	Password string `gorm:"type:varchar(128);not null"`            // Mirrored login credential.
	Email    string `gorm:"type:varchar(100)"`                     // Contact email copied from the web account.

	SupabaseUID *string `gorm:"type:varchar(36);uniqueIndex"` // External identity reference (UUID).

	JoinDate   time.Time  `gorm:"not null"`               // Account creation time.
	Admin      int        `gorm:"not null;default:0"`     // Admin flag.
	AdminLevel int        `gorm:"not null;default:0"`     // Admin privilege level.
	UseQueue   int        `gorm:"not null;default:0"`     // Login queue flag.
	Status     GameStatus `gorm:"not null;default:0"`     // Presence state.
	Leave      int        `gorm:"not null;default:0"`     // Soft-leave flag.
	UserType   string     `gorm:"type:varchar(1);not null;default:'U'"` // Account class.
	Point      int        `gorm:"not null;default:0"`     // Cash point balance.
	IsNew      bool       `gorm:"not null;default:false"` // True only immediately after creation.
}

// TableName maps GameAccount onto the legacy Users_Master table.
func (GameAccount) TableName() string { return "users_master" }
