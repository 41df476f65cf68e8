package models

// Guild is a read-model row from the game guild table.
type Guild struct {
	GuildID   uint64 `gorm:"primaryKey;autoIncrement"`  // Guild ID.
	GuildName string `gorm:"type:varchar(30);not null"` // Guild name.
	Rank      int    `gorm:"not null;default:0"`        // Guild rank score.
}

// TableName maps Guild onto the legacy Guilds table.
func (Guild) TableName() string { return "guilds" }

// GuildMember links a character to a guild.
type GuildMember struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.
	GuildID uint64 `gorm:"not null;index"`           // Guild ID.
	CharID  uint64 `gorm:"not null;index"`           // Member character ID.
}

// TableName maps GuildMember onto the legacy GuildChars table.
func (GuildMember) TableName() string { return "guild_chars" }
