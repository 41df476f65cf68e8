package models

// WorldInfo is a read-model row the game server appends world-state snapshots
// to. The latest row drives the God Realm Battle countdown.
type WorldInfo struct {
	RowID uint64 `gorm:"primaryKey;autoIncrement"` // Snapshot row ID.

	LastWorldTime int64 `gorm:"not null;default:0"` // Unix time of the last world cycle.
	GodBlessLight int   `gorm:"not null;default:0"` // Light faction blessing value.
	GodBlessDark  int   `gorm:"not null;default:0"` // Dark faction blessing value.
}

// TableName maps WorldInfo onto the legacy WorldInfo table.
func (WorldInfo) TableName() string { return "world_info" }
