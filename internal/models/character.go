package models

// Character is a read-model row from the game character table. This service
// never writes characters; they back the character listing and rankings.
type Character struct {
	CharID  uint64 `gorm:"primaryKey;autoIncrement"` // Character ID.
	UserUID uint64 `gorm:"not null;index"`           // Owning game account UID.

	CharName string `gorm:"type:varchar(30);not null"` // Display name.
	Level    int    `gorm:"not null;default:1"`        // Character level.
	Job      int    `gorm:"not null;default:0"`        // Class index.
	Family   int    `gorm:"not null;default:0"`        // Faction index.
	Grow     int    `gorm:"not null;default:0"`        // Growth mode.
	Money    int64  `gorm:"not null;default:0"`        // Carried gold.
	Map      int    `gorm:"not null;default:0"`        // Current map ID.
	Kills    int    `gorm:"not null;default:0"`        // PvP kills.
	Deaths   int    `gorm:"not null;default:0"`        // PvP deaths.
	Del      int    `gorm:"not null;default:0"`        // Soft-delete flag.
	Slot     int    `gorm:"not null;default:0"`        // Character slot.
}

// TableName maps Character onto the legacy Chars table.
func (Character) TableName() string { return "chars" }

var jobNames = map[int]string{
	0: "Fighter", 1: "Defender", 2: "Ranger", 3: "Archer",
	4: "Mage", 5: "Priest", 6: "Assassin", 7: "Warrior",
}

var factionNames = map[int]string{0: "Human", 1: "Elf", 2: "Vail", 3: "Nordein"}

// JobName returns the display name for a class index.
func JobName(job int) string {
	if name, ok := jobNames[job]; ok {
		return name
	}
	return "Unknown"
}

// FactionName returns the display name for a faction index.
func FactionName(family int) string {
	if name, ok := factionNames[family]; ok {
		return name
	}
	return "Unknown"
}
