package db

import (
	"fmt"

	"github.com/shaiyaportal/accountd/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for both logical stores: the web
// account tables and the game-engine tables this service reconciles against.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.WebAccount{},
		&models.PointLedger{},
		&models.GameAccount{},
		&models.Character{},
		&models.Guild{},
		&models.GuildMember{},
		&models.WorldInfo{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	// ddl defines an index statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_chars_del_level",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_chars_del_level
				ON chars (del, level DESC)
			`,
		},
		{
			name: "idx_chars_del_kills",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_chars_del_kills
				ON chars (del, kills DESC)
			`,
		},
		{
			name: "idx_users_master_status",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_users_master_status
				ON users_master (status)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}
