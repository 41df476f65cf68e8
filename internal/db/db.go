package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options control connection pool and timeout behavior.
type Options struct {
	ConnectTimeout time.Duration // Dial timeout applied to the DSN.
	MaxOpenConns   int           // Connection pool ceiling, 0 keeps the driver default.
}

// Open connects to the database identified by dsn. Postgres DSNs are detected
// by scheme or key=value form; anything else is treated as a SQLite path.
func Open(dsn string, opts Options) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}

	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var conn *gorm.DB
	var err error
	if isPostgresDSN(trimmed) {
		conn, err = gorm.Open(postgres.Open(applyConnectTimeout(trimmed, opts.ConnectTimeout)), gormCfg)
	} else {
		conn, err = gorm.Open(sqlite.Open(trimmed), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return nil, fmt.Errorf("db: access pool: %w", errDB)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return conn, nil
}

// isPostgresDSN reports whether the DSN targets PostgreSQL.
func isPostgresDSN(dsn string) bool {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return true
	}
	return strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=")
}

// applyConnectTimeout appends connect_timeout to a Postgres DSN when absent.
func applyConnectTimeout(dsn string, timeout time.Duration) string {
	if timeout <= 0 || strings.Contains(dsn, "connect_timeout") {
		return dsn
	}
	seconds := int(timeout.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%sconnect_timeout=%d", dsn, sep, seconds)
	}
	return fmt.Sprintf("%s connect_timeout=%d", dsn, seconds)
}
