package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/platewire/boardgate/internal/platform/storage/sqlitemigrate"
	"github.com/platewire/boardgate/internal/services/access/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// timeNow is swapped out by tests that need a fixed clock.
var timeNow = time.Now

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements access persistence over SQLite.
//
// A single SQLite file backs credential, ceremony, and audit state so the
// verification flow shares one transaction and visibility boundary.
type Store struct {
	sqlDB *sql.DB
}

// DB returns the raw database handle for command tooling.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens an access SQLite store and applies bundled migrations.
//
// Schema evolution happens here so callers never coordinate migrations
// independently.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
