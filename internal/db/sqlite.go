// Package db provides the SQLite-backed stores for conversations, turns,
// compression-cache entries, memories and settings.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/plumeai/plume/internal/db/migrations"
	"github.com/plumeai/plume/internal/logging"
)

// Store wraps the shared database handle and exposes the per-table stores.
type Store struct {
	db *sql.DB

	Turns    *TurnStore
	Cache    *CompressionCacheStore
	Memories *MemoryStore
	Settings *SettingsStore
}

// Open opens the SQLite database at path, runs migrations, and returns the
// store. The connection pool is pinned to a single connection; SQLite does
// not handle concurrent writers well, so all access serializes through it.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.Infof("SQLite database initialized at %s", path)
	return NewStore(db), nil
}

// NewStore builds a Store over an already-open database. Used by tests that
// manage their own connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Turns:    &TurnStore{db: db},
		Cache:    &CompressionCacheStore{db: db},
		Memories: &MemoryStore{db: db},
		Settings: &SettingsStore{db: db},
	}
}

// DB exposes the raw handle for components that need it.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
