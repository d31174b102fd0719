package db

import (
	"context"
	"database/sql"
	"errors"
)

// SettingsStore is a simple key-value store for runtime overrides
// (summarizer model, feature toggles) that outlive a process restart.
type SettingsStore struct {
	db *sql.DB
}

// Get returns the value for key, or defaultVal when absent.
func (s *SettingsStore) Get(ctx context.Context, key, defaultVal string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultVal, nil
	}
	if err != nil {
		return defaultVal, err
	}
	return v, nil
}

// Set writes a value for key, replacing any existing one.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
