package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Memory statuses. New rows start pending; a user promotes them to confirmed.
const (
	MemoryStatusPending   = "pending"
	MemoryStatusConfirmed = "confirmed"
)

// Memory is a distilled fact about the user, extracted from conversations.
type Memory struct {
	ID        string
	Content   string
	Status    string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemoryStore persists extracted memories.
type MemoryStore struct {
	db *sql.DB
}

// ListActiveContents returns the content of all non-deleted pending and
// confirmed memories, used as the dedup corpus for new candidates.
func (s *MemoryStore) ListActiveContents(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content FROM memories
		 WHERE is_deleted = 0 AND status IN (?, ?)
		 ORDER BY created_at ASC`,
		MemoryStatusPending, MemoryStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertPending inserts accepted candidates as new pending rows.
func (s *MemoryStore) InsertPending(ctx context.Context, contents []string) error {
	if len(contents) == 0 {
		return nil
	}
	now := time.Now().Unix()
	for _, c := range contents {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO memories (id, content, status, is_deleted, created_at, updated_at)
			 VALUES (?, ?, ?, 0, ?, ?)`,
			uuid.New().String(), c, MemoryStatusPending, now, now); err != nil {
			return err
		}
	}
	return nil
}

// List returns non-deleted memories, newest first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, status, is_deleted, created_at, updated_at
		 FROM memories WHERE is_deleted = 0
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		var deleted int
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Content, &m.Status, &deleted, &created, &updated); err != nil {
			return nil, err
		}
		m.IsDeleted = deleted != 0
		m.CreatedAt = time.Unix(created, 0)
		m.UpdatedAt = time.Unix(updated, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetStatus updates a memory's status.
func (s *MemoryStore) SetStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET status = ?, updated_at = ? WHERE id = ? AND is_deleted = 0`,
		status, time.Now().Unix(), id)
	return err
}

// SoftDelete marks a memory deleted without removing the row.
func (s *MemoryStore) SoftDelete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET is_deleted = 1, updated_at = ? WHERE id = ?`,
		time.Now().Unix(), id)
	return err
}
