package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// CacheEntry is the persisted summary of a conversation prefix. At most one
// entry exists per (module, conversation) pair, enforced by a unique index.
type CacheEntry struct {
	ID                   string
	Module               string
	ConversationID       string
	CompressedUpToTurnID sql.NullInt64
	SummaryText          string
	UpdatedAt            time.Time
}

// CompressionCacheStore reads and upserts compression-cache entries. The
// relay never deletes entries; conversation deletion cascades them away.
type CompressionCacheStore struct {
	db *sql.DB
}

// Get returns the entry for (module, conversation), or nil when absent.
func (s *CompressionCacheStore) Get(ctx context.Context, module, conversationID string) (*CacheEntry, error) {
	var e CacheEntry
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, module, conversation_id, compressed_up_to_turn_id, summary_text, updated_at
		 FROM compression_cache WHERE module = ? AND conversation_id = ?`,
		module, conversationID).
		Scan(&e.ID, &e.Module, &e.ConversationID, &e.CompressedUpToTurnID, &e.SummaryText, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.UpdatedAt = time.Unix(updated, 0)
	return &e, nil
}

// Upsert creates the entry on first compression and refreshes it in place on
// every re-summarization. Last writer wins; concurrent refreshes for the same
// conversation both persist valid prefix summaries, so no locking is done.
func (s *CompressionCacheStore) Upsert(ctx context.Context, module, conversationID string, upToTurnID int64, summaryText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO compression_cache (id, module, conversation_id, compressed_up_to_turn_id, summary_text, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(module, conversation_id) DO UPDATE SET
		   compressed_up_to_turn_id = excluded.compressed_up_to_turn_id,
		   summary_text = excluded.summary_text,
		   updated_at = excluded.updated_at`,
		uuid.New().String(), module, conversationID, upToTurnID, summaryText, time.Now().Unix())
	return err
}
