package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Conversation is a stored conversation. Module selects the behavior variant
// applied by the relay.
type Conversation struct {
	ID                 string
	Title              string
	Module             string
	CompressionEnabled bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Turn is one immutable message in a conversation. The autoincrement ID is
// the canonical ordering; edits are modeled as new turns.
type Turn struct {
	ID             int64
	ConversationID string
	Role           string // user, assistant, system
	Content        string
	Reasoning      string
	CreatedAt      time.Time
}

// TurnStore persists conversations and their ordered turns.
type TurnStore struct {
	db *sql.DB
}

// CreateConversation inserts a new conversation and returns it.
func (s *TurnStore) CreateConversation(ctx context.Context, title, module string) (*Conversation, error) {
	c := &Conversation{
		ID:                 uuid.New().String(),
		Title:              title,
		Module:             module,
		CompressionEnabled: true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, module, compression_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		c.ID, c.Title, c.Module, c.CreatedAt.Unix(), c.UpdatedAt.Unix())
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation returns a conversation by ID, or nil when it doesn't exist.
func (s *TurnStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	var enabled int
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, module, compression_enabled, created_at, updated_at
		 FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Module, &enabled, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.CompressionEnabled = enabled != 0
	c.CreatedAt = time.Unix(created, 0)
	c.UpdatedAt = time.Unix(updated, 0)
	return &c, nil
}

// ListConversations returns conversations ordered by most recent activity.
func (s *TurnStore) ListConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, module, compression_enabled, created_at, updated_at
		 FROM conversations ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		var enabled int
		var created, updated int64
		if err := rows.Scan(&c.ID, &c.Title, &c.Module, &enabled, &created, &updated); err != nil {
			return nil, err
		}
		c.CompressionEnabled = enabled != 0
		c.CreatedAt = time.Unix(created, 0)
		c.UpdatedAt = time.Unix(updated, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListActiveConversations returns IDs of conversations updated since the
// given time. Used by the scheduled memory-extraction sweep.
func (s *TurnStore) ListActiveConversations(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM conversations WHERE updated_at >= ? ORDER BY updated_at DESC`,
		since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendTurn appends one turn and bumps the conversation timestamp.
func (s *TurnStore) AppendTurn(ctx context.Context, conversationID, role, content, reasoning string) (*Turn, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, role, content, reasoning, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		conversationID, role, content, reasoning, now.Unix())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	_, _ = s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now.Unix(), conversationID)
	return &Turn{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Reasoning:      reasoning,
		CreatedAt:      now,
	}, nil
}

// ListTurns returns all turns of a conversation in canonical order.
func (s *TurnStore) ListTurns(ctx context.Context, conversationID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, reasoning, created_at
		 FROM turns WHERE conversation_id = ? ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var created int64
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Role, &t.Content, &t.Reasoning, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(created, 0)
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentTurns returns the last n turns of a conversation in canonical order.
func (s *TurnStore) RecentTurns(ctx context.Context, conversationID string, n int) ([]Turn, error) {
	turns, err := s.ListTurns(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// SetCompressionEnabled toggles compression for one conversation.
func (s *TurnStore) SetCompressionEnabled(ctx context.Context, conversationID string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET compression_enabled = ? WHERE id = ?`, v, conversationID)
	return err
}
