package memories

import (
	"context"
	"errors"
	"time"

	"github.com/plumeai/plume/internal/svc"
	"github.com/plumeai/plume/internal/types"
)

// ErrMemoryDisabled is returned when extraction is requested while the
// memory feature is switched off.
var ErrMemoryDisabled = errors.New("memory extraction is disabled")

type MemoriesLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewMemoriesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MemoriesLogic {
	return &MemoriesLogic{ctx: ctx, svcCtx: svcCtx}
}

// List returns non-deleted memories, newest first.
func (l *MemoriesLogic) List(limit int) ([]types.Memory, error) {
	rows, err := l.svcCtx.DB.Memories.List(l.ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Memory, 0, len(rows))
	for _, m := range rows {
		out = append(out, types.Memory{
			ID:        m.ID,
			Content:   m.Content,
			Status:    m.Status,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// SetStatus promotes or demotes a memory (pending/confirmed).
func (l *MemoriesLogic) SetStatus(id, status string) error {
	return l.svcCtx.DB.Memories.SetStatus(l.ctx, id, status)
}

// Delete soft-deletes a memory.
func (l *MemoriesLogic) Delete(id string) error {
	return l.svcCtx.DB.Memories.SoftDelete(l.ctx, id)
}

// Extract runs the extraction pipeline over the recent turns of one
// conversation.
func (l *MemoriesLogic) Extract(req *types.ExtractMemoriesRequest) (*types.ExtractMemoriesResponse, error) {
	if !l.svcCtx.Config.IsMemoryEnabled() {
		return nil, ErrMemoryDisabled
	}
	window := req.Window
	if window <= 0 {
		window = l.svcCtx.Config.Memory.SweepWindow
	}
	turns, err := l.svcCtx.DB.Turns.RecentTurns(l.ctx, req.ConversationID, window)
	if err != nil {
		return nil, err
	}

	msgs := make([]types.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, types.Message{Role: t.Role, Content: t.Content})
	}

	res, err := l.svcCtx.Memories.Run(l.ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &types.ExtractMemoriesResponse{
		InsertedCount: res.Inserted,
		SkippedCount:  res.Skipped,
	}, nil
}
