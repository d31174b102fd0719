package chat

import (
	"context"
	"time"

	"github.com/plumeai/plume/internal/compress"
	"github.com/plumeai/plume/internal/db"
	"github.com/plumeai/plume/internal/svc"
	"github.com/plumeai/plume/internal/types"
)

type ConversationLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewConversationLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ConversationLogic {
	return &ConversationLogic{ctx: ctx, svcCtx: svcCtx}
}

// Create makes a conversation ahead of chatting, so clients can hold a
// stable ID before the first message.
func (l *ConversationLogic) Create(req *types.CreateConversationRequest) (*types.Conversation, error) {
	title := req.Title
	if title == "" {
		title = "New Conversation"
	}
	module := string(compress.ParseModule(req.Module))
	conv, err := l.svcCtx.DB.Turns.CreateConversation(l.ctx, title, module)
	if err != nil {
		return nil, err
	}
	return apiConversation(conv), nil
}

// List returns conversations ordered by most recent activity.
func (l *ConversationLogic) List(limit int) ([]types.Conversation, error) {
	convs, err := l.svcCtx.DB.Turns.ListConversations(l.ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Conversation, 0, len(convs))
	for i := range convs {
		out = append(out, *apiConversation(&convs[i]))
	}
	return out, nil
}

// Get returns one conversation.
func (l *ConversationLogic) Get(id string) (*types.Conversation, error) {
	conv, err := l.svcCtx.DB.Turns.GetConversation(l.ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return apiConversation(conv), nil
}

// Turns returns the ordered turns of a conversation, optionally limited to
// the most recent n.
func (l *ConversationLogic) Turns(req *types.ListTurnsRequest) ([]types.Turn, error) {
	conv, err := l.svcCtx.DB.Turns.GetConversation(l.ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	turns, err := l.svcCtx.DB.Turns.RecentTurns(l.ctx, req.ConversationID, req.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Turn, 0, len(turns))
	for _, t := range turns {
		out = append(out, types.Turn{
			ID:        t.ID,
			Role:      t.Role,
			Content:   t.Content,
			Reasoning: t.Reasoning,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// SetCompression toggles history compression for one conversation.
func (l *ConversationLogic) SetCompression(id string, enabled bool) error {
	conv, err := l.svcCtx.DB.Turns.GetConversation(l.ctx, id)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrConversationNotFound
	}
	return l.svcCtx.DB.Turns.SetCompressionEnabled(l.ctx, id, enabled)
}

func apiConversation(c *db.Conversation) *types.Conversation {
	return &types.Conversation{
		ID:        c.ID,
		Title:     c.Title,
		Module:    c.Module,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
