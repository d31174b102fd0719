package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/plumeai/plume/internal/ai"
	"github.com/plumeai/plume/internal/compress"
	"github.com/plumeai/plume/internal/db"
	"github.com/plumeai/plume/internal/logging"
	"github.com/plumeai/plume/internal/memory"
	"github.com/plumeai/plume/internal/stream"
	"github.com/plumeai/plume/internal/svc"
	"github.com/plumeai/plume/internal/types"
)

// ErrConversationNotFound is returned when the request names a conversation
// that does not exist.
var ErrConversationNotFound = errors.New("conversation not found")

type ChatCompletionLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Relay one chat completion: persist the inbound turn, compress history to
// budget, stream the upstream reply split into answer and reasoning, and
// persist the assistant turn.
func NewChatCompletionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ChatCompletionLogic {
	return &ChatCompletionLogic{ctx: ctx, svcCtx: svcCtx}
}

// ChatCompletion runs one relay round trip. onDelta, when non-nil, receives
// incremental chunks as they arrive; the returned response always carries the
// complete answer and reasoning.
func (l *ChatCompletionLogic) ChatCompletion(req *types.ChatCompletionRequest, onDelta func(types.StreamDelta)) (*types.ChatCompletionResponse, error) {
	system, history, last, err := splitRequestMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	conv, err := l.resolveConversation(req, last.Content)
	if err != nil {
		return nil, err
	}
	module := compress.ParseModule(conv.Module)

	// The stored history is the authority. A brand-new conversation adopts
	// whatever history the client sent; afterwards only the latest message
	// is persisted per request.
	if req.ConversationID == "" {
		for _, msg := range history {
			if _, err := l.svcCtx.DB.Turns.AppendTurn(l.ctx, conv.ID, msg.Role, msg.Content, ""); err != nil {
				return nil, err
			}
		}
	}
	if _, err := l.svcCtx.DB.Turns.AppendTurn(l.ctx, conv.ID, last.Role, last.Content, ""); err != nil {
		return nil, err
	}

	turns, err := l.svcCtx.DB.Turns.ListTurns(l.ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	system = l.injectMemories(system, module)

	result := l.svcCtx.Orchestrator.Compress(
		l.ctx, module, conv.ID, req.Model, system, turns, conv.CompressionEnabled)

	provider := l.svcCtx.ProviderFor(req.Model)
	events, err := provider.Stream(l.ctx, &ai.ChatRequest{
		Messages:    result.Messages,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Reasoning:   req.Reasoning,
	})
	if err != nil {
		return nil, err
	}

	answer, reasoning, streamErr := l.consume(events, onDelta)

	// Persist whatever arrived, even on cancellation or upstream failure.
	// The request context may already be dead, so the write gets its own.
	if answer != "" || reasoning != "" {
		if _, err := l.svcCtx.DB.Turns.AppendTurn(
			context.Background(), conv.ID, "assistant", answer, reasoning); err != nil {
			logging.Errorf("chat: persist assistant turn for %s: %v", conv.ID, err)
		}
	}

	if streamErr != nil {
		if onDelta != nil {
			onDelta(types.StreamDelta{Error: streamErr.Error()})
		}
		return nil, streamErr
	}
	if onDelta != nil {
		onDelta(types.StreamDelta{Done: true})
	}
	return &types.ChatCompletionResponse{
		ConversationID: conv.ID,
		Model:          req.Model,
		Answer:         answer,
		Reasoning:      reasoning,
		Compressed:     result.Compressed,
	}, nil
}

// consume drains the provider stream, splitting inline <think> regions out of
// text events. Thinking events arrive pre-split and bypass the splitter.
func (l *ChatCompletionLogic) consume(events <-chan ai.StreamEvent, onDelta func(types.StreamDelta)) (answer, reasoning string, err error) {
	splitter := stream.NewSplitter()
	var rsn strings.Builder

	emit := func(d types.StreamDelta) {
		if onDelta != nil && (d.Answer != "" || d.Reasoning != "") {
			onDelta(d)
		}
	}

	for ev := range events {
		switch ev.Type {
		case ai.EventTypeText:
			a, r := splitter.Write(ev.Text)
			rsn.WriteString(r)
			emit(types.StreamDelta{Answer: a, Reasoning: r})
		case ai.EventTypeThinking:
			rsn.WriteString(ev.Text)
			emit(types.StreamDelta{Reasoning: ev.Text})
		case ai.EventTypeError:
			if tail := splitter.Finish(); tail != "" {
				emit(types.StreamDelta{Answer: tail})
			}
			return splitter.Answer(), rsn.String(), ev.Error
		}
	}

	if tail := splitter.Finish(); tail != "" {
		emit(types.StreamDelta{Answer: tail})
	}
	return splitter.Answer(), rsn.String(), nil
}

// resolveConversation loads the named conversation or creates one, titled
// from the first message.
func (l *ChatCompletionLogic) resolveConversation(req *types.ChatCompletionRequest, lastContent string) (*db.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := l.svcCtx.DB.Turns.GetConversation(l.ctx, req.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, ErrConversationNotFound
		}
		return conv, nil
	}

	title := strings.TrimSpace(lastContent)
	if len(title) > 50 {
		title = title[:47] + "..."
	}
	if title == "" {
		title = "New Conversation"
	}
	module := string(compress.ParseModule(req.Module))
	return l.svcCtx.DB.Turns.CreateConversation(l.ctx, title, module)
}

// injectMemories appends the stored-memory block to the system context for
// modules that use it.
func (l *ChatCompletionLogic) injectMemories(system []types.Message, module compress.Module) []types.Message {
	if !compress.SettingsFor(module).InjectMemories || !l.svcCtx.Config.IsMemoryEnabled() {
		return system
	}
	memories, err := l.svcCtx.DB.Memories.List(l.ctx, 0)
	if err != nil {
		logging.Warnf("chat: list memories: %v", err)
		return system
	}
	block := memory.MemoryBlock(memories)
	if block == "" {
		return system
	}
	return append(system, types.Message{Role: "system", Content: block})
}

// splitRequestMessages separates system messages from the conversational
// ones and pulls out the latest message, which is the one this request
// persists and answers.
func splitRequestMessages(messages []types.Message) (system, history []types.Message, last types.Message, err error) {
	var conversational []types.Message
	for _, msg := range messages {
		if msg.Role == "system" {
			system = append(system, msg)
			continue
		}
		conversational = append(conversational, msg)
	}
	if len(conversational) == 0 {
		return nil, nil, types.Message{}, errors.New("messages must contain at least one non-system message")
	}
	last = conversational[len(conversational)-1]
	if strings.TrimSpace(last.Content) == "" {
		return nil, nil, types.Message{}, errors.New("latest message is empty")
	}
	if last.Role == "" {
		last.Role = "user"
	}
	return system, conversational[:len(conversational)-1], last, nil
}
