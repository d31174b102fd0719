package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

const anthropicDefaultMaxTokens = 8192

// AnthropicProvider implements the Anthropic Messages API using the
// official SDK. Extended thinking arrives as separate thinking deltas, so
// reasoning reaches the relay pre-split.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a provider with the default model from
// config. baseURL may be empty for the public API.
func NewAnthropicProvider(apiKey, baseURL, model string) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// ID returns the provider identifier.
func (p *AnthropicProvider) ID() string {
	return "anthropic"
}

// Stream sends a request and returns streaming events.
func (p *AnthropicProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(anthropicDefaultMaxTokens),
		Messages:  buildAnthropicMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Reasoning {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(10000)
		if req.MaxTokens <= 0 {
			params.MaxTokens = 16384
		}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	events := make(chan StreamEvent, 100)
	go p.handleStream(stream, events)
	return events, nil
}

// buildAnthropicMessages folds the relay message list into Anthropic's
// format. System messages are hoisted into params.System by the caller, so
// any found inline are prepended to the next user message instead.
func buildAnthropicMessages(req *ChatRequest) []anthropic.MessageParam {
	var result []anthropic.MessageParam
	var pendingSystem string

	for _, msg := range req.Messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case "assistant":
			result = append(result, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
			})
		case "system":
			if pendingSystem != "" {
				pendingSystem += "\n\n"
			}
			pendingSystem += msg.Content
		default:
			content := msg.Content
			if pendingSystem != "" {
				content = pendingSystem + "\n\n" + content
				pendingSystem = ""
			}
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(content)))
		}
	}
	if pendingSystem != "" {
		result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(pendingSystem)))
	}
	return result
}

func (p *AnthropicProvider) handleStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], events chan<- StreamEvent) {
	defer close(events)

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "content_block_delta":
			delta := event.AsContentBlockDelta()
			switch d := delta.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				events <- StreamEvent{Type: EventTypeText, Text: d.Text}
			case anthropic.ThinkingDelta:
				events <- StreamEvent{Type: EventTypeThinking, Text: d.Thinking}
			}
		case "message_stop":
			events <- StreamEvent{Type: EventTypeDone}
			return
		case "error":
			events <- StreamEvent{
				Type:  EventTypeError,
				Error: fmt.Errorf("anthropic stream: %s", event.RawJSON()),
			}
			return
		}
	}

	if err := stream.Err(); err != nil {
		events <- StreamEvent{
			Type:  EventTypeError,
			Error: fmt.Errorf("anthropic stream: %w", err),
		}
		return
	}
	events <- StreamEvent{Type: EventTypeDone}
}
