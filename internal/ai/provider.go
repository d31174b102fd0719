// Package ai abstracts the upstream model providers behind a streaming
// Provider interface and builds the summarizer and extractor capabilities
// on top of it.
package ai

import (
	"context"
	"strings"

	"github.com/plumeai/plume/internal/types"
)

// StreamEventType defines the type of streaming event.
type StreamEventType string

const (
	EventTypeText     StreamEventType = "text"
	EventTypeThinking StreamEventType = "thinking"
	EventTypeError    StreamEventType = "error"
	EventTypeDone     StreamEventType = "done"
)

// StreamEvent represents a streaming response event.
type StreamEvent struct {
	Type  StreamEventType `json:"type"`
	Text  string          `json:"text,omitempty"`
	Error error           `json:"error,omitempty"`
}

// ChatRequest represents a request to an AI provider.
type ChatRequest struct {
	Messages    []types.Message `json:"messages"`
	System      string          `json:"system,omitempty"`
	Model       string          `json:"model,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Reasoning   bool            `json:"reasoning,omitempty"`
}

// Provider is the interface all upstream providers implement.
type Provider interface {
	// ID returns the provider identifier (e.g. "openai", "anthropic").
	ID() string

	// Stream sends a request and returns a channel of streaming events.
	// The channel is closed after a done or error event.
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error)
}

// Collect drains a full streamed response into a single string. Thinking
// events are discarded; used for internal calls (summarization, extraction)
// where only the final text matters.
func Collect(ctx context.Context, p Provider, req *ChatRequest) (string, error) {
	events, err := p.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for ev := range events {
		switch ev.Type {
		case EventTypeText:
			sb.WriteString(ev.Text)
		case EventTypeError:
			return "", ev.Error
		}
	}
	return sb.String(), nil
}
