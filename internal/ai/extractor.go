package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/plumeai/plume/internal/types"
)

// ExtractMemoriesPrompt asks the model for durable facts worth remembering
// across conversations. The pipeline tolerates sloppy output shapes, so the
// prompt only has to get the model roughly on target.
const ExtractMemoriesPrompt = `Analyze the following conversation and extract durable facts about the user that are worth remembering long-term: stable preferences, relationships, life circumstances, decisions.

Skip:
- Greetings and casual chat
- Temporary or time-sensitive information
- Anything the user asked the assistant, rather than stated about themselves

Return a JSON object: {"items": ["fact", ...]}. Each fact is one short, self-contained sentence.

Conversation to analyze:
%s

Respond ONLY with valid JSON, no other text.`

// Extractor proposes memory candidates from a window of recent turns.
type Extractor struct {
	provider Provider
	model    string
}

// NewExtractor creates an extractor. model may be empty to use the
// provider's default.
func NewExtractor(provider Provider, model string) *Extractor {
	return &Extractor{provider: provider, model: model}
}

// Extract returns the model's raw response text for a recent-turns window.
// Parsing and validation are the pipeline's job; a malformed response is
// not an error at this layer.
func (e *Extractor) Extract(ctx context.Context, turns []types.Message) (string, error) {
	var conv strings.Builder
	for _, msg := range turns {
		if msg.Content != "" {
			fmt.Fprintf(&conv, "[%s]: %s\n\n", msg.Role, msg.Content)
		}
	}
	text, err := Collect(ctx, e.provider, &ChatRequest{
		Model: e.model,
		Messages: []types.Message{
			{Role: "user", Content: fmt.Sprintf(ExtractMemoriesPrompt, conv.String())},
		},
	})
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	return text, nil
}
