package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/plumeai/plume/internal/types"
)

// SummarizePrompt drives incremental conversation summarization. The
// summarizer is only ever shown turns it has not seen; continuity comes
// from feeding the previous summary back in.
const SummarizePrompt = `You maintain a running summary of a conversation so older turns can be dropped from the model context.

Previous summary (may be empty):
%s

New conversation turns to fold in:
%s

Rewrite the summary so it covers both the previous summary and the new turns:
- Preserve all salient facts, decisions and commitments from the previous summary, in their original order.
- Fold in the new turns, keeping chronological order.
- Do not invent, alter or drop persona or system instructions; only compress factual and decision content.
- Be concise. Plain prose, no headings.

Respond with the updated summary only, no other text.`

// Summarizer folds new conversation turns into a running summary via an
// upstream model call.
type Summarizer struct {
	provider Provider
	model    string
}

// NewSummarizer creates a summarizer. model may be empty to use the
// provider's default.
func NewSummarizer(provider Provider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

// Summarize returns an updated summary covering existingSummary plus
// newTurns.
func (s *Summarizer) Summarize(ctx context.Context, existingSummary string, newTurns []types.Message) (string, error) {
	if existingSummary == "" {
		existingSummary = "(none)"
	}
	var conv strings.Builder
	for _, msg := range newTurns {
		if msg.Content != "" {
			fmt.Fprintf(&conv, "[%s]: %s\n\n", msg.Role, msg.Content)
		}
	}

	text, err := Collect(ctx, s.provider, &ChatRequest{
		Model: s.model,
		Messages: []types.Message{
			{Role: "user", Content: fmt.Sprintf(SummarizePrompt, existingSummary, conv.String())},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	summary := strings.TrimSpace(text)
	if summary == "" {
		return "", fmt.Errorf("summarize: empty response")
	}
	return summary, nil
}
