package compress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/plumeai/plume/internal/db"
	"github.com/plumeai/plume/internal/tokens"
	"github.com/plumeai/plume/internal/types"
)

// fakeCache is an in-memory CacheStore.
type fakeCache struct {
	entries map[string]*db.CacheEntry
	getErr  error
	putErr  error
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*db.CacheEntry)}
}

func (f *fakeCache) key(module, conversationID string) string {
	return module + "/" + conversationID
}

func (f *fakeCache) Get(_ context.Context, module, conversationID string) (*db.CacheEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[f.key(module, conversationID)], nil
}

func (f *fakeCache) Upsert(_ context.Context, module, conversationID string, upTo int64, summary string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.entries[f.key(module, conversationID)] = &db.CacheEntry{
		Module:               module,
		ConversationID:       conversationID,
		CompressedUpToTurnID: sql.NullInt64{Int64: upTo, Valid: true},
		SummaryText:          summary,
	}
	return nil
}

// fakeSummarizer counts calls and returns a deterministic summary.
type fakeSummarizer struct {
	calls int
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, existing string, newTurns []types.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("summary(prev=%d chars, new=%d turns)", len(existing), len(newTurns)), nil
}

func makeTurns(n int, content string) []db.Turn {
	turns := make([]db.Turn, n)
	for i := range turns {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		turns[i] = db.Turn{ID: int64(i + 1), Role: role, Content: content}
	}
	return turns
}

func defaultOpts() Options {
	return Options{Enabled: true, TriggerRatio: 0.65, MinExtraTurns: 5, ResummarizeAfter: 5}
}

func TestCompressDisabled(t *testing.T) {
	cache := newFakeCache()
	summ := &fakeSummarizer{}
	turns := makeTurns(100, strings.Repeat("word ", 200))

	o := NewOrchestrator(Options{Enabled: false, TriggerRatio: 0.65}, cache, summ)
	res := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if res.Compressed || res.SummarizerCalled || len(res.Messages) != 100 {
		t.Errorf("disabled compression must pass through: %+v", res)
	}

	// Per-conversation opt-out behaves the same.
	o = NewOrchestrator(defaultOpts(), cache, summ)
	res = o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, false)
	if res.Compressed || summ.calls != 0 {
		t.Errorf("conversation opt-out must pass through: %+v", res)
	}
}

func TestCompressInsufficientHistory(t *testing.T) {
	o := NewOrchestrator(defaultOpts(), newFakeCache(), &fakeSummarizer{})
	// keepRecent(20) + slack(5) turns, each enormous: still no compression.
	turns := makeTurns(25, strings.Repeat("word ", 2000))
	res := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if res.Compressed {
		t.Error("insufficient history must never compress")
	}
}

func TestCompressUnderBudget(t *testing.T) {
	summ := &fakeSummarizer{}
	o := NewOrchestrator(defaultOpts(), newFakeCache(), summ)
	turns := makeTurns(40, "short message")
	res := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if res.Compressed || summ.calls != 0 {
		t.Errorf("under-budget history must pass through: %+v", res)
	}
	if len(res.Messages) != 40 {
		t.Errorf("expected all 40 turns, got %d", len(res.Messages))
	}
}

func TestCompressBudgetBoundary(t *testing.T) {
	// Build a history that estimates just under the threshold, then push it
	// over by a single message and check both sides of the boundary.
	opts := defaultOpts()
	limit := tokens.ContextLimitFor("gpt-4")
	budget := int(opts.TriggerRatio * float64(limit)) // 5324

	turns := makeTurns(40, "")
	perTurn := tokens.Estimate("")
	remaining := budget - 1 - (40-1)*perTurn
	// One fat turn brings the total to exactly budget-1 estimated tokens.
	fat := strings.Repeat("我", int(float64(remaining-tokens.MessageOverhead)/1.7))
	turns[0].Content = fat

	total := 0
	for _, tr := range turns {
		total += tokens.Estimate(tr.Content)
	}
	if total >= budget {
		t.Fatalf("test construction: total %d should be below budget %d", total, budget)
	}

	summ := &fakeSummarizer{}
	o := NewOrchestrator(opts, newFakeCache(), summ)
	res := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if res.Compressed {
		t.Errorf("below threshold must not compress (total=%d budget=%d)", total, budget)
	}

	// Push over the threshold.
	turns[1].Content = strings.Repeat("我", budget-total)
	res = o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if !res.Compressed {
		t.Error("at/above threshold must compress")
	}
	if summ.calls != 1 {
		t.Errorf("expected exactly one summarizer call, got %d", summ.calls)
	}
}

func TestCompressIdempotent(t *testing.T) {
	cache := newFakeCache()
	summ := &fakeSummarizer{}
	o := NewOrchestrator(defaultOpts(), cache, summ)
	turns := makeTurns(60, strings.Repeat("many words in this turn ", 20))
	system := []types.Message{{Role: "system", Content: "persona prompt"}}

	first := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", system, turns, true)
	if !first.Compressed || !first.SummarizerCalled {
		t.Fatalf("first run should compress and call summarizer: %+v", first)
	}
	if summ.calls != 1 {
		t.Fatalf("expected 1 summarizer call, got %d", summ.calls)
	}

	second := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", system, turns, true)
	if !second.Compressed {
		t.Fatal("second run should still compress")
	}
	if second.SummarizerCalled || summ.calls != 1 {
		t.Errorf("unchanged history must not trigger a second summarizer call (calls=%d)", summ.calls)
	}
	if !reflect.DeepEqual(first.Messages, second.Messages) {
		t.Error("unchanged history must produce identical output")
	}
}

func TestCompressOutputShape(t *testing.T) {
	cache := newFakeCache()
	o := NewOrchestrator(defaultOpts(), cache, &fakeSummarizer{})
	turns := makeTurns(60, strings.Repeat("many words in this turn ", 20))
	system := []types.Message{{Role: "system", Content: "persona prompt"}}

	res := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", system, turns, true)

	// system + summary + 20 recent turns
	if len(res.Messages) != 1+1+20 {
		t.Fatalf("expected 22 messages, got %d", len(res.Messages))
	}
	if res.Messages[0].Content != "persona prompt" {
		t.Error("system messages must come first")
	}
	if res.Messages[1].Role != "system" || !strings.Contains(res.Messages[1].Content, "Summary of the earlier conversation") {
		t.Errorf("second message must be the summary: %+v", res.Messages[1])
	}
	// Recent turns are the last 20, verbatim.
	if res.Messages[2].Content != turns[40].Content {
		t.Error("recent window should start at turn 41")
	}

	// The cache recorded the boundary turn ID.
	entry := cache.entries["chitchat/c1"]
	if entry == nil || entry.CompressedUpToTurnID.Int64 != turns[39].ID {
		t.Errorf("cache boundary should be turn 40, got %+v", entry)
	}
}

func TestCompressStaleBoundaryIsMiss(t *testing.T) {
	cache := newFakeCache()
	summ := &fakeSummarizer{}
	o := NewOrchestrator(defaultOpts(), cache, summ)
	turns := makeTurns(60, strings.Repeat("many words in this turn ", 20))

	// Cache points at a turn ID that no longer resolves (history pruned).
	cache.entries["chitchat/c1"] = &db.CacheEntry{
		CompressedUpToTurnID: sql.NullInt64{Int64: 9999, Valid: true},
		SummaryText:          "stale",
	}

	res := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if !res.Compressed || !res.SummarizerCalled {
		t.Errorf("stale boundary must trigger full resummarization: %+v", res)
	}
	// The refreshed entry covers the full pre-window range.
	entry := cache.entries["chitchat/c1"]
	if entry.SummaryText == "stale" {
		t.Error("stale summary should have been replaced")
	}
}

func TestCompressCacheFailuresDegrade(t *testing.T) {
	turns := makeTurns(60, strings.Repeat("many words in this turn ", 20))

	// Read failure: treated as miss, compression still happens.
	cache := newFakeCache()
	cache.getErr = errors.New("disk unhappy")
	summ := &fakeSummarizer{}
	o := NewOrchestrator(defaultOpts(), cache, summ)
	res := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if !res.Compressed || summ.calls != 1 {
		t.Errorf("cache read failure must degrade to miss: %+v", res)
	}

	// Write failure: compressed result is still returned.
	cache = newFakeCache()
	cache.putErr = errors.New("disk full")
	summ = &fakeSummarizer{}
	o = NewOrchestrator(defaultOpts(), cache, summ)
	res = o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if !res.Compressed {
		t.Error("cache write failure must not block the compressed result")
	}
}

func TestCompressSummarizerFailureFallsBack(t *testing.T) {
	summ := &fakeSummarizer{err: errors.New("upstream 500")}
	o := NewOrchestrator(defaultOpts(), newFakeCache(), summ)
	turns := makeTurns(60, strings.Repeat("many words in this turn ", 20))

	res := o.Compress(context.Background(), ModuleChitchat, "c1", "gpt-4", nil, turns, true)
	if res.Compressed {
		t.Error("summarizer failure must fall back to the uncompressed list")
	}
	if len(res.Messages) != 60 {
		t.Errorf("fallback should carry the full history, got %d messages", len(res.Messages))
	}
}

func TestCompressShrinkToFloor(t *testing.T) {
	// Token-scarce module with turns so large the budget is unreachable:
	// the window shrinks to the floor and the orchestrator still returns.
	summ := &fakeSummarizer{}
	o := NewOrchestrator(defaultOpts(), newFakeCache(), summ)
	turns := makeTurns(40, strings.Repeat("我", 2000))

	res := o.Compress(context.Background(), ModuleSnackFeed, "c1", "gpt-4", nil, turns, true)
	if !res.Compressed {
		t.Fatal("expected compression")
	}
	set := SettingsFor(ModuleSnackFeed)
	// summary + floor turns
	if len(res.Messages) != 1+set.KeepRecentFloor {
		t.Errorf("expected summary + %d floor turns, got %d messages",
			set.KeepRecentFloor, len(res.Messages))
	}
	// Speaker tags applied to the recent window.
	if !strings.HasPrefix(res.Messages[1].Content, "[") {
		t.Errorf("snack-feed turns should be speaker-tagged: %q", res.Messages[1].Content[:20])
	}
}

func TestCompressKeepRecentOverride(t *testing.T) {
	opts := defaultOpts()
	opts.KeepRecent = map[Module]int{
		ModuleSnackFeed: 15,
		ModuleChitchat:  99, // clamped to the chitchat ceiling of 20
	}
	o := NewOrchestrator(opts, newFakeCache(), &fakeSummarizer{})
	turns := makeTurns(60, strings.Repeat("many words in this turn ", 20))

	res := o.Compress(context.Background(), ModuleSnackFeed, "c1", "gpt-4", nil, turns, true)
	if !res.Compressed {
		t.Fatal("expected compression")
	}
	// summary + the overridden window; comfortably under budget, no shrink.
	if len(res.Messages) != 1+15 {
		t.Errorf("expected 16 messages with override, got %d", len(res.Messages))
	}

	res = o.Compress(context.Background(), ModuleChitchat, "c2", "gpt-4", nil, turns, true)
	if len(res.Messages) != 1+20 {
		t.Errorf("out-of-range override must clamp to 20, got %d messages", len(res.Messages))
	}
}

func TestParseModule(t *testing.T) {
	tests := []struct {
		in   string
		want Module
	}{
		{"", ModuleChitchat},
		{"chitchat", ModuleChitchat},
		{"snack-feed", ModuleSnackFeed},
		{"syzygy-feed", ModuleSyzygyFeed},
		{"rp-room", ModuleRpRoom},
		{"bogus", ModuleChitchat},
	}
	for _, tt := range tests {
		if got := ParseModule(tt.in); got != tt.want {
			t.Errorf("ParseModule(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
