// Package compress decides, per request, whether conversation history must
// be summarized to fit the token budget, maintains the per-conversation
// summary cache, and assembles the bounded message list sent upstream.
package compress

import (
	"context"
	"fmt"

	"github.com/plumeai/plume/internal/db"
	"github.com/plumeai/plume/internal/logging"
	"github.com/plumeai/plume/internal/tokens"
	"github.com/plumeai/plume/internal/types"
)

// CacheStore is the persistence contract for summary cache entries. The
// orchestrator treats read and write failures as cache misses and logged
// warnings respectively; they never fail a request.
type CacheStore interface {
	Get(ctx context.Context, module, conversationID string) (*db.CacheEntry, error)
	Upsert(ctx context.Context, module, conversationID string, upToTurnID int64, summaryText string) error
}

// Summarizer folds new turns into an existing summary. It is only ever
// given turns it has not seen; the orchestrator manages the window.
type Summarizer interface {
	Summarize(ctx context.Context, existingSummary string, newTurns []types.Message) (string, error)
}

// Options are the global compression knobs; per-module behavior comes from
// ModuleSettings.
type Options struct {
	// Enabled turns compression on globally. Per-conversation opt-out is
	// passed to Compress by the caller.
	Enabled bool
	// TriggerRatio is the fraction of the model's context window at which
	// compression kicks in.
	TriggerRatio float64
	// MinExtraTurns is the slack beyond the keep window below which
	// compression is not even considered, preventing thrash on
	// conversations just above the keep window.
	MinExtraTurns int
	// ResummarizeAfter is the number of new turns past the cache boundary
	// that forces a summary refresh. Below it the cached summary is reused
	// verbatim with no model call.
	ResummarizeAfter int
	// KeepRecent overrides the per-module keep-recent window, clamped into
	// the module's floor/ceiling range.
	KeepRecent map[Module]int
}

// Result is the assembled outbound message list plus what happened.
type Result struct {
	Messages []types.Message
	// Compressed reports whether a summary message replaced older turns.
	Compressed bool
	// SummarizerCalled reports whether this request paid for a model call.
	SummarizerCalled bool
}

// Orchestrator runs the per-request compression state machine.
type Orchestrator struct {
	opts      Options
	cache     CacheStore
	summarize Summarizer
}

// NewOrchestrator wires the orchestrator with its collaborators.
func NewOrchestrator(opts Options, cache CacheStore, summarizer Summarizer) *Orchestrator {
	if opts.TriggerRatio <= 0 || opts.TriggerRatio >= 1 {
		// Assumes validated config; clamp defensively to the default.
		opts.TriggerRatio = 0.65
	}
	return &Orchestrator{opts: opts, cache: cache, summarize: summarizer}
}

// Compress returns the outbound message list for one request: system
// messages, then (when compressing) a single summary message, then the
// formatted recent turns. conversationEnabled carries the per-conversation
// opt-out.
func (o *Orchestrator) Compress(
	ctx context.Context,
	module Module,
	conversationID string,
	modelID string,
	system []types.Message,
	turns []db.Turn,
	conversationEnabled bool,
) Result {
	set := o.settings(module)

	if !o.opts.Enabled || !conversationEnabled {
		return Result{Messages: passThrough(system, turns, set)}
	}

	// Too little history to be worth summarizing. Module formatting
	// (speaker tags) still applies.
	if len(turns) <= set.KeepRecent+o.opts.MinExtraTurns {
		return Result{Messages: passThrough(system, turns, set)}
	}

	budget := o.opts.TriggerRatio * float64(tokens.ContextLimitFor(modelID))
	full := passThrough(system, turns, set)
	if float64(tokens.EstimateTotal(full)) < budget {
		return Result{Messages: full}
	}

	// Cache lookup. Read failures and unresolvable boundaries are misses,
	// never errors: the live history is the only authority on positions.
	entry, err := o.cache.Get(ctx, string(module), conversationID)
	if err != nil {
		logging.Warnf("compress: cache read for %s/%s failed: %v", module, conversationID, err)
		entry = nil
	}
	cacheBoundary := -1 // index just past the last summarized turn
	existingSummary := ""
	if entry != nil && entry.CompressedUpToTurnID.Valid {
		for i := range turns {
			if turns[i].ID == entry.CompressedUpToTurnID.Int64 {
				cacheBoundary = i + 1
				existingSummary = entry.SummaryText
				break
			}
		}
		if cacheBoundary < 0 {
			logging.Infof("compress: cache boundary %d not in live history for %s/%s, full resummarize",
				entry.CompressedUpToTurnID.Int64, module, conversationID)
		}
	}

	targetBoundary := len(turns) - set.KeepRecent

	summary := existingSummary
	summaryBoundary := cacheBoundary
	called := false

	// A cache within ResummarizeAfter turns of the target is fresh enough
	// to reuse verbatim.
	if cacheBoundary < 0 || targetBoundary-cacheBoundary >= o.opts.ResummarizeAfter {
		start := 0
		if cacheBoundary > 0 {
			start = cacheBoundary
		}
		newTurns := formatTurns(turns[start:targetBoundary], set)
		refreshed, err := o.summarize.Summarize(ctx, existingSummary, newTurns)
		if err != nil {
			// Degrade to the uncompressed list; next request retries.
			logging.Errorf("compress: summarize for %s/%s failed: %v", module, conversationID, err)
			return Result{Messages: full}
		}
		summary = refreshed
		summaryBoundary = targetBoundary
		called = true

		upTo := turns[targetBoundary-1].ID
		if err := o.cache.Upsert(ctx, string(module), conversationID, upTo, summary); err != nil {
			// Summarization succeeded; a lost cache write only means
			// re-summarizing next time.
			logging.Errorf("compress: cache write for %s/%s failed: %v", module, conversationID, err)
		}
	}

	out := o.assemble(system, summary, turns[summaryBoundary:], set, budget, module, conversationID)
	return Result{Messages: out, Compressed: true, SummarizerCalled: called}
}

// settings returns the module profile with any configured keep-recent
// override applied, clamped into the module's floor/ceiling range.
func (o *Orchestrator) settings(m Module) ModuleSettings {
	set := SettingsFor(m)
	if n, ok := o.opts.KeepRecent[m]; ok && n > 0 {
		set.KeepRecent = n
		if set.KeepRecent < set.KeepRecentFloor {
			set.KeepRecent = set.KeepRecentFloor
		}
		if set.KeepRecent > set.KeepRecentCeil {
			set.KeepRecent = set.KeepRecentCeil
		}
	}
	return set
}

// assemble builds system + summary + recent turns. Token-scarce modules
// shrink the recent window one turn at a time down to the floor when the
// assembly still exceeds the budget.
func (o *Orchestrator) assemble(
	system []types.Message,
	summary string,
	recent []db.Turn,
	set ModuleSettings,
	budget float64,
	module Module,
	conversationID string,
) []types.Message {
	build := func(window []db.Turn) []types.Message {
		out := make([]types.Message, 0, len(system)+1+len(window))
		out = append(out, system...)
		out = append(out, types.Message{
			Role:    "system",
			Content: "Summary of the earlier conversation:\n" + summary,
		})
		out = append(out, formatTurns(window, set)...)
		return out
	}

	out := build(recent)
	if !set.ShrinkToFit {
		return out
	}

	keep := len(recent)
	for float64(tokens.EstimateTotal(out)) >= budget && keep > set.KeepRecentFloor {
		keep--
		out = build(recent[len(recent)-keep:])
	}
	if float64(tokens.EstimateTotal(out)) >= budget {
		// Hard floor reached. Return the floor assembly rather than
		// looping or failing; pathologically long single turns can
		// make the budget unreachable.
		logging.Warnf("compress: %s/%s still over budget at keep-recent floor %d",
			module, conversationID, set.KeepRecentFloor)
	}
	return out
}

// passThrough formats the full history without summarizing.
func passThrough(system []types.Message, turns []db.Turn, set ModuleSettings) []types.Message {
	out := make([]types.Message, 0, len(system)+len(turns))
	out = append(out, system...)
	out = append(out, formatTurns(turns, set)...)
	return out
}

// formatTurns maps stored turns to outbound messages, applying the
// module's speaker tagging.
func formatTurns(turns []db.Turn, set ModuleSettings) []types.Message {
	out := make([]types.Message, 0, len(turns))
	for _, t := range turns {
		content := t.Content
		if set.SpeakerTags {
			content = fmt.Sprintf("[%s]: %s", t.Role, t.Content)
		}
		out = append(out, types.Message{Role: t.Role, Content: content})
	}
	return out
}
