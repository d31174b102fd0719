// Package memory runs the extraction pipeline: ask the model for durable
// facts from recent turns, tolerantly parse its response, merge near-duplicate
// candidates, drop candidates already covered by stored memories, and persist
// what survives as pending rows.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/plumeai/plume/internal/db"
	"github.com/plumeai/plume/internal/logging"
	"github.com/plumeai/plume/internal/similarity"
	"github.com/plumeai/plume/internal/types"
)

// Extractor produces the model's raw response text for a window of turns.
type Extractor interface {
	Extract(ctx context.Context, turns []types.Message) (string, error)
}

// Store is the persistence contract the pipeline needs.
type Store interface {
	ListActiveContents(ctx context.Context) ([]string, error)
	InsertPending(ctx context.Context, contents []string) error
}

// Options tunes one extraction run.
type Options struct {
	// MinLength rejects candidates shorter than this many runes.
	MinLength int
	// MaxPerRun caps how many memories a single run may insert.
	MaxPerRun int
	// ClusterThreshold merges near-duplicate candidates within a run.
	ClusterThreshold float64
	// ExistingThreshold rejects candidates too similar to stored memories.
	ExistingThreshold float64
	// MergeEnabled turns intra-run clustering on. Off, candidates are only
	// checked against stored memories and each other verbatim.
	MergeEnabled bool
}

// DefaultOptions are the production knobs.
func DefaultOptions() Options {
	return Options{
		MinLength:         8,
		MaxPerRun:         10,
		ClusterThreshold:  0.75,
		ExistingThreshold: 0.85,
		MergeEnabled:      true,
	}
}

// Result reports one extraction run.
type Result struct {
	Inserted int
	Skipped  int
}

// Pipeline is the memory extraction pipeline.
type Pipeline struct {
	extractor Extractor
	store     Store
	opts      Options
}

// NewPipeline wires the pipeline with its collaborators.
func NewPipeline(extractor Extractor, store Store, opts Options) *Pipeline {
	if opts.MinLength <= 0 {
		opts.MinLength = 8
	}
	if opts.MaxPerRun <= 0 {
		opts.MaxPerRun = 10
	}
	if opts.ClusterThreshold <= 0 || opts.ClusterThreshold >= 1 {
		opts.ClusterThreshold = 0.75
	}
	if opts.ExistingThreshold <= 0 || opts.ExistingThreshold >= 1 {
		opts.ExistingThreshold = 0.85
	}
	return &Pipeline{extractor: extractor, store: store, opts: opts}
}

// Run performs one extraction over a window of recent turns. A response the
// parser cannot make sense of yields zero items, not an error: extraction is
// opportunistic and the next run gets another chance.
func (p *Pipeline) Run(ctx context.Context, turns []types.Message) (Result, error) {
	if len(turns) == 0 {
		return Result{}, nil
	}

	raw, err := p.extractor.Extract(ctx, turns)
	if err != nil {
		return Result{}, fmt.Errorf("memory: extract: %w", err)
	}

	candidates := ParseItems(raw)
	if len(candidates) == 0 {
		logging.Infof("memory: extraction produced no usable items")
		return Result{}, nil
	}

	if p.opts.MergeEnabled {
		candidates = similarity.Cluster(candidates, p.opts.ClusterThreshold)
	}

	existing, err := p.store.ListActiveContents(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("memory: list existing: %w", err)
	}

	dedup := similarity.DeduplicateAgainstExisting(candidates, existing, similarity.DedupOptions{
		MinLength:   p.opts.MinLength,
		MaxAccepted: p.opts.MaxPerRun,
		Threshold:   p.opts.ExistingThreshold,
	})

	if err := p.store.InsertPending(ctx, dedup.Accepted); err != nil {
		return Result{}, fmt.Errorf("memory: insert: %w", err)
	}

	res := Result{Inserted: len(dedup.Accepted), Skipped: dedup.Skipped}
	logging.Infof("memory: extraction run inserted %d, skipped %d", res.Inserted, res.Skipped)
	return res, nil
}

// ParseItems pulls candidate strings out of the model's response. It accepts
// {"items": [...]} where elements are bare strings or objects with a content
// field, tolerates surrounding prose and markdown fences, and returns nil for
// anything it cannot interpret.
func ParseItems(raw string) []string {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return nil
	}

	items := gjson.Get(text, "items")
	if !items.Exists() {
		// Models sometimes return a bare array, or wrap the JSON in prose.
		if parsed := gjson.Parse(text); parsed.IsArray() {
			items = parsed
		} else if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
			items = gjson.Get(text[start:end+1], "items")
		}
	}
	if !items.IsArray() {
		return nil
	}

	var out []string
	items.ForEach(func(_, value gjson.Result) bool {
		var content string
		switch {
		case value.Type == gjson.String:
			content = value.String()
		case value.IsObject():
			content = value.Get("content").String()
		}
		content = strings.TrimSpace(content)
		if content != "" {
			out = append(out, content)
		}
		return true
	})
	return out
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, leaving other text untouched.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// MemoryBlock renders stored memories as a system context block, or an empty
// string when there are none.
func MemoryBlock(memories []db.Memory) string {
	if len(memories) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Things you remember about the user from earlier conversations:\n")
	for _, m := range memories {
		sb.WriteString("- ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
