package svc

import (
	"fmt"
	"strings"

	"github.com/plumeai/plume/internal/ai"
	"github.com/plumeai/plume/internal/compress"
	"github.com/plumeai/plume/internal/config"
	"github.com/plumeai/plume/internal/db"
	"github.com/plumeai/plume/internal/logging"
	"github.com/plumeai/plume/internal/memory"
)

// ServiceContext holds everything handlers and logic need: config, storage,
// the upstream providers, and the compression and memory machinery built on
// top of them.
type ServiceContext struct {
	Config  config.Config
	Version string

	DB *db.Store

	// Providers by ID. DefaultProvider serves requests whose model string
	// does not select the other provider.
	Providers       map[string]ai.Provider
	DefaultProvider ai.Provider

	Summarizer   *ai.Summarizer
	Extractor    *ai.Extractor
	Orchestrator *compress.Orchestrator
	Memories     *memory.Pipeline
}

// NewServiceContext opens the database and wires the service graph.
func NewServiceContext(c config.Config, version string) (*ServiceContext, error) {
	store, err := db.Open(c.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("svc: open database: %w", err)
	}

	providers := make(map[string]ai.Provider)
	if c.Providers.OpenAI.APIKey != "" {
		providers["openai"] = ai.NewOpenAIProvider(
			c.Providers.OpenAI.APIKey, c.Providers.OpenAI.BaseURL, c.Providers.OpenAI.Model)
	}
	if c.Providers.Anthropic.APIKey != "" {
		providers["anthropic"] = ai.NewAnthropicProvider(
			c.Providers.Anthropic.APIKey, c.Providers.Anthropic.BaseURL, c.Providers.Anthropic.Model)
	}
	if len(providers) == 0 {
		store.Close()
		return nil, fmt.Errorf("svc: no provider configured; set an OpenAI or Anthropic API key")
	}
	def, ok := providers[c.Providers.Default]
	if !ok {
		for _, p := range providers {
			def = p
			break
		}
	}

	summarizer := ai.NewSummarizer(def, c.Compression.SummaryModel)
	extractor := ai.NewExtractor(def, c.Memory.ExtractModel)

	keepRecent := make(map[compress.Module]int)
	for name, n := range c.Compression.KeepRecent {
		m := compress.Module(name)
		if string(compress.ParseModule(name)) != name {
			logging.Warnf("svc: ignoring keepRecent override for unknown module %q", name)
			continue
		}
		keepRecent[m] = n
	}

	orchestrator := compress.NewOrchestrator(compress.Options{
		Enabled:          c.IsCompressionEnabled(),
		TriggerRatio:     c.Compression.TriggerRatio,
		MinExtraTurns:    c.Compression.MinExtraTurns,
		ResummarizeAfter: c.Compression.ResummarizeAfter,
		KeepRecent:       keepRecent,
	}, store.Cache, summarizer)

	pipeline := memory.NewPipeline(extractor, store.Memories, memory.Options{
		MinLength:         c.Memory.MinLength,
		MaxPerRun:         c.Memory.MaxPerRun,
		ClusterThreshold:  c.Memory.ClusterThreshold,
		ExistingThreshold: c.Memory.ExistingThreshold,
		MergeEnabled:      c.IsMemoryMergeEnabled(),
	})

	return &ServiceContext{
		Config:          c,
		Version:         version,
		DB:              store,
		Providers:       providers,
		DefaultProvider: def,
		Summarizer:      summarizer,
		Extractor:       extractor,
		Orchestrator:    orchestrator,
		Memories:        pipeline,
	}, nil
}

// ProviderFor picks the provider for a model string: models starting with
// "claude" route to Anthropic when configured, everything else to the
// default.
func (s *ServiceContext) ProviderFor(model string) ai.Provider {
	if strings.HasPrefix(strings.ToLower(model), "claude") {
		if p, ok := s.Providers["anthropic"]; ok {
			return p
		}
	}
	return s.DefaultProvider
}

// Close releases held resources.
func (s *ServiceContext) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
