// Package config loads the relay configuration from YAML with environment
// variable expansion, applying defaults for everything left unset.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full relay configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlitePath"`
	} `yaml:"database"`
	Providers struct {
		// Default selects which provider serves requests that do not name
		// a model the other provider owns: "openai" or "anthropic".
		Default string `yaml:"default"`
		OpenAI  struct {
			APIKey  string `yaml:"apiKey"`
			BaseURL string `yaml:"baseURL"`
			Model   string `yaml:"model"`
		} `yaml:"openai"`
		Anthropic struct {
			APIKey  string `yaml:"apiKey"`
			BaseURL string `yaml:"baseURL"`
			Model   string `yaml:"model"`
		} `yaml:"anthropic"`
	} `yaml:"providers"`
	Compression struct {
		Enabled          string  `yaml:"enabled"`
		TriggerRatio     float64 `yaml:"triggerRatio"`
		MinExtraTurns    int     `yaml:"minExtraTurns"`
		ResummarizeAfter int     `yaml:"resummarizeAfter"`
		// SummaryModel overrides the provider default model for
		// summarization calls.
		SummaryModel string `yaml:"summaryModel"`
		// KeepRecent overrides the keep-recent window per module, e.g.
		// {chitchat: 30}. Values are clamped into the module's range.
		KeepRecent map[string]int `yaml:"keepRecent"`
	} `yaml:"compression"`
	Memory struct {
		Enabled           string  `yaml:"enabled"`
		MinLength         int     `yaml:"minLength"`
		MaxPerRun         int     `yaml:"maxPerRun"`
		ClusterThreshold  float64 `yaml:"clusterThreshold"`
		ExistingThreshold float64 `yaml:"existingThreshold"`
		MergeEnabled      string  `yaml:"mergeEnabled"`
		// ExtractModel overrides the provider default model for
		// extraction calls.
		ExtractModel string `yaml:"extractModel"`
		// SweepCron schedules the background extraction sweep over
		// recently active conversations.
		SweepCron string `yaml:"sweepCron"`
		// SweepWindow is how many recent turns each sweep feeds the
		// extractor per conversation.
		SweepWindow int `yaml:"sweepWindow"`
	} `yaml:"memory"`
}

// Load reads and parses the config file at path. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c := Config{}
			c.applyDefaults()
			return c, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML bytes with environment variable expansion.
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return c, fmt.Errorf("config: parse: %w", err)
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 27460
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "./data/plume.db"
	}
	if c.Providers.Default == "" {
		c.Providers.Default = "openai"
	}
	if c.Providers.OpenAI.Model == "" {
		c.Providers.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Providers.Anthropic.Model == "" {
		c.Providers.Anthropic.Model = "claude-3-5-haiku-20241022"
	}
	if c.Compression.TriggerRatio <= 0 || c.Compression.TriggerRatio >= 1 {
		c.Compression.TriggerRatio = 0.65
	}
	if c.Compression.MinExtraTurns <= 0 {
		c.Compression.MinExtraTurns = 25
	}
	if c.Compression.ResummarizeAfter <= 0 {
		c.Compression.ResummarizeAfter = 5
	}
	if c.Memory.MinLength <= 0 {
		c.Memory.MinLength = 8
	}
	if c.Memory.MaxPerRun <= 0 {
		c.Memory.MaxPerRun = 10
	}
	if c.Memory.ClusterThreshold <= 0 || c.Memory.ClusterThreshold >= 1 {
		c.Memory.ClusterThreshold = 0.75
	}
	if c.Memory.ExistingThreshold <= 0 || c.Memory.ExistingThreshold >= 1 {
		c.Memory.ExistingThreshold = 0.85
	}
	if c.Memory.SweepCron == "" {
		c.Memory.SweepCron = "0 */6 * * *"
	}
	if c.Memory.SweepWindow <= 0 {
		c.Memory.SweepWindow = 30
	}
}

// Addr returns the host:port the server binds.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsCompressionEnabled reports the global compression switch, on by default.
func (c Config) IsCompressionEnabled() bool {
	return parseBool(c.Compression.Enabled, true)
}

// IsMemoryEnabled reports the memory extraction switch, on by default.
func (c Config) IsMemoryEnabled() bool {
	return parseBool(c.Memory.Enabled, true)
}

// IsMemoryMergeEnabled reports whether near-duplicate candidates are merged
// within an extraction run, on by default.
func (c Config) IsMemoryMergeEnabled() bool {
	return parseBool(c.Memory.MergeEnabled, true)
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty returns the default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}
