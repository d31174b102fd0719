package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	c, err := LoadFromBytes([]byte(""))
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Port != 27460 {
		t.Errorf("default port = %d", c.Server.Port)
	}
	if c.Database.SQLitePath != "./data/plume.db" {
		t.Errorf("default db path = %s", c.Database.SQLitePath)
	}
	if c.Compression.TriggerRatio != 0.65 || c.Compression.ResummarizeAfter != 5 || c.Compression.MinExtraTurns != 25 {
		t.Errorf("compression defaults = %+v", c.Compression)
	}
	if c.Memory.MinLength != 8 || c.Memory.MaxPerRun != 10 {
		t.Errorf("memory defaults = %+v", c.Memory)
	}
	if !c.IsCompressionEnabled() || !c.IsMemoryEnabled() || !c.IsMemoryMergeEnabled() {
		t.Error("feature switches should default on")
	}
}

func TestLoadFromBytesOverrides(t *testing.T) {
	c, err := LoadFromBytes([]byte(`
server:
  port: 9000
compression:
  enabled: "false"
  triggerRatio: 0.5
  keepRecent:
    snack-feed: 15
memory:
  maxPerRun: 3
`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Port != 9000 {
		t.Errorf("port = %d", c.Server.Port)
	}
	if c.IsCompressionEnabled() {
		t.Error("compression should be off")
	}
	if c.Compression.TriggerRatio != 0.5 {
		t.Errorf("ratio = %f", c.Compression.TriggerRatio)
	}
	if c.Memory.MaxPerRun != 3 {
		t.Errorf("maxPerRun = %d", c.Memory.MaxPerRun)
	}
	if c.Compression.KeepRecent["snack-feed"] != 15 {
		t.Errorf("keepRecent = %v", c.Compression.KeepRecent)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("PLUME_TEST_KEY", "sk-test-123")
	c, err := LoadFromBytes([]byte(`
providers:
  openai:
    apiKey: ${PLUME_TEST_KEY}
`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Providers.OpenAI.APIKey != "sk-test-123" {
		t.Errorf("apiKey = %q", c.Providers.OpenAI.APIKey)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Port != 27460 {
		t.Errorf("port = %d", c.Server.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plume.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8123\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Port != 8123 {
		t.Errorf("port = %d", c.Server.Port)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		def  bool
		want bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"no", true, false},
		{"garbage", true, false},
	}
	for _, tt := range tests {
		if got := parseBool(tt.in, tt.def); got != tt.want {
			t.Errorf("parseBool(%q, %v) = %v, want %v", tt.in, tt.def, got, tt.want)
		}
	}
}
