package tokens

import (
	"testing"

	"github.com/plumeai/plume/internal/types"
)

func TestEstimateEmpty(t *testing.T) {
	if got := Estimate(""); got != MessageOverhead {
		t.Errorf("empty text should cost overhead only, got %d", got)
	}
	if got := Estimate("   \n\t "); got != MessageOverhead {
		t.Errorf("whitespace-only text should cost overhead only, got %d", got)
	}
}

func TestEstimateWords(t *testing.T) {
	// "hello world" = 2 word tokens -> ceil(2.2) + overhead = 3 + 4
	if got := Estimate("hello world"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	// Underscores and digits are word characters, not punctuation.
	if got := Estimate("foo_bar42"); got != Estimate("hello") {
		t.Errorf("single word token expected for foo_bar42: got %d want %d", got, Estimate("hello"))
	}
}

func TestEstimateCJK(t *testing.T) {
	// 4 ideographs -> ceil(6.8) + overhead = 7 + 4
	if got := Estimate("我喜欢猫"); got != 11 {
		t.Errorf("expected 11, got %d", got)
	}
	// CJK must cost more per character than Latin.
	if Estimate("我喜欢猫") <= Estimate("abcd") {
		t.Error("CJK text should cost more than the same number of Latin letters")
	}
}

func TestEstimatePunctuation(t *testing.T) {
	// Punctuation costs a fraction of a word token.
	bare := Estimate("hello")
	punct := Estimate("hello!!!!")
	if punct <= bare {
		t.Errorf("punctuation should add cost: %d vs %d", punct, bare)
	}
	if punct-bare > 3 {
		t.Errorf("punctuation should be cheap: %d vs %d", punct, bare)
	}
}

func TestEstimateMonotonicity(t *testing.T) {
	samples := []string{
		"", "hi", "hello world", "我喜欢猫", "mixed 中文 and English",
		"symbols ~!@# only", "a very long sentence with many words in it indeed",
	}
	for _, a := range samples {
		for _, b := range samples {
			ab := Estimate(a + b)
			// Concatenation never reduces cost below either part minus
			// one overhead constant.
			if ab < Estimate(a)-MessageOverhead || ab < Estimate(b)-MessageOverhead {
				t.Errorf("estimate(%q+%q)=%d violates monotonicity (a=%d b=%d)",
					a, b, ab, Estimate(a), Estimate(b))
			}
		}
	}
}

func TestEstimateTotal(t *testing.T) {
	msgs := []types.Message{
		{Role: "system", Content: "be nice"},
		{Role: "user", Content: "hello"},
	}
	want := Estimate("be nice") + Estimate("hello")
	if got := EstimateTotal(msgs); got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
	if got := EstimateTotal(nil); got != 0 {
		t.Errorf("empty list should cost 0, got %d", got)
	}
}

func TestContextLimitFor(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"gpt-4o", 128000},                     // exact
		{"gpt-4", 8192},                        // exact, not swallowed by gpt-4o family
		{"claude-3-5-sonnet-20241022", 200000}, // exact
		{"claude-9-experimental", 200000},      // family fallback
		{"deepseek-chat-v9", 65536},            // family fallback
		{"totally-unknown-model", DefaultContextWindow},
	}
	for _, tt := range tests {
		if got := ContextLimitFor(tt.model); got != tt.want {
			t.Errorf("ContextLimitFor(%q) = %d, want %d", tt.model, got, tt.want)
		}
	}
}
