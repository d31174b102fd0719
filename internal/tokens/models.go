package tokens

import "strings"

// DefaultContextWindow is used for models we have no entry for. Deliberately
// conservative so an unknown model triggers compression early rather than
// overflowing upstream.
const DefaultContextWindow = 8192

// contextWindows maps exact model IDs to their context window in tokens.
var contextWindows = map[string]int{
	"gpt-4o":                     128000,
	"gpt-4o-mini":                128000,
	"gpt-4-turbo":                128000,
	"gpt-4":                      8192,
	"gpt-3.5-turbo":              16385,
	"o1":                         200000,
	"o1-mini":                    128000,
	"o3-mini":                    200000,
	"claude-3-5-sonnet-20241022": 200000,
	"claude-3-5-haiku-20241022":  200000,
	"claude-3-opus-20240229":     200000,
	"deepseek-chat":              65536,
	"deepseek-reasoner":          65536,
	"qwen-turbo":                 131072,
	"qwen-plus":                  131072,
	"qwen-max":                   32768,
	"glm-4":                      128000,
	"glm-4-flash":                128000,
	"moonshot-v1-8k":             8192,
	"moonshot-v1-32k":            32768,
	"moonshot-v1-128k":           131072,
}

// familyWindows is consulted when no exact entry matches. First substring
// hit wins, so more specific families come first.
var familyWindows = []struct {
	substr string
	window int
}{
	{"gpt-4.1", 1047576},
	{"gpt-4o", 128000},
	{"gpt-4-turbo", 128000},
	{"gpt-4", 8192},
	{"gpt-3.5", 16385},
	{"o1", 200000},
	{"o3", 200000},
	{"claude", 200000},
	{"deepseek", 65536},
	{"qwen", 32768},
	{"glm", 128000},
	{"moonshot", 32768},
	{"gemini", 1048576},
	{"llama", 8192},
}

// ContextLimitFor returns the context window for a model ID. Exact matches
// win over family substring matches; unknown models get DefaultContextWindow.
func ContextLimitFor(modelID string) int {
	if w, ok := contextWindows[modelID]; ok {
		return w
	}
	lower := strings.ToLower(modelID)
	for _, f := range familyWindows {
		if strings.Contains(lower, f.substr) {
			return f.window
		}
	}
	return DefaultContextWindow
}
