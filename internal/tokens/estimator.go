// Package tokens estimates model-token cost of text without a tokenizer.
//
// The estimate is a calibrated heuristic, not an exact count for any
// particular model. CJK ideographs cost more than a Latin word token, and
// stray punctuation costs a fraction of one. Callers that need hard limits
// should treat the result as approximate and leave headroom.
package tokens

import (
	"math"
	"unicode"

	"github.com/plumeai/plume/internal/types"
)

// Per-rune weights. CJK text runs close to 1.5-2 tokens per ideograph on
// the tokenizers we relay to; a Latin word averages just over one token.
const (
	cjkWeight   = 1.7
	wordWeight  = 1.1
	otherWeight = 0.3

	// MessageOverhead is the fixed framing cost the upstream APIs charge
	// per message regardless of content.
	MessageOverhead = 4
)

// Estimate returns the approximate token cost of a single message body.
// Empty or whitespace-only text still costs MessageOverhead.
func Estimate(text string) int {
	var cjk, words, other int
	inWord := false
	for _, r := range text {
		switch {
		case isCJK(r):
			cjk++
			inWord = false
		case isWordRune(r):
			if !inWord {
				words++
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		default:
			other++
			inWord = false
		}
	}
	raw := cjkWeight*float64(cjk) + wordWeight*float64(words) + otherWeight*float64(other)
	return int(math.Ceil(raw)) + MessageOverhead
}

// EstimateTotal sums the per-message estimates for a message list.
func EstimateTotal(messages []types.Message) int {
	total := 0
	for _, m := range messages {
		total += Estimate(m.Content)
	}
	return total
}

// isWordRune matches [A-Za-z0-9_], the characters that form a word token.
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// isCJK reports whether r is a CJK ideograph or kana.
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // Extension A
		return true
	case r >= 0xF900 && r <= 0xFAFF: // Compatibility Ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // Hiragana, Katakana
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // Hangul Syllables
		return true
	}
	return false
}
