// Package stream splits one interleaved model output stream into answer and
// reasoning text. Reasoning is delimited by <think>...</think> markers that
// may straddle chunk boundaries; the splitter carries partial marker
// prefixes between calls so any chunking of the input yields the same split
// as feeding it whole.
package stream

import "strings"

// Markers delimiting a reasoning region in the raw stream.
const (
	OpenMarker  = "<think>"
	CloseMarker = "</think>"
)

// Splitter is an incremental marker-splitting state machine. It is owned by
// a single stream consumer and is not safe for concurrent use.
type Splitter struct {
	inThink   bool
	carry     string
	answer    strings.Builder
	reasoning strings.Builder
}

// NewSplitter returns a splitter positioned outside any reasoning region.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Write consumes one raw delta and returns the answer and reasoning text it
// produced. Text that might be the start of a marker is held back until the
// next call decides.
func (s *Splitter) Write(delta string) (answer, reasoning string) {
	text := s.carry + delta
	s.carry = ""

	var ans, rsn strings.Builder
	for text != "" {
		marker := OpenMarker
		if s.inThink {
			marker = CloseMarker
		}
		if idx := strings.Index(text, marker); idx >= 0 {
			if s.inThink {
				rsn.WriteString(text[:idx])
			} else {
				ans.WriteString(text[:idx])
			}
			text = text[idx+len(marker):]
			s.inThink = !s.inThink
			continue
		}
		keep := partialSuffix(text, marker)
		emit := text[:len(text)-len(keep)]
		if s.inThink {
			rsn.WriteString(emit)
		} else {
			ans.WriteString(emit)
		}
		s.carry = keep
		break
	}

	answer, reasoning = ans.String(), rsn.String()
	s.answer.WriteString(answer)
	s.reasoning.WriteString(reasoning)
	return answer, reasoning
}

// Finish ends the stream and returns any final answer text. A carry held
// outside a reasoning region was ordinary text that happened to look like a
// marker prefix, so it flushes as answer. Text inside an unterminated
// reasoning region stays reasoning and is never surfaced as answer.
func (s *Splitter) Finish() (answer string) {
	if s.carry == "" {
		return ""
	}
	carry := s.carry
	s.carry = ""
	if s.inThink {
		s.reasoning.WriteString(carry)
		return ""
	}
	s.answer.WriteString(carry)
	return carry
}

// Answer returns all answer text emitted so far.
func (s *Splitter) Answer() string { return s.answer.String() }

// Reasoning returns all reasoning text emitted so far.
func (s *Splitter) Reasoning() string { return s.reasoning.String() }

// Split runs a complete string through a fresh splitter, including the
// end-of-stream flush.
func Split(text string) (answer, reasoning string) {
	s := NewSplitter()
	s.Write(text)
	s.Finish()
	return s.Answer(), s.Reasoning()
}

// partialSuffix returns the longest suffix of text that is a strict prefix
// of marker, or "" if none.
func partialSuffix(text, marker string) string {
	max := len(marker) - 1
	if max > len(text) {
		max = len(text)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(text, marker[:n]) {
			return text[len(text)-n:]
		}
	}
	return ""
}
