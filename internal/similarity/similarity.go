// Package similarity provides lexical similarity over short texts, used to
// de-duplicate extracted memories. Texts with whitespace word boundaries are
// compared as word sets; CJK text is compared as overlapping character
// bigrams. Similarity is the Jaccard index over those token sets.
package similarity

import (
	"sort"
	"strings"
	"unicode"
)

// Tokenize returns the normalized token set of text. CJK text tokenizes as
// character bigrams over the punctuation-stripped compact form; everything
// else as whitespace-delimited words, falling back to bigrams when no word
// tokens result.
func Tokenize(text string) map[string]struct{} {
	norm := normalize(text)
	if norm == "" {
		return map[string]struct{}{}
	}
	if containsCJK(norm) {
		return bigrams(compact(norm))
	}
	set := make(map[string]struct{})
	for _, w := range strings.Fields(norm) {
		set[w] = struct{}{}
	}
	if len(set) == 0 {
		return bigrams(compact(norm))
	}
	return set
}

// Similarity returns the Jaccard index of the token sets of a and b.
// Returns 0 when either set is empty.
func Similarity(a, b string) float64 {
	return jaccard(Tokenize(a), Tokenize(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Cluster greedily groups items whose similarity to any member of an
// existing cluster meets the threshold, then returns one representative per
// cluster: the shortest member, ties broken lexicographically. Shorter text
// wins because it tends to carry the same fact with less narrative padding.
func Cluster(items []string, threshold float64) []string {
	type cluster struct {
		members []string
		sets    []map[string]struct{}
	}
	var clusters []cluster

next:
	for _, item := range items {
		set := Tokenize(item)
		for i := range clusters {
			for _, memberSet := range clusters[i].sets {
				if jaccard(set, memberSet) >= threshold {
					clusters[i].members = append(clusters[i].members, item)
					clusters[i].sets = append(clusters[i].sets, set)
					continue next
				}
			}
		}
		clusters = append(clusters, cluster{members: []string{item}, sets: []map[string]struct{}{set}})
	}

	reps := make([]string, 0, len(clusters))
	for _, c := range clusters {
		members := append([]string(nil), c.members...)
		sort.Slice(members, func(i, j int) bool {
			li, lj := len([]rune(members[i])), len([]rune(members[j]))
			if li != lj {
				return li < lj
			}
			return members[i] < members[j]
		})
		reps = append(reps, members[0])
	}
	return reps
}

// DedupOptions tunes DeduplicateAgainstExisting.
type DedupOptions struct {
	// MinLength rejects candidates shorter than this many runes.
	MinLength int
	// MaxAccepted caps the number of accepted candidates per call.
	// Zero means no cap.
	MaxAccepted int
	// Threshold rejects candidates at or above this similarity to any
	// stored content or already-accepted candidate.
	Threshold float64
}

// DedupResult reports accepted candidates and how many were skipped.
type DedupResult struct {
	Accepted []string
	Skipped  int
}

// DeduplicateAgainstExisting filters candidates, in order, against the
// stored contents and against each other. A candidate is skipped when it is
// too short, normalizes identically to an already-accepted candidate, or is
// at least Threshold-similar to stored content or an accepted candidate.
func DeduplicateAgainstExisting(candidates, existing []string, opts DedupOptions) DedupResult {
	existingSets := make([]map[string]struct{}, 0, len(existing))
	for _, e := range existing {
		existingSets = append(existingSets, Tokenize(e))
	}

	var res DedupResult
	acceptedNorms := make(map[string]struct{})
	var acceptedSets []map[string]struct{}

	for _, cand := range candidates {
		trimmed := strings.TrimSpace(cand)
		if len([]rune(trimmed)) < opts.MinLength {
			res.Skipped++
			continue
		}
		if opts.MaxAccepted > 0 && len(res.Accepted) >= opts.MaxAccepted {
			res.Skipped++
			continue
		}
		norm := normalize(trimmed)
		if _, dup := acceptedNorms[norm]; dup {
			res.Skipped++
			continue
		}
		set := Tokenize(trimmed)
		if tooSimilar(set, existingSets, opts.Threshold) || tooSimilar(set, acceptedSets, opts.Threshold) {
			res.Skipped++
			continue
		}
		res.Accepted = append(res.Accepted, trimmed)
		acceptedNorms[norm] = struct{}{}
		acceptedSets = append(acceptedSets, set)
	}
	return res
}

func tooSimilar(set map[string]struct{}, against []map[string]struct{}, threshold float64) bool {
	for _, other := range against {
		if jaccard(set, other) >= threshold {
			return true
		}
	}
	return false
}

// normalize lowercases, strips punctuation and symbols, and collapses
// whitespace runs to single spaces.
func normalize(text string) string {
	var sb strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				sb.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// Stripped entirely; a punctuation run does not split words
			// any further than the surrounding whitespace already does.
		default:
			sb.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

// compact removes all whitespace, leaving the rune sequence bigrams run over.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// bigrams returns the set of overlapping two-rune windows. A single-rune
// input yields that rune as its only token.
func bigrams(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{})
	if len(runes) == 1 {
		set[string(runes)] = struct{}{}
		return set
	}
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}

func containsCJK(s string) bool {
	for _, r := range s {
		if (r >= 0x4E00 && r <= 0x9FFF) ||
			(r >= 0x3400 && r <= 0x4DBF) ||
			(r >= 0xF900 && r <= 0xFAFF) {
			return true
		}
	}
	return false
}
