package consolidator

import (
	"strings"
)

// overlapKind identifies how two candidate texts relate. Detection runs in
// precedence order: containment, sequential suffix/prefix, shared-word
// ratio, then boundary word match.
type overlapKind int

const (
	overlapNone overlapKind = iota
	overlapContainment
	overlapSequential
	overlapWordRatio
	overlapBoundary
)

// overlapResult describes the strongest overlap found between two texts.
// reversed means the second text precedes the first in reading order.
type overlapResult struct {
	kind     overlapKind
	score    float64
	seqLen   int
	reversed bool
}

// detectOverlap finds the strongest overlap between a and b.
func (c *Consolidator) detectOverlap(a, b string) overlapResult {
	if a == "" || b == "" {
		return overlapResult{}
	}

	// (a) One text wholly contains the other as a prefix or suffix.
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	if strings.HasPrefix(longer, shorter) || strings.HasSuffix(longer, shorter) {
		return overlapResult{
			kind:  overlapContainment,
			score: float64(len(shorter)) / float64(len(longer)),
		}
	}

	// (b) A suffix of one equals a prefix of the other.
	if n := longestSuffixPrefix(a, b); n >= c.cfg.MinSequenceOverlap {
		return overlapResult{
			kind:   overlapSequential,
			score:  float64(n) / float64(min(len(a), len(b))),
			seqLen: n,
		}
	}
	if n := longestSuffixPrefix(b, a); n >= c.cfg.MinSequenceOverlap {
		return overlapResult{
			kind:     overlapSequential,
			score:    float64(n) / float64(min(len(a), len(b))),
			seqLen:   n,
			reversed: true,
		}
	}

	// (c) Shared-word ratio.
	wordsA := distinctWords(a)
	wordsB := distinctWords(b)
	common := 0
	for w := range wordsA {
		if wordsB[w] {
			common++
		}
	}
	minWords := min(len(wordsA), len(wordsB))
	if minWords > 0 && common >= c.cfg.MinCommonWords {
		threshold := c.cfg.WordOverlapRatio
		if minWords <= c.cfg.SmallTextWordLimit {
			threshold = c.cfg.SmallTextOverlapRatio
		}
		ratio := float64(common) / float64(minWords)
		if ratio >= threshold {
			return overlapResult{kind: overlapWordRatio, score: ratio}
		}
	}

	// (d) The last 1-3 words of one text equal the first 1-3 of the other,
	// punctuation stripped.
	if n := boundaryMatch(a, b, c.cfg.BoundaryWordWindow); n > 0 {
		return overlapResult{kind: overlapBoundary, score: 0.1 + 0.05*float64(n)}
	}
	if n := boundaryMatch(b, a, c.cfg.BoundaryWordWindow); n > 0 {
		return overlapResult{kind: overlapBoundary, score: 0.1 + 0.05*float64(n), reversed: true}
	}

	return overlapResult{}
}

// longestSuffixPrefix returns the longest k such that the last k characters
// of a equal the first k characters of b.
func longestSuffixPrefix(a, b string) int {
	maxK := min(len(a), len(b))
	for k := maxK; k > 0; k-- {
		if a[len(a)-k:] == b[:k] {
			return k
		}
	}
	return 0
}

// boundaryMatch returns the largest n <= window where the last n
// punctuation-stripped words of a equal the first n of b.
func boundaryMatch(a, b string, window int) int {
	wa := normalizedWords(a)
	wb := normalizedWords(b)
	limit := min(window, min(len(wa), len(wb)))

	for n := limit; n >= 1; n-- {
		match := true
		for i := 0; i < n; i++ {
			if wa[len(wa)-n+i] != wb[i] {
				match = false
				break
			}
		}
		if match {
			return n
		}
	}
	return 0
}

// isComplementary reports whether one text is mostly structural markdown and
// the other mostly prose, and which is structural.
func (c *Consolidator) isComplementary(a, b string) (structuralFirst bool, ok bool) {
	sa := c.isStructural(a)
	sb := c.isStructural(b)
	if sa == sb {
		return false, false
	}
	return sa, true
}

// isStructural reports whether text is mostly markdown structure: after
// stripping headings, code, lists, quotes, tables and rules, fewer than the
// configured ratio of characters remain.
func (c *Consolidator) isStructural(text string) bool {
	if text == "" {
		return false
	}

	var residue int
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if trimmed == "" || isStructuralLine(trimmed) {
			continue
		}
		residue += len(trimmed)
	}

	return float64(residue) < float64(len(text))*c.cfg.StructuralResidueRatio
}

func isStructuralLine(trimmed string) bool {
	switch {
	case strings.HasPrefix(trimmed, "#"),
		strings.HasPrefix(trimmed, ">"),
		strings.HasPrefix(trimmed, "|"),
		strings.HasPrefix(trimmed, "- "),
		strings.HasPrefix(trimmed, "* "),
		strings.HasPrefix(trimmed, "+ "):
		return true
	}
	if len(trimmed) >= 3 && strings.Trim(trimmed, "-_*") == "" {
		return true
	}
	// Numbered list items.
	for i, r := range trimmed {
		if r >= '0' && r <= '9' {
			continue
		}
		return i > 0 && (r == '.' || r == ')')
	}
	return false
}

// distinctWords returns the set of lowercased, punctuation-stripped words.
func distinctWords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range normalizedWords(text) {
		out[w] = true
	}
	return out
}

func normalizedWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(strings.Trim(f, ".,;:!?\"'()[]{}`*_#|>-"))
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
