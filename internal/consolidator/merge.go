package consolidator

import (
	"strings"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// mergeSeparator joins texts that overlap semantically but have no clean
// splice point.
const mergeSeparator = "\n\n"

// mergePair combines two consolidated chunks according to the detected
// overlap. Provenance accumulates transitively; the merged score is the
// character-length-weighted average of the contributing scores.
func (c *Consolidator) mergePair(a, b types.ConsolidatedChunk, ov overlapResult) types.ConsolidatedChunk {
	first, second := a, b
	if ov.reversed {
		first, second = b, a
	}

	var text string
	switch ov.kind {
	case overlapContainment:
		text = a.Text
		if len(b.Text) > len(a.Text) {
			text = b.Text
		}
	case overlapSequential:
		text = first.Text + second.Text[ov.seqLen:]
	default:
		text = spliceTexts(first.Text, second.Text)
	}

	return c.buildMerged(a, b, text)
}

// mergeComplementary places structural content first, then prose, joined by
// blank lines.
func (c *Consolidator) mergeComplementary(a, b types.ConsolidatedChunk, structuralFirst bool) types.ConsolidatedChunk {
	first, second := a, b
	if !structuralFirst {
		first, second = b, a
	}
	return c.buildMerged(a, b, first.Text+mergeSeparator+second.Text)
}

func (c *Consolidator) buildMerged(a, b types.ConsolidatedChunk, text string) types.ConsolidatedChunk {
	ids := make([]string, 0, len(a.SourceChunkIDs)+len(b.SourceChunkIDs))
	ids = append(ids, a.SourceChunkIDs...)
	ids = append(ids, b.SourceChunkIDs...)

	lenA := float64(len(a.Text))
	lenB := float64(len(b.Text))
	score := a.Score
	if lenA+lenB > 0 {
		score = (a.Score*lenA + b.Score*lenB) / (lenA + lenB)
	}

	return types.ConsolidatedChunk{
		ID:             "consolidated-" + strings.Join(ids, "+"),
		Text:           text,
		Score:          score,
		SectionPath:    a.SectionPath,
		SourceChunkIDs: ids,
	}
}

// spliceTexts merges two texts at the longest common run of at least two
// consecutive words near the boundary, falling back to separator
// concatenation when no such run exists.
func spliceTexts(a, b string) string {
	wa := strings.Fields(a)
	wb := strings.Fields(b)

	// Compare a window of words around the boundary; comparing normalized
	// forms tolerates punctuation differences at the seam.
	window := min(20, min(len(wa), len(wb)))
	for run := window; run >= 2; run-- {
		match := true
		for i := 0; i < run; i++ {
			if normalizeWord(wa[len(wa)-run+i]) != normalizeWord(wb[i]) {
				match = false
				break
			}
		}
		if match {
			if run == len(wb) {
				return a
			}
			return a + " " + strings.Join(wb[run:], " ")
		}
	}

	return a + mergeSeparator + b
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.Trim(w, ".,;:!?\"'()[]{}`*_#|>-"))
}
