// Package consolidator merges overlapping or complementary retrieved chunks
// into deduplicated, score-ranked results.
//
// Candidates are grouped by section path ("root" when missing). Within a
// group the best mergeable pair is found and merged repeatedly until a full
// pass produces no merge. Overlap detection runs in precedence order:
//
//  1. Containment: one text is wholly a prefix or suffix of the other.
//  2. Sequential: a suffix of one equals a prefix of the other (>= 30 chars).
//  3. Shared-word ratio: >= 0.4 for texts of at most five words, >= 0.6
//     otherwise, always with at least two common words.
//  4. Boundary: the last 1-3 punctuation-stripped words of one text equal
//     the first 1-3 of the other.
//
// When no overlap clears the merge threshold, a complementary pairing is
// tried: a mostly-structural markdown chunk merged with a mostly-prose one,
// structural content first.
//
// Merged scores are the character-length-weighted average of the
// contributing scores; provenance (SourceChunkIDs) accumulates transitively
// and merged ids take the form "consolidated-<id>+<id>...".
//
// The thresholds are empirically tuned constants exposed through Config;
// DefaultConfig preserves them exactly.
//
//	c := consolidator.NewDefault()
//	results := c.Consolidate(candidates)
package consolidator
