package types

// ConsolidatableChunk is a retrieved chunk candidate entering consolidation.
// SectionPath is the flattened string form used for grouping.
type ConsolidatableChunk struct {
	ID          string
	Text        string
	Score       float64
	SectionPath string
}

// ConsolidatedChunk is the output of consolidation: one or more candidate
// chunks merged into a deduplicated result. SourceChunkIDs is append-only
// provenance; it accumulates transitively across merges.
type ConsolidatedChunk struct {
	ID             string
	Text           string
	Score          float64
	SectionPath    string
	SourceChunkIDs []string
}

// Wrap lifts a single candidate into consolidated form with itself as the
// sole provenance entry. Zero- and one-chunk inputs pass through this way.
func Wrap(c ConsolidatableChunk) ConsolidatedChunk {
	return ConsolidatedChunk{
		ID:             c.ID,
		Text:           c.Text,
		Score:          c.Score,
		SectionPath:    c.SectionPath,
		SourceChunkIDs: []string{c.ID},
	}
}
