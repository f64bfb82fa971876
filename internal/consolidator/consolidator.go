package consolidator

import (
	"sort"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// Config holds the consolidation thresholds. The defaults are empirically
// tuned constants carried over unchanged; exposing them here keeps them
// adjustable without code edits.
type Config struct {
	// MinSequenceOverlap is the minimum character length for a
	// suffix/prefix overlap to count.
	MinSequenceOverlap int

	// SmallTextWordLimit and SmallTextOverlapRatio relax the shared-word
	// threshold for very short texts.
	SmallTextWordLimit    int
	SmallTextOverlapRatio float64

	// WordOverlapRatio is the shared-word threshold for normal texts.
	WordOverlapRatio float64

	// MinCommonWords is the minimum number of shared distinct words.
	MinCommonWords int

	// BoundaryWordWindow bounds the boundary word match (last/first N words).
	BoundaryWordWindow int

	// StructuralResidueRatio: below this fraction of remaining characters
	// after stripping markdown structure, a text counts as structural.
	StructuralResidueRatio float64

	// MergeThreshold is the minimum overlap score that justifies a merge.
	MergeThreshold float64
}

// DefaultConfig returns the tuned consolidation thresholds.
func DefaultConfig() Config {
	return Config{
		MinSequenceOverlap:     30,
		SmallTextWordLimit:     5,
		SmallTextOverlapRatio:  0.4,
		WordOverlapRatio:       0.6,
		MinCommonWords:         2,
		BoundaryWordWindow:     3,
		StructuralResidueRatio: 0.3,
		MergeThreshold:         0.1,
	}
}

// Consolidator merges overlapping or complementary retrieved chunks into
// fewer, more complete, deduplicated results. It is pure: consolidation
// never fails and never mutates its input.
type Consolidator struct {
	cfg Config
}

// New creates a Consolidator with the given thresholds.
func New(cfg Config) *Consolidator {
	if cfg.MergeThreshold <= 0 {
		cfg = DefaultConfig()
	}
	return &Consolidator{cfg: cfg}
}

// NewDefault creates a Consolidator with DefaultConfig.
func NewDefault() *Consolidator {
	return New(DefaultConfig())
}

// Consolidate groups candidates by section path, merges within each group
// until no merge is possible, and returns all results sorted descending by
// score. Zero- and one-chunk inputs pass through wrapped with their own id
// as sole provenance.
func (c *Consolidator) Consolidate(chunks []types.ConsolidatableChunk) []types.ConsolidatedChunk {
	if len(chunks) == 0 {
		return []types.ConsolidatedChunk{}
	}
	if len(chunks) == 1 {
		return []types.ConsolidatedChunk{types.Wrap(chunks[0])}
	}

	// Group by section path preserving first-seen order for determinism.
	groups := make(map[string][]types.ConsolidatedChunk)
	var order []string
	for _, ch := range chunks {
		key := ch.SectionPath
		if key == "" {
			key = "root"
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		wrapped := types.Wrap(ch)
		wrapped.SectionPath = key
		groups[key] = append(groups[key], wrapped)
	}

	var out []types.ConsolidatedChunk
	for _, key := range order {
		out = append(out, c.mergeGroup(groups[key])...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// mergeGroup repeatedly merges the best candidate pair until a full pass
// finds nothing mergeable. Each merge shrinks the group by one, and the
// pass count is additionally bounded by the initial group size, so
// termination is guaranteed. The pair search is O(n^2) per pass; candidate
// sets are expected to be tens of chunks, where this is acceptable.
func (c *Consolidator) mergeGroup(items []types.ConsolidatedChunk) []types.ConsolidatedChunk {
	maxPasses := len(items)

	for pass := 0; pass < maxPasses && len(items) > 1; pass++ {
		bestI, bestJ := -1, -1
		var bestOv overlapResult

		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				ov := c.detectOverlap(items[i].Text, items[j].Text)
				if ov.kind != overlapNone && ov.score > bestOv.score {
					bestI, bestJ, bestOv = i, j, ov
				}
			}
		}

		if bestOv.score >= c.cfg.MergeThreshold {
			merged := c.mergePair(items[bestI], items[bestJ], bestOv)
			items = replacePair(items, bestI, bestJ, merged)
			continue
		}

		// No overlap cleared the threshold: try a complementary pairing of
		// structural markdown with prose.
		merged := false
		for i := 0; i < len(items) && !merged; i++ {
			for j := i + 1; j < len(items); j++ {
				if structFirst, ok := c.isComplementary(items[i].Text, items[j].Text); ok {
					items = replacePair(items, i, j, c.mergeComplementary(items[i], items[j], structFirst))
					merged = true
					break
				}
			}
		}
		if !merged {
			break
		}
	}

	return items
}

// replacePair removes items i and j and appends the merged result in i's
// place, preserving the relative order of everything else.
func replacePair(items []types.ConsolidatedChunk, i, j int, merged types.ConsolidatedChunk) []types.ConsolidatedChunk {
	out := make([]types.ConsolidatedChunk, 0, len(items)-1)
	for k, it := range items {
		switch k {
		case i:
			out = append(out, merged)
		case j:
			// dropped
		default:
			out = append(out, it)
		}
	}
	return out
}
