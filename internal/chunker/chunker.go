package chunker

import (
	"strings"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

const (
	// DefaultMaxTokens is the target maximum token count per chunk.
	DefaultMaxTokens = 512

	// DefaultOverlapPercentage is the backward overlap between adjacent
	// chunks, as a percentage of the current chunk's token count.
	DefaultOverlapPercentage = 15

	// MaxOverlapPercentage caps overlap so a chunk is never mostly repeat.
	MaxOverlapPercentage = 50

	// minWorkingRatio keeps the working budget at >= 70% of MaxTokens even
	// when a large overlap reservation would shrink it further.
	minWorkingRatioNum = 7
	minWorkingRatioDen = 10
)

// Options configures a single chunking call. The zero value selects the
// defaults; all configuration is call-scoped.
type Options struct {
	MaxTokens         int
	OverlapPercentage int
}

// DefaultOptions returns the standard chunking configuration.
func DefaultOptions() Options {
	return Options{
		MaxTokens:         DefaultMaxTokens,
		OverlapPercentage: DefaultOverlapPercentage,
	}
}

func (o Options) normalized() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.OverlapPercentage < 0 {
		o.OverlapPercentage = 0
	}
	if o.OverlapPercentage > MaxOverlapPercentage {
		o.OverlapPercentage = MaxOverlapPercentage
	}
	return o
}

// Chunker turns extracted page content into token-bounded, context-preserving
// chunks. It holds no state; chunking is deterministic and never fails.
type Chunker struct{}

// New creates a new Chunker instance.
func New() *Chunker {
	return &Chunker{}
}

// rawChunk is a chunk boundary decision before overlap is applied.
type rawChunk struct {
	texts  []string
	tokens int
	path   []string
}

// Chunk converts an extraction result into content chunks for url.
// Markdown content is preferred; plain text is used when the extractor
// degraded to text-only. Empty or whitespace-only input yields no chunks.
func (c *Chunker) Chunk(extraction *types.ExtractionResult, opts Options, url string) []*types.ContentChunk {
	opts = opts.normalized()

	if extraction == nil {
		return nil
	}
	content := extraction.MarkdownContent
	if strings.TrimSpace(content) == "" {
		content = extraction.TextContent
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}

	blocks := parseBlocks(content)
	if len(blocks) == 0 {
		return nil
	}

	overlapBudget := ceilDiv(opts.MaxTokens*opts.OverlapPercentage, 100)
	working := opts.MaxTokens - overlapBudget
	if floor := ceilDiv(opts.MaxTokens*minWorkingRatioNum, minWorkingRatioDen); working < floor {
		working = floor
	}

	raw := c.assignBoundaries(blocks, working)
	return c.applyOverlap(raw, opts, overlapBudget, url)
}

// assignBoundaries greedily accumulates blocks into chunks. A new chunk
// starts when the working budget would overflow, when the section path
// diverges at the top level, or when it diverges at any level once the
// current chunk holds at least 10% of the budget.
func (c *Chunker) assignBoundaries(blocks []contentBlock, working int) []rawChunk {
	var raw []rawChunk
	var cur rawChunk

	flush := func() {
		if len(cur.texts) > 0 {
			raw = append(raw, cur)
			cur = rawChunk{}
		}
	}

	for _, b := range blocks {
		bt := types.EstimateTokens(b.text)

		if bt > working {
			flush()
			if b.canSplit {
				pieces := packSentences(splitSentences(b.text), working)
				for _, p := range pieces {
					raw = append(raw, rawChunk{
						texts:  []string{p},
						tokens: types.EstimateTokens(p),
						path:   b.sectionPath,
					})
				}
			} else {
				// A single unsplittable atomic block stays one chunk even
				// when oversized.
				raw = append(raw, rawChunk{
					texts:  []string{b.text},
					tokens: bt,
					path:   b.sectionPath,
				})
			}
			continue
		}

		if len(cur.texts) > 0 && c.shouldSplit(cur, b, bt, working) {
			flush()
		}
		if len(cur.texts) == 0 {
			cur.path = b.sectionPath
		}
		cur.texts = append(cur.texts, b.text)
		cur.tokens += bt
	}
	flush()

	return raw
}

func (c *Chunker) shouldSplit(cur rawChunk, b contentBlock, bt, working int) bool {
	if cur.tokens+bt > working {
		return true
	}
	if divergesAtTop(cur.path, b.sectionPath) {
		return true
	}
	if !samePath(cur.path, b.sectionPath) && cur.tokens >= ceilDiv(working, 10) {
		return true
	}
	return false
}

// applyOverlap adds backward overlap once boundaries are fixed: each chunk
// after the first receives a tail of the previous chunk's own text, sized to
// the overlap percentage of the current chunk's token count.
func (c *Chunker) applyOverlap(raw []rawChunk, opts Options, overlapBudget int, url string) []*types.ContentChunk {
	chunks := make([]*types.ContentChunk, 0, len(raw))
	prevText := ""

	for i, rc := range raw {
		text := strings.Join(rc.texts, "\n\n")

		overlap := ""
		overlapTokens := 0
		if i > 0 && opts.OverlapPercentage > 0 {
			target := ceilDiv(types.EstimateTokens(text)*opts.OverlapPercentage, 100)
			if target > overlapBudget {
				target = overlapBudget
			}
			overlap = tailText(prevText, target)
			overlapTokens = types.EstimateTokens(overlap)
		}

		final := text
		if overlap != "" {
			final = overlap + "\n\n" + text
		}

		chunks = append(chunks, types.NewContentChunk(url, rc.path, final, overlapTokens, i))
		prevText = text
	}

	return chunks
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
