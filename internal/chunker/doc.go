// Package chunker divides extracted web page content into semantic chunks
// for embedding and retrieval.
//
// The chunker parses markdown into content blocks while tracking the
// section path (the ordered heading titles enclosing each block), then
// greedily packs blocks into token-bounded chunks that respect section
// boundaries. Atomic blocks (code, lists, tables, blockquotes) are never
// split; oversized paragraphs are divided at sentence boundaries using an
// abbreviation-aware segmenter.
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks := c.Chunk(extraction, chunker.DefaultOptions(), url)
//
//	for _, chunk := range chunks {
//	    fmt.Printf("%d tokens under %v\n", chunk.Tokens, chunk.SectionPath)
//	}
//
// # Budgeting
//
// The working budget reserves headroom for overlap:
//
//	working = max(maxTokens - ceil(maxTokens*overlap%/100), ceil(maxTokens*0.7))
//
// After boundaries are fixed, each chunk after the first is prefixed with a
// tail of the previous chunk sized to the overlap percentage of the current
// chunk's tokens, whole sentences preferred. Every chunk satisfies
// tokens <= ceil(maxTokens*1.2) except a lone unsplittable atomic block.
//
// Token estimation is the chars/4 heuristic, not a real tokenizer.
//
// # Determinism
//
// Chunking the same extraction and URL twice yields identical chunk IDs and
// text: IDs are SHA-256 over (url, section path, final text), and the
// algorithm has no randomized or time-dependent steps.
package chunker
