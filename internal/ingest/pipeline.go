package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dshills/webcontext-mcp/internal/chunker"
	"github.com/dshills/webcontext-mcp/internal/extractor"
	"github.com/dshills/webcontext-mcp/internal/searcher"
	"github.com/dshills/webcontext-mcp/internal/storage"
	"github.com/dshills/webcontext-mcp/pkg/types"
)

// Stats summarizes one ingested page.
type Stats struct {
	URL           string
	Title         string
	Method        string
	Note          string
	ChunksCreated int
	TokensTotal   int
	Embedded      bool
	Duration      time.Duration
}

// Pipeline runs the full ingest path for a page: extract, chunk, embed,
// persist. A nil searcher disables embedding; chunks are then stored
// without vectors and the page is browsable but not searchable.
type Pipeline struct {
	extractor *extractor.Extractor
	chunker   *chunker.Chunker
	store     storage.Store
	searcher  *searcher.Searcher
}

// New creates a Pipeline. searcher may be nil.
func New(store storage.Store, s *searcher.Searcher) *Pipeline {
	return &Pipeline{
		extractor: extractor.New(),
		chunker:   chunker.New(),
		store:     store,
		searcher:  s,
	}
}

// IngestPage extracts rawHTML, chunks the content, embeds and stores the
// chunks, and upserts the document record. Re-ingesting a URL replaces
// its previous chunks.
func (p *Pipeline) IngestPage(ctx context.Context, url, rawHTML string, opts chunker.Options) (*Stats, error) {
	start := time.Now()

	extraction, err := p.extractor.Extract(rawHTML, url)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}

	chunks := p.chunker.Chunk(extraction, opts, url)

	// Chunks from a previous version of the page have content-derived ids,
	// so they would survive the upsert below. Clear them first.
	if err := p.store.DeleteChunksByURL(ctx, url); err != nil {
		return nil, fmt.Errorf("clear previous chunks for %s: %w", url, err)
	}

	embedded := false
	if p.searcher != nil {
		if err := p.searcher.StoreWithEmbeddings(ctx, url, chunks); err != nil {
			return nil, fmt.Errorf("embed and store %s: %w", url, err)
		}
		embedded = true
	} else if err := p.storePlain(ctx, url, chunks); err != nil {
		return nil, fmt.Errorf("store %s: %w", url, err)
	}

	tokens := 0
	for _, chunk := range chunks {
		tokens += chunk.Tokens
	}

	hash := sha256.Sum256([]byte(rawHTML))
	doc := &storage.Document{
		URL:              url,
		Title:            extraction.Title,
		ContentHash:      hex.EncodeToString(hash[:]),
		ExtractionMethod: extraction.ExtractionMethod,
		Lang:             extraction.Lang,
		Byline:           extraction.Byline,
		ChunkCount:       len(chunks),
		TokenCount:       tokens,
		FetchedAt:        start,
	}
	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("record document %s: %w", url, err)
	}

	return &Stats{
		URL:           url,
		Title:         extraction.Title,
		Method:        extraction.ExtractionMethod,
		Note:          extraction.Note,
		ChunksCreated: len(chunks),
		TokensTotal:   tokens,
		Embedded:      embedded,
		Duration:      time.Since(start),
	}, nil
}

// storePlain persists chunks without embeddings.
func (p *Pipeline) storePlain(ctx context.Context, url string, chunks []*types.ContentChunk) error {
	rows := make([]*storage.ChunkRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = &storage.ChunkRow{
			ID:            chunk.ID,
			URL:           url,
			SectionPath:   types.JoinSectionPath(chunk.SectionPath),
			Text:          chunk.Text,
			TokenCount:    chunk.Tokens,
			OverlapTokens: chunk.OverlapTokens,
			Position:      chunk.Position,
		}
	}
	return p.store.UpsertChunks(ctx, rows)
}
