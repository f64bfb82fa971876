package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/webcontext-mcp/internal/consolidator"
	"github.com/dshills/webcontext-mcp/internal/embedder"
	"github.com/dshills/webcontext-mcp/internal/ratelimit"
	"github.com/dshills/webcontext-mcp/internal/storage"
	"github.com/dshills/webcontext-mcp/pkg/types"
)

// Defaults for search requests.
const (
	DefaultMaxResults = 10
	MaxMaxResults     = 50
	DefaultMinScore   = 0.5

	// candidateFactor over-fetches raw hits so consolidation has material
	// to merge before the final cap is applied.
	candidateFactor = 3
)

// SearchOptions tune a single search call. Zero values take defaults.
type SearchOptions struct {
	MaxResults int
	MinScore   float64 // -1 disables the relevance floor
	SkipCache  bool
}

func (o SearchOptions) normalized() SearchOptions {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MaxResults > MaxMaxResults {
		o.MaxResults = MaxMaxResults
	}
	if o.MinScore == 0 {
		o.MinScore = DefaultMinScore
	}
	if o.MinScore < 0 {
		o.MinScore = 0
	}
	return o
}

// Config holds searcher construction parameters.
type Config struct {
	CacheSize int
	CacheTTL  time.Duration
	RateLimit ratelimit.Config
}

// DefaultConfig returns the standard searcher configuration.
func DefaultConfig() Config {
	return Config{
		CacheSize: 1000,
		CacheTTL:  time.Hour,
		RateLimit: ratelimit.DefaultConfig(),
	}
}

// cacheEntry is a cached result set with expiration.
type cacheEntry struct {
	results   []types.ConsolidatedChunk
	expiresAt time.Time
}

// Searcher orchestrates similarity search: it embeds queries under rate
// limiting, runs vector search against storage, and consolidates
// overlapping hits into deduplicated results. Search failures degrade to
// empty result sets rather than errors, so a flaky embedding service never
// breaks the serving path.
type Searcher struct {
	store        storage.Store
	embedder     embedder.Embedder
	limiter      *ratelimit.Limiter
	consolidator *consolidator.Consolidator
	cacheTTL     time.Duration

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex

	closeOnce sync.Once
	closeErr  error
}

// New creates a Searcher.
func New(store storage.Store, emb embedder.Embedder, cfg Config) *Searcher {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	cache, err := lru.New[[32]byte, *cacheEntry](cfg.CacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		store:        store,
		embedder:     emb,
		limiter:      ratelimit.New(cfg.RateLimit),
		consolidator: consolidator.NewDefault(),
		cacheTTL:     cfg.CacheTTL,
		cache:        cache,
	}
}

// NewOptional creates a Searcher from the environment-selected embedder.
// When no embedder can be constructed it returns nil; callers treat a nil
// searcher as "search unavailable" and continue serving everything else.
func NewOptional(store storage.Store) *Searcher {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		log.Printf("searcher disabled: %v", err)
		return nil
	}
	return New(store, emb, DefaultConfig())
}

// SearchSimilar finds stored chunks similar to query and consolidates
// overlapping hits. A non-empty url scopes the search to that document's
// chunks. A blank query lists stored chunks in document order with zero
// scores. All failures are classified, logged, and reported as an empty
// result set.
func (s *Searcher) SearchSimilar(ctx context.Context, url, query string, opts SearchOptions) []types.ConsolidatedChunk {
	opts = opts.normalized()

	if isBlank(query) {
		return s.listAll(ctx, url, opts.MaxResults)
	}

	if !opts.SkipCache {
		if cached, ok := s.checkCache(url, query, opts); ok {
			return cached
		}
	}

	res, err := ratelimit.Process(ctx, s.limiter, query,
		func(ctx context.Context, q string) (*embedder.Embedding, error) {
			return s.embedder.Embed(ctx, q)
		})
	if err != nil {
		log.Printf("search %q: embed failed (%s): %v", truncate(query, 60), types.Classify(err), err)
		return []types.ConsolidatedChunk{}
	}

	rows, err := s.store.SimilaritySearch(ctx, url, res.Value.Vector, opts.MaxResults*candidateFactor, opts.MinScore)
	if err != nil {
		log.Printf("search %q: vector search failed (%s): %v", truncate(query, 60), types.Classify(err), err)
		return []types.ConsolidatedChunk{}
	}

	candidates := make([]types.ConsolidatableChunk, len(rows))
	for i, row := range rows {
		candidates[i] = types.ConsolidatableChunk{
			ID:          row.ChunkID,
			Text:        row.Text,
			Score:       row.Score,
			SectionPath: row.SectionPath,
		}
	}

	results := s.consolidator.Consolidate(candidates)
	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}

	if !opts.SkipCache {
		s.storeInCache(url, query, opts, results)
	}
	return results
}

// listAll serves the blank-query path: stored chunks in document order,
// unscored and unconsolidated. A non-empty url lists that document's
// chunks only.
func (s *Searcher) listAll(ctx context.Context, url string, limit int) []types.ConsolidatedChunk {
	var rows []*storage.ChunkRow
	var err error
	if url != "" {
		rows, err = s.store.ListChunks(ctx, url)
		if err == nil && len(rows) > limit {
			rows = rows[:limit]
		}
	} else {
		rows, err = s.store.ListAllChunks(ctx, limit)
	}
	if err != nil {
		log.Printf("list chunks failed (%s): %v", types.Classify(err), err)
		return []types.ConsolidatedChunk{}
	}

	results := make([]types.ConsolidatedChunk, 0, len(rows))
	for _, row := range rows {
		results = append(results, types.ConsolidatedChunk{
			ID:             row.ID,
			Text:           row.Text,
			Score:          0,
			SectionPath:    row.SectionPath,
			SourceChunkIDs: []string{row.ID},
		})
	}
	return results
}

// StoreWithEmbeddings embeds the chunks in provider-sized batches under
// the rate limiter and persists them with their vectors. Unlike the
// search path, errors here propagate: a partially embedded ingest should
// be visible to the caller.
func (s *Searcher) StoreWithEmbeddings(ctx context.Context, url string, chunks []*types.ContentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batchSize := s.embedder.BatchSize()
	if batchSize <= 0 {
		batchSize = embedder.DefaultBatchSize
	}

	rows := make([]*storage.ChunkRow, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		res, err := ratelimit.Process(ctx, s.limiter, texts,
			func(ctx context.Context, t []string) ([]*embedder.Embedding, error) {
				return s.embedder.EmbedBatch(ctx, t)
			})
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}

		for i, chunk := range batch {
			emb := res.Value[i]
			rows = append(rows, &storage.ChunkRow{
				ID:            chunk.ID,
				URL:           url,
				SectionPath:   types.JoinSectionPath(chunk.SectionPath),
				Text:          chunk.Text,
				TokenCount:    chunk.Tokens,
				OverlapTokens: chunk.OverlapTokens,
				Position:      chunk.Position,
				Embedding:     storage.SerializeVector(emb.Vector),
				Dimension:     emb.Dimension,
				Provider:      emb.Provider,
				Model:         emb.Model,
			})
		}
	}

	if err := s.store.UpsertChunks(ctx, rows); err != nil {
		return fmt.Errorf("store embedded chunks: %w", err)
	}

	s.invalidateCache()
	return nil
}

// Provider returns the active embedding provider name.
func (s *Searcher) Provider() string {
	return s.embedder.Provider()
}

// LimiterState returns the circuit breaker state for status reporting.
func (s *Searcher) LimiterState() string {
	return s.limiter.State().String()
}

// Close releases the embedder. Safe to call more than once.
func (s *Searcher) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.embedder.Close()
	})
	return s.closeErr
}

// Cache helpers

func (s *Searcher) checkCache(url, query string, opts SearchOptions) ([]types.ConsolidatedChunk, bool) {
	key := cacheKey(url, query, opts)

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil, false
	}
	results := copyResults(entry.results)
	s.cacheMu.RUnlock()
	return results, true
}

func (s *Searcher) storeInCache(url, query string, opts SearchOptions, results []types.ConsolidatedChunk) {
	entry := &cacheEntry{
		results:   copyResults(results),
		expiresAt: time.Now().Add(s.cacheTTL),
	}
	s.cacheMu.Lock()
	s.cache.Add(cacheKey(url, query, opts), entry)
	s.cacheMu.Unlock()
}

func (s *Searcher) invalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

func cacheKey(url, query string, opts SearchOptions) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%.3f", url, query, opts.MaxResults, opts.MinScore)))
}

// copyResults deep-copies cached result sets so caller mutations never
// leak back into the cache.
func copyResults(src []types.ConsolidatedChunk) []types.ConsolidatedChunk {
	dst := make([]types.ConsolidatedChunk, len(src))
	for i, r := range src {
		dst[i] = r
		dst[i].SourceChunkIDs = append([]string(nil), r.SourceChunkIDs...)
	}
	return dst
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
