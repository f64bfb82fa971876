package searcher

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// Concurrency bounds for multi-query search.
const (
	DefaultConcurrency = 2
	MaxConcurrency     = 10
)

// SearchMultiple runs SearchSimilar for each query with bounded
// parallelism: queries are processed in sequential batches of size
// concurrency, and within a batch each query runs on its own goroutine.
// Duplicate queries are searched once. Per-query failures already degrade
// to empty slices inside SearchSimilar, so the returned map always has an
// entry for every distinct query.
func (s *Searcher) SearchMultiple(ctx context.Context, url string, queries []string, concurrency int, opts SearchOptions) map[string][]types.ConsolidatedChunk {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	distinct := dedupe(queries)
	results := make(map[string][]types.ConsolidatedChunk, len(distinct))
	var mu sync.Mutex

	for start := 0; start < len(distinct); start += concurrency {
		end := start + concurrency
		if end > len(distinct) {
			end = len(distinct)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, query := range distinct[start:end] {
			g.Go(func() error {
				found := s.SearchSimilar(gctx, url, query, opts)
				mu.Lock()
				results[query] = found
				mu.Unlock()
				return nil
			})
		}
		// Workers never return errors; Wait only joins the batch.
		_ = g.Wait()

		if ctx.Err() != nil {
			break
		}
	}

	return results
}

func dedupe(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	distinct := make([]string, 0, len(queries))
	for _, q := range queries {
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		distinct = append(distinct, q)
	}
	return distinct
}
