package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/webcontext-mcp/internal/chunker"
	"github.com/dshills/webcontext-mcp/internal/embedder"
	"github.com/dshills/webcontext-mcp/internal/searcher"
	"github.com/dshills/webcontext-mcp/internal/storage"
)

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>Service Guide</title></head>
<body>
<article>
<h1>Service Guide</h1>
<p>This guide describes how the service handles incoming requests. Every
request passes through authentication, rate limiting, and routing before
reaching a handler. The sections below cover each stage in detail and
explain the configuration knobs that control them.</p>
<h2>Authentication</h2>
<p>Requests authenticate with bearer tokens issued by the identity
provider. Tokens are validated locally against a cached signing key, so
the hot path never makes a network call. Expired tokens are rejected with
a retryable error code.</p>
<h2>Routing</h2>
<p>The router matches the request path against registered patterns in
order of specificity. Wildcard segments capture path parameters, which are
made available to handlers through the request context.</p>
</article>
</body>
</html>`

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestSearcher(t *testing.T, store storage.Store) *searcher.Searcher {
	t.Helper()
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	s := searcher.New(store, emb, searcher.DefaultConfig())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIngestPage_WithoutSearcher(t *testing.T) {
	store := newTestStore(t)
	p := New(store, nil)
	ctx := context.Background()
	url := "https://example.com/guide"

	stats, err := p.IngestPage(ctx, url, pageHTML, chunker.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "Service Guide", stats.Title)
	assert.Greater(t, stats.ChunksCreated, 0)
	assert.Greater(t, stats.TokensTotal, 0)
	assert.False(t, stats.Embedded)

	doc, err := store.GetDocument(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, stats.ChunksCreated, doc.ChunkCount)
	assert.NotEmpty(t, doc.ContentHash)
	assert.Equal(t, "en", doc.Lang)

	chunks, err := store.ListChunks(ctx, url)
	require.NoError(t, err)
	require.Len(t, chunks, stats.ChunksCreated)
	for _, c := range chunks {
		assert.Nil(t, c.Embedding)
		assert.NotEmpty(t, c.Text)
	}
}

func TestIngestPage_WithSearcherEmbedsChunks(t *testing.T) {
	store := newTestStore(t)
	s := newTestSearcher(t, store)
	p := New(store, s)
	ctx := context.Background()
	url := "https://example.com/guide"

	stats, err := p.IngestPage(ctx, url, pageHTML, chunker.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, stats.Embedded)

	chunks, err := store.ListChunks(ctx, url)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotNil(t, c.Embedding)
		assert.Equal(t, embedder.LocalDimension, c.Dimension)
	}
}

func TestIngestPage_SearchFindsIngestedContent(t *testing.T) {
	store := newTestStore(t)
	s := newTestSearcher(t, store)
	p := New(store, s)
	ctx := context.Background()
	url := "https://example.com/guide"

	_, err := p.IngestPage(ctx, url, pageHTML, chunker.DefaultOptions())
	require.NoError(t, err)

	chunks, err := store.ListChunks(ctx, url)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// The local embedder is deterministic: querying with a stored chunk's
	// exact text must produce a perfect-similarity hit.
	results := s.SearchSimilar(ctx, url, chunks[0].Text, searcher.SearchOptions{})
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].SourceChunkIDs, chunks[0].ID)
}

func TestIngestPage_ReingestReplacesChunks(t *testing.T) {
	store := newTestStore(t)
	p := New(store, nil)
	ctx := context.Background()
	url := "https://example.com/guide"

	_, err := p.IngestPage(ctx, url, pageHTML, chunker.DefaultOptions())
	require.NoError(t, err)
	before, err := store.ListChunks(ctx, url)
	require.NoError(t, err)

	replacement := `<html lang="en"><head><title>Short</title></head><body>
<article><h1>Short</h1><p>The page was replaced with a much shorter
revision containing a single paragraph of content.</p></article>
</body></html>`

	stats, err := p.IngestPage(ctx, url, replacement, chunker.DefaultOptions())
	require.NoError(t, err)

	after, err := store.ListChunks(ctx, url)
	require.NoError(t, err)
	assert.Len(t, after, stats.ChunksCreated)
	assert.NotEqual(t, len(before), 0)
	for _, c := range after {
		assert.NotContains(t, c.Text, "Authentication")
	}

	doc, err := store.GetDocument(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "Short", doc.Title)
}

func TestIngestPage_EmptyHTMLFails(t *testing.T) {
	store := newTestStore(t)
	p := New(store, nil)

	_, err := p.IngestPage(context.Background(), "https://example.com/", "", chunker.DefaultOptions())
	assert.Error(t, err)
}
