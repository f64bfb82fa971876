package searcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/webcontext-mcp/internal/embedder"
	"github.com/dshills/webcontext-mcp/internal/ratelimit"
	"github.com/dshills/webcontext-mcp/internal/storage"
	"github.com/dshills/webcontext-mcp/pkg/types"
)

// mockStore implements storage.Store with canned responses.
type mockStore struct {
	mu            sync.Mutex
	searchRows    []storage.SearchRow
	searchErr     error
	lastURL       string
	lastMinScore  float64
	lastLimit     int
	searchCalls   int
	listRows      []*storage.ChunkRow
	listErr       error
	listCalls     int
	upserted      []*storage.ChunkRow
	upsertErr     error
	upsertBatches int
}

func (m *mockStore) UpsertDocument(context.Context, *storage.Document) error { return nil }
func (m *mockStore) GetDocument(context.Context, string) (*storage.Document, error) {
	return nil, storage.ErrNotFound
}
func (m *mockStore) DeleteDocument(context.Context, string) error          { return nil }
func (m *mockStore) ListDocuments(context.Context) ([]*storage.Document, error) { return nil, nil }
func (m *mockStore) ListChunks(_ context.Context, url string) ([]*storage.ChunkRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastURL = url
	m.listCalls++
	return m.listRows, m.listErr
}
func (m *mockStore) DeleteChunksByURL(context.Context, string) error { return nil }
func (m *mockStore) Status(context.Context) (*storage.Status, error) { return &storage.Status{}, nil }
func (m *mockStore) Close() error                                    { return nil }

func (m *mockStore) UpsertChunks(_ context.Context, chunks []*storage.ChunkRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, chunks...)
	m.upsertBatches++
	return nil
}

func (m *mockStore) ListAllChunks(_ context.Context, limit int) ([]*storage.ChunkRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	rows := m.listRows
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *mockStore) SimilaritySearch(_ context.Context, url string, _ []float32, limit int, minScore float64) ([]storage.SearchRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	m.lastURL = url
	m.lastLimit = limit
	m.lastMinScore = minScore
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchRows, nil
}

// mockEmbedder is a deterministic in-process embedder.
type mockEmbedder struct {
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	embedErr   error
	batchSize  int
	closed     int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (*embedder.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return &embedder.Embedding{Vector: []float32{1, 0}, Dimension: 2, Provider: "mock"}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([]*embedder.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([]*embedder.Embedding, len(texts))
	for i := range texts {
		out[i] = &embedder.Embedding{Vector: []float32{0.5, 0.5}, Dimension: 2, Provider: "mock", Model: "mock-model"}
	}
	return out, nil
}

func (m *mockEmbedder) Dimension() int   { return 2 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-model" }
func (m *mockEmbedder) BatchSize() int   { return m.batchSize }
func (m *mockEmbedder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func testConfig() Config {
	return Config{
		CacheSize: 100,
		CacheTTL:  time.Minute,
		RateLimit: ratelimit.Config{
			MaxRequests: 1000,
			Window:      time.Second,
			MaxRetries:  1,
			RetryDelay:  time.Millisecond,
		},
	}
}

func TestSearchSimilar_ConsolidatedAndSorted(t *testing.T) {
	store := &mockStore{searchRows: []storage.SearchRow{
		{ChunkID: "low", Text: "Completely unrelated penguin migration facts.", Score: 0.6, SectionPath: "A"},
		{ChunkID: "high", Text: "Detailed kernel scheduling internals explained.", Score: 0.9, SectionPath: "B"},
	}}
	emb := &mockEmbedder{batchSize: 10}
	s := New(store, emb, testConfig())

	results := s.SearchSimilar(context.Background(), "", "scheduling", SearchOptions{})

	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].ID)
	assert.Equal(t, "low", results[1].ID)
	assert.Equal(t, 1, emb.embedCalls)
	// Raw hits are over-fetched relative to the result cap.
	assert.Equal(t, DefaultMaxResults*candidateFactor, store.lastLimit)
	assert.Equal(t, DefaultMinScore, store.lastMinScore)
}

func TestSearchSimilar_URLScopePassedToStore(t *testing.T) {
	store := &mockStore{searchRows: []storage.SearchRow{
		{ChunkID: "c1", Text: "scoped hit", Score: 0.8, SectionPath: "A"},
	}}
	s := New(store, &mockEmbedder{batchSize: 10}, testConfig())

	_ = s.SearchSimilar(context.Background(), "https://example.com/doc", "scheduling", SearchOptions{})

	assert.Equal(t, "https://example.com/doc", store.lastURL)
}

func TestSearchSimilar_BlankQueryListsStorageOrder(t *testing.T) {
	store := &mockStore{listRows: []*storage.ChunkRow{
		{ID: "c1", Text: "first", SectionPath: "Intro"},
		{ID: "c2", Text: "second", SectionPath: "Intro"},
	}}
	emb := &mockEmbedder{batchSize: 10}
	s := New(store, emb, testConfig())

	results := s.SearchSimilar(context.Background(), "", "   \n", SearchOptions{})

	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ID)
	assert.Zero(t, results[0].Score)
	assert.Equal(t, []string{"c1"}, results[0].SourceChunkIDs)
	// Embedding is never attempted for a blank query.
	assert.Zero(t, emb.embedCalls)
	assert.Equal(t, 1, store.listCalls)

	// With a url the listing is scoped to that document's chunks.
	scoped := s.SearchSimilar(context.Background(), "https://example.com/doc", "", SearchOptions{})
	require.Len(t, scoped, 2)
	assert.Equal(t, "https://example.com/doc", store.lastURL)
}

func TestSearchSimilar_EmbedFailureReturnsEmpty(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{batchSize: 10, embedErr: errors.New("embedding service down")}
	s := New(store, emb, testConfig())

	results := s.SearchSimilar(context.Background(), "", "anything", SearchOptions{})

	assert.Empty(t, results)
	assert.Zero(t, store.searchCalls)
}

func TestSearchSimilar_StorageFailureReturnsEmpty(t *testing.T) {
	store := &mockStore{searchErr: errors.New("disk exploded")}
	emb := &mockEmbedder{batchSize: 10}
	s := New(store, emb, testConfig())

	results := s.SearchSimilar(context.Background(), "", "anything", SearchOptions{})

	assert.Empty(t, results)
}

func TestSearchSimilar_CacheHitSkipsEmbed(t *testing.T) {
	store := &mockStore{searchRows: []storage.SearchRow{
		{ChunkID: "c1", Text: "cached content", Score: 0.8, SectionPath: "A"},
	}}
	emb := &mockEmbedder{batchSize: 10}
	s := New(store, emb, testConfig())

	first := s.SearchSimilar(context.Background(), "", "repeat me", SearchOptions{})
	second := s.SearchSimilar(context.Background(), "", "repeat me", SearchOptions{})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, emb.embedCalls)
	assert.Equal(t, 1, store.searchCalls)
}

func TestSearchSimilar_CachedResultsAreIsolated(t *testing.T) {
	store := &mockStore{searchRows: []storage.SearchRow{
		{ChunkID: "c1", Text: "cached content", Score: 0.8, SectionPath: "A"},
	}}
	s := New(store, &mockEmbedder{batchSize: 10}, testConfig())

	first := s.SearchSimilar(context.Background(), "", "q", SearchOptions{})
	require.Len(t, first, 1)
	first[0].SourceChunkIDs[0] = "mutated"

	second := s.SearchSimilar(context.Background(), "", "q", SearchOptions{})
	require.Len(t, second, 1)
	assert.Equal(t, "c1", second[0].SourceChunkIDs[0])
}

func TestSearchSimilar_MaxResultsCap(t *testing.T) {
	rows := make([]storage.SearchRow, 8)
	for i := range rows {
		rows[i] = storage.SearchRow{
			ChunkID:     string(rune('a' + i)),
			Text:        "Distinct unrelated content number " + string(rune('a'+i)),
			Score:       0.9 - float64(i)*0.01,
			SectionPath: "S" + string(rune('a'+i)),
		}
	}
	store := &mockStore{searchRows: rows}
	s := New(store, &mockEmbedder{batchSize: 10}, testConfig())

	results := s.SearchSimilar(context.Background(), "", "q", SearchOptions{MaxResults: 3})

	assert.Len(t, results, 3)
}

func TestSearchMultiple_AllQueriesAnswered(t *testing.T) {
	store := &mockStore{searchRows: []storage.SearchRow{
		{ChunkID: "c1", Text: "shared result", Score: 0.8, SectionPath: "A"},
	}}
	emb := &mockEmbedder{batchSize: 10}
	s := New(store, emb, testConfig())

	queries := []string{"one", "two", "three", "four"}
	results := s.SearchMultiple(context.Background(), "", queries, 2, SearchOptions{})

	require.Len(t, results, 4)
	for _, q := range queries {
		assert.Contains(t, results, q)
		assert.Len(t, results[q], 1)
	}
	assert.Equal(t, 4, emb.embedCalls)
}

func TestSearchMultiple_DeduplicatesQueries(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{batchSize: 10}
	s := New(store, emb, testConfig())

	results := s.SearchMultiple(context.Background(), "", []string{"same", "same", "same"}, 2, SearchOptions{})

	assert.Len(t, results, 1)
	assert.Equal(t, 1, emb.embedCalls)
}

func TestStoreWithEmbeddings_BatchesAtProviderLimit(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{batchSize: 2}
	s := New(store, emb, testConfig())

	chunks := make([]*types.ContentChunk, 5)
	for i := range chunks {
		chunks[i] = &types.ContentChunk{
			ID:          string(rune('a' + i)),
			Text:        "chunk body",
			Tokens:      3,
			SectionPath: []string{"Docs"},
			Position:    i,
		}
	}

	err := s.StoreWithEmbeddings(context.Background(), "https://example.com/", chunks)
	require.NoError(t, err)

	assert.Equal(t, 3, emb.batchCalls)
	require.Len(t, store.upserted, 5)
	assert.NotNil(t, store.upserted[0].Embedding)
	assert.Equal(t, 2, store.upserted[0].Dimension)
	assert.Equal(t, "mock", store.upserted[0].Provider)
	assert.Equal(t, "Docs", store.upserted[0].SectionPath)
}

func TestStoreWithEmbeddings_ErrorPropagates(t *testing.T) {
	store := &mockStore{}
	emb := &mockEmbedder{batchSize: 10, embedErr: errors.New("quota exhausted")}
	s := New(store, emb, testConfig())

	err := s.StoreWithEmbeddings(context.Background(), "https://example.com/",
		[]*types.ContentChunk{{ID: "c1", Text: "body"}})

	require.Error(t, err)
	assert.Empty(t, store.upserted)
}

func TestStoreWithEmbeddings_InvalidatesCache(t *testing.T) {
	store := &mockStore{searchRows: []storage.SearchRow{
		{ChunkID: "c1", Text: "result", Score: 0.8, SectionPath: "A"},
	}}
	emb := &mockEmbedder{batchSize: 10}
	s := New(store, emb, testConfig())

	_ = s.SearchSimilar(context.Background(), "", "q", SearchOptions{})
	require.NoError(t, s.StoreWithEmbeddings(context.Background(), "https://example.com/",
		[]*types.ContentChunk{{ID: "c1", Text: "body"}}))
	_ = s.SearchSimilar(context.Background(), "", "q", SearchOptions{})

	// Ingest purged the cache, so the second search re-embedded.
	assert.Equal(t, 2, emb.embedCalls)
}

func TestClose_Idempotent(t *testing.T) {
	emb := &mockEmbedder{batchSize: 10}
	s := New(&mockStore{}, emb, testConfig())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, emb.closed)
}

func TestSearchOptions_Normalized(t *testing.T) {
	opts := SearchOptions{}.normalized()
	assert.Equal(t, DefaultMaxResults, opts.MaxResults)
	assert.Equal(t, DefaultMinScore, opts.MinScore)

	opts = SearchOptions{MaxResults: 500, MinScore: -1}.normalized()
	assert.Equal(t, MaxMaxResults, opts.MaxResults)
	assert.Zero(t, opts.MinScore)
}
