package storage

import (
	"context"
	"time"
)

// Store persists fetched documents and their chunks, and serves vector
// similarity queries over the stored embeddings.
type Store interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, url string) (*Document, error)
	DeleteDocument(ctx context.Context, url string) error
	ListDocuments(ctx context.Context) ([]*Document, error)

	// Chunk operations
	UpsertChunks(ctx context.Context, chunks []*ChunkRow) error
	ListChunks(ctx context.Context, url string) ([]*ChunkRow, error)
	ListAllChunks(ctx context.Context, limit int) ([]*ChunkRow, error)
	DeleteChunksByURL(ctx context.Context, url string) error

	// SimilaritySearch ranks stored chunks by cosine similarity against the
	// query vector, highest first. A non-empty url scopes the search to one
	// document. Chunks without embeddings and chunks below minScore are
	// excluded.
	SimilaritySearch(ctx context.Context, url string, vector []float32, limit int, minScore float64) ([]SearchRow, error)

	// Status reports index statistics.
	Status(ctx context.Context) (*Status, error)

	Close() error
}

// Document is one fetched and indexed web page.
type Document struct {
	ID               int64
	URL              string
	Title            string
	ContentHash      string
	ExtractionMethod string
	Lang             string
	Byline           string
	ChunkCount       int
	TokenCount       int
	FetchedAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ChunkRow is a stored content chunk, optionally carrying its embedding.
type ChunkRow struct {
	ID            string // SHA-256 content-derived id
	URL           string
	SectionPath   string
	Text          string
	TokenCount    int
	OverlapTokens int
	Position      int
	Embedding     []byte // serialized float32 vector, nil when not embedded
	Dimension     int
	Provider      string
	Model         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SearchRow is one similarity search hit.
type SearchRow struct {
	ChunkID     string
	URL         string
	SectionPath string
	Text        string
	Score       float64
}

// Status summarizes the state of the index.
type Status struct {
	Documents   int
	Chunks      int
	Embedded    int
	DBSizeBytes int64
	BuildMode   string
}
