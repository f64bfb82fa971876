package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrDatabase, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply migrations: %v", types.ErrDatabase, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Document operations

func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (url, title, content_hash, extraction_method, lang, byline,
		                       chunk_count, token_count, fetched_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			content_hash = excluded.content_hash,
			extraction_method = excluded.extraction_method,
			lang = excluded.lang,
			byline = excluded.byline,
			chunk_count = excluded.chunk_count,
			token_count = excluded.token_count,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	fetchedAt := doc.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = now
	}
	_, err := s.db.ExecContext(ctx, query,
		doc.URL, doc.Title, doc.ContentHash, doc.ExtractionMethod, doc.Lang, doc.Byline,
		doc.ChunkCount, doc.TokenCount, fetchedAt, now, now)
	if err != nil {
		return fmt.Errorf("%w: upsert document: %v", types.ErrDatabase, err)
	}
	doc.FetchedAt = fetchedAt
	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, url string) (*Document, error) {
	query := `
		SELECT id, url, title, content_hash, extraction_method, lang, byline,
		       chunk_count, token_count, fetched_at, created_at, updated_at
		FROM documents
		WHERE url = ?
	`
	var doc Document
	var fetchedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, url).Scan(
		&doc.ID, &doc.URL, &doc.Title, &doc.ContentHash, &doc.ExtractionMethod,
		&doc.Lang, &doc.Byline, &doc.ChunkCount, &doc.TokenCount,
		&fetchedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %v", types.ErrDatabase, err)
	}
	if fetchedAt.Valid {
		doc.FetchedAt = fetchedAt.Time
	}
	return &doc, nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, url string) error {
	if err := s.DeleteChunksByURL(ctx, url); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE url = ?", url)
	if err != nil {
		return fmt.Errorf("%w: delete document: %v", types.ErrDatabase, err)
	}
	return nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]*Document, error) {
	query := `
		SELECT id, url, title, content_hash, extraction_method, lang, byline,
		       chunk_count, token_count, fetched_at, created_at, updated_at
		FROM documents
		ORDER BY url
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", types.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*Document
	for rows.Next() {
		var doc Document
		var fetchedAt sql.NullTime
		if err := rows.Scan(
			&doc.ID, &doc.URL, &doc.Title, &doc.ContentHash, &doc.ExtractionMethod,
			&doc.Lang, &doc.Byline, &doc.ChunkCount, &doc.TokenCount,
			&fetchedAt, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", types.ErrDatabase, err)
		}
		if fetchedAt.Valid {
			doc.FetchedAt = fetchedAt.Time
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// Chunk operations

func (s *SQLiteStore) UpsertChunks(ctx context.Context, chunks []*ChunkRow) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", types.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO chunks (id, url, section_path, text, token_count, overlap_tokens,
		                    position, embedding, embedding_dim, provider, model,
		                    created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			section_path = excluded.section_path,
			text = excluded.text,
			token_count = excluded.token_count,
			overlap_tokens = excluded.overlap_tokens,
			position = excluded.position,
			embedding = COALESCE(excluded.embedding, chunks.embedding),
			embedding_dim = CASE WHEN excluded.embedding IS NULL
				THEN chunks.embedding_dim ELSE excluded.embedding_dim END,
			provider = CASE WHEN excluded.embedding IS NULL
				THEN chunks.provider ELSE excluded.provider END,
			model = CASE WHEN excluded.embedding IS NULL
				THEN chunks.model ELSE excluded.model END,
			updated_at = excluded.updated_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: prepare upsert: %v", types.ErrDatabase, err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.URL, chunk.SectionPath, chunk.Text, chunk.TokenCount,
			chunk.OverlapTokens, chunk.Position, chunk.Embedding, chunk.Dimension,
			chunk.Provider, chunk.Model, now, now,
		); err != nil {
			return fmt.Errorf("%w: upsert chunk %s: %v", types.ErrDatabase, chunk.ID, err)
		}
		chunk.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit chunks: %v", types.ErrDatabase, err)
	}
	return nil
}

func (s *SQLiteStore) ListChunks(ctx context.Context, url string) ([]*ChunkRow, error) {
	query := chunkSelect + " WHERE url = ? ORDER BY position"
	rows, err := s.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks: %v", types.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}

func (s *SQLiteStore) ListAllChunks(ctx context.Context, limit int) ([]*ChunkRow, error) {
	query := chunkSelect + " ORDER BY url, position"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list all chunks: %v", types.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}

func (s *SQLiteStore) DeleteChunksByURL(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE url = ?", url)
	if err != nil {
		return fmt.Errorf("%w: delete chunks: %v", types.ErrDatabase, err)
	}
	return nil
}

const chunkSelect = `
	SELECT id, url, section_path, text, token_count, overlap_tokens, position,
	       embedding, embedding_dim, provider, model, created_at, updated_at
	FROM chunks`

func scanChunks(rows *sql.Rows) ([]*ChunkRow, error) {
	var chunks []*ChunkRow
	for rows.Next() {
		var c ChunkRow
		var sectionPath, provider, model sql.NullString
		if err := rows.Scan(
			&c.ID, &c.URL, &sectionPath, &c.Text, &c.TokenCount, &c.OverlapTokens,
			&c.Position, &c.Embedding, &c.Dimension, &provider, &model,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", types.ErrDatabase, err)
		}
		c.SectionPath = sectionPath.String
		c.Provider = provider.String
		c.Model = model.String
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// Search operations

func (s *SQLiteStore) SimilaritySearch(ctx context.Context, url string, vector []float32, limit int, minScore float64) ([]SearchRow, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", types.ErrValidation)
	}
	if limit <= 0 {
		return []SearchRow{}, nil
	}
	return similaritySearch(ctx, s.db, url, vector, limit, minScore)
}

// Status operations

func (s *SQLiteStore) Status(ctx context.Context) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&status.Documents); err != nil {
		return nil, fmt.Errorf("%w: count documents: %v", types.ErrDatabase, err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&status.Chunks); err != nil {
		return nil, fmt.Errorf("%w: count chunks: %v", types.ErrDatabase, err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL").Scan(&status.Embedded); err != nil {
		return nil, fmt.Errorf("%w: count embedded: %v", types.ErrDatabase, err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.DBSizeBytes = pageCount * pageSize
		}
	}

	return status, nil
}
