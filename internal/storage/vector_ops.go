package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// similaritySearch ranks embedded chunks by cosine similarity. A non-empty
// url restricts the search to that document's chunks. With the sqlite-vec
// extension the distance is computed in SQL; otherwise all candidate
// vectors are scored in Go.
func similaritySearch(ctx context.Context, db *sql.DB, url string, queryVector []float32, limit int, minScore float64) ([]SearchRow, error) {
	if VectorExtensionAvailable {
		return similaritySearchOptimized(ctx, db, url, queryVector, limit, minScore)
	}
	return similaritySearchFallback(ctx, db, url, queryVector, limit, minScore)
}

// similaritySearchOptimized uses sqlite-vec for SQL-side vector distance.
// vec_distance_cosine returns distance (lower is better); it is converted
// to similarity so both paths report the same scale.
func similaritySearchOptimized(ctx context.Context, db *sql.DB, url string, queryVector []float32, limit int, minScore float64) ([]SearchRow, error) {
	blob := serializeVector(queryVector)

	query := `
		SELECT id, url, section_path, text,
		       1.0 - vec_distance_cosine(embedding, ?) as similarity
		FROM chunks
		WHERE embedding IS NOT NULL AND embedding_dim = ?
	`
	args := []any{blob, len(queryVector)}

	if url != "" {
		query += " AND url = ?"
		args = append(args, url)
	}

	if minScore > 0 {
		query += " AND (1.0 - vec_distance_cosine(embedding, ?)) >= ?"
		args = append(args, blob, minScore)
	}

	query += " ORDER BY similarity DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", types.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchRow, 0, limit)
	for rows.Next() {
		var row SearchRow
		var sectionPath sql.NullString
		if err := rows.Scan(&row.ChunkID, &row.URL, &sectionPath, &row.Text, &row.Score); err != nil {
			return nil, fmt.Errorf("%w: scan search row: %v", types.ErrDatabase, err)
		}
		row.SectionPath = sectionPath.String
		row.Score = clampScore(row.Score)
		results = append(results, row)
	}
	return results, rows.Err()
}

// similaritySearchFallback loads candidate embeddings and scores them in
// Go. Used for purego builds.
func similaritySearchFallback(ctx context.Context, db *sql.DB, url string, queryVector []float32, limit int, minScore float64) ([]SearchRow, error) {
	query := `
		SELECT id, url, section_path, text, embedding
		FROM chunks
		WHERE embedding IS NOT NULL AND embedding_dim = ?
	`
	args := []any{len(queryVector)}
	if url != "" {
		query += " AND url = ?"
		args = append(args, url)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query embeddings: %v", types.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []SearchRow
	for rows.Next() {
		var row SearchRow
		var sectionPath sql.NullString
		var blob []byte
		if err := rows.Scan(&row.ChunkID, &row.URL, &sectionPath, &row.Text, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan embedding row: %v", types.ErrDatabase, err)
		}
		row.SectionPath = sectionPath.String

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}

		row.Score = clampScore(cosineSimilarity(queryVector, vector))
		if minScore > 0 && row.Score < minScore {
			continue
		}
		candidates = append(candidates, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clampScore forces a similarity into [0, 1]. Cosine similarity of
// arbitrary vectors ranges [-1, 1]; anti-correlated content is simply
// irrelevant here, not negatively relevant.
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// SerializeVector is an exported helper for callers that store embeddings
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for reading stored embeddings
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
