// Package storage persists fetched documents and content chunks in SQLite
// and serves vector similarity queries over stored embeddings.
//
// # Schema
//
// Two tables: documents (one row per fetched URL) and chunks. Chunk ids
// are content-derived SHA-256 hashes used as the primary key, so
// re-ingesting an unchanged page upserts in place instead of duplicating.
// Embeddings live on the chunk row as a little-endian float32 blob.
//
// # Build Modes
//
// Two SQLite drivers are supported via build tags:
//
//   - sqlite_vec (CGO): github.com/mattn/go-sqlite3 with the sqlite-vec
//     extension; similarity is computed in SQL.
//   - default/purego: modernc.org/sqlite; candidate vectors are scored
//     with Go-side cosine similarity.
//
// Both paths report similarity clamped to [0, 1], highest first.
//
// Schema changes are applied through ordered, semver-tagged migrations at
// open time.
package storage
