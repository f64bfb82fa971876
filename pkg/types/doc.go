// Package types defines the shared data model for the content pipeline:
// extraction results, content chunks, consolidation inputs and outputs,
// and the error taxonomy used for classification and retry decisions.
//
// ContentChunk IDs are content-addressed (SHA-256 of url, section path and
// final text), which makes re-indexing identical content idempotent when
// combined with upsert-by-id storage semantics.
package types
