// Package ingest wires the content pipeline: HTML extraction, semantic
// chunking, embedding, and persistence, in that order. It is the write
// side of the index; the searcher is the read side.
package ingest
