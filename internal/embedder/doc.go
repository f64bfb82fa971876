// Package embedder generates vector embeddings for chunked web content.
//
// Three providers are available: Jina AI and OpenAI (hosted APIs sharing
// one HTTP implementation, selected via API keys) and a deterministic local
// provider used when no credentials are configured. Provider selection is
// environment-driven through NewFromEnv.
//
// All providers share an LRU cache keyed by the SHA-256 hash of the input
// text, so repeated ingestion of unchanged content never re-embeds. Hosted
// API calls retry with exponential backoff; HTTP 429 responses surface as
// rate-limit errors carrying the server's Retry-After hint so the caller's
// rate limiter can honor it.
package embedder
