// Package searcher orchestrates similarity search over stored web
// content.
//
// A search embeds the query through a rate limiter and circuit breaker,
// runs vector similarity against storage, filters by relevance floor, and
// consolidates overlapping hits into deduplicated results. Searches can
// be scoped to a single page by url or span the whole index. A blank
// query skips embedding entirely and lists stored chunks in document
// order.
//
// The serving path is deliberately failure-tolerant: embedding or storage
// errors are classified and logged, and the caller receives an empty
// result set instead of an error. Ingestion (StoreWithEmbeddings) is the
// opposite: failures propagate so a partial index is never silent.
//
// Results are cached in a TTL-bounded LRU keyed by url, query, and options; any
// successful ingest purges the cache. SearchMultiple fans out over
// multiple queries in sequential batches with bounded per-batch
// concurrency.
package searcher
