// Package ratelimit provides a token bucket combined with a circuit
// breaker, protecting outbound calls to rate-limited dependencies such as
// embedding APIs.
//
// # Token Bucket
//
// Capacity is MaxRequests per Window. Tokens refill proportionally to
// elapsed time and a full elapsed window resets the bucket. Acquire blocks
// on a computed timer until a token is available rather than polling.
//
// # Circuit Breaker
//
//	CLOSED --(FailureThreshold consecutive failures)--> OPEN
//	OPEN   --(OpenTimeout elapsed)-----------------> HALF_OPEN
//	HALF_OPEN --(probe success)--> CLOSED (failure count reset)
//	HALF_OPEN --(probe failure)--> OPEN (cooldown restarted)
//
// While open, Acquire rejects immediately with a rate-limit error carrying
// the remaining cooldown as a retry-after hint; the protected operation is
// not invoked. Each success decrements the failure counter by one (floored
// at zero) so isolated failures decay under healthy traffic.
//
// # Processing
//
//	l := ratelimit.New(ratelimit.DefaultConfig())
//	res, err := ratelimit.Process(ctx, l, query, embedFn)
//
// Process retries with exponential backoff up to MaxRetries attempts;
// ProcessBatch isolates per-item failures so one bad item never aborts the
// batch.
package ratelimit
