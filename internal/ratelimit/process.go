package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// Result carries one processed item with its outcome and the delay/retry
// accounting accumulated while the limiter held it back.
type Result[T, R any] struct {
	Item    T
	Value   R
	Delay   time.Duration
	Retries int
	Err     error
}

// Process runs fn for item under the limiter's protection: it waits for a
// token, invokes fn, and on failure retries with exponential backoff
// (RetryDelay * 2^(attempt-1)) up to MaxRetries attempts. Each outcome is
// recorded with the circuit breaker. Exhausting retries yields a
// rate-limit-class error; an open circuit rejects without invoking fn.
func Process[T, R any](ctx context.Context, l *Limiter, item T, fn func(context.Context, T) (R, error)) (Result[T, R], error) {
	res := Result[T, R]{Item: item}
	cfg := l.Config()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		waited, err := l.Acquire(ctx)
		res.Delay += waited
		if err != nil {
			// Open circuit or cancelled context: the processor is never
			// invoked and there is nothing useful to retry against.
			res.Err = err
			return res, err
		}

		value, err := fn(ctx, item)
		if err == nil {
			l.RecordSuccess()
			res.Value = value
			return res, nil
		}

		l.RecordFailure()
		lastErr = err
		res.Retries++

		if attempt < cfg.MaxRetries {
			backoff := cfg.RetryDelay * (1 << (attempt - 1))
			if serr := sleep(ctx, backoff); serr != nil {
				res.Err = serr
				return res, serr
			}
			res.Delay += backoff
		}
	}

	res.Err = fmt.Errorf("%w: %d attempts exhausted: %v", types.ErrRateLimit, cfg.MaxRetries, lastErr)
	return res, res.Err
}

// ProcessBatch runs fn for each item in order under the limiter. One item's
// terminal failure is recorded in its Result entry and never aborts the
// rest of the batch.
func ProcessBatch[T, R any](ctx context.Context, l *Limiter, items []T, fn func(context.Context, T) (R, error)) []Result[T, R] {
	results := make([]Result[T, R], 0, len(items))
	for _, item := range items {
		res, _ := Process(ctx, l, item, fn)
		results = append(results, res)
	}
	return results
}
