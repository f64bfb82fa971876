package embedder

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns sensible defaults for API retry.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
}

// retryWithBackoff executes fn with exponential backoff. Failures that
// classify as permanent (validation) are returned immediately; a rate-limit
// error's Retry-After hint overrides the computed backoff when longer.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T
	backoff := config.BaseDelay

	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !types.Retryable(types.Classify(err)) && types.Classify(err) != types.ClassUnknown {
			return zero, err
		}

		if attempt < config.MaxRetries-1 {
			delay := backoff
			var rle *types.RateLimitError
			if errors.As(err, &rle) && rle.RetryAfter > delay {
				delay = rle.RetryAfter
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}
