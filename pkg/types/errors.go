package types

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorClass categorizes a failure for observability and retry decisions.
type ErrorClass string

const (
	ClassValidation       ErrorClass = "validation"
	ClassNetworkTimeout   ErrorClass = "network_timeout"
	ClassEmbeddingService ErrorClass = "embedding_service"
	ClassDatabase         ErrorClass = "database"
	ClassRateLimit        ErrorClass = "rate_limit"
	ClassUnknown          ErrorClass = "unknown"
)

// Sentinel errors for the failure taxonomy. Wrap with fmt.Errorf("...: %w", ...)
// so Classify can recover the class from any depth.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNetworkTimeout   = errors.New("network timeout")
	ErrEmbeddingService = errors.New("embedding service error")
	ErrDatabase         = errors.New("database error")
	ErrRateLimit        = errors.New("rate limited")
)

// RateLimitError is a rate-limit failure that carries a retry-after hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited (retry after %s)", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// Is makes RateLimitError match ErrRateLimit in errors.Is checks.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimit }

// Classify maps an arbitrary error to its failure class. Sentinel matches
// take precedence; otherwise context deadlines and net timeouts classify as
// network timeouts, and a few well-known message shapes are recognized so
// errors from third-party clients still land in a useful bucket.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	switch {
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrRateLimit):
		return ClassRateLimit
	case errors.Is(err, ErrNetworkTimeout), errors.Is(err, context.DeadlineExceeded):
		return ClassNetworkTimeout
	case errors.Is(err, ErrEmbeddingService):
		return ClassEmbeddingService
	case errors.Is(err, ErrDatabase):
		return ClassDatabase
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassNetworkTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return ClassRateLimit
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return ClassNetworkTimeout
	case strings.Contains(msg, "sql") || strings.Contains(msg, "database"):
		return ClassDatabase
	case strings.Contains(msg, "embedding"):
		return ClassEmbeddingService
	}

	return ClassUnknown
}

// Retryable reports whether failures of the given class are worth retrying.
// Validation failures are permanent; everything else may be transient.
func Retryable(class ErrorClass) bool {
	switch class {
	case ClassNetworkTimeout, ClassEmbeddingService, ClassDatabase, ClassRateLimit:
		return true
	default:
		return false
	}
}
