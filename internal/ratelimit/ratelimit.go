package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed: calls flow normally.
	StateClosed State = iota
	// StateOpen: calls are rejected until the open timeout elapses.
	StateOpen
	// StateHalfOpen: a single probing call is allowed through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Acquire while the circuit is open. It
// classifies as a rate-limit failure.
var ErrCircuitOpen = errors.New("circuit open")

// Config controls the token bucket and circuit breaker.
type Config struct {
	MaxRequests      int           // bucket capacity per window
	Window           time.Duration // refill window
	FailureThreshold int           // consecutive failures that open the circuit
	OpenTimeout      time.Duration // how long the circuit stays open
	MaxRetries       int           // attempts per Process call
	RetryDelay       time.Duration // base backoff delay
}

// DefaultConfig returns the standard protective settings.
func DefaultConfig() Config {
	return Config{
		MaxRequests:      10,
		Window:           time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		MaxRetries:       3,
		RetryDelay:       time.Second,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxRequests <= 0 {
		c.MaxRequests = d.MaxRequests
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	return c
}

// Limiter is a token bucket combined with a circuit breaker. It protects a
// downstream dependency from overload (bucket) and from hammering while it
// is failing (breaker). All state is guarded by a single mutex; the only
// writers are the calls the limiter itself guards.
type Limiter struct {
	cfg Config

	mu          sync.Mutex
	tokens      float64
	lastRefill  time.Time
	failures    int
	state       State
	openedAt    time.Time
	probeActive bool

	now func() time.Time
}

// New creates a Limiter with a full token bucket and a closed circuit.
func New(cfg Config) *Limiter {
	cfg = cfg.normalized()
	return &Limiter{
		cfg:        cfg,
		tokens:     float64(cfg.MaxRequests),
		lastRefill: time.Now(),
		state:      StateClosed,
		now:        time.Now,
	}
}

// Acquire blocks until a token is available, then consumes it. The wait is
// timer-backed: the time until the next token is computed and slept on
// rather than busy-polled. While the circuit is open, Acquire fails
// immediately with ErrCircuitOpen carrying the remaining cooldown; callers
// are expected not to invoke the protected operation. Returns the total
// time spent waiting.
func (l *Limiter) Acquire(ctx context.Context) (time.Duration, error) {
	var waited time.Duration

	for {
		l.mu.Lock()
		now := l.now()
		l.refillLocked(now)

		switch l.state {
		case StateOpen:
			if now.Sub(l.openedAt) >= l.cfg.OpenTimeout {
				l.state = StateHalfOpen
				l.probeActive = false
			} else {
				remaining := l.cfg.OpenTimeout - now.Sub(l.openedAt)
				l.mu.Unlock()
				return waited, &types.RateLimitError{RetryAfter: remaining, Err: ErrCircuitOpen}
			}
		case StateHalfOpen:
			if l.probeActive {
				// Another call holds the probe slot; wait for its verdict.
				l.mu.Unlock()
				if err := sleep(ctx, l.cfg.RetryDelay); err != nil {
					return waited, err
				}
				waited += l.cfg.RetryDelay
				continue
			}
		}

		if l.tokens >= 1 {
			l.tokens--
			if l.state == StateHalfOpen {
				l.probeActive = true
			}
			l.mu.Unlock()
			return waited, nil
		}

		// Starved: compute when the next token arrives and sleep until then.
		deficit := 1 - l.tokens
		perToken := l.cfg.Window / time.Duration(l.cfg.MaxRequests)
		wait := time.Duration(deficit * float64(perToken))
		if wait <= 0 {
			wait = time.Millisecond
		}
		l.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// refillLocked adds tokens proportional to elapsed time, capped at
// capacity. A full elapsed window resets the bucket outright.
func (l *Limiter) refillLocked(now time.Time) {
	elapsed := now.Sub(l.lastRefill)
	if elapsed <= 0 {
		return
	}

	capacity := float64(l.cfg.MaxRequests)
	if elapsed >= l.cfg.Window {
		l.tokens = capacity
	} else {
		l.tokens += capacity * float64(elapsed) / float64(l.cfg.Window)
		if l.tokens > capacity {
			l.tokens = capacity
		}
	}
	l.lastRefill = now
}

// RecordSuccess decrements the failure counter by one, floored at zero, so
// isolated failures self-heal under successful traffic. A half-open probe
// success fully closes the circuit and clears the counter.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateHalfOpen {
		l.state = StateClosed
		l.failures = 0
		l.probeActive = false
		return
	}
	if l.failures > 0 {
		l.failures--
	}
}

// RecordFailure increments the failure counter, opening the circuit at the
// threshold. A half-open probe failure re-opens immediately and restarts
// the cooldown.
func (l *Limiter) RecordFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateHalfOpen {
		l.state = StateOpen
		l.openedAt = l.now()
		l.probeActive = false
		return
	}

	l.failures++
	if l.state == StateClosed && l.failures >= l.cfg.FailureThreshold {
		l.state = StateOpen
		l.openedAt = l.now()
	}
}

// State returns the current circuit state.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateOpen && l.now().Sub(l.openedAt) >= l.cfg.OpenTimeout {
		return StateHalfOpen
	}
	return l.state
}

// Failures returns the current consecutive-failure count.
func (l *Limiter) Failures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// Config returns the limiter's effective configuration.
func (l *Limiter) Config() Config {
	return l.cfg
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
