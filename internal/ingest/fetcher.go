package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBytes     = 8 << 20 // 8 MiB of HTML is plenty
	defaultUserAgent    = "webcontext-mcp/1.0"
)

// Fetcher retrieves page HTML over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewFetcher creates a Fetcher with standard limits.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: defaultFetchTimeout,
		},
		userAgent: defaultUserAgent,
		maxBytes:  defaultMaxBytes,
	}
}

// Fetch downloads the page at url and returns its HTML. Responses are
// size-capped; timeouts classify as network timeouts, HTTP 429 as rate
// limiting.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("%w: url must be http or https: %s", types.ErrValidation, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return "", fmt.Errorf("%w: fetch %s: %v", types.ErrNetworkTimeout, url, err)
		}
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &types.RateLimitError{RetryAfter: time.Second, Err: fmt.Errorf("fetch %s: status 429", url)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(body), nil
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	for e := err; e != nil; {
		if t, ok := e.(timeouter); ok && t.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return false
}
