package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/webcontext-mcp/pkg/types"
)

func TestFetch_ReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher()
	html, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "hello")
}

func TestFetch_RejectsNonHTTPScheme(t *testing.T) {
	f := NewFetcher()

	_, err := f.Fetch(context.Background(), "file:///etc/passwd")
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = f.Fetch(context.Background(), "not a url")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestFetch_RateLimitedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, types.ErrRateLimit)
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrRateLimit)
}

func TestFetch_SizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			_, _ = w.Write([]byte("0123456789"))
		}
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher()
	f.maxBytes = 50
	html, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, html, 50)
}
