package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/webcontext-mcp/internal/embedder"
)

const guideHTML = `<!DOCTYPE html>
<html lang="en">
<head><title>Deployment Guide</title></head>
<body>
<article>
<h1>Deployment Guide</h1>
<p>This guide walks through deploying the service to production. It covers
building a release artifact, provisioning the runtime environment, and
verifying the deployment with smoke tests before routing traffic.</p>
<h2>Building</h2>
<p>Release builds are produced by the build pipeline from tagged commits.
The artifact bundles the binary with its migration files so a deployment
is a single atomic unit.</p>
<h2>Verification</h2>
<p>After the new version starts, the smoke test suite issues synthetic
requests against the health and readiness endpoints. Traffic only shifts
once every probe has passed twice in a row.</p>
</article>
</body>
</html>`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	// Force the local provider so tests never touch an embedding API.
	t.Setenv(embedder.EnvProvider, "local")
	srv, err := NewServer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		if srv.searcher != nil {
			_ = srv.searcher.Close()
		}
		_ = srv.storage.Close()
	})
	return srv
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &out))
	return out
}

func ingestGuide(t *testing.T, srv *Server) {
	t.Helper()
	res, err := srv.handleFetchPage(context.Background(), callRequest(map[string]interface{}{
		"url":  "https://example.com/deploy",
		"html": guideHTML,
	}))
	require.NoError(t, err)
	_ = resultJSON(t, res)
}

func TestNewServer_Components(t *testing.T) {
	srv := newTestServer(t)

	assert.NotNil(t, srv.mcp)
	assert.NotNil(t, srv.storage)
	assert.NotNil(t, srv.fetcher)
	assert.NotNil(t, srv.pipeline)
	assert.NotNil(t, srv.searcher)
}

func TestHandleFetchPage_WithProvidedHTML(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleFetchPage(context.Background(), callRequest(map[string]interface{}{
		"url":  "https://example.com/deploy",
		"html": guideHTML,
	}))
	require.NoError(t, err)

	resp := resultJSON(t, res)
	assert.Equal(t, "Deployment Guide", resp["title"])
	assert.Equal(t, "readability", resp["extraction_method"])
	assert.Greater(t, resp["chunks_created"].(float64), 0.0)
	assert.Equal(t, true, resp["embedded"])
	assert.Equal(t, true, resp["search_available"])
}

func TestHandleFetchPage_MissingURL(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.handleFetchPage(context.Background(), callRequest(map[string]interface{}{}))
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleFetchPage_InvalidChunkOptions(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.handleFetchPage(context.Background(), callRequest(map[string]interface{}{
		"url":        "https://example.com/deploy",
		"max_tokens": float64(10),
	}))
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)

	_, err = srv.handleFetchPage(context.Background(), callRequest(map[string]interface{}{
		"url":                "https://example.com/deploy",
		"overlap_percentage": float64(80),
	}))
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleFetchPage_EmptyHTMLContent(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.handleFetchPage(context.Background(), callRequest(map[string]interface{}{
		"url":  "https://example.com/blank",
		"html": "<html><body></body></html>",
	}))
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeExtractFailed, mcpErr.Code)
}

func TestHandleSearchPage_FindsIngestedContent(t *testing.T) {
	srv := newTestServer(t)
	ingestGuide(t, srv)

	res, err := srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{
		"query":     "smoke test verification",
		"min_score": float64(0),
	}))
	require.NoError(t, err)

	resp := resultJSON(t, res)
	assert.Equal(t, true, resp["search_available"])
	results := resp["results"].([]interface{})
	require.NotEmpty(t, results)
	first := results[0].(map[string]interface{})
	assert.NotEmpty(t, first["text"])
}

func TestHandleSearchPage_URLScope(t *testing.T) {
	srv := newTestServer(t)
	ingestGuide(t, srv)

	res, err := srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{
		"query":     "smoke test verification",
		"url":       "https://example.com/other-page",
		"min_score": float64(0),
	}))
	require.NoError(t, err)
	resp := resultJSON(t, res)
	assert.Empty(t, resp["results"])

	res, err = srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{
		"query":     "smoke test verification",
		"url":       "https://example.com/deploy",
		"min_score": float64(0),
	}))
	require.NoError(t, err)
	resp = resultJSON(t, res)
	assert.NotEmpty(t, resp["results"])
}

func TestHandleSearchPage_EmptyQueryListsChunks(t *testing.T) {
	srv := newTestServer(t)
	ingestGuide(t, srv)

	res, err := srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)

	resp := resultJSON(t, res)
	results := resp["results"].([]interface{})
	assert.NotEmpty(t, results)
	assert.EqualValues(t, len(results), resp["result_count"])
}

func TestHandleSearchPage_MultipleQueries(t *testing.T) {
	srv := newTestServer(t)
	ingestGuide(t, srv)

	res, err := srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{
		"queries":   []interface{}{"release artifact", "readiness probes"},
		"min_score": float64(0),
	}))
	require.NoError(t, err)

	resp := resultJSON(t, res)
	byQuery := resp["results"].(map[string]interface{})
	assert.Len(t, byQuery, 2)
	assert.Contains(t, byQuery, "release artifact")
	assert.Contains(t, byQuery, "readiness probes")
}

func TestHandleSearchPage_InvalidParams(t *testing.T) {
	srv := newTestServer(t)

	var mcpErr *MCPError

	_, err := srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{
		"query":       "anything",
		"max_results": float64(500),
	}))
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)

	_, err = srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{
		"query":     "anything",
		"min_score": float64(2),
	}))
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)

	_, err = srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{
		"queries":     []interface{}{"a", "b"},
		"concurrency": float64(99),
	}))
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestHandleSearchPage_Unavailable(t *testing.T) {
	srv := newTestServer(t)
	srv.searcher = nil

	res, err := srv.handleSearchPage(context.Background(), callRequest(map[string]interface{}{
		"query": "anything",
	}))
	require.NoError(t, err)

	resp := resultJSON(t, res)
	assert.Equal(t, false, resp["search_available"])
	assert.NotEmpty(t, resp["message"])
}

func TestHandleGetStatus(t *testing.T) {
	srv := newTestServer(t)
	ingestGuide(t, srv)

	res, err := srv.handleGetStatus(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)

	resp := resultJSON(t, res)
	assert.Equal(t, ServerName, resp["server"])

	stats := resp["statistics"].(map[string]interface{})
	assert.EqualValues(t, 1, stats["documents"])
	assert.Greater(t, stats["chunks"].(float64), 0.0)
	assert.Equal(t, stats["chunks"], stats["embedded"])

	search := resp["search"].(map[string]interface{})
	assert.Equal(t, true, search["available"])
	assert.Equal(t, "local", search["provider"])
	assert.NotEmpty(t, search["limiter_state"])

	pages := resp["pages"].([]interface{})
	require.Len(t, pages, 1)
	page := pages[0].(map[string]interface{})
	assert.Equal(t, "https://example.com/deploy", page["url"])
	assert.Equal(t, "Deployment Guide", page["title"])
}

func TestMCPError_Message(t *testing.T) {
	err := newMCPError(ErrorCodeFetchFailed, "failed to fetch page", nil)
	assert.Contains(t, err.Error(), "-32001")
	assert.Contains(t, err.Error(), "failed to fetch page")
}
