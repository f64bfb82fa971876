package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/webcontext-mcp/internal/chunker"
	"github.com/dshills/webcontext-mcp/internal/searcher"
	"github.com/dshills/webcontext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeFetchFailed    = -32001 // Page could not be fetched
	ErrorCodeExtractFailed  = -32002 // No usable content in the page
	ErrorCodeFetchRateLimit = -32003 // Remote site is rate limiting us
)

// handleFetchPage handles the fetch_page tool invocation
func (s *Server) handleFetchPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	url, ok := args["url"].(string)
	if !ok || url == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "url parameter is required", map[string]interface{}{
			"param":  "url",
			"reason": "missing or empty",
		})
	}

	maxTokens := getIntDefault(args, "max_tokens", chunker.DefaultMaxTokens)
	if maxTokens < 64 || maxTokens > 2048 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_tokens must be between 64 and 2048", map[string]interface{}{
			"param": "max_tokens",
			"value": maxTokens,
		})
	}

	overlap := getIntDefault(args, "overlap_percentage", chunker.DefaultOverlapPercentage)
	if overlap < 0 || overlap > chunker.MaxOverlapPercentage {
		return nil, newMCPError(ErrorCodeInvalidParams, "overlap_percentage must be between 0 and 50", map[string]interface{}{
			"param": "overlap_percentage",
			"value": overlap,
		})
	}

	// A caller with pre-rendered HTML (headless browser, cached fetch)
	// can skip the network round trip.
	html := getStringDefault(args, "html", "")
	if html == "" {
		fetched, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, fetchError(url, err)
		}
		html = fetched
	}

	opts := chunker.Options{MaxTokens: maxTokens, OverlapPercentage: overlap}
	stats, err := s.pipeline.IngestPage(ctx, url, html, opts)
	if err != nil {
		if types.Classify(err) == types.ClassValidation {
			return nil, newMCPError(ErrorCodeExtractFailed, "no extractable content", map[string]interface{}{
				"url":   url,
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "ingest failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}

	// Format response
	response := map[string]interface{}{
		"url":               stats.URL,
		"title":             stats.Title,
		"extraction_method": stats.Method,
		"chunks_created":    stats.ChunksCreated,
		"tokens_total":      stats.TokensTotal,
		"embedded":          stats.Embedded,
		"search_available":  s.searcher != nil,
		"duration_ms":       stats.Duration.Milliseconds(),
	}
	if stats.Note != "" {
		response["note"] = stats.Note
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchPage handles the search_page tool invocation
func (s *Server) handleSearchPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if s.searcher == nil {
		// Not an error: the server runs without an embedding provider,
		// it just cannot search.
		response := map[string]interface{}{
			"search_available": false,
			"message":          "No embedding provider configured. Set WEBCONTEXT_EMBEDDING_PROVIDER or an API key to enable search.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	maxResults := getIntDefault(args, "max_results", searcher.DefaultMaxResults)
	if maxResults < 1 || maxResults > searcher.MaxMaxResults {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_results must be between 1 and 50", map[string]interface{}{
			"param": "max_results",
			"value": maxResults,
		})
	}

	minScore := getFloatDefault(args, "min_score", searcher.DefaultMinScore)
	if minScore < 0 || minScore > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_score must be between 0.0 and 1.0", map[string]interface{}{
			"param": "min_score",
			"value": minScore,
		})
	}
	if minScore == 0 {
		minScore = -1 // explicit zero disables the relevance floor
	}

	opts := searcher.SearchOptions{
		MaxResults: maxResults,
		MinScore:   minScore,
	}

	// Optional scope: restrict the search to one indexed page.
	url := getStringDefault(args, "url", "")

	if queries := getStringSlice(args, "queries"); len(queries) > 0 {
		concurrency := getIntDefault(args, "concurrency", searcher.DefaultConcurrency)
		if concurrency < 1 || concurrency > searcher.MaxConcurrency {
			return nil, newMCPError(ErrorCodeInvalidParams, "concurrency must be between 1 and 10", map[string]interface{}{
				"param": "concurrency",
				"value": concurrency,
			})
		}

		resultSets := s.searcher.SearchMultiple(ctx, url, queries, concurrency, opts)
		byQuery := make(map[string]interface{}, len(resultSets))
		for q, results := range resultSets {
			byQuery[q] = formatResults(results)
		}
		response := map[string]interface{}{
			"search_available": true,
			"results":          byQuery,
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	// An empty query is a valid browse request: it lists stored chunks in
	// document order.
	query := getStringDefault(args, "query", "")
	results := s.searcher.SearchSimilar(ctx, url, query, opts)
	response := map[string]interface{}{
		"search_available": true,
		"query":            query,
		"result_count":     len(results),
		"results":          formatResults(results),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	docs, err := s.storage.ListDocuments(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list documents", map[string]interface{}{
			"error": err.Error(),
		})
	}
	pages := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		pages = append(pages, map[string]interface{}{
			"url":         doc.URL,
			"title":       doc.Title,
			"chunk_count": doc.ChunkCount,
			"fetched_at":  doc.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	response := map[string]interface{}{
		"server":  ServerName,
		"version": ServerVersion,
		"statistics": map[string]interface{}{
			"documents":     status.Documents,
			"chunks":        status.Chunks,
			"embedded":      status.Embedded,
			"db_size_bytes": status.DBSizeBytes,
			"build_mode":    status.BuildMode,
		},
		"pages": pages,
	}

	search := map[string]interface{}{
		"available": s.searcher != nil,
	}
	if s.searcher != nil {
		search["provider"] = s.searcher.Provider()
		search["limiter_state"] = s.searcher.LimiterState()
	}
	response["search"] = search

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// fetchError maps a fetch failure onto the matching MCP error code.
func fetchError(url string, err error) error {
	data := map[string]interface{}{
		"url":   url,
		"error": err.Error(),
	}
	switch types.Classify(err) {
	case types.ClassValidation:
		return newMCPError(ErrorCodeInvalidParams, "invalid url", data)
	case types.ClassRateLimit:
		var rle *types.RateLimitError
		if errors.As(err, &rle) && rle.RetryAfter > 0 {
			data["retry_after_ms"] = rle.RetryAfter.Milliseconds()
		}
		return newMCPError(ErrorCodeFetchRateLimit, "remote site rate limited the request", data)
	default:
		return newMCPError(ErrorCodeFetchFailed, "failed to fetch page", data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatResults renders consolidated chunks as response maps.
func formatResults(results []types.ConsolidatedChunk) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		entry := map[string]interface{}{
			"id":    r.ID,
			"text":  r.Text,
			"score": r.Score,
		}
		if r.SectionPath != "" {
			entry["section_path"] = r.SectionPath
		}
		if len(r.SourceChunkIDs) > 1 {
			entry["source_chunk_ids"] = r.SourceChunkIDs
		}
		out = append(out, entry)
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter; non-string elements
// are skipped.
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
