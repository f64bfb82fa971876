package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// fetchPageTool returns the tool definition for fetch_page
func fetchPageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "fetch_page",
		Description: "Fetch a web page, extract its content, and index it for semantic search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "URL of the page to fetch (http or https)",
				},
				"html": map[string]interface{}{
					"type":        "string",
					"description": "Pre-rendered HTML to index instead of fetching the URL (e.g., from a headless browser)",
				},
				"max_tokens": map[string]interface{}{
					"type":        "integer",
					"description": "Target chunk size in tokens (64-2048)",
					"default":     512,
					"minimum":     64,
					"maximum":     2048,
				},
				"overlap_percentage": map[string]interface{}{
					"type":        "integer",
					"description": "Chunk overlap as a percentage of chunk size (0-50)",
					"default":     15,
					"minimum":     0,
					"maximum":     50,
				},
			},
			Required: []string{"url"},
		},
	}
}

// searchPageTool returns the tool definition for search_page
func searchPageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_page",
		Description: "Search indexed page content with natural language queries; overlapping results are consolidated",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query; an empty query lists stored chunks in document order",
				},
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Restrict the search to one indexed page; omit to search the whole index",
				},
				"queries": map[string]interface{}{
					"type":        "array",
					"description": "Multiple queries searched with bounded concurrency; overrides query",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum consolidated results per query (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
				"min_score": map[string]interface{}{
					"type":        "number",
					"description": "Minimum similarity score (0.0-1.0)",
					"default":     0.5,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"concurrency": map[string]interface{}{
					"type":        "integer",
					"description": "Parallel queries per batch when queries is used (1-10)",
					"default":     2,
					"minimum":     1,
					"maximum":     10,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and search availability",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
