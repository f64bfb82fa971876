// Package mcp implements the Model Context Protocol (MCP) server for WebContext.
//
// The MCP server exposes three tools to AI coding assistants:
//   - fetch_page: Fetch a web page, extract its content, and index it
//   - search_page: Search indexed content with natural language queries
//   - get_status: Check index statistics and search availability
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output,
// making it simple to integrate with any MCP-compatible client.
//
// # Tool: fetch_page
//
// Fetch and index a page:
//
//	Request:
//	{
//	  "name": "fetch_page",
//	  "arguments": {
//	    "url": "https://example.com/docs/guide",
//	    "max_tokens": 512,
//	    "overlap_percentage": 15
//	  }
//	}
//
//	Response:
//	{
//	  "url": "https://example.com/docs/guide",
//	  "title": "Service Guide",
//	  "extraction_method": "readability",
//	  "chunks_created": 12,
//	  "tokens_total": 4810,
//	  "embedded": true,
//	  "duration_ms": 420
//	}
//
// Callers that already rendered the page (for instance through a headless
// browser) can pass the HTML directly via the optional html argument,
// skipping the fetch.
//
// # Tool: search_page
//
// Search indexed content:
//
//	Request:
//	{
//	  "name": "search_page",
//	  "arguments": {
//	    "query": "how is authentication configured",
//	    "max_results": 10,
//	    "min_score": 0.5
//	  }
//	}
//
//	Response:
//	{
//	  "search_available": true,
//	  "query": "how is authentication configured",
//	  "result_count": 2,
//	  "results": [
//	    {
//	      "id": "a1b2...",
//	      "text": "Requests authenticate with bearer tokens...",
//	      "score": 0.87,
//	      "section_path": "Service Guide > Authentication"
//	    }
//	  ]
//	}
//
// A queries array searches several queries with bounded concurrency and
// returns a result set per query. An optional url argument restricts the
// search to one indexed page. An empty query lists stored chunks in
// document order.
//
// # Tool: get_status
//
// Check index state:
//
//	Response:
//	{
//	  "server": "webcontext-mcp",
//	  "version": "1.0.0",
//	  "statistics": {
//	    "documents": 3,
//	    "chunks": 41,
//	    "embedded": 41,
//	    "db_size_bytes": 204800,
//	    "build_mode": "cgo"
//	  },
//	  "search": {
//	    "available": true,
//	    "provider": "jina",
//	    "limiter_state": "CLOSED"
//	  },
//	  "pages": [
//	    {"url": "https://example.com/docs/guide", "title": "Service Guide", "chunk_count": 12}
//	  ]
//	}
//
// # MCP Client Configuration
//
// Configure in the client's MCP settings:
//
//	{
//	  "mcpServers": {
//	    "webcontext": {
//	      "command": "/usr/local/bin/webcontext",
//	      "env": {
//	        "JINA_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// The MCP server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {
//	      "param": "url",
//	      "reason": "missing or empty"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32001: Fetch failed (network error, non-200 status)
//   - -32002: Extraction failed (no usable content in the page)
//   - -32003: Remote site rate limited the request
//   - -32603: Internal error (database, embedding service)
//
// A missing embedding provider is not an error: search_page responds with
// search_available=false and fetch_page still indexes pages without
// embeddings.
//
// # Logging
//
// The MCP server logs to stderr (stdout is reserved for MCP protocol):
//
//	log.SetOutput(os.Stderr)
//	log.Printf("MCP server started")
package mcp
