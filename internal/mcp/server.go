package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/webcontext-mcp/internal/ingest"
	"github.com/dshills/webcontext-mcp/internal/searcher"
	"github.com/dshills/webcontext-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "webcontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBDir is the default location for the database
	DefaultDBDir = "~/.webcontext"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Store
	fetcher  *ingest.Fetcher
	pipeline *ingest.Pipeline
	searcher *searcher.Searcher // nil when no embedder is configured
}

// NewServer creates a new MCP server instance.
func NewServer(dbPath string) (*Server, error) {
	if dbPath == "" || dbPath == DefaultDBDir {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".webcontext")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbFile := filepath.Join(dbPath, "webcontext.db")

	store, err := storage.NewSQLiteStore(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// A missing or misconfigured embedding provider disables search, not
	// the server: fetching and browsing still work.
	srch := searcher.NewOptional(store)
	if srch == nil {
		log.Printf("no embedding provider available; search_page will report unavailable")
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		fetcher:  ingest.NewFetcher(),
		pipeline: ingest.New(store, srch),
		searcher: srch,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		if s.searcher != nil {
			_ = s.searcher.Close()
		}
		_ = s.storage.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(fetchPageTool(), s.handleFetchPage)
	s.mcp.AddTool(searchPageTool(), s.handleSearchPage)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
