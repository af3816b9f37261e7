package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"semindex/internal/config"
	"semindex/internal/embedder"
	"semindex/internal/pipeline"
	"semindex/internal/searcher"
	"semindex/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "semindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp      *server.MCPServer
	store    *store.SQLiteStore
	engine   embedder.Engine
	pipeline *pipeline.Pipeline
	searcher *searcher.Searcher
	table    string
	log      *zap.Logger

	// indexMu serializes indexing runs; searches stay concurrent.
	indexMu sync.Mutex
	lastRun *pipeline.Summary
}

// NewServer creates an MCP server from cfg. The embedding engine is shared
// between the pipeline and the searcher so query embeddings hit the same
// cache the index populated.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(cfg.Storage.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	vs, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	engine, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		_ = vs.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		store:  vs,
		engine: engine,
		pipeline: pipeline.New(engine, vs, logger, pipeline.Config{
			Workers: cfg.Index.Workers,
			Table:   cfg.Index.Table,
		}),
		searcher: searcher.New(vs, engine, logger, searcher.Config{
			CacheSize: cfg.Search.CacheSize,
			CacheTTL:  cfg.Search.CacheTTL(),
		}),
		table: cfg.Index.Table,
		log:   logger,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve() error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the store and the embedding engine.
func (s *Server) Close() error {
	_ = s.engine.Close()
	return s.store.Close()
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(semanticSearchTool(), s.handleSemanticSearch)
	s.mcp.AddTool(indexStatusTool(), s.handleIndexStatus)
}
