package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/importer"
	"github.com/dshills/contentsearch/internal/recommend"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "contentsearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Store is the subset of storage used by status and recommendation tools
type Store interface {
	GetStatus(ctx context.Context) (*storage.Status, error)
	GetUser(ctx context.Context, id string) (*types.User, error)
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp         *server.MCPServer
	searcher    *searcher.Searcher
	recommender *recommend.Engine
	importer    *importer.Importer
	store       Store
	embedder    embedder.Embedder
	logger      *slog.Logger
}

// Option customises a Server
type Option func(*Server)

// WithStore enables get_status and user checks in recommend_content
func WithStore(store Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithImporter enables the import_content tool
func WithImporter(im *importer.Importer) Option {
	return func(s *Server) {
		s.importer = im
	}
}

// WithEmbedder reports the embedding provider in get_status
func WithEmbedder(emb embedder.Embedder) Option {
	return func(s *Server) {
		s.embedder = emb
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server instance around an already wired
// searcher and recommender
func NewServer(srch *searcher.Searcher, rec *recommend.Engine, opts ...Option) (*Server, error) {
	if srch == nil {
		return nil, errors.New("searcher is required")
	}

	s := &Server{
		mcp:         server.NewMCPServer(ServerName, ServerVersion),
		searcher:    srch,
		recommender: rec,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools. Optional tools are only exposed
// when their dependency is configured.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchContentTool(), s.handleSearchContent)
	s.mcp.AddTool(suggestQueriesTool(), s.handleSuggestQueries)
	s.mcp.AddTool(trendingSearchesTool(), s.handleTrendingSearches)

	if s.recommender != nil {
		s.mcp.AddTool(recommendContentTool(), s.handleRecommendContent)
	}
	if s.importer != nil {
		s.mcp.AddTool(importContentTool(), s.handleImportContent)
	}
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
