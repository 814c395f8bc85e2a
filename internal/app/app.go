// Package app wires the search components together from a Config.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/contentsearch/internal/config"
	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/history"
	"github.com/dshills/contentsearch/internal/httpapi"
	"github.com/dshills/contentsearch/internal/importer"
	"github.com/dshills/contentsearch/internal/mcp"
	"github.com/dshills/contentsearch/internal/metrics"
	"github.com/dshills/contentsearch/internal/recommend"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/internal/storage"
)

const memoryDB = ":memory:"

// App holds every long-lived component. One embedder instance is shared by
// all components so its cache is shared too.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       *storage.SQLiteStorage
	Embedder    embedder.Embedder
	Fetcher     *fetcher.Fetcher
	Tracker     *metrics.Tracker
	Searcher    *searcher.Searcher
	Recommender *recommend.Engine
	History     *history.Store
	Importer    *importer.Importer
}

// New opens the database and builds the component graph
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Database.Path != memoryDB {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Embedder: emb,
		Tracker:  metrics.NewTracker(),
		History:  history.New(store),
	}

	a.Fetcher = fetcher.New(store, fetcher.WithPerCollectionLimit(cfg.Search.PerCollectionLimit))
	a.Searcher = searcher.New(a.Fetcher, emb,
		searcher.WithConfig(cfg.Search.Config),
		searcher.WithTracker(a.Tracker),
		searcher.WithLogger(logger.With("component", "searcher")))
	a.Recommender = recommend.New(store, a.Searcher, a.Fetcher,
		recommend.WithLogger(logger.With("component", "recommend")))
	a.Importer = importer.New(store,
		importer.WithLogger(logger.With("component", "importer")),
		importer.WithEmbedder(emb),
		importer.WithOnImport(func(*importer.Statistics) {
			a.Searcher.InvalidateCache()
		}))

	logger.Debug("components ready",
		"db", cfg.Database.Path,
		"driver", storage.DriverName,
		"embedding_provider", emb.Provider(),
		"embedding_model", emb.Model())
	return a, nil
}

// HTTPServer builds the search API server
func (a *App) HTTPServer() *httpapi.Server {
	return httpapi.New(a.Searcher, a.Recommender,
		httpapi.WithStatus(a.Store),
		httpapi.WithLogger(a.Logger.With("component", "http")))
}

// MCPServer builds the MCP tool server
func (a *App) MCPServer() (*mcp.Server, error) {
	return mcp.NewServer(a.Searcher, a.Recommender,
		mcp.WithStore(a.Store),
		mcp.WithImporter(a.Importer),
		mcp.WithEmbedder(a.Embedder),
		mcp.WithLogger(a.Logger.With("component", "mcp")))
}

// Close releases the embedder and the database
func (a *App) Close() error {
	return errors.Join(a.Embedder.Close(), a.Store.Close())
}
