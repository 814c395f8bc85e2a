package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contentsearch/internal/config"
	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "content.db")
	cfg.Embedding.Provider = embedder.ProviderLocal
	return cfg
}

func TestNew(t *testing.T) {
	a, err := New(testConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, embedder.ProviderLocal, a.Embedder.Provider())
	assert.FileExists(t, a.Config.Database.Path)
	assert.NotNil(t, a.HTTPServer())

	srv, err := a.MCPServer()
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Embedding.Provider = "unknown"
	_, err = New(cfg, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestImportInvalidatesSearchCache(t *testing.T) {
	a, err := New(testConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	ctx := context.Background()

	out := a.Searcher.Search(ctx, "ذكاء اصطناعي", "ar", nil, searcher.Options{})
	require.False(t, out.Fallback)
	require.Equal(t, 1, a.Searcher.CacheLen())

	dump := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(dump, []byte("articles:\n  - id: a1\n    title: ذكاء اصطناعي\n"), 0o644))
	stats, err := a.Importer.ImportFiles(ctx, []string{dump}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.ItemsImported)
	assert.Equal(t, 1, stats.ItemsWarmed, "imported items are embedded ahead of search")

	assert.Zero(t, a.Searcher.CacheLen())

	item, err := a.Store.GetItem(ctx, types.KindArticle, "a1")
	require.NoError(t, err)
	assert.Equal(t, "ذكاء اصطناعي", item.Projection().Title)

	// Searches from every surface land in the shared tracker
	assert.Equal(t, int64(1), a.Tracker.Metrics().SearchCount)
}

func TestHTTPServerHealth(t *testing.T) {
	a, err := New(testConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ts := httptest.NewServer(a.HTTPServer().Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
