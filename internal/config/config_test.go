package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/searcher"
)

// isolate points every directory and override at the test's temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv(EnvDataDir, filepath.Join(dir, "data"))
	for _, key := range []string{
		EnvConfigPath, EnvDBPath, EnvHTTPAddr, EnvServerURL, EnvLogLevel,
		embedder.EnvProvider, embedder.EnvOpenAIAPIKey, embedder.EnvJinaAPIKey,
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, searcher.DefaultConfig(), cfg.Search.Config)
	assert.Zero(t, cfg.Search.PerCollectionLimit)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)
	assert.Equal(t, filepath.Join(dir, "data", "contentsearch.db"), cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/content.db
embedding:
  provider: openai
  model: text-embedding-3-large
  cache_ttl: 10m
search:
  default_limit: 20
  threshold: 0.4
  timeout: 5s
  per_collection_limit: 200
http:
  addr: ":9090"
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/content.db", cfg.Database.Path)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, 10*time.Minute, cfg.Embedding.CacheTTL)
	assert.Equal(t, embedder.DefaultCacheSize, cfg.Embedding.CacheSize, "unset keys keep defaults")
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.InDelta(t, 0.4, cfg.Search.Threshold, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	assert.Equal(t, searcher.DefaultConcurrency, cfg.Search.Concurrency)
	assert.Equal(t, 200, cfg.Search.PerCollectionLimit)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DefaultPathFromEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":7070\"\n"), 0o644))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvDBPath, "/data/override.db")
	t.Setenv(EnvHTTPAddr, ":8181")
	t.Setenv(EnvServerURL, "http://search.internal")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(embedder.EnvProvider, "jina")
	t.Setenv(embedder.EnvJinaAPIKey, "jina-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/override.db", cfg.Database.Path)
	assert.Equal(t, ":8181", cfg.HTTP.Addr)
	assert.Equal(t, "http://search.internal", cfg.Client.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "jina", cfg.Embedding.Provider)
	assert.Equal(t, "jina-key", cfg.Embedding.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("search: [unterminated"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("search:\n  threshold: 1.5\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "search.threshold")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.Path = "/tmp/x.db"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding.provider"},
		{"negative embedding cache", func(c *Config) { c.Embedding.CacheSize = -1 }, "embedding.cache_size"},
		{"zero limit", func(c *Config) { c.Search.DefaultLimit = 0 }, "search.default_limit"},
		{"zero concurrency", func(c *Config) { c.Search.Concurrency = 0 }, "search.concurrency"},
		{"negative threshold", func(c *Config) { c.Search.Threshold = -0.1 }, "search.threshold"},
		{"zero timeout", func(c *Config) { c.Search.Timeout = 0 }, "search.timeout"},
		{"negative cache ttl", func(c *Config) { c.Search.CacheTTL = -time.Second }, "search cache"},
		{"negative per collection", func(c *Config) { c.Search.PerCollectionLimit = -1 }, "per_collection_limit"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Database.Path = filepath.Join(dir, "db.sqlite")
	cfg.Search.Threshold = 0.25
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, l)

	l, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
