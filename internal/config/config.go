// Package config loads the contentsearch configuration file.
//
// Values are resolved in order: built-in defaults, the YAML file, then
// environment variables. Command-line flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/searcher"
)

// Environment variables
const (
	EnvConfigPath = "CONTENTSEARCH_CONFIG"
	EnvDataDir    = "CONTENTSEARCH_DATA_DIR"
	EnvDBPath     = "CONTENTSEARCH_DB_PATH"
	EnvHTTPAddr   = "CONTENTSEARCH_HTTP_ADDR"
	EnvServerURL  = "CONTENTSEARCH_SERVER_URL"
	EnvLogLevel   = "CONTENTSEARCH_LOG_LEVEL"
)

const (
	appName         = "contentsearch"
	configFileName  = "config.yaml"
	dbFileName      = "contentsearch.db"
	DefaultHTTPAddr = "127.0.0.1:8080"
)

// Config represents the contentsearch configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding embedder.Config `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	HTTP      HTTPConfig      `yaml:"http"`
	Client    ClientConfig    `yaml:"client"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig tunes the search orchestrator and the collection fetcher
type SearchConfig struct {
	searcher.Config    `yaml:",inline"`
	PerCollectionLimit int `yaml:"per_collection_limit"` // zero reads whole collections
}

// HTTPConfig configures the search API server
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// ClientConfig configures the CLI client of a remote server
type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Embedding: embedder.Config{
			CacheSize: embedder.DefaultCacheSize,
			Timeout:   embedder.DefaultTimeout,
		},
		Search: SearchConfig{Config: searcher.DefaultConfig()},
		HTTP:   HTTPConfig{Addr: DefaultHTTPAddr},
		Client: ClientConfig{
			BaseURL: "http://" + DefaultHTTPAddr,
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	if override := os.Getenv(EnvDataDir); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "ContentSearch"), nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// DefaultPath returns the config file path used when none is given
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config at path (DefaultPath when empty), applies
// environment overrides and validates the result. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.resolveDBPath(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(embedder.EnvProvider); v != "" {
		c.Embedding.Provider = v
	}
	if c.Embedding.APIKey == "" {
		switch strings.ToLower(c.Embedding.Provider) {
		case embedder.ProviderOpenAI:
			c.Embedding.APIKey = os.Getenv(embedder.EnvOpenAIAPIKey)
		case embedder.ProviderJina:
			c.Embedding.APIKey = os.Getenv(embedder.EnvJinaAPIKey)
		}
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		c.Client.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) resolveDBPath() error {
	if c.Database.Path != "" {
		if strings.HasPrefix(c.Database.Path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			c.Database.Path = filepath.Join(home, c.Database.Path[2:])
		}
		return nil
	}
	dir, err := GetDataDir()
	if err != nil {
		return err
	}
	c.Database.Path = filepath.Join(dir, dbFileName)
	return nil
}

// Validate rejects impossible values
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "", embedder.ProviderOpenAI, embedder.ProviderJina, embedder.ProviderLocal:
	default:
		errs = append(errs, fmt.Errorf("embedding.provider: unknown provider %q", c.Embedding.Provider))
	}
	if c.Embedding.CacheSize < 0 {
		errs = append(errs, errors.New("embedding.cache_size must not be negative"))
	}
	s := c.Search
	if s.DefaultLimit < 1 {
		errs = append(errs, errors.New("search.default_limit must be at least 1"))
	}
	if s.Concurrency < 1 {
		errs = append(errs, errors.New("search.concurrency must be at least 1"))
	}
	if s.Threshold < 0 || s.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("search.threshold must be in [0, 1), got %v", s.Threshold))
	}
	if s.Timeout <= 0 {
		errs = append(errs, errors.New("search.timeout must be positive"))
	}
	if s.CacheSize < 0 || s.CacheTTL < 0 {
		errs = append(errs, errors.New("search cache size and ttl must not be negative"))
	}
	if s.PerCollectionLimit < 0 {
		errs = append(errs, errors.New("search.per_collection_limit must not be negative"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseLevel maps a level name to a slog level; empty means info
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
