package embedder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		jinaKey   string
		openaiKey string
		want      string
	}{
		{name: "explicit jina provider", provider: "jina", want: ProviderJina},
		{name: "explicit provider is case insensitive", provider: "OpenAI", want: ProviderOpenAI},
		{name: "explicit local provider", provider: "local", jinaKey: "k", want: ProviderLocal},
		{name: "jina key present", jinaKey: "test-key", want: ProviderJina},
		{name: "openai key present", openaiKey: "test-key", want: ProviderOpenAI},
		{name: "both keys, jina takes precedence", jinaKey: "a", openaiKey: "b", want: ProviderJina},
		{name: "no provider, no keys - fallback to local", want: ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.provider)
			t.Setenv(EnvJinaAPIKey, tt.jinaKey)
			t.Setenv(EnvOpenAIAPIKey, tt.openaiKey)

			if got := DetectProvider(); got != tt.want {
				t.Errorf("DetectProvider() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	emb, err := NewFromEnv()
	require.NoError(t, err)
	defer emb.Close()
	assert.Equal(t, ProviderLocal, emb.Provider())

	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	emb, err = NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, emb.Provider())
}

func TestNew(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr error
	}{
		{name: "local", cfg: Config{Provider: "local", CacheSize: 10}, want: ProviderLocal},
		{name: "jina with key", cfg: Config{Provider: "jina", APIKey: "k"}, want: ProviderJina},
		{name: "openai with options", cfg: Config{Provider: "openai", APIKey: "k", Model: "m", Timeout: time.Second, CacheTTL: time.Minute, CacheSize: 5}, want: ProviderOpenAI},
		{name: "empty provider detected", cfg: Config{}, want: ProviderLocal},
		{name: "jina without key", cfg: Config{Provider: "jina"}, wantErr: ErrNoProviderEnabled},
		{name: "unknown provider", cfg: Config{Provider: "cohere"}, wantErr: ErrUnsupportedModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer emb.Close()
			assert.Equal(t, tt.want, emb.Provider())
		})
	}
}
