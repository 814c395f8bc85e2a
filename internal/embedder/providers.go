package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/singleflight"
)

const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-hashing-v1"

	// Default endpoints
	DefaultJinaEndpoint   = "https://api.jina.ai/v1/embeddings"
	DefaultOpenAIEndpoint = "https://api.openai.com/v1/embeddings"

	// Embedding dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	DefaultCacheSize = 10000
	DefaultTimeout   = 30 * time.Second
)

// embedGroup collapses concurrent requests for the same text into one call.
// The shared call runs detached from any single caller and is bounded by
// timeout; each caller stops waiting when its own context ends.
type embedGroup struct {
	cache   *Cache
	group   singleflight.Group
	timeout time.Duration
}

func (g *embedGroup) cached(hash string) (*Embedding, bool) {
	if g.cache == nil {
		return nil, false
	}
	return g.cache.Get(hash)
}

func (g *embedGroup) store(hash string, emb *Embedding) {
	emb.Hash = hash
	if g.cache != nil {
		g.cache.Set(hash, emb)
	}
}

// embed returns the cached embedding for text or computes it once
func (g *embedGroup) embed(ctx context.Context, text string, compute func(context.Context) (*Embedding, error)) (*Embedding, error) {
	hash := ComputeHash(text)
	if emb, ok := g.cached(hash); ok {
		return emb, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := g.group.DoChan(hash, func() (interface{}, error) {
		timeout := g.timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		emb, err := compute(callCtx)
		if err != nil {
			return nil, err
		}
		g.store(hash, emb)
		return emb, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyEmbedding(res.Val.(*Embedding)), nil
	}
}

// Option customises an APIProvider
type Option func(*APIProvider)

// WithEndpoint overrides the embeddings endpoint URL
func WithEndpoint(endpoint string) Option {
	return func(p *APIProvider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

// WithModel overrides the default model
func WithModel(model string) Option {
	return func(p *APIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(p *APIProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(d time.Duration) Option {
	return func(p *APIProvider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithRetryConfig replaces the retry policy
func WithRetryConfig(cfg RetryConfig) Option {
	return func(p *APIProvider) {
		p.retry = cfg
	}
}

// APIProvider calls an OpenAI-compatible embeddings endpoint. Jina and OpenAI
// share the request and response shape and differ only in defaults.
type APIProvider struct {
	embedGroup
	name       string
	endpoint   string
	model      string
	dimension  int
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(apiKey string, cache *Cache, opts ...Option) (*APIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}
	return newAPIProvider(ProviderJina, DefaultJinaEndpoint, DefaultJinaModel, JinaDimension, apiKey, cache, opts), nil
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey string, cache *Cache, opts ...Option) (*APIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	return newAPIProvider(ProviderOpenAI, DefaultOpenAIEndpoint, DefaultOpenAIModel, OpenAIDimension, apiKey, cache, opts), nil
}

func newAPIProvider(name, endpoint, model string, dim int, apiKey string, cache *Cache, opts []Option) *APIProvider {
	p := &APIProvider{
		embedGroup: embedGroup{cache: cache},
		name:       name,
		endpoint:   endpoint,
		model:      model,
		dimension:  dim,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	// A shared call may spend one client timeout per attempt
	p.timeout = p.httpClient.Timeout * time.Duration(p.retry.attempts())
	return p
}

func (p *APIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	return p.embed(ctx, req.Text, func(ctx context.Context) (*Embedding, error) {
		embeddings, err := p.callWithRetry(ctx, []string{req.Text}, model)
		if err != nil {
			return nil, err
		}
		if len(embeddings) == 0 {
			return nil, &EmbeddingError{Provider: p.name, Err: errors.New("no embeddings returned")}
		}
		return embeddings[0], nil
	})
}

func (p *APIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d texts (max %d)", ErrBatchTooLarge, len(req.Texts), MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	// Only send cache misses upstream
	embeddings := make([]*Embedding, len(req.Texts))
	var missing []string
	var missingIdx []int
	for i, text := range req.Texts {
		if emb, ok := p.cached(ComputeHash(text)); ok {
			embeddings[i] = emb
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		fetched, err := p.callWithRetry(ctx, missing, model)
		if err != nil {
			return nil, err
		}
		if len(fetched) != len(missing) {
			return nil, &EmbeddingError{
				Provider: p.name,
				Err:      fmt.Errorf("expected %d embeddings, got %d", len(missing), len(fetched)),
			}
		}
		for j, emb := range fetched {
			p.store(ComputeHash(missing[j]), emb)
			embeddings[missingIdx[j]] = copyEmbedding(emb)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *APIProvider) callWithRetry(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	return retryWithBackoff(ctx, p.retry, func() ([]*Embedding, error) {
		return p.callAPI(ctx, texts, model)
	})
}

func (p *APIProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &EmbeddingError{Provider: p.name, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &EmbeddingError{
			Provider:   p.name,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(bodyBytes))),
		}
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &EmbeddingError{Provider: p.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	respModel := apiResp.Model
	if respModel == "" {
		respModel = model
	}

	// Results may arrive out of order; place them by index
	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		idx := data.Index
		if idx < 0 || idx >= len(embeddings) || embeddings[idx] != nil {
			idx = i
		}
		embeddings[idx] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     respModel,
		}
	}

	return embeddings, nil
}

func (p *APIProvider) Dimension() int {
	return p.dimension
}

func (p *APIProvider) Provider() string {
	return p.name
}

func (p *APIProvider) Model() string {
	return p.model
}

func (p *APIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces feature-hashed bag-of-words vectors. It needs no
// network access, is deterministic, and texts sharing words get a positive
// cosine similarity.
type LocalProvider struct {
	embedGroup
	model string
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		embedGroup: embedGroup{cache: cache},
		model:      DefaultLocalModel,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	return l.embed(ctx, req.Text, func(context.Context) (*Embedding, error) {
		return &Embedding{
			Vector:    HashVector(req.Text, LocalDimension),
			Dimension: LocalDimension,
			Provider:  ProviderLocal,
			Model:     l.model,
		}, nil
	})
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// HashVector maps the lower-cased letter/digit tokens of text into a signed
// feature-hashed vector of dim components, normalized to unit length.
func HashVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(dim))
		if sum&(1<<63) != 0 {
			vector[idx]--
		} else {
			vector[idx]++
		}
	}
	return NormalizeVector(vector)
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
