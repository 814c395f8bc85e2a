package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/intent"
	"github.com/dshills/contentsearch/internal/metrics"
	"github.com/dshills/contentsearch/internal/query"
	"github.com/dshills/contentsearch/internal/ranking"
	"github.com/dshills/contentsearch/pkg/types"
)

// Defaults
const (
	DefaultLimit       = 50
	DefaultConcurrency = 10
	DefaultThreshold   = 0.3
	DefaultTimeout     = 30 * time.Second
	DefaultCacheSize   = 1000
	DefaultCacheTTL    = 5 * time.Minute

	// Legal sub-search scoring
	LegalBaseScore     = 0.7
	LegalExactTitle    = 0.3
	LegalTitleContains = 0.2
	LegalBodyContains  = 0.1
	legalPerCollection = 10

	// TextMatchScore is the flat score of textual fallback results
	TextMatchScore = 0.5
)

// Config tunes the orchestrator
type Config struct {
	DefaultLimit int           `yaml:"default_limit"`
	Concurrency  int           `yaml:"concurrency"`
	Threshold    float64       `yaml:"threshold"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheSize    int           `yaml:"cache_size"` // zero disables the response cache
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// DefaultConfig returns the standard search settings
func DefaultConfig() Config {
	return Config{
		DefaultLimit: DefaultLimit,
		Concurrency:  DefaultConcurrency,
		Threshold:    DefaultThreshold,
		Timeout:      DefaultTimeout,
		CacheSize:    DefaultCacheSize,
		CacheTTL:     DefaultCacheTTL,
	}
}

// Options are the per-call search parameters
type Options struct {
	Limit   int             `json:"limit,omitempty"`
	Filters fetcher.Filters `json:"filters"`
}

// Outcome is a search result set plus how it was produced
type Outcome struct {
	Results  []types.SemanticSearchResult
	Intent   types.UserIntent
	CacheHit bool
	Fallback bool // results come from the textual fallback
	Duration time.Duration
}

// cacheEntry represents a cached outcome with expiration time
type cacheEntry struct {
	outcome   Outcome
	expiresAt time.Time
}

// Searcher runs the semantic search pipeline with a textual fallback
type Searcher struct {
	fetcher    *fetcher.Fetcher
	embedder   embedder.Embedder
	classifier *intent.Classifier
	tracker    *metrics.Tracker
	logger     *slog.Logger
	cfg        Config

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// Option customises a Searcher
type Option func(*Searcher)

// WithConfig replaces the default configuration; zero fields keep defaults
func WithConfig(cfg Config) Option {
	return func(s *Searcher) {
		def := DefaultConfig()
		if cfg.DefaultLimit <= 0 {
			cfg.DefaultLimit = def.DefaultLimit
		}
		if cfg.Concurrency <= 0 {
			cfg.Concurrency = def.Concurrency
		}
		if cfg.Timeout <= 0 {
			cfg.Timeout = def.Timeout
		}
		if cfg.CacheTTL <= 0 {
			cfg.CacheTTL = def.CacheTTL
		}
		s.cfg = cfg
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracker reports every search to tracker
func WithTracker(tracker *metrics.Tracker) Option {
	return func(s *Searcher) {
		s.tracker = tracker
	}
}

// New creates a Searcher
func New(f *fetcher.Fetcher, emb embedder.Embedder, opts ...Option) *Searcher {
	s := &Searcher{
		fetcher:    f,
		embedder:   emb,
		classifier: intent.New(),
		tracker:    metrics.NewTracker(),
		logger:     slog.Default(),
		cfg:        DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.CacheSize > 0 {
		cache, err := lru.New[[32]byte, *cacheEntry](s.cfg.CacheSize)
		if err != nil {
			// This should never happen with a positive size
			panic(fmt.Sprintf("failed to create LRU cache: %v", err))
		}
		s.cache = cache
	}
	return s
}

// Tracker returns the tracker searches are reported to
func (s *Searcher) Tracker() *metrics.Tracker {
	return s.tracker
}

// PerformSemanticSearch ranks content by semantic similarity to q. It never
// fails: pipeline errors degrade to TextSearch results.
func (s *Searcher) PerformSemanticSearch(ctx context.Context, q, language string, userIntent *types.UserIntent, opts Options) []types.SemanticSearchResult {
	return s.Search(ctx, q, language, userIntent, opts).Results
}

// Search is PerformSemanticSearch with provenance
func (s *Searcher) Search(ctx context.Context, q, language string, userIntent *types.UserIntent, opts Options) Outcome {
	start := time.Now()
	opts = s.normalizeOptions(opts)

	resolved := s.resolveIntent(q, userIntent)
	if strings.TrimSpace(query.Normalize(q)) == "" {
		return Outcome{Results: []types.SemanticSearchResult{}, Intent: resolved, Duration: time.Since(start)}
	}

	key := computeQueryHash(q, language, userIntent, opts)
	if cached, ok := s.checkCache(key); ok {
		cached.CacheHit = true
		cached.Duration = time.Since(start)
		s.tracker.TrackSearch(cached.Duration, true, true)
		return cached
	}

	results, err := s.semanticSearch(ctx, q, resolved, opts)
	if err != nil {
		s.logger.Warn("semantic search failed, falling back to text search",
			"query", q, "error", err)
		fallback := s.TextSearch(ctx, q, opts)
		duration := time.Since(start)
		s.tracker.TrackSearch(duration, false, false)
		return Outcome{Results: fallback, Intent: resolved, Fallback: true, Duration: duration}
	}

	out := Outcome{Results: results, Intent: resolved, Duration: time.Since(start)}
	s.storeInCache(key, out)
	s.tracker.TrackSearch(out.Duration, true, false)
	return out
}

func (s *Searcher) resolveIntent(q string, userIntent *types.UserIntent) types.UserIntent {
	if userIntent != nil {
		return *userIntent
	}
	return s.classifier.Analyze(q)
}

func (s *Searcher) normalizeOptions(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.DefaultLimit
	}
	if opts.Filters.DateRange == "" {
		opts.Filters.DateRange = fetcher.RangeAll
	}
	return opts
}

// semanticSearch is the primary path; any error triggers the fallback
func (s *Searcher) semanticSearch(ctx context.Context, q string, userIntent types.UserIntent, opts Options) ([]types.SemanticSearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	normalized := query.Normalize(q)
	queryEmb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: normalized})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	fetched, err := s.fetcher.FetchAll(ctx, opts.Filters)
	if err != nil {
		return nil, err
	}

	legal, err := s.legalSearch(ctx, q, userIntent, opts.Filters)
	if err != nil {
		return nil, err
	}

	keywords := query.ExtractKeywords(q)
	scored, err := s.scoreItems(ctx, fetched.Flatten(), queryEmb.Vector, &userIntent, keywords)
	if err != nil {
		return nil, err
	}

	results := mergeResults(scored, legal)
	sortResults(results)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	highlightResults(results, keywords)
	return results, nil
}

// scoreItems embeds and scores every item, at most cfg.Concurrency at a time.
// Items whose embedding fails are logged and skipped.
func (s *Searcher) scoreItems(ctx context.Context, items []types.ContentItem, queryVec []float32, userIntent *types.UserIntent, keywords []string) ([]types.SemanticSearchResult, error) {
	kept := make([]*types.SemanticSearchResult, len(items))
	sem := semaphore.NewWeighted(int64(s.cfg.Concurrency))
	var wg sync.WaitGroup

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			p := item.Projection()
			emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: p.EmbeddableText()})
			if err != nil {
				s.logger.Debug("skipping item, embedding failed",
					"type", p.Kind, "id", p.ID, "error", err)
				return
			}

			scored := ranking.Score(ranking.Input{
				Similarity: ranking.CosineSimilarity(queryVec, emb.Vector),
				Projection: p,
				Intent:     userIntent,
				Keywords:   keywords,
			})
			if scored.Score <= s.cfg.Threshold {
				return
			}
			kept[i] = &types.SemanticSearchResult{
				Type:      p.Kind,
				Data:      item,
				Score:     scored.Score,
				Relevance: scored.Relevance,
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]types.SemanticSearchResult, 0, len(items))
	for _, r := range kept {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, nil
}

// legalKinds applies the type filter and the entity gate to privacy/terms
func legalKinds(userIntent types.UserIntent, filters fetcher.Filters) []types.ContentKind {
	kinds := make([]types.ContentKind, 0, len(types.LegalKinds))
	for _, kind := range filters.Kinds() {
		if !kind.IsLegal() {
			continue
		}
		if kind == types.KindPrivacy && intent.TermsOnly(userIntent) {
			continue
		}
		if kind == types.KindTerms && intent.PrivacyOnly(userIntent) {
			continue
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

// legalSearch pattern-matches the privacy and terms collections. Its results
// bypass the similarity threshold.
func (s *Searcher) legalSearch(ctx context.Context, q string, userIntent types.UserIntent, filters fetcher.Filters) ([]types.SemanticSearchResult, error) {
	pattern := strings.TrimSpace(q)
	kinds := legalKinds(userIntent, filters)
	if pattern == "" || len(kinds) == 0 {
		return nil, nil
	}

	found, err := s.fetcher.FetchMatching(ctx, fetcher.Match{Pattern: pattern, Kinds: kinds, PerKind: legalPerCollection})
	if err != nil {
		return nil, fmt.Errorf("legal search: %w", err)
	}

	results := make([]types.SemanticSearchResult, 0)
	for _, item := range found.Flatten() {
		score := LegalScore(pattern, item.Projection())
		results = append(results, types.SemanticSearchResult{
			Type:      item.Kind(),
			Data:      item,
			Score:     score,
			Relevance: ranking.Label(score),
		})
	}
	return results, nil
}

// LegalScore scores a privacy/terms section against the raw query text
func LegalScore(pattern string, p types.Projection) float64 {
	needle := strings.ToLower(strings.TrimSpace(pattern))
	title := strings.ToLower(strings.TrimSpace(p.Title))

	score := LegalBaseScore
	switch {
	case title == needle:
		score += LegalExactTitle
	case strings.Contains(title, needle):
		score += LegalTitleContains
	}
	if strings.Contains(strings.ToLower(p.Text), needle) {
		score += LegalBodyContains
	}
	return score
}

// TextSearch is the plain substring search used as the fallback. Matches get
// a flat score and the "text match" label; failures yield an empty list.
func (s *Searcher) TextSearch(ctx context.Context, q string, opts Options) []types.SemanticSearchResult {
	opts = s.normalizeOptions(opts)
	results, err := s.textSearch(ctx, q, opts)
	if err != nil {
		s.logger.Error("text search failed", "query", q, "error", err)
		return []types.SemanticSearchResult{}
	}
	return results
}

func (s *Searcher) textSearch(ctx context.Context, q string, opts Options) ([]types.SemanticSearchResult, error) {
	pattern := strings.TrimSpace(q)
	if pattern == "" {
		return []types.SemanticSearchResult{}, nil
	}

	found, err := s.fetcher.FetchMatching(ctx, fetcher.Match{
		Pattern:   pattern,
		Kinds:     opts.Filters.Kinds(),
		PerKind:   opts.Limit,
		DateRange: opts.Filters.DateRange,
	})
	if err != nil {
		return nil, err
	}

	items := found.Flatten()
	results := make([]types.SemanticSearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, types.SemanticSearchResult{
			Type:      item.Kind(),
			Data:      item,
			Score:     TextMatchScore,
			Relevance: types.RelevanceTextMatch,
		})
	}
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	highlightResults(results, []string{pattern})
	return results, nil
}

// mergeResults appends extra to base, keeping the higher score per (type,id)
func mergeResults(base, extra []types.SemanticSearchResult) []types.SemanticSearchResult {
	merged := make([]types.SemanticSearchResult, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))
	for _, r := range append(append([]types.SemanticSearchResult{}, base...), extra...) {
		key := r.Key()
		if i, ok := index[key]; ok {
			if r.Score > merged[i].Score {
				merged[i] = r
			}
			continue
		}
		index[key] = len(merged)
		merged = append(merged, r)
	}
	return merged
}

// sortResults orders by score, descending, keeping ties in input order
func sortResults(results []types.SemanticSearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func highlightResults(results []types.SemanticSearchResult, terms []string) {
	if len(terms) == 0 {
		return
	}
	for i := range results {
		if results[i].Data == nil {
			continue
		}
		p := results[i].Data.Projection()
		results[i].HighlightedTitle = query.Highlight(p.Title, terms)
		results[i].HighlightedDescription = query.Highlight(p.Text, terms)
	}
}

// checkCache looks up a cached outcome
func (s *Searcher) checkCache(key [32]byte) (Outcome, bool) {
	if s.cache == nil {
		return Outcome{}, false
	}

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return Outcome{}, false
	}

	if time.Now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		// Remove expired entry - need write lock
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return Outcome{}, false
	}

	out := copyOutcome(entry.outcome)
	s.cacheMu.RUnlock()
	return out, true
}

// storeInCache saves an outcome
func (s *Searcher) storeInCache(key [32]byte, out Outcome) {
	if s.cache == nil {
		return
	}
	entry := &cacheEntry{
		outcome:   copyOutcome(out),
		expiresAt: time.Now().Add(s.cfg.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached outcome
func (s *Searcher) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached outcomes
func (s *Searcher) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// copyOutcome copies the result slice; items are shared read-only snapshots
func copyOutcome(src Outcome) Outcome {
	dst := src
	dst.Results = append([]types.SemanticSearchResult(nil), src.Results...)
	if dst.Results == nil {
		dst.Results = []types.SemanticSearchResult{}
	}
	dst.Intent.Entities = append([]string(nil), src.Intent.Entities...)
	return dst
}

// computeQueryHash generates a hash for caching
func computeQueryHash(q, language string, userIntent *types.UserIntent, opts Options) [32]byte {
	h := sha256.New()
	fmt.Fprintf(h, "q:%s|lang:%s|limit:%d|range:%s|types:", query.Normalize(q), language, opts.Limit, opts.Filters.DateRange)
	for _, k := range opts.Filters.Kinds() {
		fmt.Fprintf(h, "%s,", k)
	}
	if userIntent != nil {
		fmt.Fprintf(h, "|intent:%s|entities:%s", userIntent.Intent, strings.Join(userIntent.Entities, ","))
	}

	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return hash
}
