// Package recommend builds personalized content recommendations from a
// user's interests, the current search keywords and popular content.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/query"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

// Source weights and reasons
const (
	InterestWeight = 0.8
	KeywordWeight  = 0.7
	PopularWeight  = 0.6

	ReasonCurrentSearch = "based on your current search"
	ReasonPopular       = "popular content"

	MaxInterests       = 5
	PerSource          = 2
	MaxRecommendations = 5

	popularPerCollection = 5
	defaultLanguage      = "ar"
)

// FallbackInterests are used when a user has neither interests nor a bio
var FallbackInterests = []string{"تكنولوجيا", "برمجة", "ذكاء اصطناعي"}

// PopularKinds are the collections popular content is drawn from
var PopularKinds = []types.ContentKind{
	types.KindArticle,
	types.KindEpisode,
	types.KindSeason,
	types.KindPlaylist,
}

// ReasonInterest returns the reason attached to interest matches
func ReasonInterest(interest string) string {
	return "based on your interest in " + interest
}

// UserSource loads user records
type UserSource interface {
	GetUser(ctx context.Context, id string) (*types.User, error)
}

// Searcher runs the semantic searches recommendations are drawn from
type Searcher interface {
	Search(ctx context.Context, q, language string, userIntent *types.UserIntent, opts searcher.Options) searcher.Outcome
}

// Engine produces recommendations
type Engine struct {
	users    UserSource
	searcher Searcher
	fetcher  *fetcher.Fetcher
	logger   *slog.Logger
}

// Option customises an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine
func New(users UserSource, s Searcher, f *fetcher.Fetcher, opts ...Option) *Engine {
	e := &Engine{
		users:    users,
		searcher: s,
		fetcher:  f,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Interests derives up to MaxInterests interests for user: the explicit
// list, else bio keywords, else FallbackInterests.
func Interests(user *types.User) []string {
	var interests []string
	for _, in := range user.Interests {
		if in = strings.TrimSpace(in); in != "" {
			interests = append(interests, in)
		}
	}
	if len(interests) == 0 {
		interests = query.ExtractKeywords(user.Bio)
	}
	if len(interests) == 0 {
		interests = FallbackInterests
	}
	if len(interests) > MaxInterests {
		interests = interests[:MaxInterests]
	}
	return append([]string(nil), interests...)
}

// GetPersonalizedRecommendations blends interest matches, keyword matches and
// popular content for userID. A missing user yields an empty list. A failing
// source is logged and skipped; the others still contribute.
func (e *Engine) GetPersonalizedRecommendations(ctx context.Context, userID string, keywords []string) []types.Recommendation {
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.Error("failed to load user", "user_id", userID, "error", err)
		}
		return []types.Recommendation{}
	}

	language := user.Language
	if language == "" {
		language = defaultLanguage
	}

	var (
		all  []types.Recommendation
		errs []error
	)

	for _, interest := range Interests(user) {
		recs, err := e.fromSearch(ctx, interest, language, InterestWeight, ReasonInterest(interest))
		if err != nil {
			errs = append(errs, fmt.Errorf("interest %q: %w", interest, err))
		}
		all = append(all, recs...)
	}

	if joined := strings.TrimSpace(strings.Join(keywords, " ")); joined != "" {
		recs, err := e.fromSearch(ctx, joined, language, KeywordWeight, ReasonCurrentSearch)
		if err != nil {
			errs = append(errs, fmt.Errorf("keywords: %w", err))
		}
		all = append(all, recs...)
	}

	popular, err := e.popular(ctx, PerSource, nil)
	if err != nil {
		errs = append(errs, fmt.Errorf("popular: %w", err))
	}
	all = append(all, popular...)

	if len(errs) > 0 {
		e.logger.Warn("recommendation sources degraded", "user_id", userID, "error", errors.Join(errs...))
	}

	recs := Merge(all)
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	return recs
}

// errDegraded marks a semantic search that fell back to text matching
var errDegraded = errors.New("semantic search degraded to text search")

func (e *Engine) fromSearch(ctx context.Context, q, language string, weight float64, reason string) ([]types.Recommendation, error) {
	if e.searcher == nil {
		return nil, errors.New("searcher not configured")
	}
	out := e.searcher.Search(ctx, q, language, nil, searcher.Options{Limit: PerSource})

	recs := make([]types.Recommendation, 0, PerSource)
	for _, r := range out.Results {
		if len(recs) == PerSource {
			break
		}
		if r.Data == nil {
			continue
		}
		recs = append(recs, toRecommendation(r.Data, weight, reason))
	}

	if out.Fallback {
		return recs, errDegraded
	}
	return recs, nil
}

// popular returns the n most popular items across PopularKinds, skipping
// the keys in exclude.
func (e *Engine) popular(ctx context.Context, n int, exclude map[string]bool) ([]types.Recommendation, error) {
	found, err := e.fetcher.FetchPopular(ctx, PopularKinds, popularPerCollection)
	if err != nil {
		return nil, err
	}

	items := found.Flatten()
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].Projection(), items[j].Projection()
		if pi.Popularity != pj.Popularity {
			return pi.Popularity > pj.Popularity
		}
		return pi.Timestamp.After(pj.Timestamp)
	})

	recs := make([]types.Recommendation, 0, n)
	for _, item := range items {
		if len(recs) == n {
			break
		}
		rec := toRecommendation(item, PopularWeight, ReasonPopular)
		if exclude[rec.Key()] {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// RelatedContent returns popular items that are not already in results
func (e *Engine) RelatedContent(ctx context.Context, results []types.SemanticSearchResult, limit int) []types.Recommendation {
	if limit <= 0 {
		limit = MaxRecommendations
	}
	exclude := make(map[string]bool, len(results))
	for _, r := range results {
		exclude[r.Key()] = true
	}

	recs, err := e.popular(ctx, limit, exclude)
	if err != nil {
		e.logger.Error("failed to load related content", "error", err)
		return []types.Recommendation{}
	}
	return recs
}

// Merge de-duplicates by (type,id) keeping the highest score, then sorts by
// score descending. Ties keep their input order.
func Merge(recs []types.Recommendation) []types.Recommendation {
	out := make([]types.Recommendation, 0, len(recs))
	index := make(map[string]int, len(recs))
	for _, r := range recs {
		key := r.Key()
		if i, ok := index[key]; ok {
			if r.Score > out[i].Score {
				out[i] = r
			}
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func toRecommendation(item types.ContentItem, weight float64, reason string) types.Recommendation {
	p := item.Projection()
	return types.Recommendation{
		Type:        p.Kind,
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Text,
		Score:       weight,
		Reason:      reason,
	}
}
