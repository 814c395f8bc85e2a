// Package client is the search facade used by front ends: it calls the
// /search endpoint, tracks timings and keeps the search history.
//
// No method returns an error. Network and decode failures are logged and
// produce the uniform empty response.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/contentsearch/internal/history"
	"github.com/dshills/contentsearch/internal/httpapi"
	"github.com/dshills/contentsearch/internal/metrics"
	"github.com/dshills/contentsearch/internal/query"
	"github.com/dshills/contentsearch/pkg/types"
)

const (
	// DefaultTimeout bounds every request
	DefaultTimeout = 10 * time.Second
	// QuickSuggestionLimit caps QuickSuggestions
	QuickSuggestionLimit = 5

	maxResponseBytes = 10 << 20
)

var quickSuggestions = []string{
	"ذكاء اصطناعي",
	"برمجة",
	"تطوير الويب",
	"ريادة الأعمال",
	"تعلم الآلة",
	"بودكاست",
	"artificial intelligence",
	"programming",
	"web development",
	"entrepreneurship",
	"machine learning",
	"podcast",
}

// Client talks to a contentsearch HTTP server
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracker    *metrics.Tracker
	history    *history.Store
	logger     *slog.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTracker reports search timings to tracker
func WithTracker(tracker *metrics.Tracker) Option {
	return func(c *Client) {
		c.tracker = tracker
	}
}

// WithHistory enables search history
func WithHistory(h *history.Store) Option {
	return func(c *Client) {
		c.history = h
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client for the server at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tracker:    metrics.NewTracker(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tracker returns the tracker searches are reported to
func (c *Client) Tracker() *metrics.Tracker {
	return c.tracker
}

// SearchParams are the query parameters of a GET search
type SearchParams struct {
	Query     string
	Language  string
	Limit     int
	Types     []types.ContentKind
	DateRange string
}

// Search runs a GET /search
func (c *Client) Search(ctx context.Context, p SearchParams) *types.SearchResponse {
	params := url.Values{}
	params.Set("q", p.Query)
	if p.Language != "" {
		params.Set("language", p.Language)
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	if len(p.Types) > 0 {
		names := make([]string, len(p.Types))
		for i, k := range p.Types {
			names[i] = string(k)
		}
		params.Set("type", strings.Join(names, ","))
	}
	if p.DateRange != "" {
		params.Set("dateRange", p.DateRange)
	}

	return c.trackedSearch(func() (*types.SearchResponse, error) {
		var resp types.SearchResponse
		err := c.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &resp)
		return &resp, err
	})
}

// AdvancedSearch runs a POST /search with filters and options
func (c *Client) AdvancedSearch(ctx context.Context, req httpapi.SearchRequest) *types.SearchResponse {
	return c.trackedSearch(func() (*types.SearchResponse, error) {
		body, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		var resp types.SearchResponse
		err = c.do(ctx, http.MethodPost, "/search", body, &resp)
		return &resp, err
	})
}

func (c *Client) trackedSearch(call func() (*types.SearchResponse, error)) *types.SearchResponse {
	start := time.Now()
	resp, err := call()
	if err != nil {
		c.tracker.TrackSearch(time.Since(start), false, false)
		c.logger.Warn("search request failed", "error", err)
		return types.EmptySearchResponse()
	}
	c.tracker.TrackSearch(time.Since(start), true, resp.CacheHit)
	fillEmpty(resp)
	return resp
}

// Suggestions fetches autocomplete candidates
func (c *Client) Suggestions(ctx context.Context, q, language string, limit int) []types.SearchSuggestion {
	params := url.Values{"q": {q}, "suggestions": {"true"}}
	if language != "" {
		params.Set("language", language)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp httpapi.SuggestionsResponse
	if err := c.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &resp); err != nil {
		c.logger.Warn("suggestions request failed", "error", err)
		return []types.SearchSuggestion{}
	}
	if resp.Suggestions == nil {
		return []types.SearchSuggestion{}
	}
	return resp.Suggestions
}

// Trending fetches the trending searches for language
func (c *Client) Trending(ctx context.Context, language string, limit int) []string {
	params := url.Values{"trending": {"true"}}
	if language != "" {
		params.Set("language", language)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp httpapi.TrendingResponse
	if err := c.do(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &resp); err != nil {
		c.logger.Warn("trending request failed", "error", err)
		return []string{}
	}
	if resp.Trending == nil {
		return []string{}
	}
	return resp.Trending
}

// SaveSearchHistory records q for userID (empty for anonymous)
func (c *Client) SaveSearchHistory(ctx context.Context, q, userID string) {
	if c.history == nil {
		return
	}
	if err := c.history.Save(ctx, q, userID); err != nil {
		c.logger.Warn("failed to save search history", "user_id", userID, "error", err)
	}
}

// GetSearchHistory returns the history of userID, newest first
func (c *Client) GetSearchHistory(ctx context.Context, userID string) []types.SearchHistoryItem {
	if c.history == nil {
		return []types.SearchHistoryItem{}
	}
	items, err := c.history.List(ctx, userID)
	if err != nil {
		c.logger.Warn("failed to load search history", "user_id", userID, "error", err)
		return []types.SearchHistoryItem{}
	}
	return items
}

// ClearSearchHistory removes the history of userID
func (c *Client) ClearSearchHistory(ctx context.Context, userID string) {
	if c.history == nil {
		return
	}
	if err := c.history.Clear(ctx, userID); err != nil {
		c.logger.Warn("failed to clear search history", "user_id", userID, "error", err)
	}
}

// QuickSuggestions filters a static bilingual list without a round trip
func QuickSuggestions(q string) []string {
	needle := query.Normalize(q)
	out := make([]string, 0, QuickSuggestionLimit)
	if needle == "" {
		return out
	}
	for _, s := range quickSuggestions {
		if len(out) == QuickSuggestionLimit {
			break
		}
		if strings.Contains(strings.ToLower(s), needle) {
			out = append(out, s)
		}
	}
	return out
}

// do sends a request and decodes a JSON response into out
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// fillEmpty replaces missing lists with empty ones
func fillEmpty(resp *types.SearchResponse) {
	if resp.SemanticResults == nil {
		resp.SemanticResults = []types.SemanticSearchResult{}
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []types.SearchSuggestion{}
	}
	if resp.TrendingSearches == nil {
		resp.TrendingSearches = []string{}
	}
	if resp.RelatedContent == nil {
		resp.RelatedContent = []types.Recommendation{}
	}
}
