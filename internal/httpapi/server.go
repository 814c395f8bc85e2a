// Package httpapi serves the search endpoint consumed by the client facade,
// plus recommendation, metrics and health endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/query"
	"github.com/dshills/contentsearch/internal/recommend"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

const (
	// RequestIDHeader carries the per-request uuid
	RequestIDHeader = "X-Request-ID"

	defaultLanguage   = "ar"
	sideListLimit     = 5
	maxBodyBytes      = 1 << 20
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// StatusSource reports store statistics for the health endpoint
type StatusSource interface {
	GetStatus(ctx context.Context) (*storage.Status, error)
}

// Server is the HTTP API
type Server struct {
	searcher    *searcher.Searcher
	recommender *recommend.Engine
	status      StatusSource
	logger      *slog.Logger
	mux         *http.ServeMux
}

// Option customises a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStatus enables store statistics on /healthz
func WithStatus(status StatusSource) Option {
	return func(s *Server) {
		s.status = status
	}
}

// New creates a Server
func New(srch *searcher.Searcher, rec *recommend.Engine, opts ...Option) *Server {
	s := &Server{
		searcher:    srch,
		recommender: rec,
		logger:      slog.Default(),
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /search", s.handleSearchGet)
	s.mux.HandleFunc("POST /search", s.handleSearchPost)
	s.mux.HandleFunc("GET /recommendations", s.handleRecommendations)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// Handler returns the routed handler wrapped with request IDs and logging
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// KindList accepts either a single kind or a list of kinds
type KindList []types.ContentKind

// UnmarshalJSON decodes "article" as well as ["article","episode"]
func (k *KindList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*k = nil
			return nil
		}
		kind, err := types.ParseContentKind(one)
		if err != nil {
			return err
		}
		*k = KindList{kind}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type must be a string or a list of strings")
	}
	kinds, err := parseKinds(many)
	if err != nil {
		return err
	}
	*k = kinds
	return nil
}

// RequestFilters is the filters object of a POST /search body
type RequestFilters struct {
	Type      KindList `json:"type,omitempty"`
	DateRange string   `json:"dateRange,omitempty"`
}

// RequestOptions is the options object of a POST /search body
type RequestOptions struct {
	Limit int `json:"limit,omitempty"`
}

// SearchRequest is the POST /search body
type SearchRequest struct {
	Query    string         `json:"query"`
	Language string         `json:"language,omitempty"`
	Filters  RequestFilters `json:"filters"`
	Options  RequestOptions `json:"options"`
}

// SuggestionsResponse is the body of GET /search?suggestions=true
type SuggestionsResponse struct {
	Suggestions []types.SearchSuggestion `json:"suggestions"`
}

// TrendingResponse is the body of GET /search?trending=true
type TrendingResponse struct {
	Trending []string `json:"trending"`
}

// RecommendationsResponse is the body of GET /recommendations
type RecommendationsResponse struct {
	Recommendations []types.Recommendation `json:"recommendations"`
}

// ErrorResponse is the body of every 4xx/5xx reply
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	language := languageOr(params.Get("language"))

	limit, err := parseLimit(params.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if isTrue(params.Get("trending")) {
		writeJSON(w, http.StatusOK, TrendingResponse{Trending: s.searcher.GetTrendingSearches(language, limit)})
		return
	}

	q := params.Get("q")
	if isTrue(params.Get("suggestions")) {
		writeJSON(w, http.StatusOK, SuggestionsResponse{
			Suggestions: s.searcher.GetSearchSuggestions(r.Context(), q, language, limit),
		})
		return
	}

	req := SearchRequest{
		Query:    q,
		Language: language,
		Filters:  RequestFilters{DateRange: params.Get("dateRange")},
		Options:  RequestOptions{Limit: limit},
	}
	if raw := params.Get("type"); raw != "" {
		kinds, err := parseKinds(strings.Split(raw, ","))
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		req.Filters.Type = kinds
	}
	s.search(w, r, req)
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Options.Limit < 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be positive"})
		return
	}
	req.Language = languageOr(req.Language)
	s.search(w, r, req)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, req SearchRequest) {
	if v := query.ValidateSearchQuery(req.Query); !v.Valid {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error:      "invalid query",
			Reason:     v.Reason,
			Suggestion: v.Suggestion,
		})
		return
	}

	dateRange, err := fetcher.ParseDateRange(req.Filters.DateRange)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	opts := searcher.Options{
		Limit:   req.Options.Limit,
		Filters: fetcher.Filters{Types: req.Filters.Type, DateRange: dateRange},
	}
	writeJSON(w, http.StatusOK, s.BuildResponse(r.Context(), req.Query, req.Language, opts))
}

// BuildResponse runs a search and assembles the full response payload
func (s *Server) BuildResponse(ctx context.Context, q, language string, opts searcher.Options) *types.SearchResponse {
	start := time.Now()
	out := s.searcher.Search(ctx, q, language, nil, opts)

	resp := types.EmptySearchResponse()
	resp.SemanticResults = out.Results
	resp.TotalCount = len(out.Results)
	resp.CacheHit = out.CacheHit
	resp.Intent = &out.Intent
	resp.Suggestions = s.searcher.GetSearchSuggestions(ctx, q, language, sideListLimit)
	resp.TrendingSearches = s.searcher.GetTrendingSearches(language, sideListLimit)
	if s.recommender != nil {
		resp.RelatedContent = s.recommender.RelatedContent(ctx, out.Results, sideListLimit)
	}
	resp.SearchTime = time.Since(start).Milliseconds()
	return resp
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "userId is required"})
		return
	}
	if s.recommender == nil {
		writeJSON(w, http.StatusOK, RecommendationsResponse{Recommendations: []types.Recommendation{}})
		return
	}

	var keywords []string
	for _, kw := range strings.Split(r.URL.Query().Get("keywords"), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	writeJSON(w, http.StatusOK, RecommendationsResponse{
		Recommendations: s.recommender.GetPersonalizedRecommendations(r.Context(), userID, keywords),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.searcher.Tracker().Metrics())
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status string          `json:"status"`
	Store  *storage.Status `json:"store,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}
	status, err := s.status.GetStatus(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: status})
}

func parseKinds(names []string) (KindList, error) {
	kinds := make(KindList, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		kind, err := types.ParseContentKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func languageOr(language string) string {
	if language = strings.TrimSpace(language); language == "" {
		return defaultLanguage
	}
	return language
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	writeJSON(w, status, body)
}
