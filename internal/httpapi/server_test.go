package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/metrics"
	"github.com/dshills/contentsearch/internal/query"
	"github.com/dshills/contentsearch/internal/recommend"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/internal/testutil"
	"github.com/dshills/contentsearch/pkg/types"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	store := testutil.NewStore(t)
	testutil.Seed(t, store, testutil.Fixtures(),
		&types.User{ID: "u1", Interests: []string{"ذكاء اصطناعي"}})

	f := fetcher.New(store)
	s := searcher.New(f, testutil.NewFakeEmbedder(), searcher.WithLogger(logger))
	rec := recommend.New(store, s, f, recommend.WithLogger(logger))
	srv := New(s, rec, WithStatus(store), WithLogger(logger))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string, params url.Values) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path + "?" + params.Encode())
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func post(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/search", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestSearchGet(t *testing.T) {
	ts := setupTestServer(t)

	resp := get(t, ts, "/search", url.Values{"q": {"ذكاء اصطناعي"}, "language": {"ar"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)

	body := decode[types.SearchResponse](t, resp)
	require.NotEmpty(t, body.SemanticResults)
	top := body.SemanticResults[0]
	assert.Equal(t, types.KindArticle, top.Type)
	require.IsType(t, &types.Article{}, top.Data)
	assert.Equal(t, testutil.AIArticleID, top.Data.(*types.Article).ID)
	assert.GreaterOrEqual(t, top.Score, 0.7)

	assert.Equal(t, len(body.SemanticResults), body.TotalCount)
	assert.Len(t, body.TrendingSearches, sideListLimit)
	require.NotNil(t, body.Intent)
	assert.False(t, body.CacheHit)

	require.NotEmpty(t, body.RelatedContent)
	for _, r := range body.RelatedContent {
		assert.NotEqual(t, testutil.AIArticleID, r.ID, "related content excludes results")
	}

	again := decode[types.SearchResponse](t, get(t, ts, "/search", url.Values{"q": {"ذكاء اصطناعي"}, "language": {"ar"}}))
	assert.True(t, again.CacheHit)
}

func TestSearchGet_Suggestions(t *testing.T) {
	ts := setupTestServer(t)

	resp := get(t, ts, "/search", url.Values{"q": {"حلقة"}, "suggestions": {"true"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[SuggestionsResponse](t, resp)
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "حلقة عن البرمجة", body.Suggestions[0].Text)
	assert.Equal(t, types.KindEpisode, body.Suggestions[0].Type)
}

func TestSearchGet_Trending(t *testing.T) {
	ts := setupTestServer(t)

	resp := get(t, ts, "/search", url.Values{"language": {"en"}, "trending": {"true"}, "limit": {"3"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[TrendingResponse](t, resp)
	assert.Equal(t, searcher.GetTrendingSearches("en", 3), body.Trending)
}

func TestSearchGet_TypeFilter(t *testing.T) {
	ts := setupTestServer(t)

	resp := get(t, ts, "/search", url.Values{"q": {"البرمجة"}, "type": {"episode,seasons"}, "dateRange": {"all"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[types.SearchResponse](t, resp)
	require.NotEmpty(t, body.SemanticResults)
	for _, r := range body.SemanticResults {
		assert.Contains(t, []types.ContentKind{types.KindEpisode, types.KindSeason}, r.Type)
	}
}

func TestSearchGet_BadRequests(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name   string
		params url.Values
		reason string
	}{
		{"missing query", url.Values{}, query.ReasonEmpty},
		{"short query", url.Values{"q": {"a"}}, query.ReasonTooShort},
		{"unknown type", url.Values{"q": {"go"}, "type": {"podcast"}}, ""},
		{"bad date range", url.Values{"q": {"go"}, "dateRange": {"decade"}}, ""},
		{"bad limit", url.Values{"q": {"go"}, "limit": {"-1"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts, "/search", tt.params)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[ErrorResponse](t, resp)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.reason, body.Reason)
		})
	}
}

func TestSearchPost(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name  string
		body  string
		kinds []types.ContentKind
	}{
		{
			name:  "single type",
			body:  `{"query":"البرمجة","language":"ar","filters":{"type":"episode"},"options":{"limit":5}}`,
			kinds: []types.ContentKind{types.KindEpisode},
		},
		{
			name:  "type list",
			body:  `{"query":"البرمجة","filters":{"type":["episodes","article"],"dateRange":"all"}}`,
			kinds: []types.ContentKind{types.KindEpisode, types.KindArticle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			body := decode[types.SearchResponse](t, resp)
			require.NotEmpty(t, body.SemanticResults)
			for _, r := range body.SemanticResults {
				assert.Contains(t, tt.kinds, r.Type)
			}
		})
	}
}

func TestSearchPost_BadRequests(t *testing.T) {
	ts := setupTestServer(t)

	for _, body := range []string{
		`not json`,
		`{"query":"go","filters":{"type":"podcast"}}`,
		`{"query":"go","filters":{"type":42}}`,
		`{"query":""}`,
		`{"query":"go","options":{"limit":-2}}`,
	} {
		resp := post(t, ts, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestRecommendations(t *testing.T) {
	ts := setupTestServer(t)

	resp := get(t, ts, "/recommendations", url.Values{"userId": {"u1"}, "keywords": {"البرمجة, "}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[RecommendationsResponse](t, resp)
	require.NotEmpty(t, body.Recommendations)
	assert.Equal(t, testutil.AIArticleID, body.Recommendations[0].ID)

	unknown := decode[RecommendationsResponse](t, get(t, ts, "/recommendations", url.Values{"userId": {"ghost"}}))
	assert.NotNil(t, unknown.Recommendations)
	assert.Empty(t, unknown.Recommendations)

	missing := get(t, ts, "/recommendations", url.Values{})
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestMetrics(t *testing.T) {
	ts := setupTestServer(t)
	get(t, ts, "/search", url.Values{"q": {"ذكاء اصطناعي"}})

	resp := get(t, ts, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode[metrics.Metrics](t, resp)
	assert.Equal(t, int64(1), m.SearchCount)
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	resp := get(t, ts, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	require.NotNil(t, body.Store)
	assert.Equal(t, len(testutil.Fixtures()), body.Store.TotalItems)
}

func TestRequestIDPropagated(t *testing.T) {
	ts := setupTestServer(t)
	id := uuid.NewString()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, id)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}

func TestKindListUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    KindList
		wantErr bool
	}{
		{`"faq"`, KindList{types.KindFAQ}, false},
		{`""`, nil, false},
		{`["privacyContent","terms"]`, KindList{types.KindPrivacy, types.KindTerms}, false},
		{`"podcast"`, nil, true},
		{`{}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got KindList
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
