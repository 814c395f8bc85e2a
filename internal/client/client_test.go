package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/history"
	"github.com/dshills/contentsearch/internal/httpapi"
	"github.com/dshills/contentsearch/internal/recommend"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/internal/testutil"
	"github.com/dshills/contentsearch/pkg/types"
)

var quiet = WithLogger(slog.New(slog.DiscardHandler))

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store := testutil.NewStore(t)
	testutil.Seed(t, store, testutil.Fixtures())

	f := fetcher.New(store)
	s := searcher.New(f, testutil.NewFakeEmbedder(), searcher.WithLogger(logger))
	rec := recommend.New(store, s, f, recommend.WithLogger(logger))
	ts := httptest.NewServer(httpapi.New(s, rec, httpapi.WithLogger(logger)).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func assertEmptyResponse(t *testing.T, resp *types.SearchResponse) {
	t.Helper()
	assert.Equal(t, types.EmptySearchResponse(), resp)
}

func TestSearch(t *testing.T) {
	ts := setupServer(t)
	c := New(ts.URL+"/", quiet)
	ctx := context.Background()

	resp := c.Search(ctx, SearchParams{Query: "ذكاء اصطناعي", Language: "ar", Limit: 10})
	require.NotEmpty(t, resp.SemanticResults)
	assert.Equal(t, testutil.AIArticleID, resp.SemanticResults[0].Data.Projection().ID)
	assert.Equal(t, resp.TotalCount, len(resp.SemanticResults))

	c.Search(ctx, SearchParams{Query: "ذكاء اصطناعي", Language: "ar", Limit: 10})
	m := c.Tracker().Metrics()
	assert.Equal(t, int64(2), m.SearchCount)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Zero(t, m.ErrorCount)
}

func TestSearch_TypeFilter(t *testing.T) {
	ts := setupServer(t)
	c := New(ts.URL, quiet)

	resp := c.Search(context.Background(), SearchParams{
		Query:     "البرمجة",
		Types:     []types.ContentKind{types.KindEpisode},
		DateRange: "all",
	})
	require.NotEmpty(t, resp.SemanticResults)
	for _, r := range resp.SemanticResults {
		assert.Equal(t, types.KindEpisode, r.Type)
	}
}

func TestAdvancedSearch(t *testing.T) {
	ts := setupServer(t)
	c := New(ts.URL, quiet)

	resp := c.AdvancedSearch(context.Background(), httpapi.SearchRequest{
		Query:   "البرمجة",
		Filters: httpapi.RequestFilters{Type: httpapi.KindList{types.KindEpisode}},
		Options: httpapi.RequestOptions{Limit: 1},
	})
	require.Len(t, resp.SemanticResults, 1)
	assert.Equal(t, types.KindEpisode, resp.SemanticResults[0].Type)
}

func TestSuggestionsAndTrending(t *testing.T) {
	ts := setupServer(t)
	c := New(ts.URL, quiet)
	ctx := context.Background()

	suggestions := c.Suggestions(ctx, "حلقة", "ar", 5)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "حلقة عن البرمجة", suggestions[0].Text)

	assert.Equal(t, searcher.GetTrendingSearches("en", 4), c.Trending(ctx, "en", 4))
}

func TestFailuresYieldEmptyResults(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "{not json")
	}))
	t.Cleanup(garbage.Close)

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	for name, baseURL := range map[string]string{
		"server error": failing.URL,
		"bad json":     garbage.URL,
		"unreachable":  closedURL,
	} {
		t.Run(name, func(t *testing.T) {
			c := New(baseURL, quiet)
			ctx := context.Background()

			assertEmptyResponse(t, c.Search(ctx, SearchParams{Query: "go"}))
			assertEmptyResponse(t, c.AdvancedSearch(ctx, httpapi.SearchRequest{Query: "go"}))
			assert.Equal(t, []types.SearchSuggestion{}, c.Suggestions(ctx, "go", "en", 0))
			assert.Equal(t, []string{}, c.Trending(ctx, "en", 0))

			assert.Equal(t, int64(2), c.Tracker().Metrics().ErrorCount)
		})
	}
}

func TestSearchHistory(t *testing.T) {
	c := New("http://unused.invalid", quiet, WithHistory(history.New(testutil.NewStore(t))))
	ctx := context.Background()

	c.SaveSearchHistory(ctx, "go", "u1")
	c.SaveSearchHistory(ctx, "rust", "u1")
	c.SaveSearchHistory(ctx, "go", "u1")

	items := c.GetSearchHistory(ctx, "u1")
	require.Len(t, items, 2)
	assert.Equal(t, "go", items[0].Query)
	assert.Equal(t, "rust", items[1].Query)
	assert.Empty(t, c.GetSearchHistory(ctx, ""))

	c.ClearSearchHistory(ctx, "u1")
	assert.Empty(t, c.GetSearchHistory(ctx, "u1"))
}

func TestSearchHistory_Disabled(t *testing.T) {
	c := New("http://unused.invalid", quiet)
	ctx := context.Background()

	c.SaveSearchHistory(ctx, "go", "")
	assert.Equal(t, []types.SearchHistoryItem{}, c.GetSearchHistory(ctx, ""))
}

func TestQuickSuggestions(t *testing.T) {
	assert.Equal(t, []string{"programming"}, QuickSuggestions("PROGRAM"))
	assert.Equal(t, []string{"ذكاء اصطناعي"}, QuickSuggestions("ذكاء"))
	assert.Len(t, QuickSuggestions("n"), QuickSuggestionLimit)
	assert.Empty(t, QuickSuggestions("  "))
	assert.Empty(t, QuickSuggestions("zzz"))
}
