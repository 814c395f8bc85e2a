package searcher

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/ranking"
	"github.com/dshills/contentsearch/pkg/types"
)

const (
	// DefaultSuggestionLimit caps GetSearchSuggestions
	DefaultSuggestionLimit = 10
	// SuggestionsPerCollection is how many title matches each collection contributes
	SuggestionsPerCollection = 5
	// DefaultTrendingLimit caps GetTrendingSearches
	DefaultTrendingLimit = 10
)

var trendingSearches = map[string][]string{
	"ar": {
		"ذكاء اصطناعي",
		"برمجة",
		"تطوير الويب",
		"ريادة الأعمال",
		"تعلم الآلة",
		"الأمن السيبراني",
		"تصميم",
		"علم البيانات",
		"بودكاست تقني",
		"تكنولوجيا",
	},
	"en": {
		"artificial intelligence",
		"programming",
		"web development",
		"entrepreneurship",
		"machine learning",
		"cybersecurity",
		"design",
		"data science",
		"tech podcast",
		"technology",
	},
}

// GetSearchSuggestions returns title completions for q across every
// collection, most popular first. Failures yield an empty list.
func (s *Searcher) GetSearchSuggestions(ctx context.Context, q, language string, limit int) []types.SearchSuggestion {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	pattern := strings.TrimSpace(q)
	if pattern == "" {
		return []types.SearchSuggestion{}
	}

	found, err := s.fetcher.FetchMatching(ctx, fetcher.Match{
		Pattern:   pattern,
		PerKind:   SuggestionsPerCollection,
		TitleOnly: true,
	})
	if err != nil {
		s.logger.Error("suggestions failed", "query", q, "language", language, "error", err)
		return []types.SearchSuggestion{}
	}

	byText := make(map[string]int)
	suggestions := make([]types.SearchSuggestion, 0)
	for _, item := range found.Flatten() {
		p := item.Projection()
		sg := types.SearchSuggestion{
			Text:       p.Title,
			Type:       p.Kind,
			Popularity: suggestionPopularity(p),
		}
		if i, ok := byText[sg.Text]; ok {
			if sg.Popularity > suggestions[i].Popularity {
				suggestions[i] = sg
			}
			continue
		}
		byText[sg.Text] = len(suggestions)
		suggestions = append(suggestions, sg)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Popularity != suggestions[j].Popularity {
			return suggestions[i].Popularity > suggestions[j].Popularity
		}
		return suggestions[i].Text < suggestions[j].Text
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// suggestionPopularity maps the stored views/likes into [0,1]
func suggestionPopularity(p types.Projection) float64 {
	if !p.HasPopularity {
		return 0
	}
	return math.Min(1, p.Popularity/ranking.PopularityScale)
}

// GetTrendingSearches returns the fixed trending list for language.
// Unknown languages get the Arabic list.
func GetTrendingSearches(language string, limit int) []string {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	list, ok := trendingSearches[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		list = trendingSearches["ar"]
	}
	if len(list) > limit {
		list = list[:limit]
	}
	return append([]string(nil), list...)
}

// GetTrendingSearches is the method form of the package function
func (s *Searcher) GetTrendingSearches(language string, limit int) []string {
	return GetTrendingSearches(language, limit)
}
