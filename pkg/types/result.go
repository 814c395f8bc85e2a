package types

import "time"

// Relevance is the qualitative label attached to a scored result
type Relevance string

const (
	RelevanceVeryStrong Relevance = "very strong"
	RelevanceStrong     Relevance = "strong"
	RelevanceMedium     Relevance = "medium"
	RelevanceWeak       Relevance = "weak"

	// RelevanceTextMatch is the flat label of textual fallback results
	RelevanceTextMatch Relevance = "text match"
)

// Rank orders labels so callers can compare them ("at least strong")
func (r Relevance) Rank() int {
	switch r {
	case RelevanceVeryStrong:
		return 4
	case RelevanceStrong:
		return 3
	case RelevanceMedium:
		return 2
	case RelevanceWeak:
		return 1
	default:
		return 0
	}
}

// SemanticSearchResult is a single ranked hit
type SemanticSearchResult struct {
	Type                   ContentKind `json:"type"`
	Data                   ContentItem `json:"data"`
	Score                  float64     `json:"score"` // unbounded above, never clamped
	Relevance              Relevance   `json:"relevance"`
	HighlightedTitle       string      `json:"highlightedTitle,omitempty"`
	HighlightedDescription string      `json:"highlightedDescription,omitempty"`
}

// Key identifies the underlying item across result sources
func (r SemanticSearchResult) Key() string {
	if r.Data == nil {
		return string(r.Type) + ":"
	}
	return ItemKey(r.Type, r.Data.Projection().ID)
}

// ItemKey builds the (type,id) de-duplication key
func ItemKey(kind ContentKind, id string) string {
	return string(kind) + ":" + id
}

// SearchSuggestion is an autocomplete candidate
type SearchSuggestion struct {
	Text       string      `json:"text"`
	Type       ContentKind `json:"type"`
	Popularity float64     `json:"popularity"`
}

// Recommendation is a personalized content pointer
type Recommendation struct {
	Type        ContentKind `json:"type"`
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Score       float64     `json:"score"`
	Reason      string      `json:"reason"`
}

// Key returns the (type,id) de-duplication key
func (r Recommendation) Key() string {
	return ItemKey(r.Type, r.ID)
}

// SearchResponse is the full payload of the search endpoint
type SearchResponse struct {
	SemanticResults  []SemanticSearchResult `json:"semanticResults"`
	Suggestions      []SearchSuggestion     `json:"suggestions"`
	TrendingSearches []string               `json:"trendingSearches"`
	RelatedContent   []Recommendation       `json:"relatedContent"`
	TotalCount       int                    `json:"totalCount"`
	SearchTime       int64                  `json:"searchTime"` // milliseconds
	Intent           *UserIntent            `json:"intent,omitempty"`
	CacheHit         bool                   `json:"cacheHit"`
}

// EmptySearchResponse returns the uniform empty shape with non-nil slices
func EmptySearchResponse() *SearchResponse {
	return &SearchResponse{
		SemanticResults:  []SemanticSearchResult{},
		Suggestions:      []SearchSuggestion{},
		TrendingSearches: []string{},
		RelatedContent:   []Recommendation{},
	}
}

// SearchHistoryItem is one remembered query
type SearchHistoryItem struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// User is a registered reader
type User struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name,omitempty" yaml:"name"`
	Email     string    `json:"email,omitempty" yaml:"email"`
	Bio       string    `json:"bio,omitempty" yaml:"bio"`
	Interests []string  `json:"interests,omitempty" yaml:"interests"`
	Language  string    `json:"language,omitempty" yaml:"language"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}
