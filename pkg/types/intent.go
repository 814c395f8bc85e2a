package types

// Sentiment of a query
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Urgency of a query
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Category is the coarse shape of a query
type Category string

const (
	CategoryGeneral        Category = "general"
	CategorySpecific       Category = "specific"
	CategoryComparison     Category = "comparison"
	CategoryRecommendation Category = "recommendation"
)

// IntentGeneral is the intent assigned when no keyword matches
const IntentGeneral = "general"

// UserIntent is the classification of a single query
type UserIntent struct {
	Intent    string    `json:"intent"`
	Entities  []string  `json:"entities"`
	Sentiment Sentiment `json:"sentiment"`
	Urgency   Urgency   `json:"urgency"`
	Category  Category  `json:"category"`
}

// HasEntity reports whether any of the given entities was extracted
func (u UserIntent) HasEntity(names ...string) bool {
	for _, e := range u.Entities {
		for _, n := range names {
			if e == n {
				return true
			}
		}
	}
	return false
}
