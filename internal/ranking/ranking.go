// Package ranking computes vector similarity and blends it with intent,
// keyword and popularity signals into a final relevance score.
package ranking

import (
	"math"
	"strings"

	"github.com/dshills/contentsearch/pkg/types"
)

// Score adjustments
const (
	IntentBoost        = 0.2
	KeywordBoost       = 0.1
	MaxPopularityBoost = 0.2
	PopularityScale    = 1000.0
)

// Label thresholds, applied to the final score
const (
	VeryStrongThreshold = 0.8
	StrongThreshold     = 0.6
	MediumThreshold     = 0.4
)

// intentKinds associates intent names with the content kind they ask for
var intentKinds = map[string]types.ContentKind{
	"episode":  types.KindEpisode,
	"article":  types.KindArticle,
	"season":   types.KindSeason,
	"playlist": types.KindPlaylist,
	"team":     types.KindTeam,
	"faq":      types.KindFAQ,
	"help":     types.KindFAQ,
	"privacy":  types.KindPrivacy,
	"terms":    types.KindTerms,
}

// IntentKind returns the content kind an intent targets, if any
func IntentKind(intent string) (types.ContentKind, bool) {
	k, ok := intentKinds[intent]
	return k, ok
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length, empty vectors and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Input is everything the scorer looks at for one item
type Input struct {
	Similarity float64
	Projection types.Projection
	Intent     *types.UserIntent // optional
	Keywords   []string
}

// Scored is the scorer's output
type Scored struct {
	Score          float64
	Relevance      types.Relevance
	IntentMatch    bool
	KeywordMatches int
}

// Score blends similarity with the intent, keyword and popularity boosts.
// The result is not clamped.
func Score(in Input) Scored {
	out := Scored{Score: in.Similarity}

	if in.Intent != nil {
		if kind, ok := IntentKind(in.Intent.Intent); ok && kind == in.Projection.Kind {
			out.Score += IntentBoost
			out.IntentMatch = true
		}
	}

	if len(in.Keywords) > 0 {
		out.KeywordMatches = CountKeywordMatches(in.Projection.Title+" "+in.Projection.Text, in.Keywords)
		out.Score += KeywordBoost * float64(out.KeywordMatches)
	}

	if in.Projection.HasPopularity {
		out.Score += PopularityBoost(in.Projection.Popularity)
	}

	out.Relevance = Label(out.Score)
	return out
}

// CountKeywordMatches counts the keywords that occur in text, ignoring case
func CountKeywordMatches(text string, keywords []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

// PopularityBoost maps a view/like count onto [0, MaxPopularityBoost]
func PopularityBoost(n float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(n/PopularityScale, MaxPopularityBoost)
}

// Label derives the relevance label from a final score
func Label(score float64) types.Relevance {
	switch {
	case score >= VeryStrongThreshold:
		return types.RelevanceVeryStrong
	case score >= StrongThreshold:
		return types.RelevanceStrong
	case score >= MediumThreshold:
		return types.RelevanceMedium
	default:
		return types.RelevanceWeak
	}
}
