// Package intent classifies free-text queries into a types.UserIntent using
// static bilingual keyword tables.
package intent

import (
	"strings"

	"github.com/dshills/contentsearch/pkg/types"
)

// Rule maps an intent name to the keywords that vote for it
type Rule struct {
	Intent   string
	Keywords []string
}

// Intent names
const (
	Episode        = "episode"
	Article        = "article"
	Season         = "season"
	Playlist       = "playlist"
	Team           = "team"
	FAQ            = "faq"
	Privacy        = "privacy"
	Terms          = "terms"
	Search         = "search"
	Comparison     = "comparison"
	Recommendation = "recommendation"
	Greeting       = "greeting"
	Help           = "help"
	Feedback       = "feedback"
)

// DefaultRules is the registration order used for tie-breaking
var DefaultRules = []Rule{
	{Episode, []string{"episode", "podcast", "listen", "watch", "حلقة", "حلقات", "بودكاست", "استمع", "شاهد"}},
	{Article, []string{"article", "blog", "read", "مقال", "مقالة", "مقالات", "مدونة", "اقرأ"}},
	{Season, []string{"season", "موسم", "مواسم"}},
	{Playlist, []string{"playlist", "collection", "قائمة تشغيل", "قائمة", "مجموعة"}},
	{Team, []string{"team", "host", "author", "who is", "فريق", "مقدم", "كاتب", "من هو"}},
	{FAQ, []string{"faq", "question", "how do", "سؤال", "أسئلة", "الأسئلة الشائعة"}},
	{Privacy, []string{"privacy", "personal data", "cookies", "خصوصية", "بيانات شخصية", "ملفات تعريف الارتباط"}},
	{Terms, []string{"terms", "conditions", "agreement", "شروط", "أحكام", "اتفاقية"}},
	{Search, []string{"search", "find", "look for", "ابحث", "بحث", "أبحث", "اعثر"}},
	{Comparison, []string{"compare", "comparison", "versus", " vs ", "difference", "better than", "قارن", "مقارنة", "الفرق", "أفضل من"}},
	{Recommendation, []string{"recommend", "suggest", "should i", "اقترح", "انصح", "أنصح", "توصية", "ترشيح"}},
	{Greeting, []string{"hello", "hey", "good morning", "مرحبا", "السلام عليكم", "اهلا", "أهلا"}},
	{Help, []string{"help", "support", "مساعدة", "ساعدني", "دعم"}},
	{Feedback, []string{"feedback", "complaint", "ملاحظة", "شكوى", "رأيي"}},
}

// Topic vocabulary used for entity extraction
var (
	PrivacyEntities = []string{"privacy", "cookies", "خصوصية"}
	TermsEntities   = []string{"terms", "conditions", "شروط", "أحكام"}

	DefaultVocabulary = append([]string{
		"programming", "برمجة",
		"artificial intelligence", "ai", "ذكاء اصطناعي",
		"machine learning", "تعلم الآلة",
		"technology", "تكنولوجيا", "تقنية",
		"web", "الويب",
		"mobile", "جوال",
		"data science", "علم البيانات",
		"security", "أمن",
		"startup", "ريادة",
		"business", "أعمال",
		"design", "تصميم",
	}, append(append([]string{}, PrivacyEntities...), TermsEntities...)...)
)

var (
	positiveWords = []string{"good", "great", "excellent", "love", "amazing", "awesome", "useful", "رائع", "ممتاز", "جميل", "أحب", "جيد", "مفيد"}
	negativeWords = []string{"bad", "terrible", "hate", "worst", "poor", "problem", "سيء", "سيئ", "مشكلة", "أكره", "فظيع", "ضعيف"}

	highUrgency   = []string{"urgent", "asap", "immediately", "emergency", "عاجل", "فورا", "فوراً", "طارئ", "حالا"}
	mediumUrgency = []string{"soon", "quickly", "today", "need", "قريبا", "بسرعة", "اليوم", "أحتاج"}
)

// Classifier scores queries against ordered keyword rules. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	rules      []Rule
	vocabulary []string
}

// New returns a classifier with the default bilingual tables
func New() *Classifier {
	return &Classifier{
		rules:      DefaultRules,
		vocabulary: DefaultVocabulary,
	}
}

// NewWithRules builds a classifier from custom tables
func NewWithRules(rules []Rule, vocabulary []string) *Classifier {
	return &Classifier{rules: rules, vocabulary: vocabulary}
}

// Analyze classifies q. It never fails; an empty query yields the general intent.
func (c *Classifier) Analyze(q string) types.UserIntent {
	lower := strings.ToLower(strings.TrimSpace(q))
	result := types.UserIntent{
		Intent:    types.IntentGeneral,
		Entities:  []string{},
		Sentiment: types.SentimentNeutral,
		Urgency:   types.UrgencyLow,
		Category:  types.CategoryGeneral,
	}
	if lower == "" {
		return result
	}

	// Pad so that space-delimited keywords match at the edges
	padded := " " + lower + " "

	bestScore := 0
	for _, rule := range c.rules {
		score := countHits(padded, rule.Keywords)
		if score > bestScore {
			bestScore = score
			result.Intent = rule.Intent
		}
	}

	for _, term := range c.vocabulary {
		if strings.Contains(lower, term) {
			result.Entities = append(result.Entities, term)
		}
	}

	pos, neg := countHits(lower, positiveWords), countHits(lower, negativeWords)
	switch {
	case pos > neg:
		result.Sentiment = types.SentimentPositive
	case neg > pos:
		result.Sentiment = types.SentimentNegative
	}

	switch {
	case countHits(lower, highUrgency) > 0:
		result.Urgency = types.UrgencyHigh
	case countHits(lower, mediumUrgency) > 0:
		result.Urgency = types.UrgencyMedium
	}

	switch {
	case result.Intent == Comparison:
		result.Category = types.CategoryComparison
	case result.Intent == Recommendation:
		result.Category = types.CategoryRecommendation
	case len(result.Entities) > 0 || bestScore > 1:
		result.Category = types.CategorySpecific
	}

	return result
}

// TermsOnly reports whether the entities mention terms but not privacy
func TermsOnly(u types.UserIntent) bool {
	return u.HasEntity(TermsEntities...) && !u.HasEntity(PrivacyEntities...)
}

// PrivacyOnly reports whether the entities mention privacy but not terms
func PrivacyOnly(u types.UserIntent) bool {
	return u.HasEntity(PrivacyEntities...) && !u.HasEntity(TermsEntities...)
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
