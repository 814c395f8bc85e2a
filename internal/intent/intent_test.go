package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/contentsearch/pkg/types"
)

func TestAnalyze_Empty(t *testing.T) {
	got := New().Analyze("   ")
	assert.Equal(t, types.UserIntent{
		Intent:    types.IntentGeneral,
		Entities:  []string{},
		Sentiment: types.SentimentNeutral,
		Urgency:   types.UrgencyLow,
		Category:  types.CategoryGeneral,
	}, got)
}

func TestAnalyze_Intent(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "english episode", query: "Latest podcast episode", want: Episode},
		{name: "arabic article", query: "أريد قراءة مقال عن التصميم", want: Article},
		{name: "arabic season", query: "الموسم الثاني", want: Season},
		{name: "comparison", query: "compare python versus go", want: Comparison},
		{name: "recommendation", query: "what should i watch, recommend something", want: Recommendation},
		{name: "privacy", query: "سياسة الخصوصية", want: Privacy},
		{name: "terms", query: "terms and conditions", want: Terms},
		{name: "no match", query: "ذكاء اصطناعي", want: types.IntentGeneral},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Analyze(tt.query).Intent)
		})
	}
}

func TestAnalyze_TieGoesToEarlierRule(t *testing.T) {
	c := NewWithRules([]Rule{
		{Intent: "first", Keywords: []string{"alpha"}},
		{Intent: "second", Keywords: []string{"beta"}},
	}, nil)
	assert.Equal(t, "first", c.Analyze("beta alpha").Intent)
	assert.Equal(t, "second", c.Analyze("beta").Intent)
}

func TestAnalyze_Entities(t *testing.T) {
	got := New().Analyze("برمجة و ذكاء اصطناعي")
	assert.Equal(t, []string{"برمجة", "ذكاء اصطناعي"}, got.Entities)
	assert.Equal(t, types.CategorySpecific, got.Category)
}

func TestAnalyze_Sentiment(t *testing.T) {
	c := New()
	assert.Equal(t, types.SentimentPositive, c.Analyze("great article, I love it").Sentiment)
	assert.Equal(t, types.SentimentNegative, c.Analyze("مشكلة سيئة في التطبيق").Sentiment)
	assert.Equal(t, types.SentimentNeutral, c.Analyze("good but bad").Sentiment)
	assert.Equal(t, types.SentimentNeutral, c.Analyze("season two").Sentiment)
}

func TestAnalyze_Urgency(t *testing.T) {
	c := New()
	assert.Equal(t, types.UrgencyHigh, c.Analyze("I need this urgent").Urgency)
	assert.Equal(t, types.UrgencyMedium, c.Analyze("I need it soon").Urgency)
	assert.Equal(t, types.UrgencyLow, c.Analyze("whenever").Urgency)
}

func TestAnalyze_Category(t *testing.T) {
	c := New()
	assert.Equal(t, types.CategoryComparison, c.Analyze("compare the difference").Category)
	assert.Equal(t, types.CategoryRecommendation, c.Analyze("اقترح لي شيئا").Category)
	assert.Equal(t, types.CategorySpecific, c.Analyze("podcast episode").Category)
	assert.Equal(t, types.CategoryGeneral, c.Analyze("hello there").Category)
}

func TestLegalGate(t *testing.T) {
	c := New()
	assert.True(t, TermsOnly(c.Analyze("شروط الاستخدام")))
	assert.False(t, PrivacyOnly(c.Analyze("شروط الاستخدام")))
	assert.True(t, PrivacyOnly(c.Analyze("privacy policy")))
	both := c.Analyze("privacy and terms")
	assert.False(t, TermsOnly(both))
	assert.False(t, PrivacyOnly(both))
}
