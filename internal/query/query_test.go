package query

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "lowercases ascii", in: "Machine LEARNING", want: "machine learning"},
		{name: "strips punctuation", in: "hello, world!?", want: "hello world"},
		{name: "collapses whitespace", in: "  a   b \t c\n", want: "a b c"},
		{name: "keeps arabic", in: "ذكاء   اصطناعي!", want: "ذكاء اصطناعي"},
		{name: "strips arabic punctuation", in: "برمجة، ويب؛ لماذا؟", want: "برمجة ويب لماذا"},
		{name: "drops other scripts", in: "go 語言", want: "go"},
		{name: "keeps digits and underscore", in: "episode_12 #3", want: "episode_12 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_CapsLength(t *testing.T) {
	long := strings.Repeat("ab ", 80)
	got := Normalize(long)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), MaxQueryLength)
	assert.False(t, strings.HasSuffix(got, " "))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Hello, World!!",
		"  ذكاء   اصطناعي؟ ",
		strings.Repeat("x y ", 60),
		strings.Repeat("ب", 150),
		"MiXeD 123 _under_ score -- dash",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
		assert.LessOrEqual(t, utf8.RuneCountInString(once), utf8.RuneCountInString(in))
	}
}

func TestValidateSearchQuery(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		v := ValidateSearchQuery("")
		assert.False(t, v.Valid)
		assert.Equal(t, ReasonEmpty, v.Reason)
	})

	t.Run("whitespace only", func(t *testing.T) {
		v := ValidateSearchQuery("   ")
		assert.Equal(t, ReasonEmpty, v.Reason)
	})

	t.Run("one character", func(t *testing.T) {
		v := ValidateSearchQuery("a")
		assert.False(t, v.Valid)
		assert.Equal(t, ReasonTooShort, v.Reason)
	})

	t.Run("too long", func(t *testing.T) {
		v := ValidateSearchQuery(strings.Repeat("q", 150))
		assert.False(t, v.Valid)
		assert.Equal(t, ReasonTooLong, v.Reason)
		assert.Equal(t, SuggestionLength, utf8.RuneCountInString(v.Suggestion))
	})

	t.Run("valid", func(t *testing.T) {
		v := ValidateSearchQuery("ذكاء اصطناعي")
		assert.True(t, v.Valid)
		assert.Empty(t, v.Reason)
	})
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("The future of AI, and the future of برمجة في الويب")
	assert.Equal(t, []string{"future", "ai", "برمجة", "الويب"}, got)
	assert.Empty(t, ExtractKeywords("the a of"))
	assert.Equal(t, []string{"الذكاء", "الاصطناعي"}, ExtractKeywords("ما هو الذكاء الاصطناعي؟"))
}

func TestHighlight(t *testing.T) {
	assert.Equal(t, "Intro to <mark>Go</mark>", Highlight("Intro to Go", []string{"go"}))
	assert.Equal(t, "<mark>ذكاء اصطناعي</mark> اليوم",
		Highlight("ذكاء اصطناعي اليوم", []string{"ذكاء", "ذكاء اصطناعي"}))
	assert.Equal(t, "a+b", Highlight("a+b", nil))
	assert.Equal(t, "1 <mark>a+b</mark>", Highlight("1 a+b", []string{"a+b"}))
}
