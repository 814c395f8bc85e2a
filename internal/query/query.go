// Package query holds the text utilities shared by the search pipeline:
// normalization, validation, keyword extraction and highlighting.
package query

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxQueryLength caps normalized and accepted queries, in runes
	MaxQueryLength = 100
	// MinQueryLength is the shortest accepted query, in runes
	MinQueryLength = 2
	// SuggestionLength is the length of the truncated query offered for too_long
	SuggestionLength = 50
)

// Validation reasons
const (
	ReasonEmpty    = "empty_query"
	ReasonTooShort = "too_short"
	ReasonTooLong  = "too_long"
)

// Validation is the outcome of ValidateSearchQuery
type Validation struct {
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Normalize strips punctuation (keeping ASCII word characters, whitespace and
// the Arabic letters and digits), lower-cases, collapses whitespace and caps the result at
// MaxQueryLength runes. The result is never longer than q and Normalize is
// idempotent.
func Normalize(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		case keepRune(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	normalized := strings.Join(strings.Fields(b.String()), " ")
	if utf8.RuneCountInString(normalized) > MaxQueryLength {
		normalized = strings.TrimSpace(truncateRunes(normalized, MaxQueryLength))
	}
	return normalized
}

// arabicPunct are the punctuation marks inside the Arabic block
var arabicPunct = map[rune]bool{
	'\u060C': true, // comma
	'\u061B': true, // semicolon
	'\u061F': true, // question mark
	'\u066A': true, // percent sign
	'\u06D4': true, // full stop
}

func keepRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') ||
		r == '_' ||
		(r >= 0x0600 && r <= 0x06FF && !arabicPunct[r])
}

// ValidateSearchQuery checks the raw query length bounds
func ValidateSearchQuery(q string) Validation {
	trimmed := strings.TrimSpace(q)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return Validation{Reason: ReasonEmpty}
	case n < MinQueryLength:
		return Validation{Reason: ReasonTooShort}
	case n > MaxQueryLength:
		return Validation{
			Reason:     ReasonTooLong,
			Suggestion: strings.TrimSpace(truncateRunes(trimmed, SuggestionLength)),
		}
	}
	return Validation{Valid: true}
}

// ExtractKeywords returns the distinct non stop-word tokens of text, in order
func ExtractKeywords(text string) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0)
	for _, tok := range strings.Fields(Normalize(text)) {
		if utf8.RuneCountInString(tok) < MinQueryLength || IsStopWord(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
	}
	return keywords
}

// IsStopWord reports whether tok is an Arabic or English stop word
func IsStopWord(tok string) bool {
	return stopWords[tok]
}

// Highlight wraps every case-insensitive occurrence of terms in <mark> tags.
// Longer terms win when terms overlap.
func Highlight(text string, terms []string) string {
	if text == "" || len(terms) == 0 {
		return text
	}

	sorted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			sorted = append(sorted, regexp.QuoteMeta(t))
		}
	}
	if len(sorted) == 0 {
		return text
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	re, err := regexp.Compile("(?i)(" + strings.Join(sorted, "|") + ")")
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, "<mark>$1</mark>")
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

var stopWords = map[string]bool{
	// English
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "to": true, "for": true, "with": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "by": true, "at": true,
	"from": true, "about": true, "this": true, "that": true, "it": true,
	"i": true, "me": true, "my": true, "we": true, "you": true, "your": true,
	"am": true, "as": true, "but": true, "not": true, "so": true, "do": true,
	"how": true, "what": true, "who": true, "which": true, "like": true,
	// Arabic
	"في": true, "من": true, "إلى": true, "الى": true, "على": true, "عن": true,
	"مع": true, "هذا": true, "هذه": true, "ذلك": true, "التي": true, "الذي": true,
	"و": true, "أو": true, "او": true, "ثم": true, "كل": true, "بعض": true,
	"أنا": true, "انا": true, "هو": true, "هي": true, "نحن": true, "أن": true,
	"ان": true, "إن": true, "كان": true, "لا": true, "ما": true, "ماذا": true,
	"كيف": true, "لم": true, "لن": true, "قد": true, "عند": true, "أحب": true,
}
