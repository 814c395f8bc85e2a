package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentKind(t *testing.T) {
	tests := []struct {
		input string
		want  ContentKind
	}{
		{"article", KindArticle},
		{"Articles", KindArticle},
		{" episode ", KindEpisode},
		{"teams", KindTeam},
		{"faqs", KindFAQ},
		{"privacyContent", KindPrivacy},
		{"termscontent", KindTerms},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseContentKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseContentKind("video")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestKinds(t *testing.T) {
	for _, k := range AllKinds {
		assert.True(t, k.Valid(), k)
		assert.NotEmpty(t, k.Collection(), k)
	}
	assert.False(t, ContentKind("video").Valid())
	assert.True(t, KindPrivacy.IsLegal())
	assert.True(t, KindTerms.IsLegal())
	assert.False(t, KindFAQ.IsLegal())
}

func TestValidateItem(t *testing.T) {
	assert.ErrorIs(t, ValidateItem(nil), ErrNilItem)
	assert.ErrorIs(t, ValidateItem(&Article{Title: "t"}), ErrMissingID)
	assert.ErrorIs(t, ValidateItem(&Article{ID: "a", Title: "  "}), ErrMissingTitle)
	assert.ErrorIs(t, ValidateItem(&LegalDocument{ID: "l", Title: "t"}), ErrUnknownKind)
	assert.NoError(t, ValidateItem(&LegalDocument{DocKind: KindTerms, ID: "l", Title: "t"}))
	assert.NoError(t, ValidateItem(&FAQ{ID: "f", Question: "q?"}))
}

func TestProjection(t *testing.T) {
	published := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("article prefers excerpt and views", func(t *testing.T) {
		p := (&Article{ID: "a", Title: "T", Excerpt: "E", Content: "C", Views: 10, Likes: 99, PublishedAt: published, CreatedAt: created}).Projection()
		assert.Equal(t, "E", p.Text)
		assert.InDelta(t, 10, p.Popularity, 0)
		assert.True(t, p.HasPopularity)
		assert.Equal(t, published, p.Timestamp)
	})

	t.Run("article falls back to content and likes", func(t *testing.T) {
		p := (&Article{ID: "a", Title: "T", Content: "C", Likes: 7, CreatedAt: created}).Projection()
		assert.Equal(t, "C", p.Text)
		assert.InDelta(t, 7, p.Popularity, 0)
		assert.Equal(t, created, p.Timestamp)
	})

	t.Run("no popularity", func(t *testing.T) {
		p := (&Episode{ID: "e", Title: "T"}).Projection()
		assert.False(t, p.HasPopularity)
		assert.Zero(t, p.Popularity)
	})

	t.Run("name based kinds", func(t *testing.T) {
		assert.Equal(t, "List", (&Playlist{ID: "p", Name: "List"}).Projection().Title)
		team := (&TeamMember{ID: "m", Name: "Sara", Role: "Editor", Bio: "Writes"}).Projection()
		assert.Equal(t, "Sara", team.Title)
		assert.Equal(t, "Editor Writes", team.Text)
		faq := (&FAQ{ID: "f", Question: "Q", Answer: "A"}).Projection()
		assert.Equal(t, "Q A", faq.EmbeddableText())
	})
}

func TestDecodeItem(t *testing.T) {
	item, err := DecodeItem(KindPrivacy, []byte(`{"id":"p1","title":"سياسة","kind":"terms"}`))
	require.NoError(t, err)
	assert.Equal(t, KindPrivacy, item.Kind(), "kind comes from the collection, not the document")

	_, err = DecodeItem("video", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = DecodeItem(KindArticle, []byte(`{`))
	assert.Error(t, err)
}

func TestSemanticSearchResultJSON(t *testing.T) {
	original := SemanticSearchResult{
		Type:             KindEpisode,
		Data:             &Episode{ID: "e1", Title: "حلقة", Views: 3},
		Score:            1.15,
		Relevance:        RelevanceVeryStrong,
		HighlightedTitle: "<mark>حلقة</mark>",
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded SemanticSearchResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	ep, ok := decoded.Data.(*Episode)
	require.True(t, ok, "concrete type restored from the type tag")
	assert.Equal(t, "e1", ep.ID)
	assert.Equal(t, original.Key(), decoded.Key())
	assert.InDelta(t, 1.15, decoded.Score, 1e-9)

	var empty SemanticSearchResult
	require.NoError(t, json.Unmarshal([]byte(`{"type":"faq","data":null}`), &empty))
	assert.Nil(t, empty.Data)
	assert.Equal(t, "faq:", empty.Key())
}

func TestRelevanceRank(t *testing.T) {
	assert.Greater(t, RelevanceVeryStrong.Rank(), RelevanceStrong.Rank())
	assert.Greater(t, RelevanceStrong.Rank(), RelevanceMedium.Rank())
	assert.Greater(t, RelevanceMedium.Rank(), RelevanceWeak.Rank())
	assert.Zero(t, RelevanceTextMatch.Rank())
}

func TestEmptySearchResponse(t *testing.T) {
	data, err := json.Marshal(EmptySearchResponse())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"semanticResults": [],
		"suggestions": [],
		"trendingSearches": [],
		"relatedContent": [],
		"totalCount": 0,
		"searchTime": 0,
		"cacheHit": false
	}`, string(data))
}

func TestUserIntentHasEntity(t *testing.T) {
	u := UserIntent{Entities: []string{"privacy", "ai"}}
	assert.True(t, u.HasEntity("terms", "privacy"))
	assert.False(t, u.HasEntity("terms"))
}
