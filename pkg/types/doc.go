// Package types provides shared type definitions for the content search service.
//
// This package defines domain types used across multiple components,
// including the content collections, query intents, and search results.
//
// # Content Items
//
// Each of the eight content collections has its own struct. All of them
// implement ContentItem, which exposes the kind and a normalized Projection:
//
//	item := &types.Article{ID: "a1", Title: "ذكاء اصطناعي", Views: 420}
//	p := item.Projection()
//	// p.Title == "ذكاء اصطناعي", p.Popularity == 420, p.HasPopularity == true
//
// Privacy and terms sections share LegalDocument and carry their kind in DocKind.
//
// The projection is the only view the relevance scorer consumes, so adding a
// new collection means adding a struct with Kind and Projection methods.
//
// # Search Results
//
// SemanticSearchResult carries the original item plus a score and a
// qualitative Relevance label:
//
//	result := types.SemanticSearchResult{
//	    Type:      types.KindArticle,
//	    Data:      item,
//	    Score:     0.92,
//	    Relevance: types.RelevanceVeryStrong,
//	}
//
// Scores are not normalized: additive boosts can push them above 1.0.
package types
