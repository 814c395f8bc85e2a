// Package searcher runs the semantic content search pipeline.
//
// A search classifies the query intent, embeds the normalized query, fans
// out over every selected collection and scores each item by cosine
// similarity blended with intent, keyword and popularity boosts. Items at
// or below the similarity threshold are dropped. Privacy and terms sections
// are matched textually in a separate pass and merged in with their own
// scores.
//
// # Basic Usage
//
//	f := fetcher.New(store)
//	s := searcher.New(f, emb, searcher.WithLogger(logger))
//
//	results := s.PerformSemanticSearch(ctx, "ذكاء اصطناعي", "ar", nil, searcher.Options{
//	    Limit: 20,
//	    Filters: fetcher.Filters{DateRange: fetcher.RangeMonth},
//	})
//
//	for _, r := range results {
//	    fmt.Printf("%s %s (%.2f, %s)\n", r.Type, r.Data.Projection().Title, r.Score, r.Relevance)
//	}
//
// # Fallback
//
// PerformSemanticSearch never returns an error. When embedding the query or
// reading a collection fails, the failure is logged, counted by the tracker
// and the call returns TextSearch results instead: plain substring matches
// with a flat score of 0.5 labelled "text match".
//
// # Caching
//
// Successful searches are cached in an LRU keyed by a SHA-256 of the
// normalized query, language, filters and limit. Entries expire after
// Config.CacheTTL; InvalidateCache drops everything, for example after an
// import. Fallback results are never cached.
//
// # Suggestions
//
// GetSearchSuggestions matches titles across all collections and orders the
// candidates by popularity. GetTrendingSearches returns a fixed per-language
// list.
package searcher
