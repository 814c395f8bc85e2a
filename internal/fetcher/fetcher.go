// Package fetcher queries the content collections concurrently.
//
// Each call fans out one query per selected collection and returns the raw
// per-collection lists. Results are never merged or ranked here; a failure
// in any collection fails the whole call.
package fetcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

// Source is the read side of the content store
type Source interface {
	ListItems(ctx context.Context, kind types.ContentKind, q storage.ContentQuery) ([]types.ContentItem, error)
}

// DateRange limits results by publication time
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
	RangeYear  DateRange = "year"
)

// ParseDateRange accepts week, month, year and all (or empty)
func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "", RangeAll:
		return RangeAll, nil
	case RangeWeek, RangeMonth, RangeYear:
		return r, nil
	default:
		return "", fmt.Errorf("invalid date range %q", s)
	}
}

// Cutoff returns the earliest accepted timestamp, or zero for no cutoff
func (r DateRange) Cutoff(now time.Time) time.Time {
	switch r {
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// Filters restrict which collections are queried and how far back
type Filters struct {
	Types     []types.ContentKind `json:"type,omitempty"`
	DateRange DateRange           `json:"dateRange,omitempty"`
}

// Kinds returns the collections selected by the type filter, in registration order
func (f Filters) Kinds() []types.ContentKind {
	return selectKinds(types.AllKinds, f.Types)
}

// Results holds the items of each queried collection
type Results map[types.ContentKind][]types.ContentItem

// Flatten returns all items in collection registration order
func (r Results) Flatten() []types.ContentItem {
	var n int
	for _, items := range r {
		n += len(items)
	}
	out := make([]types.ContentItem, 0, n)
	for _, kind := range types.AllKinds {
		out = append(out, r[kind]...)
	}
	return out
}

// Fetcher fans queries out over the content collections
type Fetcher struct {
	source             Source
	perCollectionLimit int
	now                func() time.Time
}

// Option customises a Fetcher
type Option func(*Fetcher)

// WithPerCollectionLimit caps the items FetchAll reads from each collection
func WithPerCollectionLimit(n int) Option {
	return func(f *Fetcher) {
		f.perCollectionLimit = n
	}
}

// WithClock replaces time.Now for date-range cutoffs
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// New creates a fetcher over source
func New(source Source, opts ...Option) *Fetcher {
	f := &Fetcher{source: source, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll reads every collection selected by filters
func (f *Fetcher) FetchAll(ctx context.Context, filters Filters) (Results, error) {
	q := storage.ContentQuery{
		Since: filters.DateRange.Cutoff(f.now()),
		Limit: f.perCollectionLimit,
	}
	return f.fanOut(ctx, filters.Kinds(), func(types.ContentKind) storage.ContentQuery { return q })
}

// Match selects items by a substring pattern
type Match struct {
	Pattern   string
	Kinds     []types.ContentKind // nil means all collections
	PerKind   int
	TitleOnly bool      // match the title only instead of title, summary and body
	DateRange DateRange // empty means all time
}

// FetchMatching returns the items selected by m, at most m.PerKind per collection
func (f *Fetcher) FetchMatching(ctx context.Context, m Match) (Results, error) {
	q := storage.ContentQuery{
		Pattern:   m.Pattern,
		TitleOnly: m.TitleOnly,
		Since:     m.DateRange.Cutoff(f.now()),
		Limit:     m.PerKind,
	}
	return f.fanOut(ctx, selectKinds(types.AllKinds, m.Kinds), func(types.ContentKind) storage.ContentQuery { return q })
}

// FetchPopular returns the most viewed, then most recent, items per collection
func (f *Fetcher) FetchPopular(ctx context.Context, kinds []types.ContentKind, perKind int) (Results, error) {
	q := storage.ContentQuery{
		Order: storage.OrderPopular,
		Limit: perKind,
	}
	return f.fanOut(ctx, selectKinds(types.AllKinds, kinds), func(types.ContentKind) storage.ContentQuery { return q })
}

func (f *Fetcher) fanOut(ctx context.Context, kinds []types.ContentKind, queryFor func(types.ContentKind) storage.ContentQuery) (Results, error) {
	if f == nil || f.source == nil {
		return nil, storage.ErrNotConnected
	}

	results := make(Results, len(kinds))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			items, err := f.source.ListItems(gctx, kind, queryFor(kind))
			if err != nil {
				return fmt.Errorf("fetch %s: %w", kind.Collection(), err)
			}
			mu.Lock()
			results[kind] = items
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// selectKinds keeps the members of all that appear in want; empty want keeps all
func selectKinds(all, want []types.ContentKind) []types.ContentKind {
	if len(want) == 0 {
		return all
	}
	keep := make(map[types.ContentKind]bool, len(want))
	for _, k := range want {
		keep[k] = true
	}
	out := make([]types.ContentKind, 0, len(want))
	for _, k := range all {
		if keep[k] {
			out = append(out, k)
		}
	}
	return out
}
