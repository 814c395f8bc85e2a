// Package metrics tracks search performance counters.
package metrics

import (
	"sync"
	"time"
)

// Metrics is a snapshot of the tracker counters
type Metrics struct {
	SearchCount       int64         `json:"searchCount"`
	TotalSearchTime   time.Duration `json:"totalSearchTime"`
	AverageSearchTime time.Duration `json:"averageSearchTime"`
	ErrorCount        int64         `json:"errorCount"`
	CacheHits         int64         `json:"cacheHits"`
}

// Tracker accumulates search timings. The zero value is ready to use and a
// Tracker is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex
	m  Metrics
}

// NewTracker returns an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// TrackSearch records one search
func (t *Tracker) TrackSearch(d time.Duration, success, fromCache bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.m.SearchCount++
	t.m.TotalSearchTime += d
	t.m.AverageSearchTime = t.m.TotalSearchTime / time.Duration(t.m.SearchCount)
	if !success {
		t.m.ErrorCount++
	}
	if fromCache {
		t.m.CacheHits++
	}
}

// Metrics returns a copy of the current counters
func (t *Tracker) Metrics() Metrics {
	if t == nil {
		return Metrics{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m
}

// Reset zeroes every counter
func (t *Tracker) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.m = Metrics{}
	t.mu.Unlock()
}
