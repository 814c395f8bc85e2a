// Package history keeps recent search queries in a key-value store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

const (
	// MaxItems is the number of queries kept per key
	MaxItems = 50
	// KeyPrefix is the key of the anonymous history
	KeyPrefix = "search_history"
)

// KV is the key-value subset of storage.Storage
type KV interface {
	GetValue(ctx context.Context, key string) ([]byte, error)
	SetValue(ctx context.Context, key string, value []byte) error
	DeleteValue(ctx context.Context, key string) error
}

// Store reads and writes search history
type Store struct {
	kv  KV
	now func() time.Time
	mu  sync.Mutex // serializes read-modify-write of a history list
}

// New creates a Store over kv
func New(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Key returns the storage key for userID; empty means anonymous
func Key(userID string) string {
	if userID == "" {
		return KeyPrefix
	}
	return KeyPrefix + "_" + userID
}

// Save records q as the newest entry. An existing entry with the same text
// moves to the front; the list is capped at MaxItems. Blank queries are ignored.
func (s *Store) Save(ctx context.Context, q, userID string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx, Key(userID))
	if err != nil && !errors.Is(err, errCorrupt) {
		return err
	}

	updated := make([]types.SearchHistoryItem, 0, min(len(items)+1, MaxItems))
	updated = append(updated, types.SearchHistoryItem{Query: q, Timestamp: s.now().UTC()})
	for _, item := range items {
		if len(updated) == MaxItems {
			break
		}
		if item.Query != q {
			updated = append(updated, item)
		}
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.kv.SetValue(ctx, Key(userID), data); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// List returns the history of userID, newest first
func (s *Store) List(ctx context.Context, userID string) ([]types.SearchHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, Key(userID))
}

// Clear removes the history of userID
func (s *Store) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.DeleteValue(ctx, Key(userID)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

var errCorrupt = errors.New("corrupt history")

func (s *Store) load(ctx context.Context, key string) ([]types.SearchHistoryItem, error) {
	data, err := s.kv.GetValue(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return []types.SearchHistoryItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var items []types.SearchHistoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return []types.SearchHistoryItem{}, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if items == nil {
		items = []types.SearchHistoryItem{}
	}
	return items, nil
}
