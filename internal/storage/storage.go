package storage

import (
	"context"
	"time"

	"github.com/dshills/contentsearch/pkg/types"
)

// Storage defines the interface for persisting and querying content
type Storage interface {
	// Content operations
	UpsertItem(ctx context.Context, item types.ContentItem) error
	GetItem(ctx context.Context, kind types.ContentKind, id string) (types.ContentItem, error)
	DeleteItem(ctx context.Context, kind types.ContentKind, id string) error
	ListItems(ctx context.Context, kind types.ContentKind, q ContentQuery) ([]types.ContentItem, error)
	CountItems(ctx context.Context, kind types.ContentKind) (int, error)

	// User operations
	UpsertUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id string) (*types.User, error)

	// Key-value operations
	GetValue(ctx context.Context, key string) ([]byte, error)
	SetValue(ctx context.Context, key string, value []byte) error
	DeleteValue(ctx context.Context, key string) error

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Order selects the sort order of ListItems
type Order int

const (
	// OrderNewest sorts by publication (or creation) time, newest first
	OrderNewest Order = iota
	// OrderPopular sorts by views/likes, then newest first
	OrderPopular
)

// ContentQuery narrows ListItems
type ContentQuery struct {
	Pattern   string    // case-insensitive substring; empty matches everything
	TitleOnly bool      // match Pattern against the title only
	Since     time.Time // zero means no cutoff
	Limit     int       // zero means no limit
	Offset    int
	Order     Order
}

// Status contains statistics about the content store
type Status struct {
	Counts        map[types.ContentKind]int `json:"counts"`
	TotalItems    int                       `json:"totalItems"`
	Users         int                       `json:"users"`
	SchemaVersion string                    `json:"schemaVersion"`
	BuildMode     string                    `json:"buildMode"`
	SizeMB        float64                   `json:"sizeMB"`
	LastUpdatedAt time.Time                 `json:"lastUpdatedAt"`
}
