// Package testutil provides fixtures and fakes shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

// ErrInjected is returned by the failing fakes
var ErrInjected = errors.New("injected failure")

// NewStore opens an in-memory store that is closed when the test ends
func NewStore(t testing.TB) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Seed stores items and users
func Seed(t testing.TB, store storage.Storage, items []types.ContentItem, users ...*types.User) {
	t.Helper()
	ctx := context.Background()
	for _, item := range items {
		require.NoError(t, store.UpsertItem(ctx, item))
	}
	for _, user := range users {
		require.NoError(t, store.UpsertUser(ctx, user))
	}
}

// Date returns noon UTC on the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// AIArticleID is the fixture article titled "ذكاء اصطناعي"
const AIArticleID = "article-ai"

// Fixtures is a small bilingual dataset covering every collection
func Fixtures() []types.ContentItem {
	return []types.ContentItem{
		&types.Article{
			ID:          AIArticleID,
			Title:       "ذكاء اصطناعي",
			Excerpt:     "مقدمة في ذكاء اصطناعي",
			Views:       500,
			PublishedAt: Date(2024, 3, 1),
		},
		&types.Article{
			ID:          "article-web",
			Title:       "تطوير الويب الحديث",
			Excerpt:     "أطر العمل والأدوات",
			Views:       1200,
			PublishedAt: Date(2024, 2, 1),
		},
		&types.Article{
			ID:          "article-go",
			Title:       "Getting started with Go",
			Excerpt:     "Goroutines and channels explained",
			Likes:       40,
			PublishedAt: Date(2023, 6, 1),
		},
		&types.Episode{
			ID:          "episode-1",
			Title:       "حلقة عن البرمجة",
			Description: "نقاش حول تعلم البرمجة للمبتدئين",
			Views:       900,
			PublishedAt: Date(2024, 1, 15),
		},
		&types.Episode{
			ID:          "episode-2",
			Title:       "Startup stories",
			Description: "Founders talk about building products",
			Views:       300,
			PublishedAt: Date(2023, 12, 1),
		},
		&types.Season{
			ID:          "season-1",
			Title:       "الموسم الأول",
			Description: "حلقات عن التقنية وريادة الأعمال",
			CreatedAt:   Date(2023, 1, 1),
		},
		&types.Playlist{
			ID:          "playlist-1",
			Name:        "Best of technology",
			Description: "Hand picked technology episodes",
			Views:       150,
			CreatedAt:   Date(2023, 9, 1),
		},
		&types.TeamMember{
			ID:        "team-1",
			Name:      "Layla",
			Role:      "Host",
			Bio:       "Writes about design and culture",
			CreatedAt: Date(2022, 5, 1),
		},
		&types.FAQ{
			ID:        "faq-1",
			Question:  "How do I subscribe?",
			Answer:    "Use the subscribe button on any episode page",
			CreatedAt: Date(2022, 5, 1),
		},
		&types.LegalDocument{
			DocKind:   types.KindPrivacy,
			ID:        "privacy-1",
			Title:     "سياسة الخصوصية",
			Content:   "نحن نحترم خصوصية بياناتك",
			UpdatedAt: Date(2024, 1, 1),
		},
		&types.LegalDocument{
			DocKind:   types.KindTerms,
			ID:        "terms-1",
			Title:     "شروط الاستخدام",
			Content:   "باستخدامك للموقع فإنك توافق على الشروط",
			UpdatedAt: Date(2024, 1, 1),
		},
	}
}

// FakeEmbedder is a deterministic in-process Embedder. Vectors come from
// VectorFunc when set, otherwise from embedder.HashVector. FailOn lists texts
// that fail with ErrInjected; FailAll fails every call.
type FakeEmbedder struct {
	VectorFunc func(text string) []float32
	FailAll    bool

	mu      sync.Mutex
	failOn  map[string]bool
	calls   atomic.Int64
	batches atomic.Int64
}

// NewFakeEmbedder returns a fake that never fails
func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{}
}

// NewFailingEmbedder returns a fake that fails every call
func NewFailingEmbedder() *FakeEmbedder {
	return &FakeEmbedder{FailAll: true}
}

// FailOn makes embedding the given texts fail
func (f *FakeEmbedder) FailOn(texts ...string) *FakeEmbedder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == nil {
		f.failOn = make(map[string]bool)
	}
	for _, t := range texts {
		f.failOn[t] = true
	}
	return f
}

// Calls returns how many texts were embedded
func (f *FakeEmbedder) Calls() int64 {
	return f.calls.Load()
}

func (f *FakeEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if err := embedder.ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls.Add(1)

	f.mu.Lock()
	fail := f.FailAll || f.failOn[req.Text]
	f.mu.Unlock()
	if fail {
		return nil, &embedder.EmbeddingError{Provider: "fake", StatusCode: 503, Err: ErrInjected}
	}

	var vector []float32
	if f.VectorFunc != nil {
		vector = f.VectorFunc(req.Text)
	} else {
		vector = embedder.HashVector(req.Text, f.Dimension())
	}
	return &embedder.Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  f.Provider(),
		Model:     f.Model(),
		Hash:      embedder.ComputeHash(req.Text),
	}, nil
}

// Batches returns how many GenerateBatch calls were made
func (f *FakeEmbedder) Batches() int64 {
	return f.batches.Load()
}

func (f *FakeEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	if err := embedder.ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	f.batches.Add(1)
	out := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := f.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: out, Provider: f.Provider(), Model: f.Model()}, nil
}

func (f *FakeEmbedder) Dimension() int   { return embedder.LocalDimension }
func (f *FakeEmbedder) Provider() string { return "fake" }
func (f *FakeEmbedder) Model() string    { return "fake-hashing" }
func (f *FakeEmbedder) Close() error     { return nil }

// FailingSource is a content source whose every query fails
type FailingSource struct{}

func (FailingSource) ListItems(context.Context, types.ContentKind, storage.ContentQuery) ([]types.ContentItem, error) {
	return nil, ErrInjected
}
