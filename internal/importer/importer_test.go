package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contentsearch/internal/embedder"
	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/internal/testutil"
	"github.com/dshills/contentsearch/pkg/types"
)

const sampleYAML = `
articles:
  - id: article-ai
    title: ذكاء اصطناعي
    excerpt: مقدمة في ذكاء اصطناعي
    views: 500
    published_at: 2024-03-01
  - title: Untitled ID
episodes:
  - id: episode-1
    title: حلقة عن البرمجة
privacyContent:
  - id: privacy-1
    title: سياسة الخصوصية
    content: نحن نحترم خصوصية بياناتك
termsContent:
  - id: terms-1
    title: شروط الاستخدام
users:
  - id: u1
    name: Sara
    interests: [برمجة]
`

const sampleJSON = `{
  "faqs": [{"id": "faq-1", "question": "How do I subscribe?"}],
  "playlists": [{"id": "playlist-1", "name": "Best of technology", "views": 10}]
}`

var quiet = WithLogger(slog.New(slog.DiscardHandler))

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseDump(t *testing.T) {
	dump, err := ParseDump([]byte(sampleYAML), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, 7, dump.Len())

	items := dump.Items()
	require.Len(t, items, 5)

	kinds := make([]types.ContentKind, len(items))
	for i, item := range items {
		kinds[i] = item.Kind()
	}
	assert.Equal(t, []types.ContentKind{
		types.KindArticle, types.KindArticle, types.KindEpisode, types.KindPrivacy, types.KindTerms,
	}, kinds)

	ai := items[0].(*types.Article)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ai.PublishedAt.UTC())

	// Missing IDs are derived from the title and stable across parses
	generated := items[1].Projection().ID
	assert.NotEmpty(t, generated)
	again, err := ParseDump([]byte(sampleYAML), ".yml")
	require.NoError(t, err)
	assert.Equal(t, generated, again.Items()[1].Projection().ID)

	jsonDump, err := ParseDump([]byte(sampleJSON), ".JSON")
	require.NoError(t, err)
	assert.Len(t, jsonDump.Items(), 2)

	_, err = ParseDump([]byte("articles: [unterminated"), ".yaml")
	assert.ErrorIs(t, err, ErrInvalidDump)
	_, err = ParseDump([]byte("{"), ".json")
	assert.ErrorIs(t, err, ErrInvalidDump)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.yaml"))
	assert.True(t, Supported("a.YML"))
	assert.True(t, Supported("a.json"))
	assert.False(t, Supported("a.txt"))
	assert.False(t, Supported("yaml"))
}

func TestImportFiles(t *testing.T) {
	store := testutil.NewStore(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "content.yaml", sampleYAML)
	ctx := context.Background()

	var calls atomic.Int32
	im := New(store, quiet, WithOnImport(func(*Statistics) { calls.Add(1) }))

	stats, err := im.ImportFiles(ctx, []string{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesImported)
	assert.Equal(t, 5, stats.ItemsImported)
	assert.Equal(t, 1, stats.UsersImported)
	assert.Zero(t, stats.ItemsFailed)
	assert.Equal(t, int32(1), calls.Load())

	item, err := store.GetItem(ctx, types.KindPrivacy, "privacy-1")
	require.NoError(t, err)
	assert.Equal(t, "سياسة الخصوصية", item.Projection().Title)

	user, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"برمجة"}, user.Interests)

	// Unchanged files are skipped
	stats, err = im.ImportFiles(ctx, []string{path}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Zero(t, stats.ItemsImported)
	assert.Equal(t, int32(1), calls.Load(), "no callback when nothing changed")

	// Force re-imports
	stats, err = im.ImportFiles(ctx, []string{path}, &Config{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.ItemsImported)

	count, err := store.CountItems(ctx, types.KindArticle)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "re-import updates in place")
}

func TestImportFiles_WarmsEmbeddings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "content.yaml", sampleYAML)
	emb := testutil.NewFakeEmbedder()
	im := New(testutil.NewStore(t), quiet, WithEmbedder(emb))

	stats, err := im.ImportFiles(context.Background(), []string{path}, nil)
	require.NoError(t, err)
	assert.Positive(t, stats.ItemsWarmed)
	assert.LessOrEqual(t, stats.ItemsWarmed, stats.ItemsImported)
	assert.Equal(t, int64(stats.ItemsWarmed), emb.Calls())
	assert.Equal(t, int64(1), emb.Batches())

	t.Run("chunks by batch size", func(t *testing.T) {
		emb := testutil.NewFakeEmbedder()
		im := New(testutil.NewStore(t), quiet, WithEmbedder(emb))
		texts := make([]string, 0, 2*embedder.DefaultBatchSize+1)
		for i := range cap(texts) {
			texts = append(texts, fmt.Sprintf("text %d", i))
		}
		texts = append(texts, "text 0", " ")

		assert.Equal(t, 2*embedder.DefaultBatchSize+1, im.warm(context.Background(), texts))
		assert.Equal(t, int64(3), emb.Batches())
	})

	t.Run("failures do not fail the import", func(t *testing.T) {
		im := New(testutil.NewStore(t), quiet, WithEmbedder(testutil.NewFailingEmbedder()))
		stats, err := im.ImportFiles(context.Background(), []string{path}, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.ItemsImported)
		assert.Zero(t, stats.ItemsWarmed)
	})

	t.Run("no embedder", func(t *testing.T) {
		assert.Zero(t, New(testutil.NewStore(t), quiet).warm(context.Background(), []string{"a"}))
	})
}

func TestImportFiles_InvalidItemsAndFiles(t *testing.T) {
	store := testutil.NewStore(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "faq.json", sampleJSON)
	invalid := writeFile(t, dir, "invalid.yaml", "articles:\n  - id: a1\n    title: \"\"\n  - id: a2\n    title: ok\n")
	broken := writeFile(t, dir, "broken.json", "{")
	missing := filepath.Join(dir, "missing.yaml")

	im := New(store, quiet)
	stats, err := im.ImportFiles(context.Background(), []string{good, invalid, broken, missing}, &Config{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesImported)
	assert.Equal(t, 2, stats.FilesFailed)
	assert.Equal(t, 3, stats.ItemsImported)
	assert.Equal(t, 1, stats.ItemsFailed)
	assert.Len(t, stats.ErrorMessages, 3)
}

func TestImportPaths_DiscoversDumps(t *testing.T) {
	store := testutil.NewStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "a/content.yaml", sampleYAML)
	writeFile(t, dir, "b/more.json", sampleJSON)
	writeFile(t, dir, ".hidden/skip.yaml", "articles:\n  - id: hidden\n    title: hidden\n")
	writeFile(t, dir, "notes.txt", "ignored")

	im := New(store, quiet)
	stats, err := im.ImportPaths(context.Background(), []string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesImported)
	assert.Equal(t, 7, stats.ItemsImported)

	_, err = store.GetItem(context.Background(), types.KindArticle, "hidden")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = im.ImportPaths(context.Background(), []string{filepath.Join(dir, "notes.txt")}, nil)
	assert.Error(t, err)
}

func TestImportFiles_Lock(t *testing.T) {
	im := New(testutil.NewStore(t), quiet)

	require.True(t, im.lock.TryAcquire())
	_, err := im.ImportFiles(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrImportInProgress)

	im.lock.Release()
	_, err = im.ImportFiles(context.Background(), nil, nil)
	assert.NoError(t, err)
	assert.False(t, im.lock.Locked())
}

func TestImportLock(t *testing.T) {
	var l ImportLock
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	assert.True(t, l.Locked())
	l.Release()
	assert.True(t, l.TryAcquire())
}

func TestWatch(t *testing.T) {
	store := testutil.NewStore(t)
	dir := t.TempDir()
	writeFile(t, dir, "initial.json", sampleJSON)

	im := New(store, quiet)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- im.Watch(ctx, dir, 20*time.Millisecond) }()

	exists := func(kind types.ContentKind, id string) func() bool {
		return func() bool {
			_, err := store.GetItem(context.Background(), kind, id)
			return err == nil
		}
	}
	require.Eventually(t, exists(types.KindFAQ, "faq-1"), 5*time.Second, 20*time.Millisecond)

	writeFile(t, dir, "added.yaml", sampleYAML)
	require.Eventually(t, exists(types.KindArticle, "article-ai"), 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
