package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/contentsearch/internal/testutil"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(testutil.NewStore(t))
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func queries(t *testing.T, s *Store, userID string) []string {
	t.Helper()
	items, err := s.List(context.Background(), userID)
	require.NoError(t, err)
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Query
	}
	return out
}

func TestKey(t *testing.T) {
	assert.Equal(t, "search_history", Key(""))
	assert.Equal(t, "search_history_u1", Key("u1"))
}

func TestSave_NewestFirstAndCapped(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 1; i <= MaxItems+1; i++ {
		require.NoError(t, s.Save(ctx, fmt.Sprintf("q%d", i), ""))
	}

	got := queries(t, s, "")
	require.Len(t, got, MaxItems)
	assert.Equal(t, "q51", got[0])
	assert.Equal(t, "q2", got[MaxItems-1])
}

func TestSave_ResaveMovesToFront(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, q := range []string{"go", "rust", "zig"} {
		require.NoError(t, s.Save(ctx, q, "u1"))
	}
	require.NoError(t, s.Save(ctx, " go ", "u1"))

	assert.Equal(t, []string{"go", "zig", "rust"}, queries(t, s, "u1"))

	items, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, items[0].Timestamp.After(items[1].Timestamp))
}

func TestSave_IgnoresBlankQueries(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save(context.Background(), "   ", ""))
	assert.Empty(t, queries(t, s, ""))
}

func TestHistory_PerUser(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "anonymous", ""))
	require.NoError(t, s.Save(ctx, "mine", "u1"))

	assert.Equal(t, []string{"anonymous"}, queries(t, s, ""))
	assert.Equal(t, []string{"mine"}, queries(t, s, "u1"))
	assert.Empty(t, queries(t, s, "u2"))
}

func TestClear(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "go", "u1"))
	require.NoError(t, s.Save(ctx, "go", ""))
	require.NoError(t, s.Clear(ctx, "u1"))

	assert.Empty(t, queries(t, s, "u1"))
	assert.Equal(t, []string{"go"}, queries(t, s, ""))
	assert.NoError(t, s.Clear(ctx, "never-saved"))
}

func TestSave_RecoversFromCorruptValue(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetValue(ctx, Key(""), []byte("not json")))

	s := New(store)
	_, err := s.List(ctx, "")
	assert.Error(t, err)

	require.NoError(t, s.Save(ctx, "fresh", ""))
	assert.Equal(t, []string{"fresh"}, queries(t, s, ""))
}
