package thread

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropwise/kisan/pkg/chat"
)

// storeUnderTest runs the same suite against every Store implementation.
func storeUnderTest(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "threads.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func sampleThread(id string, updated time.Time) *Thread {
	return &Thread{
		ID:    id,
		Title: "Onion disease",
		Messages: []chat.ChatMessage{
			{ID: "m1", Role: chat.MessageRoleUser, Content: "my onion crop has spots"},
			{ID: "m2", Role: chat.MessageRoleAssistant, Content: "looks like purple blotch"},
		},
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
	}
}

func TestStoreThreadRoundTrip(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			saved := sampleThread("t1", time.Now().UTC())
			require.NoError(t, store.SaveThread(ctx, saved))

			got, err := store.GetThread(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, saved.ID, got.ID)
			assert.Equal(t, saved.Title, got.Title)
			require.Len(t, got.Messages, 2)
			assert.Equal(t, "my onion crop has spots", got.Messages[0].Content)
		})
	}
}

func TestStoreUpsertOverwrites(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			first := sampleThread("t1", time.Now().UTC())
			require.NoError(t, store.SaveThread(ctx, first))

			second := sampleThread("t1", time.Now().UTC())
			second.Title = "Updated title"
			second.Messages = append(second.Messages, chat.ChatMessage{ID: "m3", Role: chat.MessageRoleUser, Content: "thanks"})
			require.NoError(t, store.SaveThread(ctx, second))

			got, err := store.GetThread(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, "Updated title", got.Title)
			assert.Len(t, got.Messages, 3)
		})
	}
}

func TestStoreGetAllThreadsOrdersByRecency(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			base := time.Now().UTC()
			require.NoError(t, store.SaveThread(ctx, sampleThread("old", base.Add(-2*time.Hour))))
			require.NoError(t, store.SaveThread(ctx, sampleThread("new", base)))
			require.NoError(t, store.SaveThread(ctx, sampleThread("mid", base.Add(-time.Hour))))

			threads, err := store.GetAllThreads(ctx)
			require.NoError(t, err)
			require.Len(t, threads, 3)
			assert.Equal(t, "new", threads[0].ID)
			assert.Equal(t, "mid", threads[1].ID)
			assert.Equal(t, "old", threads[2].ID)
		})
	}
}

func TestStoreErrors(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			_, err := store.GetThread(ctx, "")
			assert.ErrorIs(t, err, ErrEmptyID)

			_, err = store.GetThread(ctx, "ghost")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, store.SaveThread(ctx, &Thread{}), ErrEmptyID)
			assert.ErrorIs(t, store.DeleteThread(ctx, ""), ErrEmptyID)
			assert.ErrorIs(t, store.DeleteThread(ctx, "ghost"), ErrNotFound)
		})
	}
}

func TestStoreDeleteAndClear(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			require.NoError(t, store.SaveThread(ctx, sampleThread("t1", time.Now())))
			require.NoError(t, store.SaveThread(ctx, sampleThread("t2", time.Now())))

			require.NoError(t, store.DeleteThread(ctx, "t1"))
			_, err := store.GetThread(ctx, "t1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.ClearAllThreads(ctx))
			threads, err := store.GetAllThreads(ctx)
			require.NoError(t, err)
			assert.Empty(t, threads)
		})
	}
}

func TestStoreSuggestedQueriesRoundTrip(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			queries := []string{"When should I spray?", "What about drainage?"}
			require.NoError(t, store.SaveSuggestedQueries(ctx, queries, "hash-1", "t1"))

			got, err := store.GetSuggestedQueries(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, queries, got.Queries)
			assert.Equal(t, "hash-1", got.ContextHash)
			assert.Equal(t, "t1", got.ID)
		})
	}
}

func TestStoreSuggestedQueriesDefaultScopeFallback(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			_, err := store.GetSuggestedQueries(ctx, "t-unknown")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.SaveSuggestedQueries(ctx, []string{"Global question?"}, "h", ""))

			// Empty id resolves to the default scope.
			got, err := store.GetSuggestedQueries(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, DefaultScope, got.ID)

			// Unknown thread ids fall back to the default scope record.
			got, err = store.GetSuggestedQueries(ctx, "t-unknown")
			require.NoError(t, err)
			assert.Equal(t, []string{"Global question?"}, got.Queries)
		})
	}
}

func TestStoreSuggestedQueriesSanitized(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			raw := []string{"  padded?  ", "", "   ", "q1?", "q2?", "q3?", "q4?"}
			require.NoError(t, store.SaveSuggestedQueries(ctx, raw, "h", "t1"))

			got, err := store.GetSuggestedQueries(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, []string{"padded?", "q1?", "q2?", "q3?"}, got.Queries, "trimmed, empties dropped, capped at four")
		})
	}
}

func TestStoreClearSuggestedQueries(t *testing.T) {
	t.Parallel()

	for name, newStore := range storeUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			ctx := t.Context()

			require.NoError(t, store.SaveSuggestedQueries(ctx, []string{"a question?"}, "h", "t1"))
			require.NoError(t, store.SaveSuggestedQueries(ctx, []string{"b question?"}, "h", "t2"))

			require.NoError(t, store.ClearSuggestedQueries(ctx, "t1"))
			_, err := store.GetSuggestedQueries(ctx, "t1")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.ClearSuggestedQueries(ctx, ""))
			_, err = store.GetSuggestedQueries(ctx, "t2")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := t.Context()

	saved := sampleThread("t1", time.Now())
	require.NoError(t, store.SaveThread(ctx, saved))

	got, err := store.GetThread(ctx, "t1")
	require.NoError(t, err)
	got.Messages[0].Content = "mutated"
	got.Title = "mutated"

	fresh, err := store.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "my onion crop has spots", fresh.Messages[0].Content)
	assert.Equal(t, "Onion disease", fresh.Title)
}
