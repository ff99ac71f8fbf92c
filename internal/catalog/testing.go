package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests runs the standard store test suite against any Store implementation.
// Use this to verify that a Store implementation correctly implements the interface.
func RunStoreTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("SaveOrReplace", func(t *testing.T) {
		runSaveOrReplaceTests(t, newStore)
	})
	t.Run("Favorites", func(t *testing.T) {
		runFavoriteTests(t, newStore)
	})
	t.Run("Detail", func(t *testing.T) {
		runDetailTests(t, newStore)
	})
	t.Run("Watch", func(t *testing.T) {
		runWatchTests(t, newStore)
	})
	t.Run("Clear", func(t *testing.T) {
		runClearTests(t, newStore)
	})
}

func sampleMovies(ids ...int) []ListItem {
	items := make([]ListItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, ListItem{
			Kind:  KindMovie,
			ID:    id,
			Title: string(rune('A' + id - 1)),
		})
	}
	return items
}

func ids(items []ListItem) []int {
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func mustCollect(t *testing.T, view PagedView, err error) []ListItem {
	t.Helper()
	require.NoError(t, err)
	items, err := Collect(context.Background(), view)
	require.NoError(t, err)
	return items
}

func runSaveOrReplaceTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("empty store has empty list", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		view, err := store.ReadList(ctx, KindMovie)
		require.NoError(t, err)
		n, err := view.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		refreshed, err := store.ListRefreshedAt(ctx, KindMovie)
		require.NoError(t, err)
		assert.True(t, refreshed.IsZero())
	})

	t.Run("keeps remote order", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(3, 1, 2)))

		view, err := store.ReadList(ctx, KindMovie)
		items := mustCollect(t, view, err)
		assert.Equal(t, []int{3, 1, 2}, ids(items))

		page, err := view.Page(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, ids(page))

		refreshed, err := store.ListRefreshedAt(ctx, KindMovie)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), refreshed, time.Minute)
	})

	t.Run("preserves favorite flag of matching ids", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1)))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, true))

		refetched := sampleMovies(1, 2)
		refetched[0].Title = "A (remastered)"
		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, refetched))

		view, err := store.ReadList(ctx, KindMovie)
		items := mustCollect(t, view, err)
		require.Len(t, items, 2)
		assert.Equal(t, "A (remastered)", items[0].Title)
		assert.True(t, items[0].Favorited)
		assert.False(t, items[1].Favorited)
	})

	t.Run("ignores favorite flag in fetched items", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		fetched := sampleMovies(1)
		fetched[0].Favorited = true
		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, fetched))

		view, err := store.ReadList(ctx, KindMovie)
		items := mustCollect(t, view, err)
		require.Len(t, items, 1)
		assert.False(t, items[0].Favorited)
	})

	t.Run("drops stale rows but keeps stale favorites", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1, 2, 3)))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 2, true))
		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(4)))

		view, err := store.ReadList(ctx, KindMovie)
		assert.Equal(t, []int{4}, ids(mustCollect(t, view, err)))

		favs, err := store.ReadFavorites(ctx, KindMovie)
		assert.Equal(t, []int{2}, ids(mustCollect(t, favs, err)))

		assert.ErrorIs(t, store.UpdateFavorite(ctx, KindMovie, 1, true), ErrNotFound)
	})

	t.Run("kinds are isolated", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1, 2)))
		require.NoError(t, store.SaveOrReplace(ctx, KindTV, []ListItem{{Kind: KindTV, ID: 1, Title: "Show"}}))

		movies, err := store.ReadList(ctx, KindMovie)
		assert.Len(t, mustCollect(t, movies, err), 2)
		shows, err := store.ReadList(ctx, KindTV)
		tv := mustCollect(t, shows, err)
		require.Len(t, tv, 1)
		assert.Equal(t, KindTV, tv[0].Kind)
		assert.Equal(t, "Show", tv[0].Title)
	})
}

func runFavoriteTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("set and unset", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1, 2)))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, true))

		favs, err := store.ReadFavorites(ctx, KindMovie)
		assert.Equal(t, []int{1}, ids(mustCollect(t, favs, err)))

		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, false))
		favs, err = store.ReadFavorites(ctx, KindMovie)
		assert.Empty(t, mustCollect(t, favs, err))
	})

	t.Run("idempotent", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1)))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, true))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, true))

		view, err := store.ReadList(ctx, KindMovie)
		items := mustCollect(t, view, err)
		require.Len(t, items, 1)
		assert.True(t, items[0].Favorited)
	})

	t.Run("unknown item", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		err := store.UpdateFavorite(context.Background(), KindMovie, 99, true)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("item cached only as a detail", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveDetail(ctx, DetailItem{Kind: KindMovie, ID: 550, Title: "Fight Club", ReleaseDate: "1999-10-15"}))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 550, true))

		favs, err := store.ReadFavorites(ctx, KindMovie)
		got := mustCollect(t, favs, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Fight Club", got[0].Title)
		assert.True(t, got[0].Favorited)

		view, err := store.ReadList(ctx, KindMovie)
		assert.Empty(t, mustCollect(t, view, err), "a detail favorite is not listed")

		detail, err := store.ReadDetail(ctx, KindMovie, 550)
		require.NoError(t, err)
		assert.True(t, detail.Favorited)

		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 550, false))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 550, false))
		favs, err = store.ReadFavorites(ctx, KindMovie)
		assert.Empty(t, mustCollect(t, favs, err))
	})

	t.Run("most recently favorited first", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1, 2, 3)))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, true))
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 3, true))

		favs, err := store.ReadFavorites(ctx, KindMovie)
		assert.Equal(t, []int{3, 1}, ids(mustCollect(t, favs, err)))
	})

	t.Run("only the requested kind", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1)))
		require.NoError(t, store.SaveOrReplace(ctx, KindTV, []ListItem{{Kind: KindTV, ID: 1, Title: "Show"}}))
		require.NoError(t, store.UpdateFavorite(ctx, KindTV, 1, true))

		favs, err := store.ReadFavorites(ctx, KindMovie)
		assert.Empty(t, mustCollect(t, favs, err))
		favs, err = store.ReadFavorites(ctx, KindTV)
		assert.Len(t, mustCollect(t, favs, err), 1)
	})
}

func runDetailTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("missing detail", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.ReadDetail(context.Background(), KindMovie, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		detail := DetailItem{
			Kind:     KindMovie,
			ID:       42,
			Title:    "The Answer",
			Tagline:  "Don't panic",
			Genres:   []string{"Comedy", "Sci-Fi"},
			Runtime:  109,
			Rating:   7.5,
			Status:   "Released",
			Overview: "Towels.",
		}
		require.NoError(t, store.SaveDetail(ctx, detail))

		got, err := store.ReadDetail(ctx, KindMovie, 42)
		require.NoError(t, err)
		assert.Equal(t, "The Answer", got.Title)
		assert.Equal(t, []string{"Comedy", "Sci-Fi"}, got.Genres)
		assert.Equal(t, 109, got.Runtime)
		assert.InDelta(t, 7.5, got.Rating, 0.001)
		assert.False(t, got.FetchedAt.IsZero())
		assert.False(t, got.Favorited)
	})

	t.Run("favorite flag comes from list row", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1)))
		require.NoError(t, store.SaveDetail(ctx, DetailItem{Kind: KindMovie, ID: 1, Title: "A"}))
		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, true))

		got, err := store.ReadDetail(ctx, KindMovie, 1)
		require.NoError(t, err)
		assert.True(t, got.Favorited)
	})
}

func runWatchTests(t *testing.T, newStore func() (Store, func())) {
	next := func(t *testing.T, ch <-chan Change) Change {
		t.Helper()
		select {
		case c := <-ch:
			return c
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change")
		}
		return Change{}
	}

	t.Run("notifies after each write", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		w := store.Watch()
		defer w.Close()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1)))
		c := next(t, w.C())
		assert.Equal(t, KindMovie, c.Kind)
		assert.Empty(t, c.IDs)

		require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, true))
		c = next(t, w.C())
		assert.Equal(t, []int{1}, c.IDs)
		assert.True(t, c.Favorites)

		require.NoError(t, store.SaveDetail(ctx, DetailItem{Kind: KindMovie, ID: 1}))
		c = next(t, w.C())
		assert.True(t, c.Affects(KindMovie, 1))
		assert.False(t, c.Favorites)
	})

	t.Run("write is visible when notified", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()
		ctx := context.Background()

		w := store.Watch()
		defer w.Close()

		require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1, 2, 3)))
		next(t, w.C())

		view, err := store.ReadList(ctx, KindMovie)
		assert.Len(t, mustCollect(t, view, err), 3)
	})
}

func runClearTests(t *testing.T, newStore func() (Store, func())) {
	store, cleanup := newStore()
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveOrReplace(ctx, KindMovie, sampleMovies(1, 2)))
	require.NoError(t, store.UpdateFavorite(ctx, KindMovie, 1, true))
	require.NoError(t, store.SaveDetail(ctx, DetailItem{Kind: KindMovie, ID: 1}))

	require.NoError(t, store.Clear(ctx))

	view, err := store.ReadList(ctx, KindMovie)
	assert.Empty(t, mustCollect(t, view, err))
	favs, err := store.ReadFavorites(ctx, KindMovie)
	assert.Empty(t, mustCollect(t, favs, err))
	_, err = store.ReadDetail(ctx, KindMovie, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	refreshed, err := store.ListRefreshedAt(ctx, KindMovie)
	require.NoError(t, err)
	assert.True(t, refreshed.IsZero())
}
