package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	catalog.RunStoreTests(t, func() (catalog.Store, func()) {
		store, err := NewInMemory()
		require.NoError(t, err)
		return store, func() { store.Close() }
	})
}

func TestStore_FileDatabase(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "catalog.db")

	store, err := New(dbPath)
	require.NoError(t, err)

	require.NoError(t, store.SaveOrReplace(ctx, catalog.KindMovie, []catalog.ListItem{
		{Kind: catalog.KindMovie, ID: 1, Title: "Persisted"},
	}))
	require.NoError(t, store.UpdateFavorite(ctx, catalog.KindMovie, 1, true))
	require.NoError(t, store.Close())

	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	favs, err := reopened.ReadFavorites(ctx, catalog.KindMovie)
	require.NoError(t, err)
	items, err := catalog.Collect(ctx, favs)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Persisted", items[0].Title)
}

func TestStore_Closed(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)

	view, err := store.ReadList(context.Background(), catalog.KindMovie)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	ctx := context.Background()
	_, err = store.ReadList(ctx, catalog.KindMovie)
	assert.ErrorIs(t, err, catalog.ErrStoreClosed)
	_, err = view.Count(ctx)
	assert.ErrorIs(t, err, catalog.ErrStoreClosed)
	assert.ErrorIs(t, store.SaveOrReplace(ctx, catalog.KindMovie, nil), catalog.ErrStoreClosed)
	assert.ErrorIs(t, store.UpdateFavorite(ctx, catalog.KindMovie, 1, true), catalog.ErrStoreClosed)
	assert.ErrorIs(t, store.SaveDetail(ctx, catalog.DetailItem{Kind: catalog.KindMovie}), catalog.ErrStoreClosed)

	w := store.Watch()
	assert.True(t, w.Closed())
}

func TestStore_UnknownKind(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()

	_, err = store.ReadList(context.Background(), catalog.Kind("books"))
	assert.ErrorIs(t, err, catalog.ErrUnknownKind)
	err = store.SaveOrReplace(context.Background(), catalog.Kind("books"), nil)
	assert.ErrorIs(t, err, catalog.ErrUnknownKind)
}

func TestStore_ReadersNeverSeePartialReplace(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	batch := func(size int) []catalog.ListItem {
		items := make([]catalog.ListItem, size)
		for i := range items {
			items[i] = catalog.ListItem{Kind: catalog.KindMovie, ID: i + 1, Title: fmt.Sprintf("M%d", i+1)}
		}
		return items
	}
	require.NoError(t, store.SaveOrReplace(ctx, catalog.KindMovie, batch(10)))

	view, err := store.ReadList(ctx, catalog.KindMovie)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			size := 10
			if i%2 == 0 {
				size = 50
			}
			assert.NoError(t, store.SaveOrReplace(ctx, catalog.KindMovie, batch(size)))
		}
	}()

	for i := 0; i < 50; i++ {
		n, err := view.Count(ctx)
		require.NoError(t, err)
		assert.Contains(t, []int{10, 50}, n)
	}
	wg.Wait()
}

func TestStore_PageWindow(t *testing.T) {
	store, err := NewInMemory()
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	items := make([]catalog.ListItem, 25)
	for i := range items {
		items[i] = catalog.ListItem{Kind: catalog.KindTV, ID: 100 + i, Title: fmt.Sprintf("S%d", i)}
	}
	require.NoError(t, store.SaveOrReplace(ctx, catalog.KindTV, items))

	view, err := store.ReadList(ctx, catalog.KindTV)
	require.NoError(t, err)

	page, err := view.Page(ctx, 20, 10)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, 120, page[0].ID)

	all, err := view.Page(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 25)
}
