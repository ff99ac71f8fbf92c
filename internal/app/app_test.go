package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/catalog/sqlite"
	"github.com/dendi/filmscatalog/internal/config"
	"github.com/dendi/filmscatalog/internal/repository"
)

// stubProvider serves a fixed list.
type stubProvider struct {
	items []catalog.ListItem
}

func (p *stubProvider) FetchList(ctx context.Context, kind catalog.Kind) ([]catalog.ListItem, error) {
	out := make([]catalog.ListItem, 0, len(p.items))
	for _, it := range p.items {
		it.Kind = kind
		out = append(out, it)
	}
	return out, nil
}

func (p *stubProvider) FetchDetail(ctx context.Context, kind catalog.Kind, id int) (catalog.DetailItem, error) {
	return catalog.DetailItem{Kind: kind, ID: id, Title: "detail"}, nil
}

func TestNew(t *testing.T) {
	t.Run("creates app with defaults", func(t *testing.T) {
		a := New()
		assert.Equal(t, config.DefaultConfig(), a.Config())
		assert.NotNil(t, a.Logger())

		_, err := a.Repository()
		assert.ErrorIs(t, err, ErrNotOpen)
		_, err = a.Store()
		assert.ErrorIs(t, err, ErrNotOpen)
	})

	t.Run("creates app with config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DBPath = "/tmp/films.db"
		a := New(WithConfig(cfg))
		assert.Equal(t, "/tmp/films.db", a.Config().Database())
	})
}

func TestApp_Open(t *testing.T) {
	t.Run("injected dependencies", func(t *testing.T) {
		store, err := sqlite.NewInMemory()
		require.NoError(t, err)

		provider := &stubProvider{items: []catalog.ListItem{{ID: 1, Title: "One"}, {ID: 2, Title: "Two"}}}
		a := New(WithStore(store), WithProvider(provider))
		require.NoError(t, a.Open())
		defer a.Close()

		repo, err := a.Repository()
		require.NoError(t, err)

		stream := repo.ObserveList(catalog.KindMovie)
		defer stream.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res, err := repository.AwaitSettled(ctx, stream)
		require.NoError(t, err)
		require.True(t, res.IsSuccess(), res.String())

		view, _ := res.Data()
		items, err := catalog.Collect(ctx, view)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("opens configured database", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.DBPath = filepath.Join(t.TempDir(), "nested", "catalog.db")

		a := New(WithConfig(cfg), WithProvider(&stubProvider{}))
		require.NoError(t, a.Open())
		assert.FileExists(t, cfg.DBPath)

		store, err := a.Store()
		require.NoError(t, err)
		assert.NotNil(t, store)
		require.NoError(t, a.Close())
	})

	t.Run("open is idempotent", func(t *testing.T) {
		store, err := sqlite.NewInMemory()
		require.NoError(t, err)

		a := New(WithStore(store), WithProvider(&stubProvider{}))
		require.NoError(t, a.Open())
		first, _ := a.Repository()
		require.NoError(t, a.Open())
		second, _ := a.Repository()
		assert.Same(t, first, second)
		require.NoError(t, a.Close())
	})

	t.Run("bad api url", func(t *testing.T) {
		store, err := sqlite.NewInMemory()
		require.NoError(t, err)

		cfg := config.DefaultConfig()
		cfg.API.BaseURL = "not a url"
		a := New(WithConfig(cfg), WithStore(store))
		assert.Error(t, a.Open())
	})
}

func TestApp_Close(t *testing.T) {
	store, err := sqlite.NewInMemory()
	require.NoError(t, err)

	a := New(WithStore(store), WithProvider(&stubProvider{}))
	require.NoError(t, a.Open())
	require.NoError(t, a.Close())

	_, err = store.ReadList(context.Background(), catalog.KindMovie)
	assert.ErrorIs(t, err, catalog.ErrStoreClosed)

	_, err = a.Repository()
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestPolicyFor(t *testing.T) {
	empty := catalog.CacheState{Empty: true}
	fresh := catalog.CacheState{RefreshedAt: time.Now()}
	stale := catalog.CacheState{RefreshedAt: time.Now().Add(-2 * time.Hour)}

	whenEmpty := PolicyFor(config.CacheConfig{})
	assert.True(t, whenEmpty.ShouldFetch(empty))
	assert.False(t, whenEmpty.ShouldFetch(stale))

	ttl := PolicyFor(config.CacheConfig{TTL: config.Duration(time.Hour)})
	assert.True(t, ttl.ShouldFetch(empty))
	assert.False(t, ttl.ShouldFetch(fresh))
	assert.True(t, ttl.ShouldFetch(stale))
}
