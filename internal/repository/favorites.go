package repository

import (
	"context"
	"fmt"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/live"
)

// ObserveFavorites streams the favorited items of kind. Favorites are local
// state, so this never contacts the provider.
func (r *Repository) ObserveFavorites(kind catalog.Kind) *live.Stream[ListResource] {
	return observe(r, source[catalog.PagedView]{
		key: "favorites:" + string(kind),
		read: func(ctx context.Context) (catalog.PagedView, catalog.CacheState, error) {
			view, err := r.store.ReadFavorites(ctx, kind)
			if err != nil {
				return nil, catalog.CacheState{}, err
			}
			n, err := view.Count(ctx)
			if err != nil {
				return nil, catalog.CacheState{}, err
			}
			return view, catalog.CacheState{Empty: n == 0}, nil
		},
		affects: func(c catalog.Change) bool {
			return c.Kind == kind && (c.Favorites || len(c.IDs) == 0)
		},
	})
}

// SetFavorite writes the favorite flag of item on the disk executor and
// returns immediately. The returned channel receives the outcome and may be
// ignored. Streams covering the item re-emit once the write commits.
func (r *Repository) SetFavorite(item catalog.ListItem, favorite bool) <-chan error {
	result := make(chan error, 1)
	if r.isClosed() {
		result <- ErrClosed
		return result
	}

	op := fmt.Sprintf("set favorite %s %d", item.Kind, item.ID)
	err := r.exec.Disk.Submit(func() {
		err := r.store.UpdateFavorite(context.Background(), item.Kind, item.ID, favorite)
		if err != nil {
			r.logger.Warn("favorite update failed", "kind", item.Kind, "id", item.ID, "favorite", favorite, "err", err)
			result <- &catalog.StoreError{Op: op, Err: err}
			return
		}
		r.logger.Debug("favorite updated", "kind", item.Kind, "id", item.ID, "favorite", favorite)
		result <- nil
	})
	if err != nil {
		result <- &catalog.StoreError{Op: op, Err: err}
	}
	return result
}
