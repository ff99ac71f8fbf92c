package sqlite

import (
	"context"
	"fmt"

	"github.com/dendi/filmscatalog/internal/catalog"
)

// pagedView reads one window of items per call. Lists are ordered by remote
// position, favorites by most recently favorited.
type pagedView struct {
	store     *Store
	kind      catalog.Kind
	favorites bool
}

func (v *pagedView) where() string {
	if v.favorites {
		return "kind = ? AND favorited = 1"
	}
	return "kind = ? AND listed = 1"
}

func (v *pagedView) orderBy() string {
	if v.favorites {
		return "favorited_at DESC, id ASC"
	}
	return "position ASC, id ASC"
}

// Count returns the number of items in the view.
func (v *pagedView) Count(ctx context.Context) (int, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	if v.store.closed {
		return 0, catalog.ErrStoreClosed
	}

	var n int
	err := v.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE "+v.where(), string(v.kind),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// Page returns up to limit items starting at offset. A non-positive limit
// reads to the end.
func (v *pagedView) Page(ctx context.Context, offset, limit int) ([]catalog.ListItem, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()

	if v.store.closed {
		return nil, catalog.ErrStoreClosed
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT kind, id, title, overview, poster_path, release_date, rating, favorited
		FROM items
		WHERE `+v.where()+`
		ORDER BY `+v.orderBy()+`
		LIMIT ? OFFSET ?
	`, string(v.kind), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []catalog.ListItem
	for rows.Next() {
		var (
			item    catalog.ListItem
			kindStr string
		)
		if err := rows.Scan(&kindStr, &item.ID, &item.Title, &item.Overview,
			&item.PosterPath, &item.ReleaseDate, &item.Rating, &item.Favorited); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Kind = catalog.Kind(kindStr)
		items = append(items, item)
	}

	return items, rows.Err()
}
