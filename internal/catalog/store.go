// Package catalog defines the catalog domain model and the two boundaries the
// repository synchronizes: the local Store and the remote Provider.
package catalog

import (
	"context"
	"time"

	"github.com/dendi/filmscatalog/internal/live"
)

// PagedView is a windowed read over an ordered collection. Each call reads
// the store as it is at that moment.
type PagedView interface {
	// Count returns the number of items in the view.
	Count(ctx context.Context) (int, error)

	// Page returns up to limit items starting at offset.
	Page(ctx context.Context, offset, limit int) ([]ListItem, error)
}

// Store is the local persistent cache and the single source of truth for
// what callers observe. All writes notify watchers after they commit.
type Store interface {
	// ReadList returns the view of the cached list for kind.
	ReadList(ctx context.Context, kind Kind) (PagedView, error)

	// ReadFavorites returns the view of favorited items of kind.
	ReadFavorites(ctx context.Context, kind Kind) (PagedView, error)

	// ReadDetail returns the cached detail or ErrNotFound.
	ReadDetail(ctx context.Context, kind Kind, id int) (DetailItem, error)

	// ListRefreshedAt returns when the list for kind was last replaced. The
	// zero time means never.
	ListRefreshedAt(ctx context.Context, kind Kind) (time.Time, error)

	// SaveOrReplace atomically replaces the list for kind, preserving the
	// favorite flag of items already cached.
	SaveOrReplace(ctx context.Context, kind Kind, items []ListItem) error

	// SaveDetail inserts or replaces a detail.
	SaveDetail(ctx context.Context, item DetailItem) error

	// UpdateFavorite sets the favorite flag of an item cached in a list or
	// as a detail. Returns ErrNotFound when the item is not cached at all.
	UpdateFavorite(ctx context.Context, kind Kind, id int, favorite bool) error

	// Watch subscribes to committed changes.
	Watch() *live.Stream[Change]

	// Clear removes all cached data.
	Clear(ctx context.Context) error

	// Close closes the store.
	Close() error
}

// Provider fetches authoritative data from the remote service. Failures are
// reported as *NetworkError or *DecodeError.
type Provider interface {
	FetchList(ctx context.Context, kind Kind) ([]ListItem, error)
	FetchDetail(ctx context.Context, kind Kind, id int) (DetailItem, error)
}
