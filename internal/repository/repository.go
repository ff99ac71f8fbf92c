// Package repository reconciles the remote catalog provider with the local
// store and exposes live Resource streams over the store.
//
// The store is the only source of observed data. A refresh writes fetched
// items into the store and the resulting change notification, not the fetch
// result, drives what subscribers see. At most one fetch per resource key is
// in flight; concurrent observers of the same key share its outcome.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/executor"
	"github.com/dendi/filmscatalog/internal/live"
	"github.com/dendi/filmscatalog/internal/resource"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is reported by streams opened after Close.
var ErrClosed = errors.New("repository is closed")

// ListResource is the envelope type of list and favorites streams.
type ListResource = resource.Resource[catalog.PagedView]

// DetailResource is the envelope type of detail streams.
type DetailResource = resource.Resource[catalog.DetailItem]

// Repository is the synchronization engine.
type Repository struct {
	store    catalog.Store
	provider catalog.Provider
	exec     *executor.Executors
	ownsExec bool
	policy   FetchPolicy
	logger   *slog.Logger

	flight singleflight.Group
	// fetches counts joined fetches so Close can let them write through.
	fetches sync.WaitGroup

	// ctx bounds watcher goroutines. Fetches run detached from it so a
	// dropped subscription never cancels a network call.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures the Repository.
type Option func(*Repository)

// WithFetchPolicy sets the staleness policy for lists and details.
func WithFetchPolicy(p FetchPolicy) Option {
	return func(r *Repository) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithExecutors sets the pools used for disk and network work. The caller
// keeps ownership and closes them after the repository.
func WithExecutors(exec *executor.Executors) Option {
	return func(r *Repository) {
		if exec != nil {
			r.exec = exec
			r.ownsExec = false
		}
	}
}

// New creates a repository over store and provider.
func New(store catalog.Store, provider catalog.Provider, opts ...Option) *Repository {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Repository{
		store:    store,
		provider: provider,
		policy:   WhenEmpty(),
		logger:   slog.New(slog.DiscardHandler),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.exec == nil {
		r.exec = executor.New(executor.DefaultNetworkWorkers)
		r.ownsExec = true
	}
	return r
}

// ObserveList streams the cached list of kind, refreshing it from the
// provider when the fetch policy asks for it.
func (r *Repository) ObserveList(kind catalog.Kind) *live.Stream[ListResource] {
	return observe(r, source[catalog.PagedView]{
		key:    listKey(kind),
		policy: r.policy,
		read: func(ctx context.Context) (catalog.PagedView, catalog.CacheState, error) {
			return r.readList(ctx, kind)
		},
		fetch: func(ctx context.Context) error {
			return r.refreshList(ctx, kind)
		},
		affects: func(c catalog.Change) bool {
			return c.Kind == kind && (len(c.IDs) == 0 || c.Favorites)
		},
	})
}

// ObserveDetail streams the cached detail of (kind, id), fetching it when
// the fetch policy asks for it.
func (r *Repository) ObserveDetail(kind catalog.Kind, id int) *live.Stream[DetailResource] {
	return observe(r, source[catalog.DetailItem]{
		key:     detailKey(kind, id),
		policy:  r.policy,
		missing: true,
		read: func(ctx context.Context) (catalog.DetailItem, catalog.CacheState, error) {
			item, err := r.store.ReadDetail(ctx, kind, id)
			if errors.Is(err, catalog.ErrNotFound) {
				return catalog.DetailItem{}, catalog.CacheState{Empty: true}, nil
			}
			if err != nil {
				return catalog.DetailItem{}, catalog.CacheState{}, err
			}
			return item, catalog.CacheState{RefreshedAt: item.FetchedAt}, nil
		},
		fetch: func(ctx context.Context) error {
			return r.refreshDetail(ctx, kind, id)
		},
		affects: func(c catalog.Change) bool {
			return c.Affects(kind, id)
		},
	})
}

// Refresh fetches the list of kind and writes it to the store, sharing any
// fetch already in flight for the same list.
func (r *Repository) Refresh(ctx context.Context, kind catalog.Kind) error {
	if r.isClosed() {
		return ErrClosed
	}

	select {
	case res := <-r.join(listKey(kind), func(ctx context.Context) error {
		return r.refreshList(ctx, kind)
	}):
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops every open stream and waits for queued work. Fetches already
// issued run to completion and their results are written to the store
// before Close returns.
func (r *Repository) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	r.fetches.Wait()
	if r.ownsExec {
		r.exec.Close()
	}
}

func (r *Repository) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Repository) readList(ctx context.Context, kind catalog.Kind) (catalog.PagedView, catalog.CacheState, error) {
	view, err := r.store.ReadList(ctx, kind)
	if err != nil {
		return nil, catalog.CacheState{}, err
	}
	n, err := view.Count(ctx)
	if err != nil {
		return nil, catalog.CacheState{}, err
	}
	refreshed, err := r.store.ListRefreshedAt(ctx, kind)
	if err != nil {
		return nil, catalog.CacheState{}, err
	}
	return view, catalog.CacheState{Empty: n == 0, RefreshedAt: refreshed}, nil
}

func (r *Repository) refreshList(ctx context.Context, kind catalog.Kind) error {
	op := fmt.Sprintf("refresh %s list", kind)

	var items []catalog.ListItem
	err := <-r.exec.Network.Run(ctx, func(ctx context.Context) error {
		var err error
		items, err = r.provider.FetchList(ctx, kind)
		return err
	})
	if err != nil {
		return asFetchError(op, err)
	}

	for i := range items {
		items[i].Kind = kind
	}
	err = <-r.exec.Disk.Run(ctx, func(ctx context.Context) error {
		return r.store.SaveOrReplace(ctx, kind, items)
	})
	if err != nil {
		return &catalog.StoreError{Op: op, Err: err}
	}
	return nil
}

func (r *Repository) refreshDetail(ctx context.Context, kind catalog.Kind, id int) error {
	op := fmt.Sprintf("refresh %s %d", kind, id)

	var item catalog.DetailItem
	err := <-r.exec.Network.Run(ctx, func(ctx context.Context) error {
		var err error
		item, err = r.provider.FetchDetail(ctx, kind, id)
		return err
	})
	if err != nil {
		return asFetchError(op, err)
	}

	item.Kind = kind
	item.ID = id
	item.FetchedAt = time.Now()
	err = <-r.exec.Disk.Run(ctx, func(ctx context.Context) error {
		return r.store.SaveDetail(ctx, item)
	})
	if err != nil {
		return &catalog.StoreError{Op: op, Err: err}
	}
	return nil
}

// join attaches to the in-flight fetch for key or starts one. After Close
// it reports ErrClosed without fetching.
func (r *Repository) join(key string, fetch func(ctx context.Context) error) <-chan singleflight.Result {
	out := make(chan singleflight.Result, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		out <- singleflight.Result{Err: ErrClosed}
		return out
	}
	r.fetches.Add(1)
	r.mu.Unlock()

	ch := r.flight.DoChan(key, func() (any, error) {
		start := time.Now()
		r.logger.Info("fetch started", "key", key)

		err := fetch(context.Background())
		if err != nil {
			r.logger.Warn("fetch failed", "key", key, "duration", time.Since(start), "err", err)
			return nil, err
		}
		r.logger.Info("fetch finished", "key", key, "duration", time.Since(start))
		return nil, nil
	})
	go func() {
		defer r.fetches.Done()
		out <- <-ch
	}()
	return out
}

// asFetchError keeps typed provider errors and classifies anything else as a
// network failure.
func asFetchError(op string, err error) error {
	var netErr *catalog.NetworkError
	var decodeErr *catalog.DecodeError
	if errors.As(err, &netErr) || errors.As(err, &decodeErr) {
		return err
	}
	return &catalog.NetworkError{Op: op, Err: err}
}

func listKey(kind catalog.Kind) string {
	return "list:" + string(kind)
}

func detailKey(kind catalog.Kind, id int) string {
	return fmt.Sprintf("detail:%s:%d", kind, id)
}
