package repository

import (
	"context"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/executor"
	"github.com/dendi/filmscatalog/internal/live"
	"github.com/dendi/filmscatalog/internal/resource"
	"golang.org/x/sync/singleflight"
)

// source describes one observable resource.
type source[T any] struct {
	key    string
	policy FetchPolicy // nil never fetches
	// missing reports an empty cache as an error instead of a success. Set
	// for single items, where there is nothing to show.
	missing bool
	read    func(ctx context.Context) (T, catalog.CacheState, error)
	fetch   func(ctx context.Context) error
	affects func(catalog.Change) bool
}

type snapshot[T any] struct {
	data  T
	state catalog.CacheState
}

func (s snapshot[T]) hasData() bool { return !s.state.Empty }

// observe opens a stream for src and starts its watcher. The caller's
// goroutine does no I/O.
func observe[T any](r *Repository, src source[T]) *live.Stream[resource.Resource[T]] {
	out := live.NewStream[resource.Resource[T]]()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		var zero T
		out.Emit(resource.Error(ErrClosed.Error(), zero, false))
		return out
	}
	r.wg.Add(1)
	r.mu.Unlock()

	// Subscribe before the first read so no write can slip between them.
	changes := r.store.Watch()
	go watch(r, out, changes, src)
	return out
}

// watch is the delivery loop of one stream. Every emission for the stream
// happens on this goroutine, which keeps them ordered.
func watch[T any](r *Repository, out *live.Stream[resource.Resource[T]], changes *live.Stream[catalog.Change], src source[T]) {
	defer r.wg.Done()
	defer changes.Close()

	ctx := r.ctx
	var flight <-chan singleflight.Result

	snap, err := readSnapshot(ctx, r.exec.Disk, src)
	switch {
	case ctx.Err() != nil:
		out.Close()
		return
	case err != nil:
		// Nothing is known about the cache, so the policy is not consulted.
		r.logger.Warn("cache read failed", "key", src.key, "err", err)
		out.Emit(resource.Loading(snap.data, false))
		out.Emit(storeFailure(src.key, err, snap))
	default:
		if src.policy != nil && src.policy.ShouldFetch(snap.state) {
			flight = r.join(src.key, src.fetch)
		}
		out.Emit(resource.Loading(snap.data, snap.hasData()))
		if flight == nil {
			out.Emit(settled(src, snap))
		}
	}

	for {
		select {
		case <-out.Done():
			return

		case <-ctx.Done():
			out.Close()
			return

		case res := <-flight:
			flight = nil
			next, err := readSnapshot(ctx, r.exec.Disk, src)
			if ctx.Err() != nil {
				out.Close()
				return
			}
			if err != nil {
				out.Emit(storeFailure(src.key, err, snap))
				continue
			}
			snap = next
			if res.Err != nil {
				out.Emit(resource.Error(res.Err.Error(), snap.data, snap.hasData()))
				continue
			}
			if res.Shared {
				r.logger.Debug("joined in-flight fetch", "key", src.key)
			}
			out.Emit(settled(src, snap))

		case c, ok := <-changes.C():
			if !ok {
				// The store closed underneath us.
				out.Close()
				return
			}
			if !src.affects(c) {
				continue
			}
			next, err := readSnapshot(ctx, r.exec.Disk, src)
			if ctx.Err() != nil {
				out.Close()
				return
			}
			if err != nil {
				out.Emit(storeFailure(src.key, err, snap))
				continue
			}
			snap = next
			if flight != nil {
				out.Emit(resource.Loading(snap.data, snap.hasData()))
			} else {
				out.Emit(settled(src, snap))
			}
		}
	}
}

func readSnapshot[T any](ctx context.Context, pool *executor.Pool, src source[T]) (snapshot[T], error) {
	var snap snapshot[T]
	err := <-pool.Run(ctx, func(ctx context.Context) error {
		var err error
		snap.data, snap.state, err = src.read(ctx)
		return err
	})
	if err != nil {
		return snapshot[T]{state: catalog.CacheState{Empty: true}}, err
	}
	return snap, nil
}

func settled[T any](src source[T], snap snapshot[T]) resource.Resource[T] {
	if src.missing && !snap.hasData() {
		return resource.Error(catalog.ErrNotFound.Error(), snap.data, false)
	}
	return resource.Success(snap.data)
}

func storeFailure[T any](key string, err error, last snapshot[T]) resource.Resource[T] {
	storeErr := &catalog.StoreError{Op: "read " + key, Err: err}
	return resource.Error(storeErr.Error(), last.data, last.hasData())
}
