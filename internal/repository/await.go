package repository

import (
	"context"

	"github.com/dendi/filmscatalog/internal/live"
	"github.com/dendi/filmscatalog/internal/resource"
)

// AwaitSettled blocks until stream delivers a Success or Error envelope. It
// returns ErrClosed if the stream ends first.
func AwaitSettled[T any](ctx context.Context, stream *live.Stream[resource.Resource[T]]) (resource.Resource[T], error) {
	for {
		select {
		case r, ok := <-stream.C():
			if !ok {
				return resource.Resource[T]{}, ErrClosed
			}
			if r.Settled() {
				return r, nil
			}
		case <-ctx.Done():
			return resource.Resource[T]{}, ctx.Err()
		}
	}
}
