package repository

import (
	"time"

	"github.com/dendi/filmscatalog/internal/catalog"
)

// FetchPolicy decides whether a cached resource must be refreshed from the
// remote provider.
type FetchPolicy interface {
	ShouldFetch(state catalog.CacheState) bool
}

// PolicyFunc adapts a function to FetchPolicy.
type PolicyFunc func(state catalog.CacheState) bool

// ShouldFetch calls f.
func (f PolicyFunc) ShouldFetch(state catalog.CacheState) bool { return f(state) }

// WhenEmpty fetches only when nothing is cached.
func WhenEmpty() FetchPolicy {
	return PolicyFunc(func(state catalog.CacheState) bool {
		return state.Empty
	})
}

// TTL fetches when nothing is cached or the cache is older than ttl. A
// non-positive ttl behaves like WhenEmpty.
func TTL(ttl time.Duration, now func() time.Time) FetchPolicy {
	if ttl <= 0 {
		return WhenEmpty()
	}
	if now == nil {
		now = time.Now
	}
	return PolicyFunc(func(state catalog.CacheState) bool {
		if state.Empty || state.RefreshedAt.IsZero() {
			return true
		}
		return now().Sub(state.RefreshedAt) > ttl
	})
}

// Always fetches on every observation.
func Always() FetchPolicy {
	return PolicyFunc(func(catalog.CacheState) bool { return true })
}

// Never serves the cache only.
func Never() FetchPolicy {
	return PolicyFunc(func(catalog.CacheState) bool { return false })
}
