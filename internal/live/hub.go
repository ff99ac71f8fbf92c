package live

import "sync"

// Hub broadcasts published values to every open subscription.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[string]*Stream[T]
	closed bool
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[string]*Stream[T])}
}

// Subscribe registers a new stream. Closing the stream unregisters it. A
// closed hub returns an already closed stream.
func (h *Hub[T]) Subscribe() *Stream[T] {
	s := NewStream[T]()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.Close()
		return s
	}
	h.subs[s.ID()] = s
	h.mu.Unlock()

	s.OnClose(func() {
		h.mu.Lock()
		delete(h.subs, s.ID())
		h.mu.Unlock()
	})
	return s
}

// Publish delivers v to all current subscribers.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		s.Emit(v)
	}
}

// Len returns the number of open subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription and rejects new ones.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Stream[T], 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
