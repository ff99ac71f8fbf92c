// Package live provides push-based value streams. A Stream delivers every
// emitted value to its reader in emission order without ever blocking the
// producer; a Hub fans a published value out to many Streams.
package live

import (
	"sync"

	"github.com/google/uuid"
)

// Stream is an ordered, unbounded delivery queue with a single reader.
type Stream[T any] struct {
	id string

	mu        sync.Mutex
	queue     []T
	latest    T
	hasLatest bool
	closed    bool
	onClose   []func()

	signal chan struct{}
	out    chan T
	done   chan struct{}
	once   sync.Once
}

// NewStream creates a stream and starts its delivery goroutine.
func NewStream[T any]() *Stream[T] {
	s := &Stream[T]{
		id:     uuid.New().String(),
		signal: make(chan struct{}, 1),
		out:    make(chan T),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s
}

// ID returns the unique subscription identifier.
func (s *Stream[T]) ID() string { return s.id }

// C returns the delivery channel. It is closed after Close.
func (s *Stream[T]) C() <-chan T { return s.out }

// Done is closed when the stream is closed.
func (s *Stream[T]) Done() <-chan struct{} { return s.done }

// Emit queues v for delivery. It reports false when the stream is closed.
func (s *Stream[T]) Emit(v T) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, v)
	s.latest = v
	s.hasLatest = true
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
	return true
}

// Latest returns the most recently emitted value.
func (s *Stream[T]) Latest() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasLatest
}

// OnClose registers fn to run once when the stream closes. If the stream is
// already closed fn runs immediately.
func (s *Stream[T]) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Close stops delivery. Undelivered values are dropped.
func (s *Stream[T]) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		callbacks := s.onClose
		s.onClose = nil
		close(s.done)
		s.mu.Unlock()

		for _, fn := range callbacks {
			fn()
		}
	})
}

// Closed reports whether Close has been called.
func (s *Stream[T]) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Stream[T]) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			v := s.queue[0]
			var zero T
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- v:
			case <-s.done:
				return
			}
		}
	}
}
