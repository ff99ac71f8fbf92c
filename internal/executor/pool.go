// Package executor runs disk and network work off the caller's goroutine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("executor pool is closed")

// Pool is a fixed set of worker goroutines draining an unbounded FIFO queue.
// Submit never waits for a worker.
type Pool struct {
	name string
	wg   sync.WaitGroup

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
}

// NewPool starts a pool with the given number of workers. Values below one
// are raised to one.
func NewPool(name string, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{name: name}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Pending returns the number of queued tasks no worker has picked up yet.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Submit queues fn and returns immediately.
func (p *Pool) Submit(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("%s: %w", p.name, ErrClosed)
	}
	p.queue = append(p.queue, fn)
	p.cond.Signal()
	return nil
}

// Run queues fn and returns a channel that receives its result. Tasks whose
// context is already done when a worker picks them up are skipped with the
// context error.
func (p *Pool) Run(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	result := make(chan error, 1)
	err := p.Submit(func() {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		result <- fn(ctx)
	})
	if err != nil {
		result <- err
	}
	return result
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		fn()
	}
}
