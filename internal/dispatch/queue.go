// Package dispatch provides serial work queues. One queue plays the role of the
// render thread (every surface mutation and registry update runs there), others
// carry CPU-bound pixel work in the background.
package dispatch

import (
	"errors"
	"sync"
)

// ErrClosed is returned when work is submitted to a closed queue.
var ErrClosed = errors.New("dispatch: queue closed")

// Queue runs submitted functions one at a time, in submission order, on a
// single goroutine.
type Queue struct {
	name string

	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool

	done chan struct{}
}

// NewQueue starts a queue. The name is only used for diagnostics.
func NewQueue(name string) *Queue {
	q := &Queue{
		name: name,
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()
	}
}

// Async schedules fn and returns immediately.
func (q *Queue) Async(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
	return nil
}

// Sync schedules fn and blocks until it has run. Calling Sync from a function
// already running on q deadlocks.
func (q *Queue) Sync(fn func()) error {
	ran := make(chan struct{})
	if err := q.Async(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	<-ran
	return nil
}

// Close stops accepting work, lets already queued functions finish and waits
// for the worker goroutine to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}
