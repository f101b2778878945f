// Package dispatch runs UI-visible side effects on a single ordered context.
package dispatch

import (
	"runtime/debug"
	"sync"

	"kioskcam/internal/logger"
)

// Poster schedules fn on the owning context. Post never blocks the caller and
// functions run in the order they were posted.
type Poster interface {
	Post(fn func())
}

// Queue is a Poster backed by one goroutine and an unbounded FIFO.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
	logger  *logger.Logger
}

// NewQueue starts the queue goroutine.
func NewQueue(logger *logger.Logger) *Queue {
	q := &Queue{done: make(chan struct{}), logger: logger}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

// Post enqueues fn. Posting to a closed queue drops fn.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
}

// Close runs what is already queued and stops the goroutine.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, fn := range batch {
			q.run(fn)
		}
	}
}

func (q *Queue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil && q.logger != nil {
			q.logger.Error("dispatch panic: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// Immediate runs posted functions synchronously on the caller's goroutine.
type Immediate struct{}

// Post runs fn now.
func (Immediate) Post(fn func()) { fn() }
