package loop

import (
	"context"
	"sync"
)

// Loop is a FIFO task queue drained by a single driver goroutine.
type Loop struct {
	queue  []func()
	wake   chan struct{}
	mu     sync.Mutex
	closed bool
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{
		queue: make([]func(), 0, 32),
		wake:  make(chan struct{}, 1),
	}
}

// Post enqueues fn. It returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Drain runs queued tasks, including tasks posted while draining, until the
// queue is empty. It returns the number of tasks run.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn, ok := l.next()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// Run drives the loop until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	return l.RunUntil(ctx, nil)
}

// RunUntil drives the loop until cond reports true, ctx is done or the loop
// is closed. cond is evaluated on the driver goroutine after every drain.
// A nil cond never becomes true.
func (l *Loop) RunUntil(ctx context.Context, cond func() bool) error {
	for {
		l.Drain()
		if cond != nil && cond() {
			return nil
		}
		if l.isClosed() {
			return ErrClosed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close stops accepting tasks and wakes the driver. Queued tasks are
// discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
