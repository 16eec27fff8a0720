package editor

import (
	"context"
	"sync"
)

// Scheduler posts callbacks onto the execution context that owns editors.
type Scheduler interface {
	Post(fn func())
}

// Loop is a cooperative single-threaded scheduler. Post is safe from any
// goroutine; posted callbacks only run inside Drain, Run or RunUntil, one at a
// time and in posting order.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop returns an idle loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn for the next turn of the loop.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending reports the number of queued callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs queued callbacks, including ones posted while draining, until
// the queue is empty. It returns the number of callbacks run.
func (l *Loop) Drain() int {
	ran := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
		ran++
	}
}

// Run processes callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	return l.RunUntil(ctx, func() bool { return false })
}

// RunUntil processes callbacks until done reports true or ctx is done. done
// is evaluated on the loop, after each drained batch.
func (l *Loop) RunUntil(ctx context.Context, done func() bool) error {
	for {
		l.Drain()
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
