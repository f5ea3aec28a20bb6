// Package timeline provides the single event loop every feed mutation is serialized through.
package timeline

import (
	"context"
	"errors"
	"github.com/Borislavv/infinite-feed/pkg/task"
	"sync/atomic"
)

var (
	ErrClosed   = errors.New("timeline is closed")
	ErrRejected = errors.New("timeline queue is full")
)

const defaultQueueSize = 1024

// Loop runs posted closures one at a time on the goroutine that called Run.
// Suspending work (settle waits, backoffs, polling) lives in tasks started with Go,
// which hop back onto the loop with Do; the loop itself never blocks on them.
type Loop struct {
	queue   chan func()
	tasks   *task.Registry
	started atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
}

func New(tasks *task.Registry, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		queue: make(chan func(), queueSize),
		tasks: tasks,
		done:  make(chan struct{}),
	}
}

// Run processes posted closures until ctx is done. Must be called once.
func (l *Loop) Run(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		l.closed.Store(true)
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post enqueues fn without blocking. Returns false if the loop is closed or its queue is full.
func (l *Loop) Post(fn func()) bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.queue <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn on the loop and waits for it to complete.
// Must not be called from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.closed.Load() {
		return ErrClosed
	}

	executed := make(chan struct{})
	wrapped := func() {
		defer close(executed)
		fn()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	case l.queue <- wrapped:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-executed:
			return nil
		default:
			return ErrClosed
		}
	case <-executed:
		return nil
	}
}

// Go starts a suspendable task owned by the loop's task registry.
func (l *Loop) Go(name string, fn func(ctx context.Context)) bool {
	return l.tasks.Go(name, fn)
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) Closed() bool { return l.closed.Load() }
