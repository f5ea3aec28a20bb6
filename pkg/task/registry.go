package task

import (
	"context"
	"github.com/rs/zerolog/log"
	"sync"
	"sync/atomic"
)

// Registry owns background tasks bound to a single component lifetime.
// Close cancels every outstanding task and waits until all of them have returned.
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	live   atomic.Int64
}

func NewRegistry(ctx context.Context) *Registry {
	ctx, cancel := context.WithCancel(ctx)
	return &Registry{ctx: ctx, cancel: cancel}
}

// Go runs fn in a new goroutine. The context passed to fn is cancelled on Close.
// Returns false (and does not run fn) once the registry is closed.
func (r *Registry) Go(name string, fn func(ctx context.Context)) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		log.Debug().Msgf("[task] %s was not started: registry is closed", name)
		return false
	}
	r.wg.Add(1)
	r.live.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			r.live.Add(-1)
			r.wg.Done()
		}()
		fn(r.ctx)
	}()
	return true
}

// Context is cancelled once the registry is closed.
func (r *Registry) Context() context.Context { return r.ctx }

// Len returns the number of tasks still running.
func (r *Registry) Len() int { return int(r.live.Load()) }

// Close cancels outstanding tasks and blocks until they finish. Safe to call more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}
