package rate

import (
	"context"
	"go.uber.org/ratelimit"
	"time"
)

// Limiter hands out one token per interval through a channel, so that callers can select on it
// together with their own cancellation.
type Limiter struct {
	cancel   context.CancelFunc
	ch       chan struct{}
	l        ratelimit.Limiter
	interval time.Duration
}

func NewLimiter(gCtx context.Context, interval time.Duration) *Limiter {
	ctx, cancel := context.WithCancel(gCtx)
	limiter := &Limiter{
		cancel:   cancel,
		interval: interval,
		ch:       make(chan struct{}),
		l:        ratelimit.New(1, ratelimit.Per(interval), ratelimit.WithoutSlack),
	}
	go limiter.provider(ctx)
	return limiter
}

func (l *Limiter) provider(ctx context.Context) {
	defer close(l.ch)
	for {
		// Take cannot be interrupted, a stopped limiter lingers for at most one interval
		l.l.Take()
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case l.ch <- struct{}{}:
		}
	}
}

func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Chan is closed once the limiter is stopped.
func (l *Limiter) Chan() <-chan struct{} {
	return l.ch
}

func (l *Limiter) Stop() {
	l.cancel()
}
