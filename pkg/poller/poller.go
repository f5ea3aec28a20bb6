// Package poller simulates a real-time producer appending fresh items to the tail of the feed.
package poller

import (
	"context"
	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/Borislavv/infinite-feed/pkg/rate"
	"github.com/Borislavv/infinite-feed/pkg/utils"
	"github.com/rs/zerolog/log"
	"sync/atomic"
	"time"
)

// Source builds the item published on a tick from the current feed length.
type Source interface {
	Fresh(length int) model.FeedItem
}

// Sink accepts a build function and runs it against the live feed.
// Returns false when the feed refused the item; the poller never retries or queues it.
type Sink interface {
	Offer(build func(length int) model.FeedItem) bool
}

type Poller struct {
	cfg    config.Polling
	source Source
	sink   Sink
	meter  metrics.Meter

	paused   atomic.Bool
	appended atomic.Int64 // per log window
	skipped  atomic.Int64 // per log window
}

func New(cfg config.Polling, source Source, sink Sink, meter metrics.Meter) *Poller {
	p := &Poller{cfg: cfg, source: source, sink: sink, meter: meter}
	p.paused.Store(!cfg.Enabled)
	return p
}

// Run publishes one item per interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	limiter := rate.NewLimiter(ctx, p.cfg.Interval)
	defer limiter.Stop()

	p.runLogger(ctx)

	log.Info().Msgf("[poller] started, interval %s", p.cfg.Interval)
	defer log.Info().Msg("[poller] stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-limiter.Chan():
			if !ok {
				return
			}
			p.tick()
		}
	}
}

func (p *Poller) tick() {
	if p.paused.Load() {
		return
	}
	if p.sink.Offer(p.source.Fresh) {
		p.appended.Add(1)
		p.meter.IncPollAppend()
		return
	}
	p.skipped.Add(1)
	p.meter.IncPollSkipped()
}

func (p *Poller) Pause()  { p.paused.Store(true) }
func (p *Poller) Resume() { p.paused.Store(false) }

// Active reports whether ticks currently publish items.
func (p *Poller) Active() bool { return !p.paused.Load() }

// runLogger periodically logs how many items were published and skipped.
func (p *Poller) runLogger(ctx context.Context) {
	go func() {
		t := utils.NewTicker(ctx, time.Second*5)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t:
				p.logAndReset()
			}
		}
	}()
}

func (p *Poller) logAndReset() {
	appended, skipped := p.appended.Swap(0), p.skipped.Swap(0)
	if appended == 0 && skipped == 0 {
		return
	}
	log.Info().Msgf("[poller][5s] appended %d items, skipped %d", appended, skipped)
}
