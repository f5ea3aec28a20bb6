// Package engine assembles the feed: item buffer, physics, scroll lock, edge loader and poller,
// all driven from a single timeline.
package engine

import (
	"context"
	"errors"
	"github.com/Borislavv/infinite-feed/pkg/buffer"
	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/loader"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/physics"
	"github.com/Borislavv/infinite-feed/pkg/poller"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/Borislavv/infinite-feed/pkg/scrolllock"
	"github.com/Borislavv/infinite-feed/pkg/task"
	"github.com/Borislavv/infinite-feed/pkg/timeline"
	"github.com/Borislavv/infinite-feed/pkg/window"
	"github.com/rs/zerolog/log"
	"sync"
	"sync/atomic"
)

var ErrClosed = errors.New("feed is closed")

// Source is everything the feed needs from an item provider.
type Source interface {
	loader.Source
	poller.Source
	Seed(n int) []model.FeedItem
}

// Feed owns every feed component. Its exported methods are safe for concurrent use:
// they post work onto the timeline and never touch state directly.
type Feed struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Feed
	meter  metrics.Meter

	tasks    *task.Registry
	timeline *timeline.Loop

	// owned by the timeline goroutine
	items      *buffer.Items
	physics    *physics.Engine
	loader     *loader.Controller
	mount      model.Mount
	viewport   float64
	itemHeight float64
	seq        uint64

	lock   *scrolllock.Coordinator
	poller *poller.Poller

	framePending atomic.Bool
	started      atomic.Bool
	closeOnce    sync.Once

	subsMu sync.RWMutex
	subs   map[string]*subscriber
	latest atomic.Pointer[Snapshot]
}

func New(ctx context.Context, cfg *config.Feed, source Source, meter metrics.Meter) (*Feed, error) {
	items, err := buffer.New(cfg.Feed.Buffer.MaxItems, source.Seed(cfg.Feed.Buffer.Seed))
	if err != nil {
		meter.IncConfigError()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	tasks := task.NewRegistry(ctx)

	f := &Feed{
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		meter:      meter,
		tasks:      tasks,
		timeline:   timeline.New(tasks, 0),
		items:      items,
		physics:    physics.New(cfg.Feed.Physics),
		lock:       scrolllock.New(cfg.Feed.Lock.Tolerance),
		viewport:   cfg.Feed.Window.ViewportHeight,
		itemHeight: cfg.Feed.Window.ItemHeight,
		subs:       make(map[string]*subscriber),
	}
	f.loader = loader.New(cfg, items, f.lock, source, f.timeline, model.MountFunc(f.scrollTo), meter, f.changed)
	f.poller = poller.New(cfg.Feed.Polling, source, pollSink{f: f}, meter)
	f.refreshBounds()

	s := f.snapshot()
	f.latest.Store(&s)

	return f, nil
}

// Start runs the timeline and the poller. Calling it more than once is a no-op.
func (f *Feed) Start() {
	if !f.started.CompareAndSwap(false, true) {
		return
	}
	go f.timeline.Run(f.ctx)
	f.tasks.Go("poller", f.poller.Run)
	f.post("start", f.publish)

	log.Info().Msgf("[engine] feed started with %d items (cap %d)", f.Latest().Length, f.cfg.Feed.Buffer.MaxItems)
}

// Close cancels in-flight loads and the poller before stopping the timeline,
// so nothing mutates the buffer once Close returns.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.tasks.Close()
		f.cancel()
		if f.started.Load() {
			<-f.timeline.Done()
		}
		log.Info().Msg("[engine] feed closed")
	})
}

// Snapshot takes a fresh snapshot on the timeline.
func (f *Feed) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	if err := f.timeline.Do(ctx, func() { s = f.snapshot() }); err != nil {
		if errors.Is(err, timeline.ErrClosed) {
			return Snapshot{}, ErrClosed
		}
		return Snapshot{}, err
	}
	return s, nil
}

// SetPolling toggles the real-time producer.
func (f *Feed) SetPolling(on bool) {
	if on {
		f.poller.Resume()
	} else {
		f.poller.Pause()
	}
	f.post("polling", f.publish)
}

// post enqueues fn on the timeline, counting it as a dropped input when refused.
func (f *Feed) post(kind string, fn func()) bool {
	if f.timeline.Post(fn) {
		return true
	}
	f.meter.IncDroppedInput(kind)
	log.Debug().Msgf("[engine] %s input dropped, timeline is closed or saturated", kind)
	return false
}

// changed runs on the timeline after the buffer was mutated.
func (f *Feed) changed() {
	f.refreshBounds()
	f.publish()
}

func (f *Feed) refreshBounds() {
	f.physics.SetBounds(window.ContentHeight(f.items.Len(), f.itemHeight), f.viewport)
}

// pollSink appends polled items on the timeline.
type pollSink struct {
	f *Feed
}

func (s pollSink) Offer(build func(length int) model.FeedItem) bool {
	f := s.f
	return f.timeline.Post(func() {
		trimmed, err := f.items.Append(build(f.items.Len()))
		if err != nil {
			f.meter.IncConfigError()
			log.Error().Err(err).Msg("[engine] polled item rejected")
			return
		}
		f.meter.AddTrimmed(trimmed)
		f.changed()
	})
}
