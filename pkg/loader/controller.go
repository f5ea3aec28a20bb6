// Package loader detects when the viewport approaches an edge of the feed and loads more items there.
package loader

import (
	"context"
	"errors"
	"fmt"
	"github.com/Borislavv/infinite-feed/pkg/buffer"
	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/physics"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/Borislavv/infinite-feed/pkg/scrolllock"
	"github.com/rs/zerolog/log"
	"math"
	"sync"
	"time"
)

const lockOwner = "top-load"

// Controller runs the per-edge Idle/Loading machines.
//
// Observe, TriggerTop and TriggerBottom must be called on the timeline. Load bodies run as tasks
// and come back to the timeline through Timeline.Do for every buffer mutation and scroll command,
// so observations keep flowing (and get corrected) while a load is suspended.
type Controller struct {
	cfg        config.Load
	linger     time.Duration
	itemHeight float64

	items    *buffer.Items
	lock     *scrolllock.Coordinator
	source   Source
	timeline Timeline
	mount    model.Mount
	meter    metrics.Meter
	onChange func()

	top    edgeState
	bottom edgeState
}

// New builds a controller. The mount receives every scroll command the controller issues,
// onChange (may be nil) is invoked on the timeline after each buffer mutation.
func New(
	cfg *config.Feed,
	items *buffer.Items,
	lock *scrolllock.Coordinator,
	source Source,
	timeline Timeline,
	mount model.Mount,
	meter metrics.Meter,
	onChange func(),
) *Controller {
	if onChange == nil {
		onChange = func() {}
	}
	return &Controller{
		cfg:        cfg.Feed.Load,
		linger:     cfg.Feed.Lock.Linger,
		itemHeight: cfg.Feed.Window.ItemHeight,
		items:      items,
		lock:       lock,
		source:     source,
		timeline:   timeline,
		mount:      mount,
		meter:      meter,
		onChange:   onChange,
	}
}

// Observe handles one scroll observation.
// While the lock is engaged the only reaction is a drift correction, edge triggers are skipped.
func (c *Controller) Observe(obs model.Observation, dir physics.Direction) {
	// elastic overscroll may report positions above the top
	position := clamp(obs.ScrollTop)

	if c.lock.Locked() {
		c.correct(position)
		return
	}

	switch {
	case dir == physics.Up && position <= c.cfg.TopThreshold:
		c.TriggerTop(position)
	case dir == physics.Down && obs.DistanceFromBottom() < c.cfg.BottomThreshold:
		c.TriggerBottom()
	}
}

// correct sends the render layer back to the lock target when the observed position drifted away.
func (c *Controller) correct(observed float64) {
	target, drifted := c.lock.Drift(observed)
	if !drifted {
		return
	}
	c.meter.IncCorrection()
	if err := c.mount.ScrollTo(model.ScrollToY(target)); err != nil {
		log.Debug().Err(err).Msgf("[loader] drift correction to %.0f dropped", target)
	}
}

// TriggerTop starts a top-load with the lock pinned at position.
// Returns false if a top-load is already in flight.
func (c *Controller) TriggerTop(position float64) bool {
	position = clamp(position)
	if !c.top.acquire() {
		c.meter.IncLoadDuplicate(metrics.EdgeTop)
		return false
	}
	if !c.lock.Engage(lockOwner, position) {
		log.Warn().Msg("[loader] scroll lock is already held, top-load skipped")
		c.top.release()
		return false
	}

	if !c.timeline.Go("top-load", func(ctx context.Context) { c.loadTop(ctx, position) }) {
		c.lock.Release(lockOwner)
		c.top.release()
		return false
	}
	c.meter.IncLoad(metrics.EdgeTop)
	return true
}

// TriggerBottom starts a bottom-load. Returns false if one is already in flight.
func (c *Controller) TriggerBottom() bool {
	if !c.bottom.acquire() {
		c.meter.IncLoadDuplicate(metrics.EdgeBottom)
		return false
	}
	if !c.timeline.Go("bottom-load", c.loadBottom) {
		c.bottom.release()
		return false
	}
	c.meter.IncLoad(metrics.EdgeBottom)
	return true
}

// States returns the current top and bottom edge states.
func (c *Controller) States() (top, bottom State) {
	return c.top.load(), c.bottom.load()
}

func (c *Controller) loadTop(ctx context.Context, engaged float64) {
	defer func() {
		var once sync.Once
		release := func() {
			once.Do(func() {
				c.lock.Release(lockOwner)
				c.top.release()
			})
		}
		if err := c.timeline.Do(ctx, release); err != nil {
			// the timeline is gone or the load was cancelled
			release()
		}
		c.notify(ctx)
	}()

	inserted, err := c.insert(ctx, Top)
	if err != nil {
		c.fail(Top, err)
		return
	}

	if !sleep(ctx, c.cfg.Settle) {
		return
	}

	target := math.Max(engaged+float64(inserted)*c.itemHeight, c.cfg.MinScrollOffset)
	if err = c.timeline.Do(ctx, func() { c.lock.Retarget(lockOwner, target) }); err != nil {
		return
	}

	if err = c.restore(ctx, target); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.meter.IncRestoreFailure()
		log.Error().Err(err).Msgf("[loader] scroll position was not restored to %.0f", target)
	}

	sleep(ctx, c.linger)
}

// clamp maps a reported scroll offset onto a valid position.
func clamp(position float64) float64 {
	if position < 0 || math.IsNaN(position) {
		return 0
	}
	return position
}

func (c *Controller) loadBottom(ctx context.Context) {
	defer func() {
		c.bottom.release()
		c.notify(ctx)
	}()

	if _, err := c.insert(ctx, Bottom); err != nil {
		c.fail(Bottom, err)
	}
}

// insert fetches a batch beyond the given edge and commits it on the timeline.
// Returns the number of items inserted.
func (c *Controller) insert(ctx context.Context, edge Edge) (int, error) {
	if c.source == nil {
		return 0, ErrNoSource
	}

	var anchor *model.FeedItem
	if err := c.timeline.Do(ctx, func() {
		var (
			item model.FeedItem
			ok   bool
		)
		if edge == Top {
			item, ok = c.items.First()
		} else {
			item, ok = c.items.Last()
		}
		if ok {
			anchor = &item
		}
	}); err != nil {
		return 0, err
	}

	var (
		batch []model.FeedItem
		err   error
	)
	if edge == Top {
		batch, err = c.source.Older(ctx, anchor, c.cfg.ItemsPerLoad)
	} else {
		batch, err = c.source.Newer(ctx, anchor, c.cfg.ItemsPerLoad)
	}
	if err != nil {
		return 0, fmt.Errorf("fetch %s items: %w", edge, err)
	}

	var (
		trimmed   int
		commitErr error
	)
	if err = c.timeline.Do(ctx, func() {
		if commitErr = ctx.Err(); commitErr != nil {
			return
		}
		if edge == Top {
			trimmed, commitErr = c.items.Prepend(batch...)
		} else {
			trimmed, commitErr = c.items.Append(batch...)
		}
		if commitErr == nil {
			c.onChange()
		}
	}); err != nil {
		return 0, err
	}
	if commitErr != nil {
		return 0, commitErr
	}

	c.meter.AddTrimmed(trimmed)
	log.Debug().Msgf("[loader] %s-load inserted %d items (trimmed %d)", edge, len(batch), trimmed)
	return len(batch), nil
}

// restore commands the render layer to target, retrying with a fixed backoff.
func (c *Controller) restore(ctx context.Context, target float64) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RestoreAttempts; attempt++ {
		var cmdErr error
		if err := c.timeline.Do(ctx, func() {
			cmdErr = c.mount.ScrollTo(model.ScrollToY(target))
		}); err != nil {
			return err
		}
		if cmdErr == nil {
			return nil
		}

		lastErr = cmdErr
		if attempt < c.cfg.RestoreAttempts {
			c.meter.IncRestoreRetry()
			if !sleep(ctx, c.cfg.RestoreBackoff) {
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRestoreExhausted, c.cfg.RestoreAttempts, lastErr)
}

func (c *Controller) fail(edge Edge, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Debug().Msgf("[loader] %s-load cancelled", edge)
	case errors.Is(err, buffer.ErrConfiguration):
		c.meter.IncConfigError()
		log.Error().Err(err).Msgf("[loader] %s-load aborted, buffer left untouched", edge)
	default:
		c.meter.IncLoadFailure(string(edge))
		log.Error().Err(err).Msgf("[loader] %s-load failed", edge)
	}
}

// notify lets subscribers see the edge back in Idle. Best effort once the timeline is gone.
func (c *Controller) notify(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_ = c.timeline.Do(ctx, c.onChange)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
