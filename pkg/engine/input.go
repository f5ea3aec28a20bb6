package engine

import (
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/physics"
	"github.com/Borislavv/infinite-feed/pkg/window"
	"github.com/rs/zerolog/log"
	"time"
)

// Observe feeds a scroll observation reported by the render layer.
// Returns false if the feed is closed or saturated and the observation was dropped.
func (f *Feed) Observe(obs model.Observation) bool {
	return f.post("observe", func() {
		if obs.ClientHeight > 0 && obs.ClientHeight != f.viewport {
			f.viewport = obs.ClientHeight
			f.refreshBounds()
		}
		dir := f.physics.Observe(obs.ScrollTop)
		f.loader.Observe(obs, dir)
		f.publish()
	})
}

// Wheel queues a wheel delta into the physics engine.
func (f *Feed) Wheel(in model.WheelInput) bool {
	return f.post("wheel", func() {
		if f.physics.Wheel(in) {
			f.scheduleFrame()
		}
	})
}

// Key applies a keyboard command. Home and End jump right away, the rest accelerate.
func (f *Feed) Key(k model.Key) bool {
	return f.post("key", func() {
		moving := f.physics.Key(k)
		if k == model.Home || k == model.End {
			f.settle()
			return
		}
		if moving {
			f.scheduleFrame()
		}
	})
}

// scheduleFrame arms the next physics frame unless one is already pending.
func (f *Feed) scheduleFrame() {
	if !f.framePending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(f.cfg.Feed.Physics.Frame, func() {
		if !f.timeline.Post(f.frame) {
			f.framePending.Store(false)
		}
	})
}

// frame advances physics by one tick and mirrors the new position to the render layer.
func (f *Feed) frame() {
	f.framePending.Store(false)

	if f.lock.Locked() {
		// the lock owns the position until it is released
		f.physics.Stop()
		f.publish()
		return
	}

	if f.physics.Tick() {
		f.settle()
	} else {
		f.publish()
	}

	if f.physics.State() == physics.Moving {
		f.scheduleFrame()
	}
}

// settle pushes the physics position to the render layer and evaluates it as an observation.
func (f *Feed) settle() {
	pos := f.physics.Position()
	f.render(pos)

	dir := f.physics.Observe(pos)
	f.loader.Observe(model.Observation{
		ScrollTop:    pos,
		ScrollHeight: window.ContentHeight(f.items.Len(), f.itemHeight),
		ClientHeight: f.viewport,
	}, dir)
	f.publish()
}

// render mirrors a physics position without touching physics state.
func (f *Feed) render(pos float64) {
	if f.mount == nil {
		return
	}
	if err := f.mount.ScrollTo(model.ScrollToY(pos)); err != nil {
		log.Debug().Err(err).Msgf("[engine] render to %.0f failed", pos)
	}
}
