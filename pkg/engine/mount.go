package engine

import (
	"github.com/Borislavv/infinite-feed/pkg/model"
)

// Mount hands the render layer's scroll capability to the feed.
// A non-positive viewportHeight keeps the current one.
func (f *Feed) Mount(m model.Mount, viewportHeight float64) bool {
	return f.post("mount", func() {
		f.mount = m
		if viewportHeight > 0 {
			f.viewport = viewportHeight
		}
		f.refreshBounds()
		f.publish()
	})
}

// Unmount revokes the capability. Commands issued until the next Mount fail with model.ErrNotMounted.
func (f *Feed) Unmount() bool {
	return f.post("unmount", func() {
		f.mount = nil
		f.publish()
	})
}

// Resize updates the viewport height.
func (f *Feed) Resize(viewportHeight float64) bool {
	if viewportHeight <= 0 {
		return false
	}
	return f.post("resize", func() {
		f.viewport = viewportHeight
		f.refreshBounds()
		f.publish()
	})
}

// scrollTo is the authoritative scroll command path used by the loader.
// Runs on the timeline. On success physics adopts the commanded position.
func (f *Feed) scrollTo(cmd model.ScrollCommand) error {
	if f.mount == nil {
		return model.ErrNotMounted
	}
	if err := f.mount.ScrollTo(cmd); err != nil {
		return err
	}
	f.physics.Snap(cmd.Y)
	f.physics.Observe(f.physics.Position())
	return nil
}
