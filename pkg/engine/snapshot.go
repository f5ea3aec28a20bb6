package engine

import (
	"github.com/Borislavv/infinite-feed/pkg/loader"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"github.com/Borislavv/infinite-feed/pkg/physics"
	"github.com/Borislavv/infinite-feed/pkg/scrolllock"
	"github.com/Borislavv/infinite-feed/pkg/window"
)

// Snapshot is an immutable, mutually consistent view of the feed taken on the timeline.
type Snapshot struct {
	Seq       uint64              `json:"seq"`
	Window    window.Range        `json:"window"`
	Items     []model.FeedItem    `json:"items"` // items within Window only
	Scroll    physics.ScrollState `json:"scroll"`
	Direction string              `json:"direction"`
	Motion    string              `json:"motion"`
	Top       loader.State        `json:"topLoad"`
	Bottom    loader.State        `json:"bottomLoad"`
	Lock      scrolllock.State    `json:"lock"`
	Length    int                 `json:"length"`
	Cap       int                 `json:"cap"`
	Trimmed   uint64              `json:"trimmed"`
	Viewport  float64             `json:"viewportHeight"`
	Content   float64             `json:"contentHeight"`
	Mounted   bool                `json:"mounted"`
	Polling   bool                `json:"polling"`
}

type subscriber struct {
	ch      chan<- Snapshot
	dropped uint64
}

// Subscribe registers ch for snapshots published after every mutation batch.
// Sends never block: a full channel misses that snapshot. Re-subscribing an id replaces its channel.
func (f *Feed) Subscribe(id string, ch chan<- Snapshot) {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()
	f.subs[id] = &subscriber{ch: ch}
}

// Unsubscribe removes the subscriber. Returns how many snapshots it missed.
func (f *Feed) Unsubscribe(id string) (dropped uint64) {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()
	if sub, ok := f.subs[id]; ok {
		dropped = sub.dropped
		delete(f.subs, id)
	}
	return dropped
}

// Latest returns the last published snapshot without touching the timeline.
func (f *Feed) Latest() Snapshot {
	if s := f.latest.Load(); s != nil {
		return *s
	}
	return Snapshot{}
}

// snapshot must be called on the timeline.
func (f *Feed) snapshot() Snapshot {
	f.seq++
	scroll := f.physics.Snapshot()
	rng := window.Calculate(scroll.Position, f.viewport, f.itemHeight, f.items.Len(), f.cfg.Feed.Window.Overscan)
	top, bottom := f.loader.States()

	return Snapshot{
		Seq:       f.seq,
		Window:    rng,
		Items:     f.items.Get(rng.Start, rng.End),
		Scroll:    scroll,
		Direction: scroll.Direction.String(),
		Motion:    scroll.State.String(),
		Top:       top,
		Bottom:    bottom,
		Lock:      f.lock.State(),
		Length:    f.items.Len(),
		Cap:       f.items.Cap(),
		Trimmed:   f.items.Trimmed(),
		Viewport:  f.viewport,
		Content:   window.ContentHeight(f.items.Len(), f.itemHeight),
		Mounted:   f.mount != nil,
		Polling:   f.poller.Active(),
	}
}

// publish must be called on the timeline after a mutation batch.
func (f *Feed) publish() {
	s := f.snapshot()
	f.latest.Store(&s)
	f.meter.SetBufferLength(s.Length)

	f.subsMu.RLock()
	defer f.subsMu.RUnlock()
	for _, sub := range f.subs {
		select {
		case sub.ch <- s:
			f.meter.IncSnapshot(true)
		default:
			sub.dropped++
			f.meter.IncSnapshot(false)
		}
	}
}
