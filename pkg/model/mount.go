package model

import (
	"errors"
	"sync"
)

var ErrNotMounted = errors.New("scroll target is not mounted")

type Behavior uint8

const Instant Behavior = iota

func (b Behavior) String() string { return "instant" }

// ScrollCommand asks the render layer to move its scroll position.
type ScrollCommand struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Behavior Behavior `json:"-"`
}

func ScrollToY(y float64) ScrollCommand {
	return ScrollCommand{X: 0, Y: y, Behavior: Instant}
}

// Mount is the capability handed over by the render layer at mount time.
type Mount interface {
	ScrollTo(cmd ScrollCommand) error
}

// MountFunc adapts a function to the Mount interface.
type MountFunc func(cmd ScrollCommand) error

func (f MountFunc) ScrollTo(cmd ScrollCommand) error { return f(cmd) }

// QueueMount buffers commands for collaborators that pull them (e.g. over HTTP).
// When the queue is full the oldest command is dropped: only the latest position matters.
type QueueMount struct {
	mu    sync.Mutex
	queue []ScrollCommand
	limit int
}

func NewQueueMount(limit int) *QueueMount {
	if limit <= 0 {
		limit = 1
	}
	return &QueueMount{queue: make([]ScrollCommand, 0, limit), limit: limit}
}

func (q *QueueMount) ScrollTo(cmd ScrollCommand) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) >= q.limit {
		q.queue = append(q.queue[:0], q.queue[1:]...)
	}
	q.queue = append(q.queue, cmd)
	return nil
}

// Drain returns queued commands in issue order and empties the queue.
func (q *QueueMount) Drain() []ScrollCommand {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ScrollCommand, len(q.queue))
	copy(out, q.queue)
	q.queue = q.queue[:0]
	return out
}
