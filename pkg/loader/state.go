package loader

import "sync/atomic"

// State of a single feed edge.
type State int32

const (
	Idle State = iota
	Loading
)

func (s State) String() string {
	if s == Loading {
		return "loading"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Edge is the top or the bottom of the feed.
type Edge string

const (
	Top    Edge = "top"
	Bottom Edge = "bottom"
)

// edgeState flips Idle to Loading as one check-and-set so that a burst of scroll events starts a single load.
type edgeState struct {
	v atomic.Int32
}

func (s *edgeState) acquire() bool {
	return s.v.CompareAndSwap(int32(Idle), int32(Loading))
}

func (s *edgeState) release() {
	s.v.Store(int32(Idle))
}

func (s *edgeState) load() State {
	return State(s.v.Load())
}
