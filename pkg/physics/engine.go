// Package physics turns discrete wheel and key input into a continuous, inertial scroll position.
package physics

import (
	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/model"
	"math"
)

const (
	LineToPixels = 20.0
	PageToPixels = 100.0
)

type State uint8

const (
	AtRest State = iota
	Moving
)

func (s State) String() string {
	if s == Moving {
		return "moving"
	}
	return "at-rest"
}

type Direction uint8

const (
	None Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// ScrollState is a read-only copy of the engine state.
type ScrollState struct {
	Position             float64   `json:"position"`
	Velocity             float64   `json:"velocity"`
	LastObservedPosition float64   `json:"lastObservedPosition"`
	Direction            Direction `json:"-"`
	State                State     `json:"-"`
	MaxScroll            float64   `json:"maxScroll"`
}

// Engine integrates velocity with friction decay on every Tick.
// Engine is not safe for concurrent use, it's driven from the feed timeline.
type Engine struct {
	cfg config.Physics

	position     float64
	velocity     float64
	pending      float64 // wheel pixels accumulated since the last tick
	lastObserved float64
	direction    Direction
	state        State
	maxScroll    float64
}

func New(cfg config.Physics) *Engine {
	return &Engine{cfg: cfg}
}

// Normalize converts a wheel delta into pixels. The same factors apply to every input device.
func Normalize(in model.WheelInput) float64 {
	switch in.Unit {
	case model.Lines:
		return in.DeltaY * LineToPixels
	case model.Pages:
		return in.DeltaY * PageToPixels
	default:
		return in.DeltaY
	}
}

// Wheel queues a wheel delta for the next tick. Returns true when the engine is (now) moving.
func (e *Engine) Wheel(in model.WheelInput) bool {
	delta := Normalize(in)
	if delta == 0 || math.IsNaN(delta) {
		return e.state == Moving
	}
	e.pending += delta
	e.state = Moving
	return true
}

// Key applies a keyboard command. Home and End bypass physics and snap immediately.
// Returns true when the engine is moving afterward.
func (e *Engine) Key(k model.Key) bool {
	switch k {
	case model.ArrowUp:
		e.boost(-e.cfg.ArrowBoost)
	case model.ArrowDown:
		e.boost(e.cfg.ArrowBoost)
	case model.PageUp:
		e.boost(-e.cfg.PageBoost)
	case model.PageDown:
		e.boost(e.cfg.PageBoost)
	case model.Home:
		e.Snap(0)
	case model.End:
		e.Snap(e.maxScroll)
	}
	return e.state == Moving
}

func (e *Engine) boost(v float64) {
	if v == 0 {
		return
	}
	e.velocity = clamp(e.velocity+v, -e.cfg.MaxVelocity, e.cfg.MaxVelocity)
	e.state = Moving
}

// Tick advances the simulation by one frame. Returns true if the position changed.
func (e *Engine) Tick() bool {
	if e.state != Moving {
		return false
	}

	e.velocity = clamp(e.velocity+e.pending*e.cfg.WheelMultiplier, -e.cfg.MaxVelocity, e.cfg.MaxVelocity)
	e.pending = 0

	if math.Abs(e.velocity) < e.cfg.MinVelocity {
		e.velocity = 0
		e.state = AtRest
		return false
	}

	prev := e.position
	e.position = clamp(e.position+e.velocity, 0, e.maxScroll)
	e.velocity *= e.cfg.Friction

	return e.position != prev
}

// Snap moves the position instantly and stops any motion.
func (e *Engine) Snap(position float64) {
	e.position = clamp(position, 0, e.maxScroll)
	e.velocity = 0
	e.pending = 0
	e.state = AtRest
}

// Stop drops velocity and queued input without moving.
func (e *Engine) Stop() {
	e.velocity = 0
	e.pending = 0
	e.state = AtRest
}

// SetBounds updates the scrollable extent and re-clamps the position.
func (e *Engine) SetBounds(contentHeight, viewportHeight float64) {
	e.maxScroll = math.Max(0, contentHeight-viewportHeight)
	e.position = clamp(e.position, 0, e.maxScroll)
}

// Observe records a position reported by the render layer and returns the scroll direction
// relative to the previous observation. The integrated position follows the observed one.
func (e *Engine) Observe(position float64) Direction {
	switch {
	case position < e.lastObserved:
		e.direction = Up
	case position > e.lastObserved:
		e.direction = Down
	default:
		e.direction = None
	}
	e.lastObserved = position
	e.position = clamp(position, 0, e.maxScroll)
	return e.direction
}

func (e *Engine) Position() float64  { return e.position }
func (e *Engine) Velocity() float64  { return e.velocity }
func (e *Engine) MaxScroll() float64 { return e.maxScroll }
func (e *Engine) State() State       { return e.state }

func (e *Engine) Snapshot() ScrollState {
	return ScrollState{
		Position:             e.position,
		Velocity:             e.velocity,
		LastObservedPosition: e.lastObserved,
		Direction:            e.direction,
		State:                e.state,
		MaxScroll:            e.maxScroll,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
