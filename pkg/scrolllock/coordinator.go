// Package scrolllock decides who owns the authoritative scroll position while a correction is pending.
package scrolllock

import (
	"math"
	"sync"
)

// State is a copy of the lock fields.
type State struct {
	Locked bool    `json:"locked"`
	Target float64 `json:"targetPosition"`
}

// Coordinator is a single-writer lock over the scroll position.
// Engage and Release are explicit; nothing else flips the lock.
type Coordinator struct {
	mu        sync.RWMutex
	locked    bool
	target    float64
	tolerance float64
	owner     string
}

func New(tolerance float64) *Coordinator {
	return &Coordinator{tolerance: math.Abs(tolerance)}
}

// Engage takes the lock on behalf of owner pinned at target.
// Returns false if the lock is already held.
func (c *Coordinator) Engage(owner string, target float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked {
		return false
	}
	c.locked = true
	c.target = target
	c.owner = owner
	return true
}

// Retarget moves the pinned position. Only the owner may do so.
func (c *Coordinator) Retarget(owner string, target float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.locked || c.owner != owner {
		return false
	}
	c.target = target
	return true
}

// Release frees the lock. Only the owner may do so.
func (c *Coordinator) Release(owner string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.locked || c.owner != owner {
		return false
	}
	c.locked = false
	c.owner = ""
	return true
}

// Drift reports the position the render layer must be sent back to, if any.
// It returns false while unlocked or when observed is within tolerance of the target.
func (c *Coordinator) Drift(observed float64) (target float64, drifted bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.locked {
		return 0, false
	}
	if math.Abs(observed-c.target) <= c.tolerance {
		return c.target, false
	}
	return c.target, true
}

func (c *Coordinator) Locked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locked
}

func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{Locked: c.locked, Target: c.target}
}
