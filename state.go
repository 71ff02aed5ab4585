package workerpool

import "sync/atomic"

// State is the lifecycle state of a pool. Transitions only move forward:
// Created, Running, Stopping, Stopped.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type stateCell struct{ v atomic.Int32 }

func (c *stateCell) load() State { return State(c.v.Load()) }

// advance moves from `from` to `to`, reporting whether this call did it.
func (c *stateCell) advance(from, to State) bool {
	return c.v.CompareAndSwap(int32(from), int32(to))
}
