package workerpool

import (
	"runtime"
	"sync/atomic"
)

// workerControl is the per-worker control block. Every worker owns one,
// found through the index it claimed on start.
type workerControl struct {
	index int
	name  string

	// active is the throttle flag. An inactive worker finishes the task
	// it holds and then waits on throttle.
	active   atomic.Bool
	throttle parker

	// parked is set while the worker waits on throttle. A parked worker
	// holds no task.
	parked atomic.Bool

	// popSeq is odd while the worker is inside a pop. Every dequeue
	// attempt of that pop is preceded by a check of active.
	popSeq atomic.Uint64

	completed atomic.Uint64

	_ cachePad
}

func (c *workerControl) init(index int, active bool) {
	c.index = index
	c.active.Store(active)
	c.throttle.init()
}

// setActive stores the throttle flag and wakes the worker. It reports
// whether the flag changed.
func (c *workerControl) setActive(active bool) bool {
	changed := c.active.Swap(active) != active
	c.throttle.wakeAll()
	return changed
}

func (c *workerControl) enterPop() { c.popSeq.Add(1) }
func (c *workerControl) leavePop() { c.popSeq.Add(1) }

// awaitPop waits for a pop in progress to return. Called after active was
// cleared, it guarantees the worker dequeues nothing more until woken: a
// pop entered later sees the cleared flag before its first attempt. A
// concurrent wake ends the wait.
func (c *workerControl) awaitPop() {
	seq := c.popSeq.Load()
	if seq%2 == 0 {
		return
	}
	for c.popSeq.Load() == seq && !c.active.Load() {
		runtime.Gosched()
	}
}

// waitActive blocks while the worker is throttled. onPark runs once the
// worker is marked parked. It returns false when stopped reports true.
func (c *workerControl) waitActive(stopped func() bool, onPark func()) bool {
	if c.active.Load() {
		return !stopped()
	}
	c.parked.Store(true)
	onPark()
	c.throttle.park(func() bool {
		return c.active.Load() || stopped()
	})
	c.parked.Store(false)
	return !stopped()
}
