package workerpool

import (
	"runtime"
	"sync/atomic"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
)

const (
	// DefaultWaitSleepTime caps the polling interval of an idle
	// priority queue.
	DefaultWaitSleepTime = 50 * time.Microsecond

	minPollInterval = time.Microsecond
)

// PriorityQueue is a strict-priority queue made of discrete lanes.
//
// Lane 0 has the highest priority. A pop always drains a higher lane
// before it looks at a lower one, so sustained high priority load
// starves the lower lanes.
//
// Lanes are plain queues used in non-blocking mode; an idle consumer,
// or a producer facing a full lane, polls with an exponential back-off
// bounded by the wait sleep time.
type PriorityQueue[T any] struct {
	lanes     []Queue[T]
	waitSleep time.Duration
	stopped   atomic.Bool
}

// NewPriorityQueue creates one lane per entry of lanes, highest first.
func NewPriorityQueue[T any](lanes []QueueParams, waitSleep time.Duration) *PriorityQueue[T] {
	if waitSleep <= 0 {
		waitSleep = DefaultWaitSleepTime
	}
	q := &PriorityQueue[T]{
		lanes:     make([]Queue[T], len(lanes)),
		waitSleep: waitSleep,
	}
	for i, lp := range lanes {
		q.lanes[i] = NewQueue[T](lp)
	}
	return q
}

// pollFloor is the first back-off step of a polling loop.
func (q *PriorityQueue[T]) pollFloor() time.Duration {
	return min(minPollInterval, q.waitSleep)
}

// TryPush inserts v into the lane of prio without waiting.
func (q *PriorityQueue[T]) TryPush(prio Priority, v T) bool {
	if q.stopped.Load() {
		return false
	}
	return q.lanes[prio.Lane(len(q.lanes))].TryPush(v)
}

// PushBlocking inserts v into the lane of prio, waiting while that lane
// is full. It returns false iff the queue was stopped.
func (q *PriorityQueue[T]) PushBlocking(prio Priority, v T) bool {
	lane := q.lanes[prio.Lane(len(q.lanes))]
	if q.stopped.Load() {
		return false
	}
	if lane.TryPush(v) {
		return true
	}

	bo := boff.New(q.pollFloor(), q.waitSleep, time.Now().UnixNano())
	for {
		if q.stopped.Load() {
			return false
		}
		if lane.TryPush(v) {
			return true
		}
		time.Sleep(bo.Next())
	}
}

// TryPop removes the next item of the highest non-empty lane.
func (q *PriorityQueue[T]) TryPop() (T, bool) {
	if !q.stopped.Load() {
		for _, lane := range q.lanes {
			if v, ok := lane.TryPop(); ok {
				return v, true
			}
		}
	}
	var zero T
	return zero, false
}

// PopBlocking waits for an item of any lane. False means stopped.
func (q *PriorityQueue[T]) PopBlocking() (T, bool) {
	for range spinCount {
		if q.stopped.Load() {
			var zero T
			return zero, false
		}
		if v, ok := q.TryPop(); ok {
			return v, true
		}
		runtime.Gosched()
	}

	bo := boff.New(q.pollFloor(), q.waitSleep, time.Now().UnixNano())
	for {
		if q.stopped.Load() {
			var zero T
			return zero, false
		}
		if v, ok := q.TryPop(); ok {
			return v, true
		}
		time.Sleep(bo.Next())
	}
}

// RequestStop stops the queue and every lane.
func (q *PriorityQueue[T]) RequestStop() {
	if !q.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, lane := range q.lanes {
		lane.RequestStop()
	}
}

func (q *PriorityQueue[T]) Stopped() bool { return q.stopped.Load() }

func (q *PriorityQueue[T]) Lanes() int { return len(q.lanes) }

// LaneLen returns the approximate length of lane i.
func (q *PriorityQueue[T]) LaneLen(i int) int { return q.lanes[i].Len() }

// PendingAbove reports whether any lane higher than lane holds an item.
func (q *PriorityQueue[T]) PendingAbove(lane int) bool {
	for _, l := range q.lanes[:min(lane, len(q.lanes))] {
		if l.Len() > 0 {
			return true
		}
	}
	return false
}

func (q *PriorityQueue[T]) Len() int {
	n := 0
	for _, lane := range q.lanes {
		n += lane.Len()
	}
	return n
}
