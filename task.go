package workerpool

import (
	"time"
)

// Task is the unit of work executed by a pool. It takes no arguments
// and its outcome is not observed by the pool.
type Task func()

// TaskTimes carries the instrumentation timestamps of a single task,
// in unix nanoseconds. A zero field means the stamp was not recorded.
type TaskTimes struct {
	Enqueued  int64
	Dequeued  int64
	Completed int64
}

// Wait returns how long the task sat in the queue.
func (t TaskTimes) Wait() time.Duration {
	if t.Enqueued == 0 || t.Dequeued == 0 {
		return 0
	}
	return time.Duration(t.Dequeued - t.Enqueued)
}

// Exec returns how long the task ran.
func (t TaskTimes) Exec() time.Duration {
	if t.Dequeued == 0 || t.Completed == 0 {
		return 0
	}
	return time.Duration(t.Completed - t.Dequeued)
}

// job is what the queues actually carry. A job with a barrier is a sync
// task of WaitPendingTasks.
type job struct {
	run      Task
	enqueued int64
	sync     *barrier
}

func nanotime() int64 { return time.Now().UnixNano() }

// Priority selects a lane of a priority pool. Lower values are served first.
type Priority uint8

const (
	// PriorityMax is the highest priority lane.
	PriorityMax Priority = 0

	// PriorityMin always maps to the lowest lane, whatever the number of lanes.
	PriorityMin Priority = 0xFF
)

// Below returns the priority n levels below p.
func (p Priority) Below(n int) Priority {
	v := int(p) + n
	if v >= int(PriorityMin) {
		return PriorityMin
	}
	return Priority(v)
}

// Lane maps the priority onto one of nLanes lanes.
func (p Priority) Lane(nLanes int) int {
	if int(p) >= nLanes {
		return nLanes - 1
	}
	return int(p)
}
