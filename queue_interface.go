package workerpool

import (
	"fmt"
	"strings"
)

// QueuePolicy selects the implementation behind a plain dispatch queue.
//
// Both policies have the same external semantics; they only differ in
// latency characteristics.
type QueuePolicy int

const (
	// LockFreeMPMC is a bounded lock-free ring. Producers and consumers
	// only take a lock when they have to park.
	LockFreeMPMC QueuePolicy = iota

	// LockingMPMC is a mutex and condition variable guarded ring.
	LockingMPMC
)

const DefaultQueueSize = 1024

func (qp QueuePolicy) String() string {
	switch qp {
	case LockFreeMPMC:
		return "lockfree"
	case LockingMPMC:
		return "locking"
	default:
		return "unknown"
	}
}

// ParseQueuePolicy parses the names produced by QueuePolicy.String.
func ParseQueuePolicy(s string) (QueuePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lockfree", "lockfree_mpmc", "lock-free":
		return LockFreeMPMC, nil
	case "locking", "locking_mpmc":
		return LockingMPMC, nil
	default:
		return 0, fmt.Errorf("queue: unknown policy %q", s)
	}
}

// QueueParams describes a queue or a priority lane.
type QueueParams struct {
	Policy QueuePolicy
	Size   int
}

// Queue is the multi-producer, multi-consumer container the pools
// dispatch from.
//
// Once RequestStop is called the queue is stopped for good: pushes are
// rejected and pops report false immediately, even if items remain.
type Queue[T any] interface {
	// PushBlocking inserts v, waiting for space while the queue is full.
	// It returns false iff the queue was stopped and v was not inserted.
	PushBlocking(v T) bool

	// TryPush inserts v without waiting.
	TryPush(v T) bool

	// PopBlocking waits for an item. A false result means the queue was
	// stopped and the consumer should exit.
	PopBlocking() (T, bool)

	// PopWait is PopBlocking with an extra exit condition: it also gives
	// up, without removing anything, once cancel reports true. cancel is
	// checked before every dequeue attempt and whenever the caller is
	// woken. A nil cancel never fires.
	PopWait(cancel func() bool) (T, bool)

	// TryPop removes an item without waiting.
	TryPop() (T, bool)

	// Interrupt wakes every blocked popper so it re-checks its cancel
	// condition.
	Interrupt()

	// RequestStop stops the queue and wakes every blocked caller.
	RequestStop()

	Stopped() bool
	Len() int
	Cap() int
}

// NewQueue builds a plain queue for the given parameters.
func NewQueue[T any](p QueueParams) Queue[T] {
	size := p.Size
	if size <= 0 {
		size = DefaultQueueSize
	}
	switch p.Policy {
	case LockingMPMC:
		return NewLockingQueue[T](size)
	default:
		return NewLockFreeQueue[T](size)
	}
}
