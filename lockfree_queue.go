package workerpool

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// cachePad is used to prevent false sharing between hot fields.
type cachePad = cpu.CacheLinePad

// cell is a ring slot. Its sequence number tells producers and consumers
// whose turn it is.
type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// mpmcRing is a bounded multi-producer, multi-consumer ring in the style
// of Dmitry Vyukov's queue. It never blocks; callers decide what to do
// when it is full or empty.
type mpmcRing[T any] struct {
	_     cachePad
	tail  atomic.Uint64
	_     cachePad
	head  atomic.Uint64
	_     cachePad
	mask  uint64
	cells []cell[T]
}

func newMPMCRing[T any](capacity int) *mpmcRing[T] {
	size := nextPow2(capacity)
	if size < 2 {
		size = 2
	}
	r := &mpmcRing[T]{
		mask:  uint64(size - 1),
		cells: make([]cell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

func (r *mpmcRing[T]) enqueue(v T) bool {
	for {
		tail := r.tail.Load()
		c := &r.cells[tail&r.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(tail)

		switch {
		case dif == 0:
			if r.tail.CompareAndSwap(tail, tail+1) {
				c.data = v
				c.sequence.Store(tail + 1)
				return true
			}
		case dif < 0:
			return false
		}
	}
}

func (r *mpmcRing[T]) dequeue() (T, bool) {
	for {
		head := r.head.Load()
		c := &r.cells[head&r.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(head+1)

		switch {
		case dif == 0:
			if r.head.CompareAndSwap(head, head+1) {
				v := c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + r.mask + 1)
				return v, true
			}
		case dif < 0:
			var zero T
			return zero, false
		}
	}
}

// len is approximate under concurrent access.
func (r *mpmcRing[T]) len() int {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// LockFreeQueue is the LockFreeMPMC policy: a lock-free bounded ring
// with blocking push and pop layered on top through parkers.
type LockFreeQueue[T any] struct {
	ring     *mpmcRing[T]
	stopped  atomic.Bool
	notEmpty parker
	notFull  parker
}

// NewLockFreeQueue creates a queue holding at least capacity items.
// The capacity is rounded up to a power of two.
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	q := &LockFreeQueue[T]{ring: newMPMCRing[T](capacity)}
	q.notEmpty.init()
	q.notFull.init()
	return q
}

func (q *LockFreeQueue[T]) TryPush(v T) bool {
	if q.stopped.Load() {
		return false
	}
	if !q.ring.enqueue(v) {
		return false
	}
	q.notEmpty.wake()
	return true
}

func (q *LockFreeQueue[T]) PushBlocking(v T) bool {
	for range spinCount {
		if q.stopped.Load() {
			return false
		}
		if q.ring.enqueue(v) {
			q.notEmpty.wake()
			return true
		}
		runtime.Gosched()
	}

	pushed := false
	q.notFull.park(func() bool {
		if q.stopped.Load() {
			return true
		}
		pushed = q.ring.enqueue(v)
		return pushed
	})
	if pushed {
		q.notEmpty.wake()
	}
	return pushed
}

func (q *LockFreeQueue[T]) TryPop() (T, bool) {
	if q.stopped.Load() {
		var zero T
		return zero, false
	}
	v, ok := q.ring.dequeue()
	if ok {
		q.notFull.wake()
	}
	return v, ok
}

func (q *LockFreeQueue[T]) PopBlocking() (T, bool) { return q.PopWait(nil) }

func (q *LockFreeQueue[T]) PopWait(cancel func() bool) (T, bool) {
	var zero T
	for range spinCount {
		if q.stopped.Load() || (cancel != nil && cancel()) {
			return zero, false
		}
		if v, ok := q.ring.dequeue(); ok {
			q.notFull.wake()
			return v, true
		}
		runtime.Gosched()
	}

	var (
		v         T
		ok        bool
		cancelled bool
	)
	q.notEmpty.park(func() bool {
		if q.stopped.Load() {
			return true
		}
		if cancel != nil && cancel() {
			cancelled = true
			return true
		}
		v, ok = q.ring.dequeue()
		return ok
	})
	switch {
	case ok:
		q.notFull.wake()
	case cancelled:
		// The wake-up that got us here may have been meant for an item;
		// hand it on to another consumer.
		q.notEmpty.wake()
	}
	return v, ok
}

func (q *LockFreeQueue[T]) Interrupt() { q.notEmpty.wakeAll() }

func (q *LockFreeQueue[T]) RequestStop() {
	if !q.stopped.CompareAndSwap(false, true) {
		return
	}
	q.notEmpty.wakeAll()
	q.notFull.wakeAll()
}

func (q *LockFreeQueue[T]) Stopped() bool { return q.stopped.Load() }
func (q *LockFreeQueue[T]) Len() int      { return q.ring.len() }
func (q *LockFreeQueue[T]) Cap() int      { return len(q.ring.cells) }
