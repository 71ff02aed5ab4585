package workerpool

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// LockingQueue is the LockingMPMC policy: a bounded FIFO guarded by a
// single mutex, with condition variables for blocked producers and
// consumers.
type LockingQueue[T any] struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond
	items    *queue.Queue
	capacity int
	stopped  atomic.Bool
}

// NewLockingQueue creates a queue holding at most capacity items.
func NewLockingQueue[T any](capacity int) *LockingQueue[T] {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	q := &LockingQueue[T]{
		items:    queue.New(),
		capacity: capacity,
	}
	q.notEmpty.L = &q.mu
	q.notFull.L = &q.mu
	return q
}

func (q *LockingQueue[T]) TryPush(v T) bool {
	q.mu.Lock()
	if q.stopped.Load() || q.items.Length() >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.items.Add(v)
	q.mu.Unlock()
	q.notEmpty.Signal()
	return true
}

func (q *LockingQueue[T]) PushBlocking(v T) bool {
	q.mu.Lock()
	for !q.stopped.Load() && q.items.Length() >= q.capacity {
		q.notFull.Wait()
	}
	if q.stopped.Load() {
		q.mu.Unlock()
		return false
	}
	q.items.Add(v)
	q.mu.Unlock()
	q.notEmpty.Signal()
	return true
}

func (q *LockingQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	if q.stopped.Load() || q.items.Length() == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	v, _ := q.items.Remove().(T)
	q.mu.Unlock()
	q.notFull.Signal()
	return v, true
}

func (q *LockingQueue[T]) PopBlocking() (T, bool) { return q.PopWait(nil) }

func (q *LockingQueue[T]) PopWait(cancel func() bool) (T, bool) {
	var zero T
	q.mu.Lock()
	for {
		if q.stopped.Load() {
			q.mu.Unlock()
			return zero, false
		}
		if cancel != nil && cancel() {
			pending := q.items.Length() > 0
			q.mu.Unlock()
			if pending {
				q.notEmpty.Signal()
			}
			return zero, false
		}
		if q.items.Length() > 0 {
			break
		}
		q.notEmpty.Wait()
	}
	v, _ := q.items.Remove().(T)
	q.mu.Unlock()
	q.notFull.Signal()
	return v, true
}

func (q *LockingQueue[T]) Interrupt() {
	q.mu.Lock()
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}

func (q *LockingQueue[T]) RequestStop() {
	q.mu.Lock()
	q.stopped.Store(true)
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

func (q *LockingQueue[T]) Stopped() bool { return q.stopped.Load() }

func (q *LockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *LockingQueue[T]) Cap() int { return q.capacity }
