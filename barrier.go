package workerpool

import "sync"

// barrier is the state of one WaitPendingTasks call. It lives only for
// the duration of that call.
//
// The caller pushes one sync task per running worker behind every task
// already queued. A worker that runs a sync task arrives at the barrier
// and stays there until the caller releases it, so it cannot pick up
// anything else in the meantime. The caller releases the barrier once the
// pool is quiescent, see quiescent.
type barrier struct {
	mu           sync.Mutex
	allSync      sync.Cond // participants wait here for the release
	callerReturn sync.Cond // the caller waits here

	notSync  int // running workers that have not synced yet
	callers  int // participants still inside the barrier
	arrived  []bool
	nArrived int

	released bool
	aborted  bool
}

func newBarrier(workers, running int) *barrier {
	b := &barrier{
		notSync: running,
		arrived: make([]bool, workers),
	}
	b.allSync.L = &b.mu
	b.callerReturn.L = &b.mu
	return b
}

// arrive is the body of a sync task run by the worker with the given
// control index. Sync tasks still queued after the release are no-ops.
func (b *barrier) arrive(index int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released || b.aborted {
		return
	}
	b.arrived[index] = true
	b.nArrived++
	b.notSync--
	b.callers++
	b.callerReturn.Signal()

	for !b.released && !b.aborted {
		b.allSync.Wait()
	}
	b.callers--
	if b.callers == 0 {
		b.callerReturn.Signal()
	}
}

// skip accounts for a sync task the queue refused: it counts as synced.
func (b *barrier) skip() {
	b.mu.Lock()
	b.notSync--
	b.callerReturn.Signal()
	b.mu.Unlock()
}

// wait blocks until quiescent reports true and every participant has left,
// or until the barrier is aborted. quiescent runs with b.mu held.
func (b *barrier) wait(quiescent func() bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.aborted {
		if !b.released && quiescent() {
			b.released = true
			b.allSync.Broadcast()
		}
		if b.released && b.callers == 0 {
			return true
		}
		b.callerReturn.Wait()
	}
	return false
}

// synced reports whether every running worker has arrived.
func (b *barrier) synced() bool { return b.notSync <= 0 }

func (b *barrier) abort() {
	b.mu.Lock()
	b.aborted = true
	b.allSync.Broadcast()
	b.callerReturn.Broadcast()
	b.mu.Unlock()
}

// poke makes the caller re-evaluate its condition.
func (b *barrier) poke() {
	b.mu.Lock()
	b.callerReturn.Signal()
	b.mu.Unlock()
}

// barrierSet tracks the barriers in progress on a pool.
type barrierSet struct {
	mu      sync.Mutex
	set     map[*barrier]struct{}
	aborted bool
}

// add registers b. It returns false when the pool is already stopping.
func (s *barrierSet) add(b *barrier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return false
	}
	if s.set == nil {
		s.set = make(map[*barrier]struct{})
	}
	s.set[b] = struct{}{}
	return true
}

func (s *barrierSet) remove(b *barrier) {
	s.mu.Lock()
	delete(s.set, b)
	s.mu.Unlock()
}

func (s *barrierSet) pokeAll() {
	s.mu.Lock()
	for b := range s.set {
		b.poke()
	}
	s.mu.Unlock()
}

// abortAll aborts the barriers in progress and every later one.
func (s *barrierSet) abortAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	for b := range s.set {
		b.abort()
	}
	return len(s.set)
}
