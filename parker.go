package workerpool

import (
	"sync"
	"sync/atomic"
)

// spinCount is how many times a blocking queue operation retries,
// yielding in between, before it parks.
const spinCount = 64

// parker is an event count used to put queue callers to sleep.
//
// A caller registers itself as a waiter before its last re-check, and
// notifiers only take the mutex when a waiter is registered, so the
// notify path stays lock-free while nobody sleeps.
type parker struct {
	waiters atomic.Int32
	mu      sync.Mutex
	cond    sync.Cond
}

func (p *parker) init() {
	p.cond.L = &p.mu
}

// park blocks until done reports true. done is evaluated with the
// parker's mutex held.
func (p *parker) park(done func() bool) {
	p.mu.Lock()
	p.waiters.Add(1)
	for !done() {
		p.cond.Wait()
	}
	p.waiters.Add(-1)
	p.mu.Unlock()
}

// wake releases one parked caller, if any.
func (p *parker) wake() {
	if p.waiters.Load() == 0 {
		return
	}
	p.mu.Lock()
	p.cond.Signal()
	p.mu.Unlock()
}

// wakeAll releases every parked caller.
func (p *parker) wakeAll() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}
