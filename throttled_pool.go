package workerpool

import (
	lg "github.com/Andrej220/go-utils/zlog"
)

// ThrottledPool is a FIFO pool whose workers can be put to sleep and woken
// one by one, so an external controller can match the number of busy
// threads to the load.
//
// A sleeping worker finishes the task it already holds and then waits on
// its own control block; it never takes another task until woken.
type ThrottledPool[M MetricsPolicy] struct {
	*basePool[M]
	queue Queue[job]
}

// NewThrottledPool builds and starts a throttled pool. The queue variant
// is selected by opts.Queue.Policy. Workers whose control index is at or
// above opts.InitialActive start asleep.
func NewThrottledPool[M MetricsPolicy](m M, opts Options) (*ThrottledPool[M], error) {
	base, err := newBasePool(m, opts, ThrottledKind)
	if err != nil {
		return nil, err
	}
	p := &ThrottledPool[M]{
		basePool: base,
		queue:    NewQueue[job](base.opts.Queue),
	}
	base.stopQueue = p.queue.RequestStop
	base.queueLen = p.queue.Len

	if err := base.start(p.popLoop); err != nil {
		return nil, err
	}
	lg.FromContext(base.opts.Ctx).Info("Throttled pool started",
		lg.String("pool", base.opts.Name),
		lg.Int("workers", base.opts.Workers),
		lg.Int("active", base.opts.InitialActive),
		lg.String("queue", base.opts.Queue.Policy.String()))
	return p, nil
}

func (p *ThrottledPool[M]) popLoop(c *workerControl) {
	stopped := p.queue.Stopped
	asleep := func() bool { return !c.active.Load() }
	for {
		if !c.waitActive(stopped, p.barriers.pokeAll) {
			return
		}
		c.enterPop()
		j, ok := p.queue.PopWait(asleep)
		c.leavePop()
		if !ok {
			if stopped() {
				return
			}
			continue
		}
		p.execute(c, j)
	}
}

// PushBlocking queues t, waiting while the queue is full. It returns false
// iff the pool is stopping; t is then dropped.
func (p *ThrottledPool[M]) PushBlocking(t Task) bool {
	return p.submit(t, p.queue.PushBlocking)
}

// TryPush queues t unless the queue is full or the pool is stopping.
func (p *ThrottledPool[M]) TryPush(t Task) bool {
	return p.submit(t, p.queue.TryPush)
}

// ThreadForceSleep puts worker i to sleep once it is done with its
// current task, if any. When it returns, the worker takes no task pushed
// after the call until it is woken. It is idempotent and panics when i
// is not a worker index.
func (p *ThrottledPool[M]) ThreadForceSleep(i int) {
	p.checkIndex(i)
	c := &p.ctl[i]
	if c.setActive(false) {
		p.metrics.SetWorkerActive(i, false)
		// get the worker out of a blocked pop and onto its control block
		p.queue.Interrupt()
	}
	c.awaitPop()
}

// ThreadForceWake wakes worker i. It is idempotent and panics when i is
// not a worker index.
func (p *ThrottledPool[M]) ThreadForceWake(i int) {
	p.checkIndex(i)
	if p.ctl[i].setActive(true) {
		p.metrics.SetWorkerActive(i, true)
	}
}

func (p *ThrottledPool[M]) IsWorkerActive(i int) bool {
	p.checkIndex(i)
	return p.ctl[i].active.Load()
}

// ActiveWorkers counts the workers that are not throttled.
func (p *ThrottledPool[M]) ActiveWorkers() int {
	n := 0
	for i := range p.ctl {
		if p.ctl[i].active.Load() {
			n++
		}
	}
	return n
}

// InitialActive is the number of workers the pool started awake.
func (p *ThrottledPool[M]) InitialActive() int { return p.opts.InitialActive }

// WaitPendingTasks blocks until every task pushed before the call has
// completed. Workers that are asleep do not take part; the call returns
// once every other worker has reached the barrier. If every worker is
// asleep it waits for one to be woken, or for Stop.
//
// It must not be called from one of the pool's own workers.
func (p *ThrottledPool[M]) WaitPendingTasks() {
	p.waitPending(p.queue.PushBlocking, true)
}

// Stop deactivates the queue and joins every worker. Queued tasks that
// no worker picked up are discarded. Stop is idempotent.
func (p *ThrottledPool[M]) Stop() { p.stop() }

// Executor returns a TaskExecutor pushing to this pool.
func (p *ThrottledPool[M]) Executor() *Executor {
	return newExecutor(p.IsInThreadPool, p.PushBlocking)
}
