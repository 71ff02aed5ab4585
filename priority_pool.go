package workerpool

import (
	lg "github.com/Andrej220/go-utils/zlog"
)

// PriorityPool dispatches tasks in strict priority order: a worker only
// takes a task from a lane when every higher lane is empty. Within a lane
// tasks are dequeued in FIFO order.
type PriorityPool[M MetricsPolicy] struct {
	*basePool[M]
	queue *PriorityQueue[job]
}

// NewPriorityPool builds and starts a priority pool with one lane per
// entry of opts.Lanes, highest first. At least two lanes are required.
func NewPriorityPool[M MetricsPolicy](m M, opts Options) (*PriorityPool[M], error) {
	base, err := newBasePool(m, opts, PriorityKind)
	if err != nil {
		return nil, err
	}
	p := &PriorityPool[M]{
		basePool: base,
		queue:    NewPriorityQueue[job](base.opts.Lanes, base.opts.WaitSleepTime),
	}
	base.stopQueue = p.queue.RequestStop
	base.queueLen = p.queue.Len

	if err := base.start(p.popLoop); err != nil {
		return nil, err
	}
	lg.FromContext(base.opts.Ctx).Info("Priority pool started",
		lg.String("pool", base.opts.Name),
		lg.Int("workers", base.opts.Workers),
		lg.Int("lanes", p.queue.Lanes()),
		lg.String("wait_sleep", base.opts.WaitSleepTime.String()))
	return p, nil
}

func (p *PriorityPool[M]) popLoop(c *workerControl) {
	lowest := p.queue.Lanes() - 1
	for {
		j, ok := p.queue.PopBlocking()
		if !ok {
			return
		}
		// A scan can pass a higher lane just before an item lands there.
		// A sync task must not overtake it, so it goes back to the end.
		if j.sync != nil && p.queue.PendingAbove(lowest) && p.queue.TryPush(PriorityMin, j) {
			continue
		}
		p.execute(c, j)
	}
}

// PushBlocking queues t on the lane of prio, waiting while that lane is
// full. It returns false iff the pool is stopping.
func (p *PriorityPool[M]) PushBlocking(prio Priority, t Task) bool {
	return p.submit(t, func(j job) bool { return p.queue.PushBlocking(prio, j) })
}

// TryPush queues t on the lane of prio unless it is full or the pool is
// stopping.
func (p *PriorityPool[M]) TryPush(prio Priority, t Task) bool {
	return p.submit(t, func(j job) bool { return p.queue.TryPush(prio, j) })
}

// WaitPendingTasks blocks until every task pushed before the call has
// completed. Sync tasks go to the lowest lane, so tasks pushed to higher
// lanes meanwhile are served first.
//
// It must not be called from one of the pool's own workers.
func (p *PriorityPool[M]) WaitPendingTasks() {
	p.waitPending(func(j job) bool { return p.queue.PushBlocking(PriorityMin, j) }, false)
}

// Stop deactivates every lane and joins every worker. Queued tasks that
// no worker picked up are discarded. Stop is idempotent.
func (p *PriorityPool[M]) Stop() { p.stop() }

func (p *PriorityPool[M]) Lanes() int { return p.queue.Lanes() }

// LaneLen is the approximate number of items queued on lane i.
func (p *PriorityPool[M]) LaneLen(i int) int { return p.queue.LaneLen(i) }

// Executor returns a TaskExecutor pushing to the lane of prio.
func (p *PriorityPool[M]) Executor(prio Priority) *Executor {
	return newExecutor(p.IsInThreadPool, func(t Task) bool { return p.PushBlocking(prio, t) })
}
