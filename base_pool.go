package workerpool

import (
	"fmt"
	"sync"
	"sync/atomic"

	lg "github.com/Andrej220/go-utils/zlog"
)

// basePool holds what the priority and throttled pools share: the
// workers, their control blocks, the lifecycle and the task execution
// boundary. The concrete pool owns the queue and hands basePool the
// functions to stop and measure it.
type basePool[M MetricsPolicy] struct {
	opts    Options
	metrics M

	workers   []*Worker
	ctl       []workerControl
	nextIndex atomic.Int32

	// pending counts queued user tasks, sync tasks excluded.
	pending atomic.Int64

	state    stateCell
	barriers barrierSet
	// barrierMu runs WaitPendingTasks calls one at a time. Two barriers
	// in flight could each hold part of the workers and neither complete.
	barrierMu sync.Mutex
	stopOnce  sync.Once
	telemetry *Recorder

	stopQueue func()
	queueLen  func() int
}

func newBasePool[M MetricsPolicy](m M, opts Options, kind PoolKind) (*basePool[M], error) {
	opts.FillDefaults()
	if err := opts.Validate(kind); err != nil {
		lg.FromContext(opts.Ctx).Error("invalid pool configuration",
			lg.String("pool", opts.Name), lg.String("kind", kind.String()), lg.Any("error", err))
		return nil, err
	}

	p := &basePool[M]{
		opts:    opts,
		metrics: m,
		ctl:     make([]workerControl, opts.Workers),
	}
	for i := range p.ctl {
		active := kind == PriorityKind || i < opts.InitialActive
		p.ctl[i].init(i, active)
		if active {
			m.SetWorkerActive(i, true)
		}
	}
	if opts.TelemetryDepth > 0 {
		p.telemetry = NewRecorder(opts.Workers, opts.TelemetryDepth, DefaultWindowSize)
	}
	return p, nil
}

// start creates and starts every worker. Each worker runs loop with the
// control block it claims. On failure the already started workers are
// stopped and joined before the error is returned.
func (p *basePool[M]) start(loop func(c *workerControl)) error {
	p.workers = make([]*Worker, p.opts.Workers)
	for i := range p.workers {
		name := fmt.Sprintf("%s#%d", p.opts.Name, i)
		p.workers[i] = newWorker(name, p.opts.Priority, p.opts.maskFor(i), func() {
			loop(p.claim(name))
		})
	}

	for _, w := range p.workers {
		if err := w.start(); err != nil {
			p.stopQueue()
			p.wakeThrottled()
			for _, started := range p.workers {
				started.Join()
			}
			cerr := &ConfigError{
				Pool:  p.opts.Name,
				Field: "workers",
				Err:   fmt.Errorf("%w: %s: %w", ErrWorkerStart, w.Name(), err),
			}
			lg.FromContext(p.opts.Ctx).Error("worker setup failed",
				lg.String("worker", w.Name()), lg.Any("error", err))
			return cerr
		}
	}

	p.state.advance(StateCreated, StateRunning)
	return nil
}

// claim hands the calling worker the next free control block.
func (p *basePool[M]) claim(name string) *workerControl {
	index := int(p.nextIndex.Add(1) - 1)
	c := &p.ctl[index]
	c.name = name

	lg.FromContext(p.opts.Ctx).Info("Task worker started",
		lg.String("worker", name), lg.Int("index", index), lg.Any("tid", currentThreadID()))
	if p.opts.OnWorkerStart != nil {
		p.opts.OnWorkerStart(index, name)
	}
	return c
}

// newJob wraps t, stamping the enqueue time when instrumentation is on.
func (p *basePool[M]) newJob(t Task) job {
	j := job{run: t}
	if p.telemetry != nil {
		j.enqueued = nanotime()
	}
	return j
}

// submit counts t as queued and hands it to push. The counters are
// rolled back when push refuses it.
func (p *basePool[M]) submit(t Task, push func(job) bool) bool {
	p.pending.Add(1)
	p.metrics.IncQueued()
	if push(p.newJob(t)) {
		return true
	}
	p.pending.Add(-1)
	p.metrics.BatchDecQueued(1)
	p.metrics.IncRejected()
	return false
}

// execute runs one dequeued job on the worker owning c.
func (p *basePool[M]) execute(c *workerControl, j job) {
	if j.sync != nil {
		j.sync.arrive(c.index)
		return
	}
	p.pending.Add(-1)
	p.metrics.BatchDecQueued(1)

	var t TaskTimes
	if p.telemetry != nil {
		t.Enqueued = j.enqueued
		t.Dequeued = nanotime()
	}

	p.runTask(c.index, j.run)
	c.completed.Add(1)
	p.metrics.IncExecuted()

	if p.telemetry != nil {
		t.Completed = nanotime()
		p.telemetry.Record(c.index, t, p.queueLen())
	}
}

// runTask is the task execution boundary: a panicking task is reported
// and the worker carries on.
func (p *basePool[M]) runTask(index int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.IncPanicked()
			lg.FromContext(p.opts.Ctx).Error("task panicked",
				lg.String("pool", p.opts.Name), lg.Int("worker", index), lg.Any("panic", r))
			p.reportTaskPanic(&TaskPanicError{Worker: index, Recovered: r})
		}
	}()
	t()
}

// waitPending runs the quiescence barrier. push queues one sync task
// behind everything already queued and reports whether it was taken.
// When throttled is set, workers parked on their throttle count as
// quiescent, see quiescent.
func (p *basePool[M]) waitPending(push func(job) bool, throttled bool) {
	p.barrierMu.Lock()
	defer p.barrierMu.Unlock()

	running := p.runningWorkers()
	if running == 0 {
		return
	}
	b := newBarrier(len(p.ctl), running)
	if !p.barriers.add(b) {
		return
	}
	defer p.barriers.remove(b)

	for range running {
		if !push(job{sync: b}) {
			b.skip()
		}
	}

	done := b.synced
	if throttled {
		done = func() bool { return b.synced() || p.quiescent(b) }
	}
	if !b.wait(done) {
		lg.FromContext(p.opts.Ctx).Info("WaitPendingTasks interrupted by stop",
			lg.String("pool", p.opts.Name))
	}
}

// quiescent reports whether every worker has either arrived at b or is
// parked on its throttle. It needs at least one arrival: a worker that
// dequeued a sync task proves everything queued before it was dequeued
// too, and a parked worker holds nothing.
func (p *basePool[M]) quiescent(b *barrier) bool {
	if b.nArrived == 0 {
		return false
	}
	for i := range p.ctl {
		if !b.arrived[i] && !p.ctl[i].parked.Load() {
			return false
		}
	}
	return true
}

func (p *basePool[M]) runningWorkers() int {
	n := 0
	for _, w := range p.workers {
		if w.Running() {
			n++
		}
	}
	return n
}

// requestStop deactivates the queue and releases everything that waits
// on the pool: pop loops, throttled workers and barriers.
func (p *basePool[M]) requestStop() {
	p.state.advance(StateRunning, StateStopping)
	p.stopQueue()
	if n := p.barriers.abortAll(); n > 0 {
		lg.FromContext(p.opts.Ctx).Info("Stop aborted pending barriers",
			lg.String("pool", p.opts.Name), lg.Int("barriers", n))
	}
	p.wakeThrottled()
}

// wakeThrottled releases workers parked on their throttle so they see
// the stopped queue and exit.
func (p *basePool[M]) wakeThrottled() {
	for i := range p.ctl {
		p.ctl[i].throttle.wakeAll()
	}
}

// stop requests a stop and joins every worker. Called from one of the
// pool's own workers it only requests the stop: joining would wait for
// the caller itself. The pool stays Stopping until a Stop from outside.
func (p *basePool[M]) stop() {
	if p.IsInThreadPool() {
		p.requestStop()
		err := fmt.Errorf("workerpool %q: Stop called from a worker, workers not joined", p.opts.Name)
		lg.FromContext(p.opts.Ctx).Error("Stop called from inside the pool", lg.String("pool", p.opts.Name))
		p.reportInternalError(err)
		return
	}

	p.stopOnce.Do(func() {
		p.requestStop()
		for _, w := range p.workers {
			w.Join()
			lg.FromContext(p.opts.Ctx).Info(fmt.Sprintf("Task worker %q finished.", w.Name()))
		}
		if n := p.pending.Swap(0); n > 0 {
			p.metrics.BatchDecQueued(n)
			lg.FromContext(p.opts.Ctx).Info("Discarded queued tasks on stop",
				lg.String("pool", p.opts.Name), lg.Any("tasks", n))
		}
		p.state.advance(StateStopping, StateStopped)
	})
}

// IsInThreadPool reports whether the caller runs on one of the pool's
// worker threads.
func (p *basePool[M]) IsInThreadPool() bool {
	tid := currentThreadID()
	for _, w := range p.workers {
		if w.onThread(tid) {
			return true
		}
	}
	return false
}

func (p *basePool[M]) NofWorkers() int { return len(p.ctl) }
func (p *basePool[M]) Name() string    { return p.opts.Name }
func (p *basePool[M]) State() State    { return p.state.load() }

// QueueLen is the approximate number of queued items.
func (p *basePool[M]) QueueLen() int { return p.queueLen() }

// Completed returns how many tasks the worker with control index i has run.
func (p *basePool[M]) Completed(i int) uint64 {
	p.checkIndex(i)
	return p.ctl[i].completed.Load()
}

// Telemetry returns the instrumentation recorder, nil when disabled.
func (p *basePool[M]) Telemetry() *Recorder { return p.telemetry }

func (p *basePool[M]) checkIndex(i int) {
	if i < 0 || i >= len(p.ctl) {
		panic(fmt.Errorf("%w: %d not in [0, %d)", ErrWorkerIndex, i, len(p.ctl)))
	}
}
