package controller

import (
	"context"
	"sync"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"

	wp "github.com/azargarov/rtworkerpool"
)

const defaultInterval = 100 * time.Millisecond

// Target is the part of a throttled pool the controller drives.
type Target interface {
	NofWorkers() int
	QueueLen() int
	IsWorkerActive(i int) bool
	ThreadForceSleep(i int)
	ThreadForceWake(i int)
}

var _ Target = (*wp.ThrottledPool[*wp.NoopMetrics])(nil)

// Controller periodically samples a Target and applies the decisions of
// a Policy to it.
type Controller struct {
	mu       sync.Mutex
	target   Target
	policy   *Policy
	recorder *wp.Recorder
	interval time.Duration
	handlers []func(Decision)
	cancel   context.CancelFunc
	stopped  bool
}

// New creates a Controller for target. recorder may be nil; without it
// decisions rely on the queue length alone.
func New(target Target, policy *Policy, recorder *wp.Recorder, interval time.Duration) *Controller {
	if policy == nil {
		policy = NewPolicy()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Controller{
		target:   target,
		policy:   policy,
		recorder: recorder,
		interval: interval,
	}
}

// OnDecision registers a callback that is invoked for every applied
// decision. Multiple handlers may be registered.
func (c *Controller) OnDecision(handler func(Decision)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Sample reads the current state of the target.
func (c *Controller) Sample() Sample {
	s := Sample{
		QueueLen: c.target.QueueLen(),
		Workers:  c.target.NofWorkers(),
	}
	for i := range s.Workers {
		if c.target.IsWorkerActive(i) {
			s.Active++
		}
	}
	if c.recorder != nil {
		st := c.recorder.Stats()
		s.MeanWait = float64(st.MeanWait)
		s.DepthTrend = st.DepthTrend
	}
	return s
}

// Step evaluates the policy once and applies the decision.
func (c *Controller) Step(ctx context.Context) Decision {
	d := c.policy.Evaluate(c.Sample())

	switch d.Action {
	case ActionWake:
		d.Index = c.pick(false)
	case ActionSleep:
		d.Index = c.pick(true)
	}
	if d.Index < 0 {
		d.Action = ActionNone
		return d
	}

	if d.Action == ActionWake {
		c.target.ThreadForceWake(d.Index)
	} else {
		c.target.ThreadForceSleep(d.Index)
	}
	lg.FromContext(ctx).Info("Throttle decision",
		lg.String("action", d.Action.String()), lg.Int("worker", d.Index), lg.String("reason", d.Reason))

	c.mu.Lock()
	handlers := make([]func(Decision), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()
	for _, h := range handlers {
		h(d)
	}
	return d
}

// pick returns the highest awake worker when active is set, or the lowest
// sleeping one otherwise, so workers are woken and put to sleep in a
// stable order. It returns -1 when there is none.
func (c *Controller) pick(active bool) int {
	n := c.target.NofWorkers()
	if active {
		for i := n - 1; i >= 0; i-- {
			if c.target.IsWorkerActive(i) {
				return i
			}
		}
		return -1
	}
	for i := range n {
		if !c.target.IsWorkerActive(i) {
			return i
		}
	}
	return -1
}

// Run evaluates the policy on every tick. It blocks until the context is
// cancelled or Stop is called, and returns at once after an earlier Stop.
func (c *Controller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.cancel = cancel
	c.mu.Unlock()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Step(ctx)
		}
	}
}

// Stop cancels a running Run and keeps later calls to Run from starting.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
