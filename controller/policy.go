package controller

import (
	"fmt"
	"sync"
	"time"
)

// Default policy values.
const (
	defaultMinActive = 1
	defaultDepthHigh = 64
	defaultDepthLow  = 4
	defaultCooldown  = 500 * time.Millisecond
)

// Option configures a Policy.
type Option func(*Policy)

// WithMinActive sets the number of workers that are never put to sleep.
func WithMinActive(n int) Option {
	return func(p *Policy) { p.minActive = n }
}

// WithMaxActive caps the number of awake workers. Zero means all of them.
func WithMaxActive(n int) Option {
	return func(p *Policy) { p.maxActive = n }
}

// WithDepthHigh sets the queue length above which a worker is woken.
func WithDepthHigh(n int) Option {
	return func(p *Policy) { p.depthHigh = n }
}

// WithDepthLow sets the queue length at or below which a worker may be
// put to sleep.
func WithDepthLow(n int) Option {
	return func(p *Policy) { p.depthLow = n }
}

// WithWaitHigh wakes a worker when the mean queue wait exceeds d.
// Zero disables the check.
func WithWaitHigh(d time.Duration) Option {
	return func(p *Policy) { p.waitHigh = d }
}

// WithCooldown sets the minimum time between two throttle changes.
func WithCooldown(d time.Duration) Option {
	return func(p *Policy) { p.cooldown = d }
}

// Policy decides when to wake or put workers to sleep.
// It is safe for concurrent use.
type Policy struct {
	mu         sync.Mutex
	minActive  int
	maxActive  int
	depthHigh  int
	depthLow   int
	waitHigh   time.Duration
	cooldown   time.Duration
	lastChange time.Time
}

// NewPolicy creates a Policy with the given options.
// Unset options use defaults.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		minActive: defaultMinActive,
		depthHigh: defaultDepthHigh,
		depthLow:  defaultDepthLow,
		cooldown:  defaultCooldown,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Evaluate inspects a sample and returns a decision with Index -1; the
// controller picks the worker. The cooldown keeps the pool from flapping.
func (p *Policy) Evaluate(s Sample) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if !p.lastChange.IsZero() && now.Sub(p.lastChange) < p.cooldown {
		return Decision{Action: ActionNone, Index: -1, Reason: "cooldown period active"}
	}

	maxActive := s.Workers
	if p.maxActive > 0 && p.maxActive < maxActive {
		maxActive = p.maxActive
	}

	if s.Active < maxActive {
		switch {
		case s.QueueLen > p.depthHigh:
			p.lastChange = now
			return Decision{
				Action: ActionWake,
				Index:  -1,
				Reason: fmt.Sprintf("%d queued tasks with %d awake workers (threshold: %d)", s.QueueLen, s.Active, p.depthHigh),
			}
		case p.waitHigh > 0 && s.MeanWait > float64(p.waitHigh):
			p.lastChange = now
			return Decision{
				Action: ActionWake,
				Index:  -1,
				Reason: fmt.Sprintf("mean queue wait %v above %v", time.Duration(s.MeanWait), p.waitHigh),
			}
		}
	}

	if s.QueueLen <= p.depthLow && s.DepthTrend <= 0 && s.Active > p.minActive {
		p.lastChange = now
		return Decision{
			Action: ActionSleep,
			Index:  -1,
			Reason: fmt.Sprintf("%d queued tasks with %d awake workers (threshold: %d)", s.QueueLen, s.Active, p.depthLow),
		}
	}

	return Decision{Action: ActionNone, Index: -1, Reason: "no change needed"}
}
