package workerpool

import (
	"context"
	"fmt"
	"time"
)

// PoolKind tells Validate which pool the options are meant for.
type PoolKind int

const (
	ThrottledKind PoolKind = iota
	PriorityKind
)

func (k PoolKind) String() string {
	switch k {
	case ThrottledKind:
		return "throttled"
	case PriorityKind:
		return "priority"
	default:
		return "unknown"
	}
}

// Options configure a worker pool.
//
// Zero values are replaced with defaults in FillDefaults. Workers is the
// exception: zero workers is a configuration error.
type Options struct {
	// Name prefixes worker names ("<name>#<i>") and log lines.
	Name string

	Workers int

	// Queue configures the plain queue of a throttled pool.
	Queue QueueParams

	// Lanes configures the lanes of a priority pool, highest first.
	Lanes []QueueParams

	// WaitSleepTime bounds the polling back-off of a priority queue.
	WaitSleepTime time.Duration

	// Priority is the real-time class requested for every worker thread.
	Priority RealtimePriority

	// CPUMasks holds either no mask, one mask shared by every worker,
	// or exactly one mask per worker.
	CPUMasks []CPUMask

	// InitialActive is the number of workers of a throttled pool that
	// start awake. Zero means all of them.
	InitialActive int

	// TelemetryDepth is the per-worker depth of the instrumentation rings.
	// Zero disables instrumentation.
	TelemetryDepth int

	// Ctx carries the logger; see zlog.FromContext.
	Ctx context.Context

	// OnWorkerStart observes the index each worker claims when it enters
	// its pop loop.
	OnWorkerStart func(index int, name string)

	OnTaskPanic     func(*TaskPanicError)
	OnInternalError func(error)
}

func (o *Options) FillDefaults() {
	if o.Name == "" {
		o.Name = "pool"
	}
	if o.Queue.Size <= 0 {
		o.Queue.Size = DefaultQueueSize
	}
	for i := range o.Lanes {
		if o.Lanes[i].Size <= 0 {
			o.Lanes[i].Size = DefaultQueueSize
		}
	}
	if o.WaitSleepTime <= 0 {
		o.WaitSleepTime = DefaultWaitSleepTime
	}
	if o.InitialActive <= 0 || o.InitialActive > o.Workers {
		o.InitialActive = o.Workers
	}
	if o.Ctx == nil {
		o.Ctx = context.Background()
	}
}

// Validate reports the first fatal configuration error.
func (o *Options) Validate(kind PoolKind) error {
	if o.Workers <= 0 {
		return &ConfigError{Pool: o.Name, Field: "workers", Err: ErrNoWorkers}
	}
	if n := len(o.CPUMasks); n > 1 && n != o.Workers {
		return &ConfigError{Pool: o.Name, Field: "cpu_masks", Err: ErrCPUMaskCount}
	}
	for i := range o.CPUMasks {
		if o.CPUMasks[i].Empty() {
			return &ConfigError{Pool: o.Name, Field: fmt.Sprintf("cpu_masks[%d]", i), Err: ErrEmptyCPUMask}
		}
	}
	if kind == PriorityKind && len(o.Lanes) < 2 {
		return &ConfigError{Pool: o.Name, Field: "lanes", Err: ErrLaneCount}
	}
	return nil
}

// maskFor returns the CPU mask of worker i, or nil when none is set.
func (o *Options) maskFor(i int) *CPUMask {
	switch len(o.CPUMasks) {
	case 0:
		return nil
	case 1:
		return &o.CPUMasks[0]
	default:
		return &o.CPUMasks[i]
	}
}
