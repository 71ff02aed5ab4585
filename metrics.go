package workerpool

import (
	"sync/atomic"
)

// MetricsPolicy defines hooks used by the worker pool to report
// queueing, execution and throttling activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking.
type MetricsPolicy interface {
	// IncQueued increments the queued tasks counter.
	IncQueued()

	// BatchDecQueued decrements the queued counter by n, when tasks are
	// dequeued or discarded at stop.
	BatchDecQueued(n int64)

	// IncExecuted increments the executed tasks counter.
	IncExecuted()

	// IncRejected counts pushes the pool refused, because it was stopping
	// or, for a non-blocking push, because the queue was full.
	IncRejected()

	// IncPanicked counts tasks that panicked.
	IncPanicked()

	// SetWorkerActive reports the throttle state of a worker.
	SetWorkerActive(index int, active bool)
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	// executed is the total number of tasks run.
	executed atomic.Uint64

	_ [56]byte // padding to avoid false sharing

	// queued is the current number of queued tasks.
	queued atomic.Int64

	_ [56]byte

	rejected atomic.Uint64
	panicked atomic.Uint64
	active   atomic.Int64
}

func (m *AtomicMetrics) Executed() uint64 { return m.executed.Load() }
func (m *AtomicMetrics) Queued() int64    { return m.queued.Load() }
func (m *AtomicMetrics) Rejected() uint64 { return m.rejected.Load() }
func (m *AtomicMetrics) Panicked() uint64 { return m.panicked.Load() }

// Active returns the number of awake workers. Pools report every worker
// that starts awake once and then only actual throttle transitions.
func (m *AtomicMetrics) Active() int64 { return m.active.Load() }

func (m *AtomicMetrics) IncExecuted()           { m.executed.Add(1) }
func (m *AtomicMetrics) IncQueued()             { m.queued.Add(1) }
func (m *AtomicMetrics) BatchDecQueued(n int64) { m.queued.Add(-n) }
func (m *AtomicMetrics) IncRejected()           { m.rejected.Add(1) }
func (m *AtomicMetrics) IncPanicked()           { m.panicked.Add(1) }

func (m *AtomicMetrics) SetWorkerActive(_ int, active bool) {
	if active {
		m.active.Add(1)
	} else {
		m.active.Add(-1)
	}
}

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncExecuted()              {}
func (m *NoopMetrics) IncQueued()                {}
func (m *NoopMetrics) BatchDecQueued(int64)      {}
func (m *NoopMetrics) IncRejected()              {}
func (m *NoopMetrics) IncPanicked()              {}
func (m *NoopMetrics) SetWorkerActive(int, bool) {}
