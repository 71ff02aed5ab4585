// Package prommetrics exports worker pool activity to Prometheus.
package prommetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	wp "github.com/azargarov/rtworkerpool"
)

const namespace = "rtpool"

// Collectors holds the metric vectors shared by every pool reporting to
// one registry. Each pool gets its own label values through ForPool.
type Collectors struct {
	queued   *prometheus.GaugeVec   // By pool
	executed *prometheus.CounterVec // By pool
	rejected *prometheus.CounterVec // By pool
	panics   *prometheus.CounterVec // By pool
	active   *prometheus.GaugeVec   // By pool and worker (1 awake, 0 asleep)
}

// NewCollectors creates the vectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		queued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_queued",
			Help:      "Tasks waiting in the pool queue",
		}, []string{"pool"}),

		executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_executed_total",
			Help:      "Tasks run by the pool workers",
		}, []string{"pool"}),

		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_rejected_total",
			Help:      "Pushes refused by the pool",
		}, []string{"pool"}),

		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_panics_total",
			Help:      "Tasks that panicked",
		}, []string{"pool"}),

		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_active",
			Help:      "Throttle state of each worker, 1 when awake",
		}, []string{"pool", "worker"}),
	}

	for _, col := range []prometheus.Collector{c.queued, c.executed, c.rejected, c.panics, c.active} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ForPool returns the MetricsPolicy of the named pool.
func (c *Collectors) ForPool(pool string) *PoolMetrics {
	return &PoolMetrics{
		pool:     pool,
		active:   c.active,
		queued:   c.queued.WithLabelValues(pool),
		executed: c.executed.WithLabelValues(pool),
		rejected: c.rejected.WithLabelValues(pool),
		panics:   c.panics.WithLabelValues(pool),
	}
}

// PoolMetrics implements workerpool.MetricsPolicy on Prometheus
// collectors. The per-pool children are resolved once, so the hot path
// does no label lookups.
type PoolMetrics struct {
	pool     string
	active   *prometheus.GaugeVec
	queued   prometheus.Gauge
	executed prometheus.Counter
	rejected prometheus.Counter
	panics   prometheus.Counter
}

var _ wp.MetricsPolicy = (*PoolMetrics)(nil)

func (m *PoolMetrics) IncQueued()             { m.queued.Inc() }
func (m *PoolMetrics) BatchDecQueued(n int64) { m.queued.Sub(float64(n)) }
func (m *PoolMetrics) IncExecuted()           { m.executed.Inc() }
func (m *PoolMetrics) IncRejected()           { m.rejected.Inc() }
func (m *PoolMetrics) IncPanicked()           { m.panics.Inc() }

// SetWorkerActive is called on throttle transitions only, so the label
// lookup stays off the task path.
func (m *PoolMetrics) SetWorkerActive(index int, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	m.active.WithLabelValues(m.pool, strconv.Itoa(index)).Set(v)
}
