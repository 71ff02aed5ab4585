package workerpool_test

import (
	"math/rand/v2"
	"os"
	"runtime"
	"slices"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	wp "github.com/azargarov/rtworkerpool"
)

func getenvInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// percentile expects sorted samples.
func percentile(samples []int64, q float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	return time.Duration(samples[int(float64(len(samples)-1)*q)])
}

// latencyLog records push-to-run latencies of up to n tasks.
type latencyLog struct {
	samples   []int64
	idx       atomic.Int64
	executed  atomic.Int64
	submitted atomic.Int64
}

func newLatencyLog(n int) *latencyLog {
	return &latencyLog{samples: make([]int64, n)}
}

func (l *latencyLog) task(start time.Time) wp.Task {
	return func() {
		if i := l.idx.Add(1) - 1; i < int64(len(l.samples)) {
			l.samples[i] = time.Since(start).Nanoseconds()
		}
		l.executed.Add(1)
	}
}

// throttle keeps at most max tasks in flight so latencies measure dispatch
// rather than queue build-up.
func (l *latencyLog) throttle(max int64) {
	for l.submitted.Load()-l.executed.Load() > max {
		runtime.Gosched()
	}
}

func (l *latencyLog) report(b *testing.B, name string, samples []int64) {
	if len(samples) == 0 {
		return
	}
	slices.Sort(samples)
	b.Logf("%s: count=%d p50=%v p90=%v p99=%v", name, len(samples),
		percentile(samples, 0.50), percentile(samples, 0.90), percentile(samples, 0.99))
}

func BenchmarkThrottledPool_Latency(b *testing.B) {
	workers := getenvInt("WORKERS", runtime.GOMAXPROCS(0))

	for _, policy := range queuePolicies {
		b.Run(policy.String(), func(b *testing.B) {
			opts := newThrottledOptions(workers, policy)
			opts.Queue.Size = 4096
			pool := newThrottledPool(b, &wp.NoopMetrics{}, opts)
			log := newLatencyLog(b.N)

			b.ResetTimer()
			start := time.Now()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					log.throttle(int64(workers * 32))
					if !pool.PushBlocking(log.task(time.Now())) {
						panic("push rejected")
					}
					log.submitted.Add(1)
				}
			})
			waitUntil(b, 10*time.Second, func() bool {
				return log.executed.Load() == log.submitted.Load()
			})
			elapsed := time.Since(start)

			samples := log.samples[:min(int(log.idx.Load()), len(log.samples))]
			if len(samples) == 0 {
				b.Fatal("no latencies recorded")
			}
			slices.Sort(samples)

			b.ReportMetric(float64(log.executed.Load())/elapsed.Seconds()/1e6, "Mtasks/sec")
			b.ReportMetric(float64(percentile(samples, 0.50).Nanoseconds()), "p50_ns")
			b.ReportMetric(float64(percentile(samples, 0.90).Nanoseconds()), "p90_ns")
			b.ReportMetric(float64(percentile(samples, 0.99).Nanoseconds()), "p99_ns")
		})
	}
}

// BenchmarkPriorityPool_LaneLatency reports per-lane latency under a skewed
// mix: 10% high, 30% medium, 60% low priority.
func BenchmarkPriorityPool_LaneLatency(b *testing.B) {
	workers := getenvInt("WORKERS", runtime.GOMAXPROCS(0))
	const lanes = 3

	opts := newPriorityOptions(workers, lanes, wp.LockFreeMPMC)
	pool := newPriorityPool(b, &wp.NoopMetrics{}, opts)

	var (
		log   = newLatencyLog(b.N)
		prios = make([]wp.Priority, b.N)
	)
	task := func(prio wp.Priority, start time.Time) wp.Task {
		return func() {
			if i := log.idx.Add(1) - 1; i < int64(len(log.samples)) {
				log.samples[i] = time.Since(start).Nanoseconds()
				prios[i] = prio
			}
			log.executed.Add(1)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			log.throttle(int64(workers * 32))

			var prio wp.Priority
			switch x := rand.Float64(); {
			case x < 0.1:
				prio = 0
			case x < 0.4:
				prio = 1
			default:
				prio = 2
			}
			if !pool.PushBlocking(prio, task(prio, time.Now())) {
				panic("push rejected")
			}
			log.submitted.Add(1)
		}
	})
	waitUntil(b, 10*time.Second, func() bool {
		return log.executed.Load() == log.submitted.Load()
	})
	b.StopTimer()

	total := min(int(log.idx.Load()), len(log.samples))
	byLane := make([][]int64, lanes)
	for i := range total {
		l := prios[i].Lane(lanes)
		byLane[l] = append(byLane[l], log.samples[i])
	}
	for l, samples := range byLane {
		log.report(b, "lane "+strconv.Itoa(l), samples)
	}
}
