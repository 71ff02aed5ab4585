package workerpool

import (
	"sync"
	"time"
)

// DefaultWindowSize is the number of samples kept by the rolling windows
// of a Recorder.
const DefaultWindowSize = 100

// Window is a fixed-size rolling window of samples. It is not safe for
// concurrent use.
type Window struct {
	samples []int64
	next    int
	n       int
	sum     int64
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{samples: make([]int64, size)}
}

// Add records v, evicting the oldest sample once the window is full.
func (w *Window) Add(v int64) {
	if w.n == len(w.samples) {
		w.sum -= w.samples[w.next]
	} else {
		w.n++
	}
	w.samples[w.next] = v
	w.sum += v
	w.next = (w.next + 1) % len(w.samples)
}

func (w *Window) Len() int   { return w.n }
func (w *Window) Sum() int64 { return w.sum }

func (w *Window) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	return float64(w.sum) / float64(w.n)
}

// Values returns the samples, oldest first.
func (w *Window) Values() []int64 {
	out := make([]int64, 0, w.n)
	start := (w.next - w.n + len(w.samples)) % len(w.samples)
	for i := range w.n {
		out = append(out, w.samples[(start+i)%len(w.samples)])
	}
	return out
}

// Trend is the mean of the newer half of the window minus the mean of
// the older half. A positive trend means the values are growing.
func (w *Window) Trend() float64 {
	if w.n < 2 {
		return 0
	}
	vals := w.Values()
	half := len(vals) / 2
	var older, newer int64
	for _, v := range vals[:half] {
		older += v
	}
	for _, v := range vals[half:] {
		newer += v
	}
	return float64(newer)/float64(len(vals)-half) - float64(older)/float64(half)
}

type workerTelemetry struct {
	mu   sync.Mutex
	ring []TaskTimes
	next int
	n    int

	wait     *Window
	exec     *Window
	interval *Window
	depth    *Window

	lastDequeue int64

	_ cachePad
}

// Recorder collects task timestamps per worker. Each worker writes only
// to its own slot, so recording never contends across workers. Readers
// may run concurrently with the pool.
type Recorder struct {
	workers []workerTelemetry
}

// NewRecorder keeps the last depth TaskTimes per worker and rolling
// windows of window samples.
func NewRecorder(workers, depth, window int) *Recorder {
	r := &Recorder{workers: make([]workerTelemetry, workers)}
	for i := range r.workers {
		w := &r.workers[i]
		w.ring = make([]TaskTimes, depth)
		w.wait = NewWindow(window)
		w.exec = NewWindow(window)
		w.interval = NewWindow(window)
		w.depth = NewWindow(window)
	}
	return r
}

// Record stores the timestamps of a task run by worker index along with
// the queue length seen when it completed.
func (r *Recorder) Record(index int, t TaskTimes, queueLen int) {
	w := &r.workers[index]
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.ring) > 0 {
		w.ring[w.next] = t
		w.next = (w.next + 1) % len(w.ring)
		if w.n < len(w.ring) {
			w.n++
		}
	}
	w.wait.Add(int64(t.Wait()))
	w.exec.Add(int64(t.Exec()))
	if w.lastDequeue != 0 && t.Dequeued > w.lastDequeue {
		w.interval.Add(t.Dequeued - w.lastDequeue)
	}
	if t.Dequeued != 0 {
		w.lastDequeue = t.Dequeued
	}
	w.depth.Add(int64(queueLen))
}

// Recent returns the recorded TaskTimes of worker index, oldest first.
func (r *Recorder) Recent(index int) []TaskTimes {
	w := &r.workers[index]
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]TaskTimes, 0, w.n)
	start := (w.next - w.n + len(w.ring)) % max(len(w.ring), 1)
	for i := range w.n {
		out = append(out, w.ring[(start+i)%len(w.ring)])
	}
	return out
}

// Stats summarises the rolling windows.
type Stats struct {
	Samples      int
	MeanWait     time.Duration
	MeanExec     time.Duration
	MeanInterval time.Duration
	MeanDepth    float64

	// DepthTrend is positive while the queue keeps growing.
	DepthTrend float64
}

// WorkerStats summarises the windows of one worker.
func (r *Recorder) WorkerStats(index int) Stats {
	w := &r.workers[index]
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Samples:      w.exec.Len(),
		MeanWait:     time.Duration(w.wait.Mean()),
		MeanExec:     time.Duration(w.exec.Mean()),
		MeanInterval: time.Duration(w.interval.Mean()),
		MeanDepth:    w.depth.Mean(),
		DepthTrend:   w.depth.Trend(),
	}
}

// Stats summarises the windows of every worker, weighting each worker by
// its number of samples.
func (r *Recorder) Stats() Stats {
	var (
		s                           Stats
		wait, exec, interval, depth int64
		nIntervals, nDepth          int
		trend                       float64
		trendWorkers                int
	)
	for i := range r.workers {
		w := &r.workers[i]
		w.mu.Lock()
		s.Samples += w.exec.Len()
		wait += w.wait.Sum()
		exec += w.exec.Sum()
		interval += w.interval.Sum()
		nIntervals += w.interval.Len()
		depth += w.depth.Sum()
		nDepth += w.depth.Len()
		if w.depth.Len() >= 2 {
			trend += w.depth.Trend()
			trendWorkers++
		}
		w.mu.Unlock()
	}
	if s.Samples > 0 {
		s.MeanWait = time.Duration(wait / int64(s.Samples))
		s.MeanExec = time.Duration(exec / int64(s.Samples))
	}
	if nIntervals > 0 {
		s.MeanInterval = time.Duration(interval / int64(nIntervals))
	}
	if nDepth > 0 {
		s.MeanDepth = float64(depth) / float64(nDepth)
	}
	if trendWorkers > 0 {
		s.DepthTrend = trend / float64(trendWorkers)
	}
	return s
}
