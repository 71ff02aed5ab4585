package workerpool_test

import (
	"testing"
	"time"

	wp "github.com/azargarov/rtworkerpool"
)

func TestWindow(t *testing.T) {
	w := wp.NewWindow(4)
	if w.Mean() != 0 || w.Trend() != 0 {
		t.Fatal("empty window should report zeros")
	}

	for _, v := range []int64{1, 2, 3, 4, 5, 6} {
		w.Add(v)
	}
	if w.Len() != 4 {
		t.Fatalf("Len = %d; want 4", w.Len())
	}
	if w.Sum() != 18 {
		t.Fatalf("Sum = %d; want 18", w.Sum())
	}
	if w.Mean() != 4.5 {
		t.Fatalf("Mean = %v; want 4.5", w.Mean())
	}
	vals := w.Values()
	for i, want := range []int64{3, 4, 5, 6} {
		if vals[i] != want {
			t.Fatalf("Values = %v; want [3 4 5 6]", vals)
		}
	}
	if w.Trend() != 2 {
		t.Fatalf("Trend = %v; want 2", w.Trend())
	}
}

func TestRecorder(t *testing.T) {
	r := wp.NewRecorder(2, 3, 10)

	base := time.Now().UnixNano()
	for i := range 5 {
		start := base + int64(i)*int64(time.Millisecond)
		r.Record(0, wp.TaskTimes{
			Enqueued:  start,
			Dequeued:  start + int64(100*time.Microsecond),
			Completed: start + int64(300*time.Microsecond),
		}, 5-i)
	}

	recent := r.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("Recent returned %d entries; want 3", len(recent))
	}
	if recent[0].Enqueued != base+2*int64(time.Millisecond) {
		t.Fatal("Recent does not start with the oldest kept entry")
	}
	if len(r.Recent(1)) != 0 {
		t.Fatal("worker 1 has entries it never recorded")
	}

	s := r.Stats()
	if s.Samples != 5 {
		t.Fatalf("Samples = %d; want 5", s.Samples)
	}
	if s.MeanWait != 100*time.Microsecond {
		t.Fatalf("MeanWait = %v; want 100µs", s.MeanWait)
	}
	if s.MeanExec != 200*time.Microsecond {
		t.Fatalf("MeanExec = %v; want 200µs", s.MeanExec)
	}
	if s.MeanInterval != time.Millisecond {
		t.Fatalf("MeanInterval = %v; want 1ms", s.MeanInterval)
	}
	if s.DepthTrend >= 0 {
		t.Fatalf("DepthTrend = %v; want negative for a draining queue", s.DepthTrend)
	}
}
