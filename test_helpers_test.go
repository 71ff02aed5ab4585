package workerpool_test

import (
	"runtime"
	"testing"
	"time"

	wp "github.com/azargarov/rtworkerpool"
)

var queuePolicies = []wp.QueuePolicy{wp.LockFreeMPMC, wp.LockingMPMC}

var (
	emptyWork = func() {}

	cpuWork = func() {
		x := 0
		for i := range 1000 {
			x += i * i
		}
		_ = x
	}
)

func newThrottledOptions(workers int, policy wp.QueuePolicy) wp.Options {
	return wp.Options{
		Name:    "throttled",
		Workers: workers,
		Queue:   wp.QueueParams{Policy: policy, Size: 256},
	}
}

func newPriorityOptions(workers, lanes int, policy wp.QueuePolicy) wp.Options {
	opts := wp.Options{
		Name:          "priority",
		Workers:       workers,
		WaitSleepTime: 20 * time.Microsecond,
	}
	for range lanes {
		opts.Lanes = append(opts.Lanes, wp.QueueParams{Policy: policy, Size: 256})
	}
	return opts
}

func newThrottledPool[M wp.MetricsPolicy](t testing.TB, m M, opts wp.Options) *wp.ThrottledPool[M] {
	t.Helper()

	p, err := wp.NewThrottledPool(m, opts)
	if err != nil {
		t.Fatalf("NewThrottledPool: %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

func newPriorityPool[M wp.MetricsPolicy](t testing.TB, m M, opts wp.Options) *wp.PriorityPool[M] {
	t.Helper()

	p, err := wp.NewPriorityPool(m, opts)
	if err != nil {
		t.Fatalf("NewPriorityPool: %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

func waitUntil(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
	}
	t.Fatal("condition not satisfied before timeout")
}

// returnsWithin runs fn and fails the test if it has not returned after d.
func returnsWithin(t testing.TB, d time.Duration, what string, fn func()) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not return within %v", what, d)
	}
}
