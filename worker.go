package workerpool

import (
	"runtime"
	"sync/atomic"
)

// Worker is a task consumer bound to its own OS thread.
//
// The goroutine of a worker locks its thread and never unlocks it, so the
// thread exits together with the worker and its CPU affinity and
// scheduling class never leak to other goroutines.
type Worker struct {
	name string
	prio RealtimePriority
	mask *CPUMask
	run  func()

	tid     atomic.Int64
	started atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

func newWorker(name string, prio RealtimePriority, mask *CPUMask, run func()) *Worker {
	return &Worker{
		name: name,
		prio: prio,
		mask: mask,
		run:  run,
		done: make(chan struct{}),
	}
}

// start launches the worker and waits until its thread is set up. The
// returned error comes from applying the CPU mask or the priority; the
// worker has already exited when it is not nil.
func (w *Worker) start() error {
	ready := make(chan error, 1)
	w.started.Store(true)
	w.running.Store(true)
	go w.loop(ready)
	return <-ready
}

func (w *Worker) loop(ready chan<- error) {
	defer close(w.done)
	defer w.running.Store(false)

	runtime.LockOSThread()
	w.tid.Store(currentThreadID())

	if w.mask != nil {
		if err := pinCurrentThread(*w.mask); err != nil {
			ready <- err
			return
		}
	}
	if err := setCurrentThreadPriority(w.prio); err != nil {
		ready <- err
		return
	}
	ready <- nil

	w.run()
}

// Join blocks until the worker thread has exited. It returns at once for a
// worker that was never started.
func (w *Worker) Join() {
	if !w.started.Load() {
		return
	}
	<-w.done
}

func (w *Worker) Name() string    { return w.name }
func (w *Worker) Running() bool   { return w.running.Load() }
func (w *Worker) ThreadID() int64 { return w.tid.Load() }

// onThread reports whether the calling goroutine runs on this worker's thread.
func (w *Worker) onThread(tid int64) bool {
	return w.running.Load() && w.tid.Load() == tid
}
