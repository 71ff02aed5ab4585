//go:build linux

package workerpool

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// pinCurrentThread restricts the calling OS thread to the CPUs of mask.
// The caller must have locked its goroutine to the thread.
func pinCurrentThread(mask CPUMask) error {
	var set unix.CPUSet
	set.Zero()
	for _, c := range mask.CPUs() {
		set.Set(c)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("sched_setaffinity(%s): %w", mask, err)
	}
	return nil
}

// setCurrentThreadPriority moves the calling OS thread to SCHED_FIFO
// with the given priority.
func setCurrentThreadPriority(prio RealtimePriority) error {
	if !prio.IsRealtime() {
		return nil
	}
	attr := unix.SchedAttr{
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(prio),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("sched_setattr(SCHED_FIFO, %d): %w", prio, err)
	}
	return nil
}

// currentThreadID identifies the calling OS thread.
func currentThreadID() int64 {
	return int64(unix.Gettid())
}

// CurrentAffinity returns the CPUs the calling thread may run on.
func CurrentAffinity() (CPUMask, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return CPUMask{}, err
	}
	var m CPUMask
	for c := 0; c < MaxCPUs; c++ {
		if set.IsSet(c) {
			m.Set(c)
		}
	}
	return m, nil
}
