//go:build !linux

package workerpool

import (
	"bytes"
	"runtime"
	"strconv"
)

func pinCurrentThread(CPUMask) error { return ErrAffinityUnsupported }

func setCurrentThreadPriority(prio RealtimePriority) error {
	if !prio.IsRealtime() {
		return nil
	}
	return ErrAffinityUnsupported
}

// currentThreadID falls back to the goroutine id. Workers are locked to
// their threads, so the two identify the same worker.
func currentThreadID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(field, ' '); i > 0 {
		field = field[:i]
	}
	id, err := strconv.ParseInt(string(field), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

func CurrentAffinity() (CPUMask, error) { return CPUMask{}, ErrAffinityUnsupported }
