package workerpool

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWorkers is returned when a pool is configured with zero workers.
	ErrNoWorkers = errors.New("workerpool: number of workers must be greater than 0")

	// ErrCPUMaskCount is returned when the number of CPU masks is neither
	// 0, 1 nor the number of workers.
	ErrCPUMaskCount = errors.New("workerpool: wrong number of CPU masks")

	// ErrEmptyCPUMask is returned when a CPU mask selects no CPU.
	ErrEmptyCPUMask = errors.New("workerpool: empty CPU mask")

	// ErrLaneCount is returned when a priority pool has fewer than two lanes.
	ErrLaneCount = errors.New("workerpool: a priority pool needs at least 2 lanes")

	// ErrWorkerIndex is the panic value of a throttle call with an index
	// outside [0, N).
	ErrWorkerIndex = errors.New("workerpool: worker index out of range")

	// ErrWorkerStart is returned when a worker thread could not be given
	// its CPU affinity or scheduling priority.
	ErrWorkerStart = errors.New("workerpool: worker thread setup failed")
)

// ConfigError reports a fatal pool configuration error. Nothing is left
// running when a constructor returns one.
type ConfigError struct {
	Pool  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("workerpool %q: %s: %v", e.Pool, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TaskPanicError wraps a value recovered from a panicking task.
type TaskPanicError struct {
	Worker    int
	Recovered any
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("workerpool: task panicked on worker %d: %v", e.Worker, e.Recovered)
}
