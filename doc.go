// Package workerpool provides real-time task dispatch: pools of workers,
// each bound to its own OS thread, that execute opaque fire-and-forget
// tasks.
//
// # Design goals
//
// The package is designed around the following principles:
//
//   - Keep wake-up and dispatch latency low and predictable
//   - Avoid locks on hot paths
//   - Give the caller control over CPU placement and scheduling class
//   - Never lose or duplicate a task while the pool runs
//
// # Architecture overview
//
// A pool is composed of three loosely coupled layers:
//
//  1. Queueing (Queue, PriorityQueue)
//     A bounded multi-producer, multi-consumer queue. The plain queue
//     comes in two variants with identical semantics: a lock-free ring
//     (LockFreeMPMC) and a mutex guarded one (LockingMPMC). The priority
//     queue is a set of plain lanes scanned highest first.
//
//  2. Execution (Worker)
//     Each worker locks its goroutine to an OS thread, applies its CPU
//     mask and real-time priority, then pops and runs tasks until the
//     queue is stopped.
//
//  3. Control (PriorityPool, ThrottledPool)
//     Lifecycle, the quiescence barrier WaitPendingTasks, and for the
//     throttled pool per-worker sleep and wake.
//
// # Ordering
//
// A plain queue is FIFO per producer. A priority pool serves a lane only
// while every higher lane is empty, so sustained high priority load
// starves the lower lanes; that is the intended behaviour.
//
// # Stopping
//
// Stop deactivates the queue: pushes are refused and workers exit as soon
// as they finish the task they hold. Tasks still queued are discarded.
// Call WaitPendingTasks first to drain the pool.
//
// # Error handling
//
// Configuration errors are returned by the constructors as *ConfigError,
// and no worker is left running. Panics inside tasks are recovered,
// logged and reported through Options.OnTaskPanic; the worker carries on.
// Misuse that the pool survives, such as Stop from inside a worker, is
// reported through Options.OnInternalError.
//
// # CPU pinning
//
// CPU masks and SCHED_FIFO priorities are only supported on Linux. On
// other platforms a pool configured with either fails to start with
// ErrAffinityUnsupported.
package workerpool
