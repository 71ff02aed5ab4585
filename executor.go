package workerpool

// TaskExecutor is what code that schedules work depends on, so it does
// not care which pool, or which lane, runs its tasks.
type TaskExecutor interface {
	// Execute runs t. It may run t inline when the caller already is a
	// worker of the executor's pool.
	Execute(t Task) bool

	// Defer always queues t.
	Defer(t Task) bool
}

// Executor binds a pool, and for a priority pool a lane, to TaskExecutor.
type Executor struct {
	inPool func() bool
	push   func(Task) bool
}

var _ TaskExecutor = (*Executor)(nil)

func newExecutor(inPool func() bool, push func(Task) bool) *Executor {
	return &Executor{inPool: inPool, push: push}
}

func (e *Executor) Execute(t Task) bool {
	if e.inPool() {
		t()
		return true
	}
	return e.push(t)
}

func (e *Executor) Defer(t Task) bool { return e.push(t) }
