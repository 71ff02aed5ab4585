package workerpool

// reportInternalError reports an internal pool error.
//
// Internal errors are non-task failures such as a stop requested from
// inside the pool. If no handler is registered, the error is only logged.
func (p *basePool[M]) reportInternalError(e error) {
	if p.opts.OnInternalError != nil {
		p.opts.OnInternalError(e)
	}
}

// reportTaskPanic reports a panic recovered from a task.
//
// Task panics do not stop the worker; it carries on with its pop loop.
func (p *basePool[M]) reportTaskPanic(e *TaskPanicError) {
	if p.opts.OnTaskPanic != nil {
		p.opts.OnTaskPanic(e)
	}
}
