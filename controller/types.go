package controller

// Action represents a throttle decision.
type Action string

const (
	// ActionWake wakes one sleeping worker.
	ActionWake Action = "wake"

	// ActionSleep puts one awake worker to sleep.
	ActionSleep Action = "sleep"

	// ActionNone leaves the pool as it is.
	ActionNone Action = "none"
)

func (a Action) String() string {
	return string(a)
}

// Sample is what the controller observed on one tick.
type Sample struct {
	QueueLen int
	Active   int
	Workers  int

	// MeanWait and DepthTrend are zero when the pool records no telemetry.
	MeanWait   float64 // nanoseconds
	DepthTrend float64
}

// Decision is the result of evaluating the policy against a sample.
type Decision struct {
	Action Action

	// Index is the worker the action applies to, -1 for ActionNone.
	Index int

	// Reason is a human-readable explanation of the decision.
	Reason string
}
