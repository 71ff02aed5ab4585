// Package controller adjusts the number of awake workers of a throttled
// pool to its load.
//
// A Controller samples the pool on a fixed interval: queue length, awake
// workers and, when the pool records telemetry, the mean queue wait and
// the depth trend. A Policy turns each sample into a Decision to wake one
// worker, put one to sleep, or do nothing. At most one worker changes
// state per decision, and a cooldown separates consecutive changes.
package controller
