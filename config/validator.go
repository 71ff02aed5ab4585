package config

import (
	"fmt"
	"strings"

	wp "github.com/azargarov/rtworkerpool"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pools[0].nof_workers")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	seen := map[string]bool{}
	for i := range c.Pools {
		p := &c.Pools[i]
		prefix := fmt.Sprintf("pools[%d]", i)
		if p.Name == "" {
			errors = append(errors, ValidationError{Field: prefix + ".name", Value: p.Name, Message: "must not be empty"})
		} else if seen[p.Name] {
			errors = append(errors, ValidationError{Field: prefix + ".name", Value: p.Name, Message: "duplicate pool name"})
		}
		seen[p.Name] = true
		errors = append(errors, p.validate(prefix)...)
	}

	errors = append(errors, c.validateController()...)
	errors = append(errors, c.validateMetrics()...)
	return errors
}

func (p *PoolConfig) validate(prefix string) []ValidationError {
	var errors []ValidationError

	kind, err := p.PoolKind()
	if err != nil {
		errors = append(errors, ValidationError{Field: prefix + ".kind", Value: p.Kind, Message: "must be throttled or priority"})
	}
	if p.Workers <= 0 {
		errors = append(errors, ValidationError{Field: prefix + ".nof_workers", Value: p.Workers, Message: "must be greater than 0"})
	}
	if n := len(p.CPUMasks); n > 1 && n != p.Workers {
		errors = append(errors, ValidationError{Field: prefix + ".cpu_masks", Value: n, Message: "must hold 0, 1 or nof_workers masks"})
	}
	for i, s := range p.CPUMasks {
		if _, err := wp.ParseCPUMask(s); err != nil {
			errors = append(errors, ValidationError{Field: fmt.Sprintf("%s.cpu_masks[%d]", prefix, i), Value: s, Message: err.Error()})
		}
	}
	if _, err := wp.ParseRealtimePriority(p.Priority); err != nil {
		errors = append(errors, ValidationError{Field: prefix + ".priority", Value: p.Priority, Message: err.Error()})
	}
	if p.WaitSleepTime < 0 {
		errors = append(errors, ValidationError{Field: prefix + ".wait_sleep_time", Value: p.WaitSleepTime, Message: "must not be negative"})
	}
	if p.InitialActive < 0 || p.InitialActive > p.Workers {
		errors = append(errors, ValidationError{Field: prefix + ".initial_active", Value: p.InitialActive, Message: "must be in [0, nof_workers]"})
	}
	if p.TelemetryDepth < 0 {
		errors = append(errors, ValidationError{Field: prefix + ".telemetry_depth", Value: p.TelemetryDepth, Message: "must not be negative"})
	}

	errors = append(errors, p.Queue.validate(prefix+".queue")...)
	if kind == wp.PriorityKind && err == nil && len(p.Lanes) < 2 {
		errors = append(errors, ValidationError{Field: prefix + ".lanes", Value: len(p.Lanes), Message: "a priority pool needs at least 2 lanes"})
	}
	for i, l := range p.Lanes {
		errors = append(errors, l.validate(fmt.Sprintf("%s.lanes[%d]", prefix, i))...)
	}
	return errors
}

func (q QueueConfig) validate(field string) []ValidationError {
	var errors []ValidationError
	if _, err := wp.ParseQueuePolicy(q.Policy); err != nil {
		errors = append(errors, ValidationError{Field: field + ".policy", Value: q.Policy, Message: "must be lockfree or locking"})
	}
	if q.Size < 0 {
		errors = append(errors, ValidationError{Field: field + ".size", Value: q.Size, Message: "must not be negative"})
	}
	return errors
}

func (c *Config) validateController() []ValidationError {
	var errors []ValidationError
	ctl := c.Controller
	if !ctl.Enabled {
		return nil
	}

	p, ok := c.Pool(ctl.Pool)
	if !ok {
		errors = append(errors, ValidationError{Field: "controller.pool", Value: ctl.Pool, Message: "must name a configured pool"})
	} else if kind, err := p.PoolKind(); err == nil && kind != wp.ThrottledKind {
		errors = append(errors, ValidationError{Field: "controller.pool", Value: ctl.Pool, Message: "must name a throttled pool"})
	}
	if ctl.Interval <= 0 {
		errors = append(errors, ValidationError{Field: "controller.interval", Value: ctl.Interval, Message: "must be positive"})
	}
	if ctl.MinActive < 1 {
		errors = append(errors, ValidationError{Field: "controller.min_active", Value: ctl.MinActive, Message: "must be at least 1"})
	}
	if ctl.MaxActive != 0 && ctl.MaxActive < ctl.MinActive {
		errors = append(errors, ValidationError{Field: "controller.max_active", Value: ctl.MaxActive, Message: "must be 0 or at least min_active"})
	}
	if ctl.DepthLow >= ctl.DepthHigh {
		errors = append(errors, ValidationError{Field: "controller.depth_low", Value: ctl.DepthLow, Message: "must be below depth_high"})
	}
	return errors
}

func (c *Config) validateMetrics() []ValidationError {
	var errors []ValidationError
	if !c.Metrics.Enabled {
		return nil
	}
	if c.Metrics.Listen == "" {
		errors = append(errors, ValidationError{Field: "metrics.listen", Value: c.Metrics.Listen, Message: "must not be empty"})
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		errors = append(errors, ValidationError{Field: "metrics.path", Value: c.Metrics.Path, Message: "must start with /"})
	}
	return errors
}
