package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Evaluate(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		sample Sample
		want   Action
	}{
		{
			name:   "deep queue wakes a worker",
			opts:   []Option{WithDepthHigh(10)},
			sample: Sample{QueueLen: 11, Active: 1, Workers: 4},
			want:   ActionWake,
		},
		{
			name:   "deep queue with every worker awake",
			opts:   []Option{WithDepthHigh(10)},
			sample: Sample{QueueLen: 100, Active: 4, Workers: 4},
			want:   ActionNone,
		},
		{
			name:   "max active caps wake",
			opts:   []Option{WithDepthHigh(10), WithMaxActive(2)},
			sample: Sample{QueueLen: 100, Active: 2, Workers: 4},
			want:   ActionNone,
		},
		{
			name:   "long wait wakes a worker",
			opts:   []Option{WithWaitHigh(time.Millisecond)},
			sample: Sample{QueueLen: 5, Active: 1, Workers: 4, MeanWait: float64(2 * time.Millisecond)},
			want:   ActionWake,
		},
		{
			name:   "short queue puts a worker to sleep",
			opts:   []Option{WithDepthLow(4)},
			sample: Sample{QueueLen: 2, Active: 3, Workers: 4},
			want:   ActionSleep,
		},
		{
			name:   "growing queue keeps workers awake",
			opts:   []Option{WithDepthLow(4)},
			sample: Sample{QueueLen: 2, Active: 3, Workers: 4, DepthTrend: 0.5},
			want:   ActionNone,
		},
		{
			name:   "min active is respected",
			opts:   []Option{WithMinActive(2)},
			sample: Sample{QueueLen: 0, Active: 2, Workers: 4},
			want:   ActionNone,
		},
		{
			name:   "between thresholds",
			opts:   []Option{WithDepthLow(4), WithDepthHigh(10)},
			sample: Sample{QueueLen: 7, Active: 2, Workers: 4},
			want:   ActionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(tt.opts...)
			d := p.Evaluate(tt.sample)
			assert.Equal(t, tt.want, d.Action)
			assert.Equal(t, -1, d.Index)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestPolicy_Cooldown(t *testing.T) {
	p := NewPolicy(WithDepthHigh(1), WithCooldown(time.Hour))
	s := Sample{QueueLen: 10, Active: 1, Workers: 4}

	assert.Equal(t, ActionWake, p.Evaluate(s).Action)

	d := p.Evaluate(s)
	assert.Equal(t, ActionNone, d.Action)
	assert.Contains(t, d.Reason, "cooldown")
}

func TestPolicy_NoCooldownAfterNone(t *testing.T) {
	p := NewPolicy(WithDepthHigh(10), WithCooldown(time.Hour))

	assert.Equal(t, ActionNone, p.Evaluate(Sample{QueueLen: 5, Active: 1, Workers: 4}).Action)
	assert.Equal(t, ActionWake, p.Evaluate(Sample{QueueLen: 50, Active: 1, Workers: 4}).Action)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "wake", ActionWake.String())
	assert.Equal(t, "sleep", ActionSleep.String())
	assert.Equal(t, "none", ActionNone.String())
}
