package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wp "github.com/azargarov/rtworkerpool"
)

const sampleYAML = `
pools:
  - name: dl
    kind: priority
    nof_workers: 2
    priority: max-1
    cpu_masks: ["0-1"]
    wait_sleep_time: 20us
    lanes:
      - {policy: lockfree, size: 512}
      - {policy: locking, size: 128}
  - name: ul
    nof_workers: 4
    initial_active: 2
    telemetry_depth: 16
    queue: {policy: locking, size: 256}
controller:
  enabled: true
  pool: ul
  depth_high: 32
metrics:
  listen: "127.0.0.1:9100"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rtpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Pools, 2)
	dl, ok := cfg.Pool("dl")
	require.True(t, ok)
	assert.Equal(t, 2, dl.Workers)
	assert.Equal(t, 20*time.Microsecond, dl.WaitSleepTime)
	assert.Len(t, dl.Lanes, 2)

	// defaults fill what the file leaves out
	assert.Equal(t, 100*time.Millisecond, cfg.Controller.Interval)
	assert.Equal(t, 32, cfg.Controller.DepthHigh)
	assert.Equal(t, 4, cfg.Controller.DepthLow)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Listen)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RTPOOL_METRICS_LISTEN", ":9999")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Metrics.Listen)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Pools)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestPoolConfig_Options(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	dl, _ := cfg.Pool("dl")
	opts, err := dl.Options()
	require.NoError(t, err)
	assert.Equal(t, "dl", opts.Name)
	assert.Equal(t, wp.MaxRealtime.Below(1), opts.Priority)
	require.Len(t, opts.CPUMasks, 1)
	assert.Equal(t, "0-1", opts.CPUMasks[0].String())
	require.Len(t, opts.Lanes, 2)
	assert.Equal(t, wp.QueueParams{Policy: wp.LockingMPMC, Size: 128}, opts.Lanes[1])
	require.NoError(t, opts.Validate(wp.PriorityKind))

	ul, _ := cfg.Pool("ul")
	opts, err = ul.Options()
	require.NoError(t, err)
	assert.Equal(t, wp.QueueParams{Policy: wp.LockingMPMC, Size: 256}, opts.Queue)
	assert.Equal(t, 2, opts.InitialActive)
	assert.Equal(t, 16, opts.TelemetryDepth)
	kind, err := ul.PoolKind()
	require.NoError(t, err)
	assert.Equal(t, wp.ThrottledKind, kind)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "zero workers",
			mutate: func(c *Config) { c.Pools[0].Workers = 0 },
			fields: []string{"pools[0].nof_workers"},
		},
		{
			name:   "mask count",
			mutate: func(c *Config) { c.Pools[0].CPUMasks = []string{"0", "1", "2"} },
			fields: []string{"pools[0].cpu_masks"},
		},
		{
			name:   "bad mask",
			mutate: func(c *Config) { c.Pools[0].CPUMasks = []string{"3-1"} },
			fields: []string{"pools[0].cpu_masks[0]"},
		},
		{
			name:   "single lane",
			mutate: func(c *Config) { c.Pools[1].Lanes = c.Pools[1].Lanes[:1] },
			fields: []string{"pools[1].lanes"},
		},
		{
			name:   "bad policy and priority",
			mutate: func(c *Config) { c.Pools[0].Queue.Policy = "spin"; c.Pools[0].Priority = "high" },
			fields: []string{"pools[0].priority", "pools[0].queue.policy"},
		},
		{
			name:   "duplicate name",
			mutate: func(c *Config) { c.Pools[1].Name = "ul" },
			fields: []string{"pools[1].name"},
		},
		{
			name:   "controller on a priority pool",
			mutate: func(c *Config) { c.Controller.Pool = "dl" },
			fields: []string{"controller.pool"},
		},
		{
			name:   "watermarks",
			mutate: func(c *Config) { c.Controller.DepthLow = c.Controller.DepthHigh },
			fields: []string{"controller.depth_low"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Pools = []PoolConfig{
				{Name: "ul", Workers: 2},
				{Name: "dl", Kind: "priority", Workers: 2, Lanes: []QueueConfig{{}, {}}},
			}
			cfg.Controller.Enabled = true
			cfg.Controller.Pool = "ul"
			tc.mutate(cfg)

			var got []string
			for _, e := range cfg.Validate() {
				got = append(got, e.Field)
			}
			assert.ElementsMatch(t, tc.fields, got)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "", errs.Error())

	errs = ValidationErrors{{Field: "pools[0].nof_workers", Value: 0, Message: "must be greater than 0"}}
	assert.Equal(t, "pools[0].nof_workers: must be greater than 0 (got: 0)", errs.Error())

	errs = append(errs, ValidationError{Field: "metrics.path", Value: "x", Message: "must start with /"})
	assert.Contains(t, errs.Error(), "2 validation errors")
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "pools:\n  - name: bad\n    nof_workers: 0\n"))
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "pools[0].nof_workers", verrs[0].Field)
}
