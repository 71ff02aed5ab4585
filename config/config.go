// Package config loads worker pool and controller settings with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	wp "github.com/azargarov/rtworkerpool"
)

// EnvPrefix prefixes environment overrides, e.g. RTPOOL_METRICS_LISTEN.
const EnvPrefix = "RTPOOL"

// Config is the complete configuration of a set of pools.
type Config struct {
	Pools      []PoolConfig     `mapstructure:"pools"`
	Controller ControllerConfig `mapstructure:"controller"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// QueueConfig describes a plain queue or a priority lane.
type QueueConfig struct {
	// Policy is "lockfree" or "locking"
	Policy string `mapstructure:"policy"`
	Size   int    `mapstructure:"size"`
}

// PoolConfig describes one pool.
type PoolConfig struct {
	Name string `mapstructure:"name"`
	// Kind is "throttled" or "priority"
	Kind    string `mapstructure:"kind"`
	Workers int    `mapstructure:"nof_workers"`

	// Queue is used by throttled pools, Lanes by priority pools.
	Queue QueueConfig   `mapstructure:"queue"`
	Lanes []QueueConfig `mapstructure:"lanes"`

	WaitSleepTime time.Duration `mapstructure:"wait_sleep_time"`

	// Priority accepts "none", "min", "max", "max-N" or a number in [0, 99].
	Priority string `mapstructure:"priority"`

	// CPUMasks are cpulists such as "0-3,6": none, one for every worker,
	// or one per worker.
	CPUMasks []string `mapstructure:"cpu_masks"`

	InitialActive  int `mapstructure:"initial_active"`
	TelemetryDepth int `mapstructure:"telemetry_depth"`
}

// ControllerConfig drives the load controller of a throttled pool.
type ControllerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Pool      string        `mapstructure:"pool"`
	Interval  time.Duration `mapstructure:"interval"`
	MinActive int           `mapstructure:"min_active"`
	MaxActive int           `mapstructure:"max_active"`
	DepthHigh int           `mapstructure:"depth_high"`
	DepthLow  int           `mapstructure:"depth_low"`
	WaitHigh  time.Duration `mapstructure:"wait_high"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Controller: ControllerConfig{
			Interval:  100 * time.Millisecond,
			MinActive: 1,
			DepthHigh: 64,
			DepthLow:  4,
			WaitHigh:  time.Millisecond,
			Cooldown:  500 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9464",
			Path:    "/metrics",
		},
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("controller.enabled", defaults.Controller.Enabled)
	v.SetDefault("controller.interval", defaults.Controller.Interval)
	v.SetDefault("controller.min_active", defaults.Controller.MinActive)
	v.SetDefault("controller.max_active", defaults.Controller.MaxActive)
	v.SetDefault("controller.depth_high", defaults.Controller.DepthHigh)
	v.SetDefault("controller.depth_low", defaults.Controller.DepthLow)
	v.SetDefault("controller.wait_high", defaults.Controller.WaitHigh)
	v.SetDefault("controller.cooldown", defaults.Controller.Cooldown)

	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.listen", defaults.Metrics.Listen)
	v.SetDefault("metrics.path", defaults.Metrics.Path)
}

// New returns a viper instance with defaults and environment overrides
// set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the file at path, applies defaults and environment overrides
// and validates the result. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// Pool returns the pool called name.
func (c *Config) Pool(name string) (PoolConfig, bool) {
	for _, p := range c.Pools {
		if p.Name == name {
			return p, true
		}
	}
	return PoolConfig{}, false
}

// PoolKind maps Kind onto the workerpool kinds. An empty kind is a
// throttled pool.
func (p *PoolConfig) PoolKind() (wp.PoolKind, error) {
	switch strings.ToLower(p.Kind) {
	case "", "throttled":
		return wp.ThrottledKind, nil
	case "priority":
		return wp.PriorityKind, nil
	default:
		return 0, fmt.Errorf("unknown pool kind %q", p.Kind)
	}
}

// Options converts the pool configuration to workerpool options.
func (p *PoolConfig) Options() (wp.Options, error) {
	opts := wp.Options{
		Name:           p.Name,
		Workers:        p.Workers,
		WaitSleepTime:  p.WaitSleepTime,
		InitialActive:  p.InitialActive,
		TelemetryDepth: p.TelemetryDepth,
	}

	var err error
	if opts.Queue, err = p.Queue.params(); err != nil {
		return wp.Options{}, fmt.Errorf("queue: %w", err)
	}
	for i, l := range p.Lanes {
		lp, err := l.params()
		if err != nil {
			return wp.Options{}, fmt.Errorf("lanes[%d]: %w", i, err)
		}
		opts.Lanes = append(opts.Lanes, lp)
	}
	if opts.Priority, err = wp.ParseRealtimePriority(p.Priority); err != nil {
		return wp.Options{}, err
	}
	for i, s := range p.CPUMasks {
		m, err := wp.ParseCPUMask(s)
		if err != nil {
			return wp.Options{}, fmt.Errorf("cpu_masks[%d]: %w", i, err)
		}
		opts.CPUMasks = append(opts.CPUMasks, m)
	}
	return opts, nil
}

func (q QueueConfig) params() (wp.QueueParams, error) {
	policy, err := wp.ParseQueuePolicy(q.Policy)
	if err != nil {
		return wp.QueueParams{}, err
	}
	return wp.QueueParams{Policy: policy, Size: q.Size}, nil
}
