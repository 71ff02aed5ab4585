package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	wp "github.com/azargarov/rtworkerpool"
	"github.com/azargarov/rtworkerpool/config"
	"github.com/azargarov/rtworkerpool/controller"
	"github.com/azargarov/rtworkerpool/prommetrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured pools under synthetic load",
	Long: `Start every configured pool, feed it synthetic tasks and, when enabled,
serve Prometheus metrics and run the load controller.

On SIGINT or SIGTERM the load stops, each pool drains its queue with
WaitPendingTasks and is then stopped.`,
	RunE: runRun,
}

var (
	runDuration time.Duration // zero runs until a signal
	runRate     int           // tasks per second per pool
	runWork     time.Duration // busy time of one task
)

func init() {
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "stop after this long (default: until interrupted)")
	runCmd.Flags().IntVar(&runRate, "rate", 1000, "tasks per second submitted to each pool")
	runCmd.Flags().DurationVar(&runWork, "work", 50*time.Microsecond, "CPU time spent by each task")
	rootCmd.AddCommand(runCmd)
}

// pool is what the run command needs from either pool kind.
type pool interface {
	Name() string
	WaitPendingTasks()
	Stop()
}

type loadTarget struct {
	pool   pool
	submit func(wp.Task) bool
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if len(cfg.Pools) == 0 {
		return errors.New("no pools configured")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if runDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, runDuration)
		defer stop()
	}
	logger := lg.FromContext(ctx)

	reg := prometheus.NewRegistry()
	collectors, err := prommetrics.NewCollectors(reg)
	if err != nil {
		return err
	}

	targets := make([]loadTarget, 0, len(cfg.Pools))
	defer func() {
		for _, t := range targets {
			t.pool.Stop()
		}
	}()

	var ctl *controller.Controller
	for _, pc := range cfg.Pools {
		t, c, err := startPool(ctx, pc, cfg.Controller, collectors)
		if err != nil {
			return fmt.Errorf("pool %q: %w", pc.Name, err)
		}
		targets = append(targets, t)
		if c != nil {
			ctl = c
		}
	}

	if cfg.Metrics.Enabled {
		srv := serveMetrics(ctx, cfg.Metrics, reg)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if ctl != nil {
		go ctl.Run(ctx)
		defer ctl.Stop()
	}

	for _, t := range targets {
		go generateLoad(ctx, t.submit)
	}

	logger.Info("Pools running", lg.Int("pools", len(targets)), lg.Int("rate", runRate))
	<-ctx.Done()

	for _, t := range targets {
		t.pool.WaitPendingTasks()
		t.pool.Stop()
		logger.Info("Pool stopped", lg.String("pool", t.pool.Name()))
	}
	targets = targets[:0]
	return nil
}

// startPool builds one pool and, if the controller is configured for it,
// its controller.
func startPool(ctx context.Context, pc config.PoolConfig, cc config.ControllerConfig, col *prommetrics.Collectors) (loadTarget, *controller.Controller, error) {
	opts, err := pc.Options()
	if err != nil {
		return loadTarget{}, nil, err
	}
	opts.Ctx = ctx
	kind, err := pc.PoolKind()
	if err != nil {
		return loadTarget{}, nil, err
	}

	metrics := col.ForPool(opts.Name)

	if kind == wp.PriorityKind {
		p, err := wp.NewPriorityPool(metrics, opts)
		if err != nil {
			return loadTarget{}, nil, err
		}
		lanes := p.Lanes()
		return loadTarget{
			pool: p,
			submit: func(t wp.Task) bool {
				return p.PushBlocking(wp.Priority(rand.IntN(lanes)), t)
			},
		}, nil, nil
	}

	p, err := wp.NewThrottledPool(metrics, opts)
	if err != nil {
		return loadTarget{}, nil, err
	}
	t := loadTarget{pool: p, submit: p.PushBlocking}
	if !cc.Enabled || cc.Pool != opts.Name {
		return t, nil, nil
	}

	policy := controller.NewPolicy(
		controller.WithMinActive(cc.MinActive),
		controller.WithMaxActive(cc.MaxActive),
		controller.WithDepthHigh(cc.DepthHigh),
		controller.WithDepthLow(cc.DepthLow),
		controller.WithWaitHigh(cc.WaitHigh),
		controller.WithCooldown(cc.Cooldown),
	)
	return t, controller.New(p, policy, p.Telemetry(), cc.Interval), nil
}

func serveMetrics(ctx context.Context, mc config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(mc.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              mc.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.FromContext(ctx).Error("Metrics server failed", lg.Any("error", err))
		}
	}()
	return srv
}

// generateLoad submits busy-loop tasks at runRate per second until ctx is
// done.
func generateLoad(ctx context.Context, submit func(wp.Task) bool) {
	if runRate <= 0 {
		return
	}
	interval := time.Second / time.Duration(runRate)
	batch := 1
	if interval < time.Millisecond {
		batch = int(time.Millisecond / interval)
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for range batch {
				if !submit(busyTask) {
					return
				}
			}
		}
	}
}

func busyTask() {
	deadline := time.Now().Add(runWork)
	for time.Now().Before(deadline) {
	}
}
