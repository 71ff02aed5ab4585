package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	wp "github.com/azargarov/rtworkerpool"
	"github.com/azargarov/rtworkerpool/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file and print the pools it defines",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-16s %-10s %7s %s\n", "POOL", "KIND", "WORKERS", "QUEUES")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	for _, p := range cfg.Pools {
		opts, err := p.Options()
		if err != nil {
			return fmt.Errorf("pool %q: %w", p.Name, err)
		}
		kind, _ := p.PoolKind()
		fmt.Fprintf(out, "%-16s %-10s %7d %s\n", p.Name, kind, opts.Workers, describeQueues(opts))
	}

	if cfg.Controller.Enabled {
		fmt.Fprintf(out, "\ncontroller: pool=%s interval=%v active=[%d,%d] depth=[%d,%d]\n",
			cfg.Controller.Pool, cfg.Controller.Interval,
			cfg.Controller.MinActive, cfg.Controller.MaxActive,
			cfg.Controller.DepthLow, cfg.Controller.DepthHigh)
	}
	return nil
}

func describeQueues(opts wp.Options) string {
	if len(opts.Lanes) == 0 {
		return fmt.Sprintf("%s/%d", opts.Queue.Policy, opts.Queue.Size)
	}
	lanes := make([]string, len(opts.Lanes))
	for i, l := range opts.Lanes {
		lanes[i] = fmt.Sprintf("%s/%d", l.Policy, l.Size)
	}
	return strings.Join(lanes, " ")
}
