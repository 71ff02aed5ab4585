package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rtpoolctl",
	Short: "Real-time worker pool tool",
	Long: `rtpoolctl loads worker pool configurations, checks them and runs the
configured pools under synthetic load.

Settings come from a YAML file and RTPOOL_* environment variables,
e.g. RTPOOL_METRICS_LISTEN=:9000.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
}
