// Command rtpoolctl validates worker pool configurations and runs pools
// under synthetic load with Prometheus metrics and the load controller.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
