// Command jamreg runs the event-registration system: the HTTP API, the task
// worker, and the repo provisioning job.
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
