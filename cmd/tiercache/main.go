// Package main provides the tiercache CLI tool for exercising and
// benchmarking multilevel cache stacks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

// run executes the root command under a context that is cancelled on
// SIGINT or SIGTERM, so seeding, lookups and simulations stop early.
// Cobra reports the error itself.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
