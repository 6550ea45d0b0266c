// Package main provides the unitable command.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/leapstack-labs/unitable/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
