package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/hif/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.PrintError(os.Stderr, err, cli.UseColor(os.Stderr))
		cancel()
		os.Exit(1)
	}

	cancel()
}
