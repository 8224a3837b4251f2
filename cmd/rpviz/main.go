package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/matzehuels/rpviz/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		c.Logger.Debugf(format, args...)
	}))
	if err != nil {
		c.Logger.Debug("GOMAXPROCS unchanged", "err", err)
	}
	defer undo()

	return c.RootCommand().ExecuteContext(ctx)
}
