package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "plsync",
		Usage:    "Keep YouTube playlists in sync with ranked video lists",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		stop()
		switch {
		case errors.Is(err, shared.ErrMissingConfig):
			logger.Fatalf("%v (run 'plsync config init' to create one)", err)
		case tasks.IsConfigError(err):
			logger.Fatalf("configuration error: %v", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
