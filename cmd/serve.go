package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytbridge/internal/server"
)

// Serve runs the stdio bridge until stdin closes.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	router, cleanup, err := r.bridge(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	maxInFlight := r.config.Server.MaxInFlight
	if cmd.IsSet("max-in-flight") {
		maxInFlight = cmd.Int("max-in-flight")
	}

	srv := server.New(router, r.output, server.Options{
		MaxInFlight:  maxInFlight,
		MaxLineBytes: r.config.Server.MaxLineBytes,
		Logger:       r.logger,
	})

	r.logger.Info("bridge ready", "commands", len(router.Commands()), "maxInFlight", maxInFlight, "pid", os.Getpid())
	if err := srv.Serve(ctx, r.input); err != nil {
		return err
	}
	r.logger.Info("input closed, shutting down")
	return nil
}
