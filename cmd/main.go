package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytbridge/internal/shared"
)

func main() {
	logger := shared.NewLogger(os.Stderr)
	app := newApp(NewRunner(RunnerOpts{Logger: logger}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatal("application error", "error", err)
	}
}

// newApp builds the command tree; with no subcommand it serves the bridge.
func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ytbridge",
		Usage:   "Line-delimited JSON bridge to YouTube Music over stdin/stdout",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("YTBRIDGE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override server.log_level (debug, info, warn, error)",
			},
		},
		Before:   runner.Before,
		Action:   runner.Serve,
		Commands: runner.register(),
	}
}
