package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytbridge/internal/shared"
	"github.com/desertthunder/ytbridge/internal/ui"
)

// TUI launches the interactive terminal browser over the same command handlers as the bridge.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	logPath := cmd.String("log-file")
	if logPath == "" {
		logPath = filepath.Join(r.config.Paths.BaseDir, "tmp", "ytbridge-tui.log")
	}

	// Logs go to a file so they do not corrupt the rendered screen.
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	router, cleanup, err := r.bridge(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ui.Run(ctx, router); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
