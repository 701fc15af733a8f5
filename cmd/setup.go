package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytbridge/internal/shared"
	"github.com/desertthunder/ytbridge/internal/ui"
)

// SetupConfig writes the example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlainln("%s", ui.Success(fmt.Sprintf("✓ Config written to %s", path)))
}

// SetupDatabase creates the stream URL database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.DatabasePath())

	_, closeStore, err := r.streamStore()
	if err != nil {
		return err
	}
	closeStore()

	return r.writePlainln("%s", ui.Success(fmt.Sprintf("✓ Database ready at %s", r.config.DatabasePath())))
}
