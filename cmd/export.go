package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytbridge/internal/formatter"
	"github.com/desertthunder/ytbridge/internal/normalize"
	"github.com/desertthunder/ytbridge/internal/shared"
	"github.com/desertthunder/ytbridge/internal/tasks"
	"github.com/desertthunder/ytbridge/internal/ui"
)

// Export writes one or more playlists to disk, or every library playlist with --all.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	all := cmd.Bool("all")
	if len(ids) == 0 && !all {
		return fmt.Errorf("%w: pass playlist ids or --all", shared.ErrMissingArgument)
	}

	sess := r.newSession(ctx)
	client, authenticated, err := sess.Client(ctx)
	if err != nil {
		return err
	}
	if all && !authenticated {
		return fmt.Errorf("%w: --all needs stored credentials", shared.ErrNotAuthenticated)
	}

	exporter := tasks.NewExporter(client, normalize.New(r.logger), r.logger)

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlainln("%s %s", ui.Muted(fmt.Sprintf("[%d/%d]", update.Step, update.Total)), update.Message)
		}
	}()

	result, err := r.runExport(ctx, exporter, progress, ids, all, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate-limit"),
		TrackLimit: cmd.Int("limit"),
	})
	close(progress)
	<-done

	if result != nil {
		r.reportExport(result)
	}
	return err
}

func (r *Runner) runExport(
	ctx context.Context,
	exporter *tasks.Exporter,
	progress chan<- tasks.ProgressUpdate,
	ids []string,
	all bool,
	opts tasks.BulkExportOpts,
) (*tasks.BulkExportResult, error) {
	if all {
		playlists, err := exporter.LibraryPlaylists(ctx, progress)
		if err != nil {
			return nil, err
		}
		for _, pl := range playlists {
			ids = append(ids, pl.ID)
		}
	}
	return exporter.BulkExport(ctx, progress, ids, opts)
}

func (r *Runner) reportExport(result *tasks.BulkExportResult) {
	summary := fmt.Sprintf("Exported %d/%d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	if result.FailedExports == 0 {
		r.writePlainln("%s", ui.Success(summary))
	} else {
		r.writePlainln("%s", ui.Warning(summary))
	}

	for _, res := range result.Results {
		if !res.Success {
			r.writePlainln("  %s %s: %v", ui.Failure("✗"), res.PlaylistID, res.Error)
		}
	}
	if result.ManifestPath != "" {
		r.writePlainln("Manifest: %s", result.ManifestPath)
	}
}
