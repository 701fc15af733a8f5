package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytbridge/internal/repositories"
	"github.com/desertthunder/ytbridge/internal/shared"
	"github.com/desertthunder/ytbridge/internal/ui"
)

func (r *Runner) streamStore() (*repositories.StreamRepository, func(), error) {
	store, closeStore, err := r.openStore()
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("%w: stream.database is empty, persistence is disabled", shared.ErrInvalidConfig)
	}
	return store, closeStore, nil
}

// CacheList prints persisted stream URLs.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.streamStore()
	if err != nil {
		return err
	}
	defer closeStore()

	streams, err := store.List(ctx, cmd.Bool("all"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(streams, true)
	}

	if len(streams) == 0 {
		return r.writePlainln("%s", ui.Muted("No stored stream URLs"))
	}

	now := time.Now()
	for _, s := range streams {
		status := ui.Success(fmt.Sprintf("expires in %s", s.ExpiresAt.Sub(now).Round(time.Minute)))
		if s.Expired(now) {
			status = ui.Warning("expired")
		}
		r.writePlainln("%-14s %s", s.VideoID, status)
	}
	return nil
}

// CachePrune removes expired stream URLs.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.streamStore()
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("pruned stream urls", "count", n)
	return r.writePlainln("%s", ui.Success(fmt.Sprintf("✓ Removed %d expired stream URLs", n)))
}

// CacheClear removes every stored stream URL.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	store, closeStore, err := r.streamStore()
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("cleared stream urls", "count", n)
	return r.writePlainln("%s", ui.Success(fmt.Sprintf("✓ Removed %d stream URLs", n)))
}
