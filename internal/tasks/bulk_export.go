package tasks

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ytbridge/internal/formatter"
	"github.com/desertthunder/ytbridge/internal/models"
	"github.com/desertthunder/ytbridge/internal/normalize"
	"github.com/desertthunder/ytbridge/internal/services"
	"github.com/desertthunder/ytbridge/internal/shared"
)

const (
	defaultWorkers    = 5
	maxWorkers        = 10
	defaultRateLimit  = 5.0
	defaultTrackLimit = 1000
	libraryLimit      = 100
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputDir  string           // Base output directory (default: ytmusic_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 5, max 10)
	RateLimit  float64          // Catalog requests per second (default: 5)
	TrackLimit int              // Tracks fetched per playlist (default: 1000)
}

// PlaylistExportResult is the outcome for a single playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error

	index int
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

// Exporter writes catalog playlists to disk.
type Exporter struct {
	catalog    services.Catalog
	normalizer *normalize.Normalizer
	logger     *log.Logger
}

// NewExporter creates an Exporter reading from catalog.
func NewExporter(catalog services.Catalog, normalizer *normalize.Normalizer, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if normalizer == nil {
		normalizer = normalize.New(logger)
	}
	return &Exporter{catalog: catalog, normalizer: normalizer, logger: logger.WithPrefix("export")}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// LibraryPlaylists lists the signed-in user's playlists.
func (e *Exporter) LibraryPlaylists(ctx context.Context, prog chan<- ProgressUpdate) ([]models.PlaylistSummary, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	raw, err := e.catalog.LibraryPlaylists(ctx, libraryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list library playlists: %w", err)
	}

	playlists := e.normalizer.Playlists(raw)
	sendProgress(prog, fetchPlaylistsUpdate(len(playlists)))
	return playlists, nil
}

// FetchPlaylist fetches and normalizes one playlist with up to limit tracks.
func (e *Exporter) FetchPlaylist(ctx context.Context, playlistID string, limit int) (*models.PlaylistExport, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if limit <= 0 {
		limit = defaultTrackLimit
	}

	raw, err := e.catalog.Playlist(ctx, playlistID, limit)
	if err != nil {
		return nil, err
	}
	export := e.normalizer.PlaylistExport(raw, playlistID)
	return &export, nil
}

// BulkExport exports multiple playlists concurrently with rate limiting and progress tracking.
//
// Catalog requests are paced by a token bucket and run on a bounded [Pool]. A failed playlist
// is recorded and the run continues; a manifest summarizing every result is written last.
// Cancelling ctx stops scheduling new playlists and returns the partial result with ctx's error.
func (e *Exporter) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytmusic_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	pool := NewPool(opts.NumWorkers, e.logger)

	var mu sync.Mutex
	completed := 0

	var scheduleErr error
	for i, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			scheduleErr = err
			break
		}

		err := pool.Go(ctx, "export "+id, func(tctx context.Context) {
			res := e.exportOne(tctx, id, opts)
			res.index = i

			mu.Lock()
			defer mu.Unlock()
			completed++
			result.Results = append(result.Results, res)
			if res.Success {
				result.SuccessfulExports++
				sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
			} else {
				result.FailedExports++
				e.logger.Warn("playlist export failed", "playlist", id, "err", res.Error)
				sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
			}
		})
		if err != nil {
			scheduleErr = err
			break
		}
	}
	pool.Wait()

	slices.SortFunc(result.Results, func(a, b PlaylistExportResult) int {
		return cmp.Compare(a.index, b.index)
	})

	if scheduleErr != nil {
		return result, fmt.Errorf("export interrupted: %w", scheduleErr)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result.manifest(opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// exportOne fetches one playlist and writes it in the requested format.
func (e *Exporter) exportOne(ctx context.Context, playlistID string, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   playlistID,
		PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
		Files:        []string{},
	}

	export, err := e.FetchPlaylist(ctx, playlistID, opts.TrackLimit)
	if err != nil {
		result.Error = fmt.Errorf("failed to fetch playlist: %w", err)
		return result
	}
	if export.Playlist.Title != "" {
		result.PlaylistName = export.Playlist.Title
	}

	base := filepath.Join(opts.OutputDir, export.Playlist.ID)
	files, err := formatter.Write(export, opts.Format, base)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}

	result.Files = files
	result.Success = true
	return result
}

func (r *BulkExportResult) manifest(format formatter.Format) *formatter.ExportManifest {
	m := &formatter.ExportManifest{
		Format:          string(format),
		ExportedAt:      time.Now().UTC(),
		OutputDirectory: r.OutputDirectory,
		TotalPlaylists:  r.TotalPlaylists,
		Successful:      r.SuccessfulExports,
		Failed:          r.FailedExports,
		Playlists:       make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			PlaylistID: res.PlaylistID,
			Title:      res.PlaylistName,
			Success:    res.Success,
			Files:      res.Files,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}
	return m
}
