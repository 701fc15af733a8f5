// Package tasks runs concurrent work for the bridge.
//
// # Pool
//
// [Pool] executes tasks on their own goroutines under an optional concurrency cap. The request
// dispatcher submits one task per request line; when the cap is reached the submitter blocks,
// which in turn stops the dispatcher from reading further input. Tasks run on a context detached
// from the submitter's cancellation and panics are recovered and logged.
//
// # Bulk Export
//
// [Exporter.BulkExport] writes many catalog playlists to disk in one of the
// [formatter.Format] encodings:
//   - requests are paced by a token bucket ([golang.org/x/time/rate])
//   - playlists are fetched and written on a bounded [Pool]
//   - failures are recorded per playlist and summarized in export_manifest.json
//
// # Progress Reporting
//
// Long-running operations accept an optional channel of [ProgressUpdate]. Sends never block:
// when the channel is full the update is dropped.
package tasks
