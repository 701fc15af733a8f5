package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/ytbridge/internal/shared"
)

// ManifestEntry records the outcome for one playlist of a bulk export.
type ManifestEntry struct {
	PlaylistID string   `json:"playlist_id"`
	Title      string   `json:"title"`
	Success    bool     `json:"success"`
	Files      []string `json:"files,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ExportManifest summarizes a bulk export run.
type ExportManifest struct {
	Format          string          `json:"format"`
	ExportedAt      time.Time       `json:"exported_at"`
	OutputDirectory string          `json:"output_directory"`
	TotalPlaylists  int             `json:"total_playlists"`
	Successful      int             `json:"successful"`
	Failed          int             `json:"failed"`
	Playlists       []ManifestEntry `json:"playlists"`
}

// WriteManifest writes the manifest as indented JSON to path.
func WriteManifest(m *ExportManifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
