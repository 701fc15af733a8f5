package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytbridge/internal/models"
)

// StreamRepository stores resolved stream URLs keyed by video id.
//
// It implements services.StreamStore.
type StreamRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewStreamRepository creates a StreamRepository over an already migrated database.
func NewStreamRepository(db *sql.DB) *StreamRepository {
	return &StreamRepository{db: db, now: time.Now}
}

// Get returns the stored URL for videoID, or nil when there is none.
//
// Expired rows are returned as-is; callers decide whether to reuse them.
func (r *StreamRepository) Get(ctx context.Context, videoID string) (*models.StreamURL, error) {
	query := `
		SELECT video_id, url, format, expires_at, created_at
		FROM stream_urls
		WHERE video_id = ?
	`

	var s models.StreamURL
	err := r.db.QueryRowContext(ctx, query, videoID).Scan(&s.VideoID, &s.URL, &s.Format, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream url: %w", err)
	}
	return &s, nil
}

// Put inserts s or replaces the row already stored for its video id.
func (r *StreamRepository) Put(ctx context.Context, s *models.StreamURL) error {
	if s.VideoID == "" || s.URL == "" {
		return fmt.Errorf("validation failed: video id and url are required")
	}

	created := s.CreatedAt
	if created.IsZero() {
		created = r.now()
	}

	query := `
		INSERT INTO stream_urls (video_id, url, format, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			url = excluded.url,
			format = excluded.format,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`

	if _, err := r.db.ExecContext(ctx, query, s.VideoID, s.URL, s.Format, utc(s.ExpiresAt), utc(created)); err != nil {
		return fmt.Errorf("failed to store stream url: %w", err)
	}
	return nil
}

// List returns stored URLs ordered by expiry, soonest first. Expired rows are included only when
// includeExpired is set.
func (r *StreamRepository) List(ctx context.Context, includeExpired bool) ([]*models.StreamURL, error) {
	query := `
		SELECT video_id, url, format, expires_at, created_at
		FROM stream_urls
	`
	args := []any{}
	if !includeExpired {
		query += " WHERE expires_at > ?"
		args = append(args, utc(r.now()))
	}
	query += " ORDER BY expires_at ASC, video_id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream urls: %w", err)
	}
	defer rows.Close()

	var streams []*models.StreamURL
	for rows.Next() {
		var s models.StreamURL
		if err := rows.Scan(&s.VideoID, &s.URL, &s.Format, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stream url: %w", err)
		}
		streams = append(streams, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return streams, nil
}

// Delete removes the row for videoID and reports whether one existed.
func (r *StreamRepository) Delete(ctx context.Context, videoID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM stream_urls WHERE video_id = ?", videoID)
	if err != nil {
		return false, fmt.Errorf("failed to delete stream url: %w", err)
	}
	n, err := affected(result)
	return n > 0, err
}

// DeleteExpired removes every row whose expiry has passed and returns how many were removed.
func (r *StreamRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM stream_urls WHERE expires_at <= ?", utc(r.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to prune stream urls: %w", err)
	}
	return affected(result)
}

// Clear removes every row and returns how many were removed.
func (r *StreamRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM stream_urls")
	if err != nil {
		return 0, fmt.Errorf("failed to clear stream urls: %w", err)
	}
	return affected(result)
}
