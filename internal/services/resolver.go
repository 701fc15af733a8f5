package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/karlseguin/ccache/v3"
	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/ytbridge/internal/models"
	"github.com/desertthunder/ytbridge/internal/shared"
)

// DefaultStreamFormat selects the best audio-only format, falling back to the best muxed one.
const DefaultStreamFormat = "bestaudio/best"

// expiryMargin is subtracted from a URL's advertised expiry before it is reused.
const expiryMargin = 5 * time.Minute

// WatchURL is the canonical watch page of a track.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// YTDLPResolver resolves stream URLs by running yt-dlp.
type YTDLPResolver struct {
	format string
	logger *log.Logger
}

// NewYTDLPResolver creates a resolver requesting format (default [DefaultStreamFormat]).
func NewYTDLPResolver(format string, logger *log.Logger) *YTDLPResolver {
	if format == "" {
		format = DefaultStreamFormat
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &YTDLPResolver{format: format, logger: logger}
}

// Format is the yt-dlp format selector in use.
func (r *YTDLPResolver) Format() string { return r.format }

// ResolveAudioURL runs yt-dlp with --get-url and returns the first URL it prints.
func (r *YTDLPResolver) ResolveAudioURL(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", fmt.Errorf("%w: videoId", shared.ErrMissingArgument)
	}

	dl := ytdlp.New().
		Format(r.format).
		GetURL().
		NoPlaylist().
		NoWarnings().
		Quiet()

	start := time.Now()
	res, err := dl.Run(ctx, WatchURL(videoID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrStreamUnavailable, err)
	}

	streamURL, ok := firstURL(res.Stdout)
	if !ok {
		return "", fmt.Errorf("%w: yt-dlp printed no URL for %s", shared.ErrStreamUnavailable, videoID)
	}

	r.logger.Debug("resolved stream", "videoId", videoID, "took", time.Since(start))
	return streamURL, nil
}

// firstURL returns the first http(s) line of yt-dlp output.
func firstURL(stdout string) (string, bool) {
	for line := range strings.SplitSeq(stdout, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line, true
		}
	}
	return "", false
}

// URLExpiry is when a stream URL stops being usable: its "expire" query parameter (unix
// seconds) minus a safety margin, or now+fallback when it has none.
func URLExpiry(streamURL string, now time.Time, fallback time.Duration) time.Time {
	if u, err := url.Parse(streamURL); err == nil {
		if exp, err := strconv.ParseInt(u.Query().Get("expire"), 10, 64); err == nil && exp > 0 {
			return time.Unix(exp, 0).Add(-expiryMargin)
		}
	}
	return now.Add(fallback)
}

// StreamStore persists resolved URLs across restarts.
type StreamStore interface {
	// Get returns the stored URL for videoID, or nil when there is none.
	Get(ctx context.Context, videoID string) (*models.StreamURL, error)
	Put(ctx context.Context, s *models.StreamURL) error
}

// CacheOptions configures a [CachedResolver].
type CacheOptions struct {
	Size int64
	// TTL applies to URLs that do not advertise an expiry.
	TTL    time.Duration
	Format string
}

// CachedResolver fronts a [StreamResolver] with an in-memory cache, an optional persistent
// store and de-duplication of concurrent resolutions of the same track.
type CachedResolver struct {
	next   StreamResolver
	store  StreamStore
	cache  *ccache.Cache[string]
	group  singleflight.Group
	opts   CacheOptions
	logger *log.Logger
	now    func() time.Time
}

// NewCachedResolver wraps next. store may be nil.
func NewCachedResolver(next StreamResolver, store StreamStore, opts CacheOptions, logger *log.Logger) *CachedResolver {
	if opts.Size <= 0 {
		opts.Size = 500
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Hour
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &CachedResolver{
		next:  next,
		store: store,
		cache: ccache.New(
			ccache.Configure[string]().
				MaxSize(opts.Size).
				GetsPerPromote(3).
				ItemsToPrune(10),
		),
		opts:   opts,
		logger: logger.WithPrefix("resolver"),
		now:    time.Now,
	}
}

// ResolveAudioURL returns a cached URL when one is still valid and resolves otherwise.
func (c *CachedResolver) ResolveAudioURL(ctx context.Context, videoID string) (string, error) {
	if item := c.cache.Get(videoID); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	v, err, joined := c.group.Do(videoID, func() (any, error) {
		return c.resolve(ctx, videoID)
	})
	if err != nil {
		return "", err
	}
	if joined {
		c.logger.Debug("joined in-flight resolution", "videoId", videoID)
	}
	return v.(string), nil
}

func (c *CachedResolver) resolve(ctx context.Context, videoID string) (string, error) {
	now := c.now()

	if c.store != nil {
		rec, err := c.store.Get(ctx, videoID)
		if err != nil {
			c.logger.Warn("stream store lookup failed", "videoId", videoID, "error", err)
		} else if rec != nil && !rec.Expired(now) {
			c.cache.Set(videoID, rec.URL, rec.ExpiresAt.Sub(now))
			return rec.URL, nil
		}
	}

	streamURL, err := c.next.ResolveAudioURL(ctx, videoID)
	if err != nil {
		return "", err
	}

	expires := URLExpiry(streamURL, now, c.opts.TTL)
	ttl := expires.Sub(now)
	if ttl <= 0 {
		return streamURL, nil
	}
	c.cache.Set(videoID, streamURL, ttl)

	if c.store != nil {
		rec := &models.StreamURL{VideoID: videoID, URL: streamURL, Format: c.opts.Format, ExpiresAt: expires, CreatedAt: now}
		if err := c.store.Put(ctx, rec); err != nil {
			c.logger.Warn("failed to persist stream URL", "videoId", videoID, "error", err)
		}
	}
	return streamURL, nil
}

// Close stops the cache's background worker.
func (c *CachedResolver) Close() {
	c.cache.Stop()
}
