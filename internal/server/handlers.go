package server

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/ytbridge/internal/models"
	"github.com/desertthunder/ytbridge/internal/normalize"
	"github.com/desertthunder/ytbridge/internal/services"
	"github.com/desertthunder/ytbridge/internal/session"
	"github.com/desertthunder/ytbridge/internal/shared"
)

const (
	libraryLimit       = 100
	artistSearchLimit  = 5
	defaultSearchLimit = 20
	defaultHomeLimit   = 10
	queueLimit         = 20
)

// Handlers implements every bridge command on top of a session and a stream resolver.
type Handlers struct {
	session    *session.Manager
	resolver   services.StreamResolver
	normalizer *normalize.Normalizer
	logger     *log.Logger
}

// NewHandlers creates the command set. resolver may be nil, in which case get_stream_url fails.
func NewHandlers(sess *session.Manager, resolver services.StreamResolver, normalizer *normalize.Normalizer, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if normalizer == nil {
		normalizer = normalize.New(logger)
	}
	return &Handlers{session: sess, resolver: resolver, normalizer: normalizer, logger: logger.WithPrefix("handlers")}
}

// Register adds every command to r.
func (h *Handlers) Register(r *Router) {
	r.Handle("ping", h.Ping)
	r.Handle("check_auth", h.CheckAuth)
	r.Handle("reload_auth", h.ReloadAuth)
	r.Handle("logout", h.Logout)
	r.Handle("get_user_info", h.UserInfo)
	r.Handle("get_playlists", h.Playlists)
	r.Handle("get_liked_songs", h.LikedSongs)
	r.Handle("get_playlist_tracks", h.PlaylistTracks)
	r.Handle("get_search_suggestions", h.SearchSuggestions)
	r.Handle("search", h.Search)
	r.Handle("search_more", h.SearchMore)
	r.Handle("get_artist", h.Artist)
	r.Handle("get_artist_songs", h.ArtistSongs)
	r.Handle("get_home", h.Home)
	r.Handle("get_queue_recommendations", h.QueueRecommendations)
	r.Handle("get_album", h.Album)
	r.Handle("get_stream_url", h.StreamURL)
}

// client is the shared client or an anonymous one, fixed for the rest of the handler.
func (h *Handlers) client(ctx context.Context) (services.Catalog, error) {
	c, _, err := h.session.Client(ctx)
	return c, err
}

// authedClient is the shared client, or an error when the session is unauthenticated.
func (h *Handlers) authedClient() (services.Catalog, error) {
	c := h.session.Shared()
	if c == nil {
		return nil, errNotAuthenticated
	}
	return c, nil
}

func (h *Handlers) Ping(context.Context, *Request) (Payload, error) {
	return Payload{"data": "pong"}, nil
}

// CheckAuth reports whether the shared client is present without trying to build one.
func (h *Handlers) CheckAuth(context.Context, *Request) (Payload, error) {
	return Payload{"authenticated": h.session.Authenticated()}, nil
}

// ReloadAuth loads credentials written since startup.
func (h *Handlers) ReloadAuth(ctx context.Context, _ *Request) (Payload, error) {
	return Payload{"authenticated": h.session.EnsureAuthenticated(ctx)}, nil
}

func (h *Handlers) Logout(context.Context, *Request) (Payload, error) {
	if err := h.session.Logout(); err != nil {
		return nil, err
	}
	return Payload{"message": "Logged out"}, nil
}

func (h *Handlers) UserInfo(ctx context.Context, _ *Request) (Payload, error) {
	c, err := h.authedClient()
	if err != nil {
		return nil, err
	}

	raw, err := c.AccountInfo(ctx)
	if err != nil {
		return nil, err
	}
	info := h.normalizer.UserInfo(raw)
	return Payload{"name": info.Name, "thumbUrl": info.ThumbURL}, nil
}

func (h *Handlers) Playlists(ctx context.Context, _ *Request) (Payload, error) {
	c, err := h.authedClient()
	if err != nil {
		return nil, err
	}

	raw, err := c.LibraryPlaylists(ctx, libraryLimit)
	if err != nil {
		return nil, err
	}
	return Payload{"playlists": h.normalizer.Playlists(raw)}, nil
}

// LikedSongs answers an empty list rather than an error when unauthenticated.
func (h *Handlers) LikedSongs(ctx context.Context, _ *Request) (Payload, error) {
	c := h.session.Shared()
	if c == nil {
		return Payload{"tracks": []models.Track{}}, nil
	}

	raw, err := c.LikedSongs(ctx, libraryLimit)
	if err != nil {
		return nil, err
	}
	return Payload{"tracks": h.normalizer.Tracks(raw.Get("tracks"), normalize.Overrides{})}, nil
}

func (h *Handlers) PlaylistTracks(ctx context.Context, req *Request) (Payload, error) {
	id, err := req.Required("playlistId")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.Playlist(ctx, id, libraryLimit)
	if err != nil {
		return nil, err
	}
	return Payload{"tracks": h.normalizer.Tracks(raw.Get("tracks"), normalize.Overrides{})}, nil
}

func (h *Handlers) SearchSuggestions(ctx context.Context, req *Request) (Payload, error) {
	query := req.String("query")
	if query == "" {
		return Payload{"suggestions": []string{}}, nil
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	suggestions, err := c.SearchSuggestions(ctx, query)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return Payload{"suggestions": suggestions}, nil
}

// Search queries artists and songs for the same text concurrently.
func (h *Handlers) Search(ctx context.Context, req *Request) (Payload, error) {
	query, err := req.Required("query")
	if err != nil {
		return nil, err
	}
	limit := req.Int("limit", defaultSearchLimit)
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	var artists, songs gjson.Result
	var g errgroup.Group
	g.Go(func() (err error) {
		artists, err = c.Search(ctx, query, "artists", artistSearchLimit)
		return err
	})
	g.Go(func() (err error) {
		songs, err = c.Search(ctx, query, "songs", limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Payload{
		"artists": h.normalizer.Artists(artists),
		"tracks":  h.normalizer.Tracks(songs, normalize.Overrides{}),
	}, nil
}

// SearchMore pages a search that has no cursor: it asks for offset+limit results and drops the
// first offset of them.
func (h *Handlers) SearchMore(ctx context.Context, req *Request) (Payload, error) {
	query, err := req.Required("query")
	if err != nil {
		return nil, err
	}
	offset := max(req.Int("offset", 0), 0)
	limit := req.Int("limit", defaultSearchLimit)
	filter := req.String("filter")
	if filter == "" {
		filter = "songs"
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.Search(ctx, query, filter, offset+limit)
	if err != nil {
		return nil, err
	}
	page := normalize.Skip(raw, offset)

	if filter == "artists" {
		return Payload{"artists": h.normalizer.Artists(page)}, nil
	}
	return Payload{"tracks": h.normalizer.Tracks(page, normalize.Overrides{})}, nil
}

// Artist builds an artist page. Albums and singles are resolved concurrently, each through its
// full listing when the page links one and through the inline results otherwise.
func (h *Handlers) Artist(ctx context.Context, req *Request) (Payload, error) {
	id, err := req.Required("artistId")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.Artist(ctx, id)
	if err != nil {
		return nil, err
	}

	var albums, singles []models.DiscographyEntry
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		albums = h.discography(ctx, c, raw.Get("albums"), models.CategoryAlbum)
	}()
	go func() {
		defer wg.Done()
		singles = h.discography(ctx, c, raw.Get("singles"), models.CategorySingle)
	}()
	wg.Wait()

	detail := h.normalizer.ArtistDetail(raw, append(albums, singles...))
	return Payload{
		"name":              detail.Name,
		"description":       detail.Description,
		"thumbUrl":          detail.ThumbURL,
		"topSongs":          detail.TopSongs,
		"discography":       detail.Discography,
		"related":           detail.Related,
		"seeAllSongsId":     detail.SeeAllSongsID,
		"seeAllSongsParams": detail.SeeAllSongsParams,
		"seeAllAlbumsId":    detail.SeeAllAlbumsID,
		"seeAllSinglesId":   detail.SeeAllSinglesID,
	}, nil
}

// discography lists one artist page section. A failed full listing falls back to the inline results.
func (h *Handlers) discography(ctx context.Context, c services.Catalog, section gjson.Result, category string) []models.DiscographyEntry {
	if browseID := section.Get("browseId").String(); browseID != "" {
		full, err := c.ArtistAlbums(ctx, browseID, section.Get("params").String())
		if err == nil {
			return h.normalizer.Discography(full, category)
		}
		h.logger.Warn("full discography unavailable, using inline results", "category", category, "browseId", browseID, "error", err)
	}
	return h.normalizer.Discography(section.Get("results"), category)
}

// ArtistSongs lists the tracks behind an artist's "see all songs" link, which is either a
// playlist or a discography browse id with params.
func (h *Handlers) ArtistSongs(ctx context.Context, req *Request) (Payload, error) {
	browseID, err := req.Required("browseId")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	var items gjson.Result
	if normalize.IsPlaylistBrowseID(browseID) {
		raw, err := c.Playlist(ctx, browseID, libraryLimit)
		if err != nil {
			return nil, err
		}
		items = raw.Get("tracks")
	} else {
		items, err = c.ArtistAlbums(ctx, browseID, req.String("params"))
		if err != nil {
			return nil, err
		}
	}
	return Payload{"tracks": h.normalizer.Tracks(items, normalize.Overrides{})}, nil
}

func (h *Handlers) Home(ctx context.Context, req *Request) (Payload, error) {
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.Home(ctx, req.Int("limit", defaultHomeLimit))
	if err != nil {
		return nil, err
	}
	return Payload{"data": h.normalizer.Home(raw)}, nil
}

// QueueRecommendations lists the watch-next queue for a track, without the track itself.
func (h *Handlers) QueueRecommendations(ctx context.Context, req *Request) (Payload, error) {
	videoID, err := req.Required("videoId")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.WatchPlaylist(ctx, videoID, queueLimit)
	if err != nil {
		return nil, err
	}
	tracks := lo.Filter(h.normalizer.Tracks(raw.Get("tracks"), normalize.Overrides{}), func(t models.Track, _ int) bool {
		return t.ID != videoID
	})
	return Payload{"tracks": tracks}, nil
}

func (h *Handlers) Album(ctx context.Context, req *Request) (Payload, error) {
	id, err := req.Required("albumId")
	if err != nil {
		return nil, err
	}
	c, err := h.client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.Album(ctx, id)
	if err != nil {
		return nil, err
	}
	album := h.normalizer.Album(raw, id)
	return Payload{"id": album.ID, "title": album.Title, "thumbUrl": album.ThumbURL, "tracks": album.Tracks}, nil
}

func (h *Handlers) StreamURL(ctx context.Context, req *Request) (Payload, error) {
	videoID, err := req.Required("videoId")
	if err != nil {
		return nil, err
	}
	if h.resolver == nil {
		return nil, fmt.Errorf("%w: no stream resolver configured", shared.ErrStreamUnavailable)
	}

	url, err := h.resolver.ResolveAudioURL(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return Payload{"url": url}, nil
}
