package normalize

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytbridge/internal/models"
)

// Overrides supplies album context from an enclosing album page. Non-empty values win
// over whatever the track itself carries.
type Overrides struct {
	AlbumName string
	AlbumID   string
	ThumbURL  string
}

// Normalizer turns raw catalog items into [models] values.
type Normalizer struct {
	logger *log.Logger
}

// New creates a Normalizer that reports dropped items to logger. A nil logger discards.
func New(logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Normalizer{logger: logger.WithPrefix("normalize")}
}

// guard converts a panic inside fn into a drop.
func (n *Normalizer) guard(kind string, raw gjson.Result, ok *bool) {
	if r := recover(); r != nil {
		n.logger.Warn("dropping malformed item", "kind", kind, "error", fmt.Sprint(r), "raw", truncate(raw.Raw))
		*ok = false
	}
}

// Track normalizes one track-like item. ok is false when no id can be resolved.
func (n *Normalizer) Track(raw gjson.Result, ov Overrides) (track models.Track, ok bool) {
	defer n.guard("track", raw, &ok)

	id := trackID(raw)
	if id == "" {
		n.logger.Debug("dropping track without id", "title", raw.Get("title").String())
		return models.Track{}, false
	}

	names, ids := credits(raw)
	album := albumOf(raw)

	albumName := lo.Ternary(ov.AlbumName != "", ov.AlbumName, album.Name)
	albumID := album.ID
	if ov.AlbumID != "" {
		albumID = lo.ToPtr(ov.AlbumID)
	}

	thumb := thumbnailOf(raw)
	switch {
	case thumb != "":
	case ov.ThumbURL != "":
		thumb = ov.ThumbURL
	default:
		thumb = album.Thumb
	}

	return models.Track{
		ID:        id,
		Title:     raw.Get("title").String(),
		Artists:   names,
		ArtistIDs: ids,
		Album:     albumName,
		AlbumID:   albumID,
		Duration:  durationOf(raw),
		ThumbURL:  thumb,
	}, true
}

// Artist normalizes one artist-like item. ok is false when no id can be resolved.
func (n *Normalizer) Artist(raw gjson.Result) (artist models.Artist, ok bool) {
	defer n.guard("artist", raw, &ok)

	id := firstString(raw, "browseId", "id")
	if id == "" {
		n.logger.Debug("dropping artist without id", "name", firstString(raw, "artist", "name"))
		return models.Artist{}, false
	}

	return models.Artist{
		ID:       id,
		Name:     firstString(raw, "artist", "name"),
		ThumbURL: thumbnailOf(raw),
	}, true
}

// Tracks normalizes every element of a raw list, dropping the unresolvable ones.
func (n *Normalizer) Tracks(items gjson.Result, ov Overrides) []models.Track {
	return lo.FilterMap(list(items), func(item gjson.Result, _ int) (models.Track, bool) {
		return n.Track(item, ov)
	})
}

// Artists normalizes every element of a raw list, dropping the unresolvable ones.
func (n *Normalizer) Artists(items gjson.Result) []models.Artist {
	return lo.FilterMap(list(items), func(item gjson.Result, _ int) (models.Artist, bool) {
		return n.Artist(item)
	})
}

// Playlists normalizes library playlists. Entries without a playlist id are dropped.
func (n *Normalizer) Playlists(items gjson.Result) []models.PlaylistSummary {
	return lo.FilterMap(list(items), func(p gjson.Result, _ int) (models.PlaylistSummary, bool) {
		id := firstString(p, "playlistId", "id")
		if id == "" {
			n.logger.Debug("dropping playlist without id", "title", p.Get("title").String())
			return models.PlaylistSummary{}, false
		}

		count := "0"
		if c := p.Get("count"); c.Exists() && c.Type != gjson.Null {
			count = c.String()
		}

		return models.PlaylistSummary{
			ID:       id,
			Title:    p.Get("title").String(),
			ThumbURL: thumbnailOf(p),
			Count:    count,
		}, true
	})
}

// Album normalizes an album page. Every track inherits the album's title, id and artwork.
// requestedID stands in when the page does not echo its own browse id.
func (n *Normalizer) Album(raw gjson.Result, requestedID string) models.Album {
	album := models.Album{
		ID:       firstString(raw, "browseId"),
		Title:    raw.Get("title").String(),
		ThumbURL: thumbnailOf(raw),
	}
	if album.ID == "" {
		album.ID = requestedID
	}
	album.Tracks = n.Tracks(raw.Get("tracks"), Overrides{
		AlbumName: album.Title,
		AlbumID:   album.ID,
		ThumbURL:  album.ThumbURL,
	})
	return album
}

// PlaylistExport normalizes a playlist page into its metadata and tracks.
func (n *Normalizer) PlaylistExport(raw gjson.Result, requestedID string) models.PlaylistExport {
	info := models.PlaylistInfo{
		ID:          firstString(raw, "id", "playlistId"),
		Title:       raw.Get("title").String(),
		Description: raw.Get("description").String(),
		ThumbURL:    thumbnailOf(raw),
	}
	if info.ID == "" {
		info.ID = requestedID
	}

	author := raw.Get("author")
	if author.IsObject() {
		info.Author = author.Get("name").String()
	} else {
		info.Author = author.String()
	}

	tracks := n.Tracks(raw.Get("tracks"), Overrides{})
	info.TrackCount = int(raw.Get("trackCount").Int())
	if info.TrackCount == 0 {
		info.TrackCount = len(tracks)
	}
	return models.PlaylistExport{Playlist: info, Tracks: tracks}
}

// UserInfo resolves the account display name and photo.
func (n *Normalizer) UserInfo(raw gjson.Result) models.UserInfo {
	name := firstString(raw, "accountName", "name", "userName")
	if name == "" {
		name = "Account"
	}

	thumb := firstString(raw, "accountPhotoUrl")
	if thumb == "" {
		thumb = imageURL(first(raw, "thumbnails"))
	}
	return models.UserInfo{Name: name, ThumbURL: thumb}
}

func truncate(s string) string {
	const limit = 256
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
