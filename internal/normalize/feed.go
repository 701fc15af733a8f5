package normalize

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytbridge/internal/models"
)

// Browse id prefixes are an undocumented upstream convention and may change without notice.
var (
	// ArtistBrowsePrefixes mark a browse id that opens an artist (channel) page.
	ArtistBrowsePrefixes = []string{"UC", "Fv"}
	// PlaylistBrowsePrefixes mark a browse id that opens a playlist.
	PlaylistBrowsePrefixes = []string{"VL", "PL"}
)

// albumLabels fold into [models.KindAlbum].
var albumLabels = []string{"ep", "single", "album"}

// classRule maps a present identifier field to a kind. Rules are tried in order.
type classRule struct {
	field string
	kind  func(id string) string
}

var classification = []classRule{
	{field: "videoId", kind: func(string) string { return models.KindSong }},
	{field: "browseId", kind: browseKind},
	{field: "playlistId", kind: func(string) string { return models.KindPlaylist }},
}

func browseKind(id string) string {
	if HasPrefix(id, ArtistBrowsePrefixes) {
		return models.KindArtist
	}
	return models.KindAlbum
}

// HasPrefix reports whether id starts with any of prefixes.
func HasPrefix(id string, prefixes []string) bool {
	return lo.SomeBy(prefixes, func(p string) bool { return strings.HasPrefix(id, p) })
}

// IsPlaylistBrowseID reports whether a browse id names a playlist rather than an artist listing.
func IsPlaylistBrowseID(id string) bool {
	return HasPrefix(id, PlaylistBrowsePrefixes)
}

// feedLabel is the upstream "type" or "resultType" label, "" when absent.
func feedLabel(item gjson.Result) string {
	return firstString(item, "type", "resultType")
}

// Classify infers the navigation kind of an untyped feed item.
//
// Identifier fields decide first (video id, then browse id, then playlist id); otherwise
// the upstream label is used, or [models.KindUnknown]. Album-like labels fold into
// [models.KindAlbum]. The result is lower case.
func Classify(item gjson.Result) string {
	detected := ""
	for _, rule := range classification {
		if id := firstString(item, rule.field); id != "" {
			detected = rule.kind(id)
			break
		}
	}
	if detected == "" {
		detected = feedLabel(item)
	}

	kind := strings.ToLower(detected)
	switch {
	case kind == "":
		return models.KindUnknown
	case slices.Contains(albumLabels, kind):
		return models.KindAlbum
	}
	return kind
}

// FeedItem classifies and normalizes one feed entry. ok is false for unknown kinds and
// for entries missing the id their kind needs.
func (n *Normalizer) FeedItem(raw gjson.Result) (item models.FeedItem, ok bool) {
	defer n.guard("feed item", raw, &ok)

	label := feedLabel(raw)
	kind := Classify(raw)

	switch kind {
	case models.KindSong, models.KindVideo:
		track, found := n.Track(raw, Overrides{})
		if !found {
			return nil, false
		}
		return models.SongItem{
			Track:       track,
			Type:        kind,
			DisplayType: lo.Ternary(label != "", label, "Song"),
		}, true

	case models.KindArtist:
		id := firstString(raw, "browseId")
		if id == "" {
			break
		}
		return models.ArtistItem{
			ID:          id,
			Type:        models.KindArtist,
			DisplayType: "Artist",
			Title:       firstString(raw, "title", "name"),
			ThumbURL:    thumbnailOf(raw),
		}, true

	case models.KindAlbum:
		id := firstString(raw, "browseId", "playlistId")
		if id == "" {
			break
		}
		return models.AlbumItem{
			ID:          id,
			Type:        models.KindAlbum,
			DisplayType: lo.Ternary(label != "", label, "Album"),
			Title:       raw.Get("title").String(),
			Artists:     creditNames(raw),
			ThumbURL:    thumbnailOf(raw),
			Year:        optString(raw.Get("year")),
		}, true

	case models.KindPlaylist:
		id := firstString(raw, "playlistId")
		if id == "" {
			break
		}
		return models.PlaylistItem{
			ID:          id,
			Type:        models.KindPlaylist,
			DisplayType: "Playlist",
			Title:       raw.Get("title").String(),
			Artists:     creditNames(raw),
			ThumbURL:    thumbnailOf(raw),
			Description: optString(raw.Get("description")),
		}, true
	}

	n.logger.Debug("dropping feed item", "kind", kind, "title", raw.Get("title").String())
	return nil, false
}

// Home normalizes the home feed. Sections left without items are omitted.
func (n *Normalizer) Home(sections gjson.Result) []models.FeedSection {
	return lo.FilterMap(list(sections), func(section gjson.Result, _ int) (models.FeedSection, bool) {
		contents := lo.FilterMap(list(section.Get("contents")), func(raw gjson.Result, _ int) (models.FeedItem, bool) {
			return n.FeedItem(raw)
		})
		if len(contents) == 0 {
			return models.FeedSection{}, false
		}
		return models.FeedSection{Title: section.Get("title").String(), Contents: contents}, true
	})
}
