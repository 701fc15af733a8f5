package models

import "time"

// Feed item kinds.
const (
	KindSong     = "song"
	KindVideo    = "video"
	KindAlbum    = "album"
	KindArtist   = "artist"
	KindPlaylist = "playlist"
	KindUnknown  = "unknown"
)

// Discography categories.
const (
	CategoryAlbum  = "Album"
	CategorySingle = "Single"
)

// DefaultDuration is reported for tracks without a duration.
const DefaultDuration = "0:00"

// UnknownArtist names an artist credit that carries no name.
const UnknownArtist = "Unknown"

// Track is a playable song or video.
//
// ArtistIDs is parallel to Artists; an entry is nil when the credit has no id.
type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artists   []string  `json:"artists"`
	ArtistIDs []*string `json:"artistIds"`
	Album     string    `json:"album"`
	AlbumID   *string   `json:"albumId"`
	Duration  string    `json:"duration"`
	ThumbURL  string    `json:"thumbUrl"`
}

// Artist is an artist reference from search results or related-artist rows.
type Artist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ThumbURL string `json:"thumbUrl"`
}

// FeedItem is one classified entry of a home-feed section.
type FeedItem interface {
	Kind() string
}

// SongItem is a feed entry played directly. Type is [KindSong] or [KindVideo].
type SongItem struct {
	Track
	Type        string `json:"type"`
	DisplayType string `json:"display_type"`
}

func (s SongItem) Kind() string { return s.Type }

// AlbumItem is a feed entry opening an album, EP or single.
type AlbumItem struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	DisplayType string   `json:"display_type"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	ThumbURL    string   `json:"thumbUrl"`
	Year        *string  `json:"year"`
}

func (AlbumItem) Kind() string { return KindAlbum }

// PlaylistItem is a feed entry opening a playlist.
type PlaylistItem struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	DisplayType string   `json:"display_type"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	ThumbURL    string   `json:"thumbUrl"`
	Description *string  `json:"description"`
}

func (PlaylistItem) Kind() string { return KindPlaylist }

// ArtistItem is a feed entry opening an artist page.
type ArtistItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DisplayType string `json:"display_type"`
	Title       string `json:"title"`
	ThumbURL    string `json:"thumbUrl"`
}

func (ArtistItem) Kind() string { return KindArtist }

// FeedSection is a titled row of the home feed. Sections are never emitted empty.
type FeedSection struct {
	Title    string     `json:"title"`
	Contents []FeedItem `json:"contents"`
}

// PlaylistSummary is one library playlist.
type PlaylistSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ThumbURL string `json:"thumbUrl"`
	Count    string `json:"count"`
}

// PlaylistInfo is playlist metadata without tracks.
type PlaylistInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	TrackCount  int    `json:"trackCount"`
	ThumbURL    string `json:"thumbUrl,omitempty"`
}

// PlaylistExport is a playlist together with its normalized tracks.
type PlaylistExport struct {
	Playlist PlaylistInfo `json:"playlist"`
	Tracks   []Track      `json:"tracks"`
}

// DiscographyEntry is an album or single on an artist page.
type DiscographyEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Year     string `json:"year"`
	Category string `json:"category"`
	ThumbURL string `json:"thumbUrl"`
}

// Album is an album page with its tracks carrying the album context.
type Album struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ThumbURL string  `json:"thumbUrl"`
	Tracks   []Track `json:"tracks"`
}

// ArtistDetail is an artist page.
//
// SeeAllSongsID and SeeAllSongsParams feed a later get_artist_songs call.
type ArtistDetail struct {
	Name              string             `json:"name"`
	Description       *string            `json:"description"`
	ThumbURL          string             `json:"thumbUrl"`
	TopSongs          []Track            `json:"topSongs"`
	Discography       []DiscographyEntry `json:"discography"`
	Related           []Artist           `json:"related"`
	SeeAllSongsID     *string            `json:"seeAllSongsId"`
	SeeAllSongsParams *string            `json:"seeAllSongsParams"`
	SeeAllAlbumsID    *string            `json:"seeAllAlbumsId"`
	SeeAllSinglesID   *string            `json:"seeAllSinglesId"`
}

// UserInfo is the signed-in account.
type UserInfo struct {
	Name     string `json:"name"`
	ThumbURL string `json:"thumbUrl"`
}

// StreamURL is a resolved direct media URL for a track, valid until ExpiresAt.
type StreamURL struct {
	VideoID   string    `json:"videoId"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the URL is past its expiry at now.
func (s StreamURL) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
