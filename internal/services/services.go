// package services defines the catalog-client and stream-resolver capabilities
//
// YouTube Music (via ytmusicapi proxy), yt-dlp
package services

import (
	"context"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// Catalog defines the catalog-client capability: read-only queries against YouTube Music.
//
// Results are returned as raw upstream JSON; shaping them is the normalize package's job.
type Catalog interface {
	// Search runs a filtered search ("songs", "artists", ...).
	Search(ctx context.Context, query, filter string, limit int) (gjson.Result, error)

	// SearchSuggestions completes a partial query.
	SearchSuggestions(ctx context.Context, query string) ([]string, error)

	// LibraryPlaylists lists the signed-in user's playlists.
	LibraryPlaylists(ctx context.Context, limit int) (gjson.Result, error)

	// LikedSongs returns the liked-songs playlist ({"tracks": [...]}).
	LikedSongs(ctx context.Context, limit int) (gjson.Result, error)

	// Playlist returns a playlist with up to limit tracks.
	Playlist(ctx context.Context, playlistID string, limit int) (gjson.Result, error)

	// Album returns an album page.
	Album(ctx context.Context, browseID string) (gjson.Result, error)

	// Artist returns an artist page.
	Artist(ctx context.Context, channelID string) (gjson.Result, error)

	// ArtistAlbums returns a full discography or songs listing behind a "see all" link.
	ArtistAlbums(ctx context.Context, browseID, params string) (gjson.Result, error)

	// WatchPlaylist returns the watch-next queue seeded by videoID.
	WatchPlaylist(ctx context.Context, videoID string, limit int) (gjson.Result, error)

	// AccountInfo returns the signed-in account.
	AccountInfo(ctx context.Context) (gjson.Result, error)

	// Home returns the home feed sections.
	Home(ctx context.Context, limit int) (gjson.Result, error)
}

// StreamResolver defines the stream-resolver capability.
type StreamResolver interface {
	// ResolveAudioURL returns a direct playable URL for the best available audio of videoID.
	ResolveAudioURL(ctx context.Context, videoID string) (string, error)
}

// CredentialKind names the stored credential a client was built from.
type CredentialKind string

const (
	CredentialCookie CredentialKind = "cookie"
	CredentialOAuth  CredentialKind = "oauth"
)

// Credentials are the stored credentials a [Catalog] is authenticated with.
type Credentials struct {
	Kind CredentialKind
	// Source is the file the credentials were loaded from.
	Source string
	// Headers is the browser.json header map for cookie credentials.
	Headers map[string]string
	// Token is the OAuth token for oauth credentials.
	Token *oauth2.Token
	// OAuth refreshes Token when set; without it the token is used as-is until it expires.
	OAuth *oauth2.Config
}

// ClientFactory builds a [Catalog]. Nil credentials build an anonymous client.
type ClientFactory func(ctx context.Context, creds *Credentials) (Catalog, error)
