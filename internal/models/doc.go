// Package models defines the canonical schema the bridge emits to its caller.
//
// Upstream catalog responses come in several shapes; the normalize package reduces
// them to these types:
//   - [Track] : a playable song or video with its artist and album context
//   - [Artist] : an artist reference
//   - [FeedItem] : one classified home-feed entry ([SongItem], [AlbumItem], [PlaylistItem], [ArtistItem])
//   - [FeedSection] : a titled row of feed items
//   - [PlaylistSummary], [Album], [ArtistDetail], [DiscographyEntry], [UserInfo] : command payloads
//
// Optional upstream values that the caller distinguishes from empty strings are pointers
// and encode as JSON null when absent.
package models
