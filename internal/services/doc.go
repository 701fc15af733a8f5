// Package services defines the [Catalog] and [StreamResolver] capabilities and implements them
// for YouTube Music and yt-dlp.
//
// # YouTube Music Implementation
//
// [YTMusicClient] communicates with the FastAPI proxy server wrapping ytmusicapi.
//
// The proxy handles YouTube Music authentication complexities.
// Cookie credentials (browser.json) are sent as a path via the X-Auth-File header on each request.
// OAuth credentials ride on an [oauth2.Transport]; the token refreshes itself when the client id/secret pair is known.
// Every request carries the hl/gl locale pair so result relevance stays consistent.
//
// Responses are returned as [gjson.Result] and left for the normalize package to shape.
//
// # Stream Resolution
//
// [YTDLPResolver] runs yt-dlp with --get-url for the best audio format.
// [CachedResolver] keeps resolved URLs until the expiry they advertise, optionally persisting them
// through a [StreamStore], and joins concurrent resolutions of the same track.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : proxy rejected the credentials (401/403)
//   - [shared.ErrTokenExpired] : OAuth token could not be refreshed
//   - [shared.ErrNotFound] : unknown playlist, album or artist (404)
//   - [shared.ErrAPIRequest] : any other failed request
//   - [shared.ErrServiceUnavailable] : proxy unreachable
//   - [shared.ErrStreamUnavailable] : yt-dlp could not produce a URL
//
// Network failures and 5xx responses are retried with exponential backoff.
package services
