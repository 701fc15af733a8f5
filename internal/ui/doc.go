// Package ui implements an interactive terminal browser using bubbletea's Elm architecture.
//
// The TUI sends the same command envelopes as the stdio bridge, dispatched in-process through a
// [Dispatcher]:
//  1. [SearchView] : type a query, or open the library with ctrl+l
//  2. [PlaylistListView] : pick a library playlist
//  3. [TrackListView] : search results, playlist tracks or a radio queue
//  4. [StreamView] : the resolved stream URL of the selected track
//
// Results arrive as the Msg union type; a spinner runs while a command is in flight.
package ui
