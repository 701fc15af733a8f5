package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytbridge/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTracksLoaded MsgKind = iota
	MsgPlaylistsLoaded
	MsgStreamResolved
	MsgCommandFailed
)

type tracksLoaded struct {
	title  string
	tracks []models.Track
}

type streamResolved struct {
	track models.Track
	url   string
}

// tracksLoadedMsg is the constructor for [MsgTracksLoaded]
func tracksLoadedMsg(title string, tracks []models.Track) Msg {
	return Msg{kind: MsgTracksLoaded, data: tracksLoaded{title: title, tracks: tracks}}
}

// playlistsLoadedMsg is the constructor for [MsgPlaylistsLoaded]
func playlistsLoadedMsg(playlists []models.PlaylistSummary) Msg {
	return Msg{kind: MsgPlaylistsLoaded, data: playlists}
}

// streamResolvedMsg is the constructor for [MsgStreamResolved]
func streamResolvedMsg(track models.Track, url string) Msg {
	return Msg{kind: MsgStreamResolved, data: streamResolved{track: track, url: url}}
}

// commandFailedMsg is the constructor for [MsgCommandFailed]
func commandFailedMsg(err error) Msg {
	return Msg{kind: MsgCommandFailed, data: err}
}
