package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytbridge/internal/models"
	"github.com/desertthunder/ytbridge/internal/server"
	"github.com/desertthunder/ytbridge/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SearchView ViewState = iota
	PlaylistListView
	TrackListView
	StreamView
)

// Dispatcher runs one command envelope. [server.Router] satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *server.Request) server.Response
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	router       Dispatcher
	view         ViewState
	width        int
	height       int
	input        textinput.Model
	spinner      spinner.Model
	loading      bool
	playlistList list.Model
	trackList    list.Model
	tracksFrom   ViewState
	selected     *models.Track
	streamURL    string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model that sends every command through router.
func NewModel(ctx context.Context, router Dispatcher) *Model {
	input := textinput.New()
	input.Placeholder = "Search songs"
	input.Prompt = "> "
	input.Focus()

	return &Model{
		ctx:          ctx,
		router:       router,
		view:         SearchView,
		input:        input,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		playlistList: newList("Library", nil),
		trackList:    newList("Tracks", nil),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

// Init starts the cursor blinking in the search box.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// State is the current view.
func (m *Model) State() ViewState { return m.view }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-6)
		m.trackList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case StreamView:
			return m.handleStreamKeys(msg)
		}

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	m.loading = false

	switch msg.kind {
	case MsgTracksLoaded:
		data := msg.data.(tracksLoaded)
		m.err = nil
		m.trackList.Title = data.title
		cmd := m.trackList.SetItems(trackItems(data.tracks))
		m.trackList.ResetSelected()
		m.view = TrackListView
		return m, cmd

	case MsgPlaylistsLoaded:
		m.err = nil
		cmd := m.playlistList.SetItems(playlistItems(msg.data.([]models.PlaylistSummary)))
		m.playlistList.ResetSelected()
		m.view = PlaylistListView
		return m, cmd

	case MsgStreamResolved:
		data := msg.data.(streamResolved)
		m.err = nil
		m.selected = &data.track
		m.streamURL = data.url
		m.view = StreamView
		return m, nil

	case MsgCommandFailed:
		m.err = msg.data.(error)
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.enter):
		query := m.input.Value()
		if query == "" {
			return m, nil
		}
		return m, m.start(m.search(query))
	case key.Matches(msg, m.keys.library):
		return m, m.start(m.loadLibrary())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.search):
		m.view = SearchView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.start(m.loadPlaylist(pl.playlist))
		}
		return m, nil
	}
	return m.updateActive(msg)
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = m.tracksFrom
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if t, ok := m.trackList.SelectedItem().(trackItem); ok {
			return m, m.start(m.resolve(t.track))
		}
		return m, nil
	case key.Matches(msg, m.keys.radio):
		if t, ok := m.trackList.SelectedItem().(trackItem); ok {
			return m, m.start(m.radio(t.track))
		}
		return m, nil
	}
	return m.updateActive(msg)
}

func (m *Model) handleStreamKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = TrackListView
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
	case key.Matches(msg, m.keys.radio):
		if m.selected != nil {
			return m, m.start(m.radio(*m.selected))
		}
	}
	return m, nil
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case SearchView:
		m.input, cmd = m.input.Update(msg)
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// start marks the model busy and runs cmd alongside the spinner.
func (m *Model) start(cmd tea.Cmd) tea.Cmd {
	m.loading = true
	m.err = nil
	if m.view != TrackListView && m.view != StreamView {
		m.tracksFrom = m.view
	}
	return tea.Batch(m.spinner.Tick, cmd)
}

// call sends one command through the router and returns its payload.
func (m *Model) call(command string, params map[string]any) (server.Payload, error) {
	req, err := server.NewRequest(command, shared.GenerateID(), params)
	if err != nil {
		return nil, err
	}
	resp := m.router.Dispatch(m.ctx, req)
	if resp.Status != server.StatusOK {
		return nil, errors.New(resp.Message)
	}
	return resp.Payload, nil
}

func (m *Model) tracksCmd(title, command string, params map[string]any) tea.Cmd {
	return func() tea.Msg {
		payload, err := m.call(command, params)
		if err != nil {
			return commandFailedMsg(err)
		}
		tracks, _ := payload["tracks"].([]models.Track)
		return tracksLoadedMsg(title, tracks)
	}
}

func (m *Model) search(query string) tea.Cmd {
	return m.tracksCmd(fmt.Sprintf("Results for '%s'", query), "search", map[string]any{"query": query})
}

func (m *Model) loadPlaylist(pl models.PlaylistSummary) tea.Cmd {
	return m.tracksCmd(pl.Title, "get_playlist_tracks", map[string]any{"playlistId": pl.ID})
}

func (m *Model) radio(t models.Track) tea.Cmd {
	return m.tracksCmd(fmt.Sprintf("Radio: %s", t.Title), "get_queue_recommendations", map[string]any{"videoId": t.ID})
}

func (m *Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		payload, err := m.call("get_playlists", nil)
		if err != nil {
			return commandFailedMsg(err)
		}
		playlists, _ := payload["playlists"].([]models.PlaylistSummary)
		return playlistsLoadedMsg(playlists)
	}
}

func (m *Model) resolve(t models.Track) tea.Cmd {
	return func() tea.Msg {
		payload, err := m.call("get_stream_url", map[string]any{"videoId": t.ID})
		if err != nil {
			return commandFailedMsg(err)
		}
		url, _ := payload["url"].(string)
		return streamResolvedMsg(t, url)
	}
}

// View renders the current view.
func (m *Model) View() string {
	var body string
	switch m.view {
	case SearchView:
		body = m.renderSearch()
	case PlaylistListView:
		body = fmt.Sprintf("%s\n\n%s", m.playlistList.View(),
			m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit}))
	case TrackListView:
		body = fmt.Sprintf("%s\n\n%s", m.trackList.View(),
			m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.radio, m.keys.back, m.keys.search, m.keys.quit}))
	case StreamView:
		body = m.renderStream()
	}

	if m.loading {
		body = fmt.Sprintf("%s\n%s Loading...", body, m.spinner.View())
	}
	if m.err != nil {
		body = fmt.Sprintf("%s\n%s", body, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	return body
}

func (m *Model) renderSearch() string {
	title := styles.title.Render("YouTube Music")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.library, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderStream() string {
	if m.selected == nil {
		return ""
	}
	t := m.selected
	title := styles.title.Render(t.Title)
	info := fmt.Sprintf("%s\n%s • %s\n\n%s",
		trackItem{track: *t}.Description(),
		styles.help.Render("id"), t.ID,
		styles.ok.Render(m.streamURL),
	)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.radio, m.keys.back, m.keys.search, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, router Dispatcher) error {
	p := tea.NewProgram(NewModel(ctx, router), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
