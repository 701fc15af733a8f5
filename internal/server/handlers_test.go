package server_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytbridge/internal/server"
	"github.com/desertthunder/ytbridge/internal/session"
	"github.com/desertthunder/ytbridge/internal/shared"
	th "github.com/desertthunder/ytbridge/internal/testing"
)

type bridge struct {
	paths    session.Paths
	authed   *th.FakeCatalog
	anon     *th.FakeCatalog
	factory  *th.FakeFactory
	session  *session.Manager
	resolver *th.FakeResolver
	router   *server.Router
	logs     *bytes.Buffer
}

func newBridge(t *testing.T, loggedIn bool) *bridge {
	t.Helper()
	dir := t.TempDir()

	b := &bridge{
		paths:    session.Paths{Cookie: filepath.Join(dir, "browser.json"), OAuth: filepath.Join(dir, "oauth.json")},
		authed:   th.NewFakeCatalog(nil),
		anon:     th.NewFakeCatalog(nil),
		resolver: &th.FakeResolver{URL: "https://media.example/"},
		logs:     &bytes.Buffer{},
	}
	b.factory = &th.FakeFactory{Authed: b.authed, Anonymous: b.anon}
	logger := log.New(b.logs)

	b.session = session.New(session.Options{Paths: b.paths, Factory: b.factory.Factory(), Logger: logger})
	if loggedIn {
		th.WriteCookieFile(t, b.paths.Cookie)
		th.WriteOAuthFile(t, b.paths.OAuth)
		require.True(t, b.session.EnsureAuthenticated(context.Background()))
	}

	b.router = server.NewRouter(logger)
	server.NewHandlers(b.session, b.resolver, nil, logger).Register(b.router)
	return b
}

// call dispatches one request and returns the encoded response.
func (b *bridge) call(t *testing.T, command string, params map[string]any) gjson.Result {
	t.Helper()
	req, err := server.NewRequest(command, "c1", params)
	require.NoError(t, err)

	resp := b.router.Dispatch(context.Background(), req)
	line, err := json.Marshal(resp)
	require.NoError(t, err)

	out := gjson.ParseBytes(line)
	require.Equal(t, "c1", out.Get("callId").String())
	return out
}

func requireOK(t *testing.T, res gjson.Result) {
	t.Helper()
	require.Equal(t, "ok", res.Get("status").String(), res.Raw)
}

func ids(res gjson.Result, path string) []string {
	var out []string
	for _, item := range res.Get(path).Array() {
		out = append(out, item.Get("id").String())
	}
	return out
}

func TestPing(t *testing.T) {
	b := newBridge(t, false)
	res := b.call(t, "ping", nil)
	requireOK(t, res)
	assert.Equal(t, "pong", res.Get("data").String())
}

func TestUnknownCommand(t *testing.T) {
	b := newBridge(t, false)
	res := b.call(t, "fly", nil)
	assert.Equal(t, "error", res.Get("status").String())
	assert.Equal(t, "Unknown command: fly", res.Get("message").String())
}

func TestAuthCommands(t *testing.T) {
	t.Run("check_auth reports presence", func(t *testing.T) {
		assert.False(t, newBridge(t, false).call(t, "check_auth", nil).Get("authenticated").Bool())
		assert.True(t, newBridge(t, true).call(t, "check_auth", nil).Get("authenticated").Bool())
	})

	t.Run("check_auth does not load credentials", func(t *testing.T) {
		b := newBridge(t, false)
		th.WriteCookieFile(t, b.paths.Cookie)

		assert.False(t, b.call(t, "check_auth", nil).Get("authenticated").Bool())
		assert.True(t, b.call(t, "reload_auth", nil).Get("authenticated").Bool())
		assert.True(t, b.call(t, "check_auth", nil).Get("authenticated").Bool())
	})

	t.Run("logout then check_auth", func(t *testing.T) {
		b := newBridge(t, true)

		res := b.call(t, "logout", nil)
		requireOK(t, res)
		assert.Equal(t, "Logged out", res.Get("message").String())

		assert.False(t, b.call(t, "check_auth", nil).Get("authenticated").Bool())
		assert.NoFileExists(t, b.paths.Cookie)
		assert.NoFileExists(t, b.paths.OAuth)
	})
}

func TestAuthRequired(t *testing.T) {
	for _, command := range []string{"get_playlists", "get_user_info"} {
		t.Run(command, func(t *testing.T) {
			b := newBridge(t, false)
			res := b.call(t, command, nil)
			assert.Equal(t, "error", res.Get("status").String())
			assert.Equal(t, "Not authenticated", res.Get("message").String())
			assert.Empty(t, b.anon.Calls())
		})
	}

	t.Run("liked songs falls back to an empty list", func(t *testing.T) {
		b := newBridge(t, false)
		res := b.call(t, "get_liked_songs", nil)
		requireOK(t, res)
		assert.True(t, res.Get("tracks").IsArray())
		assert.Empty(t, res.Get("tracks").Array())
	})
}

func TestLibraryCommands(t *testing.T) {
	b := newBridge(t, true)
	b.authed.Responses["LibraryPlaylists"] = `[
		{"playlistId":"PL1","title":"Mix","thumbnails":[{"url":"s"},{"url":"l"}],"count":12},
		{"title":"no id"}
	]`
	b.authed.Responses["LikedSongs"] = `{"tracks":[{"videoId":"v1","title":"A"},{"title":"dropped"}]}`
	b.authed.Responses["AccountInfo"] = `{"accountName":"Me","accountPhotoUrl":"me.jpg"}`

	t.Run("get_playlists", func(t *testing.T) {
		res := b.call(t, "get_playlists", nil)
		requireOK(t, res)
		assert.Equal(t, []string{"PL1"}, ids(res, "playlists"))
		assert.Equal(t, "l", res.Get("playlists.0.thumbUrl").String())
		assert.Equal(t, "12", res.Get("playlists.0.count").String())
		assert.Equal(t, []any{100}, b.authed.CallsTo("LibraryPlaylists")[0].Args)
	})

	t.Run("get_liked_songs", func(t *testing.T) {
		res := b.call(t, "get_liked_songs", nil)
		requireOK(t, res)
		assert.Equal(t, []string{"v1"}, ids(res, "tracks"))
	})

	t.Run("get_user_info", func(t *testing.T) {
		res := b.call(t, "get_user_info", nil)
		requireOK(t, res)
		assert.Equal(t, "Me", res.Get("name").String())
		assert.Equal(t, "me.jpg", res.Get("thumbUrl").String())
	})
}

func TestPlaylistTracks(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Responses["Playlist:PL1"] = `{"tracks":[{"videoId":"v1"},{"videoId":"v2"}]}`

		res := b.call(t, "get_playlist_tracks", map[string]any{"playlistId": "PL1"})
		requireOK(t, res)
		assert.Equal(t, []string{"v1", "v2"}, ids(res, "tracks"))
		assert.Equal(t, []any{"PL1", 100}, b.anon.CallsTo("Playlist")[0].Args)
	})

	t.Run("missing id", func(t *testing.T) {
		b := newBridge(t, false)
		res := b.call(t, "get_playlist_tracks", nil)
		assert.Equal(t, "error", res.Get("status").String())
		assert.Contains(t, res.Get("message").String(), "playlistId")
	})

	t.Run("authenticated uses the shared client", func(t *testing.T) {
		b := newBridge(t, true)
		b.call(t, "get_playlist_tracks", map[string]any{"playlistId": "PL1"})
		assert.Len(t, b.authed.CallsTo("Playlist"), 1)
		assert.Empty(t, b.anon.Calls())
	})
}

func TestSearchSuggestions(t *testing.T) {
	b := newBridge(t, false)
	b.anon.Suggestions = []string{"daft punk", "daft punk around the world"}

	res := b.call(t, "get_search_suggestions", map[string]any{"query": "daft"})
	requireOK(t, res)
	assert.Len(t, res.Get("suggestions").Array(), 2)

	empty := b.call(t, "get_search_suggestions", map[string]any{"query": ""})
	requireOK(t, empty)
	assert.Empty(t, empty.Get("suggestions").Array())
}

func TestSearch(t *testing.T) {
	b := newBridge(t, false)
	b.anon.Responses["Search:artists"] = `[{"browseId":"UC1","artist":"Band"},{"artist":"no id"}]`
	b.anon.Responses["Search:songs"] = `[{"videoId":"v1","title":"One"},{"videoId":"v2","title":"Two"}]`

	res := b.call(t, "search", map[string]any{"query": "band", "limit": 7})
	requireOK(t, res)
	assert.Equal(t, []string{"UC1"}, ids(res, "artists"))
	assert.Equal(t, "Band", res.Get("artists.0.name").String())
	assert.Equal(t, []string{"v1", "v2"}, ids(res, "tracks"))

	limits := map[any]any{}
	for _, c := range b.anon.CallsTo("Search") {
		limits[c.Args[1]] = c.Args[2]
	}
	assert.Equal(t, map[any]any{"artists": 5, "songs": 7}, limits)

	t.Run("default limit", func(t *testing.T) {
		b := newBridge(t, false)
		b.call(t, "search", map[string]any{"query": "x"})
		for _, c := range b.anon.CallsTo("Search") {
			if c.Args[1] == "songs" {
				assert.Equal(t, 20, c.Args[2])
			}
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Errors["Search:songs"] = fmt.Errorf("%w: boom", shared.ErrAPIRequest)
		res := b.call(t, "search", map[string]any{"query": "x"})
		assert.Equal(t, "error", res.Get("status").String())
		assert.Contains(t, res.Get("message").String(), "boom")
	})
}

func TestSearchMore(t *testing.T) {
	songs := `[{"videoId":"v1"},{"videoId":"v2"},{"videoId":"v3"},{"videoId":"v4"},{"videoId":"v5"}]`

	tests := []struct {
		name   string
		offset int
		limit  int
		want   []string
	}{
		{"second page", 2, 2, []string{"v3", "v4", "v5"}},
		{"offset zero", 0, 2, []string{"v1", "v2", "v3", "v4", "v5"}},
		{"offset equals results", 5, 2, nil},
		{"offset past results", 8, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBridge(t, false)
			b.anon.Responses["Search:songs"] = songs

			res := b.call(t, "search_more", map[string]any{"query": "q", "offset": tt.offset, "limit": tt.limit})
			requireOK(t, res)
			assert.True(t, res.Get("tracks").IsArray())
			assert.Equal(t, tt.want, ids(res, "tracks"))
			assert.Equal(t, tt.offset+tt.limit, b.anon.CallsTo("Search")[0].Args[2])
		})
	}

	t.Run("matches the tail of an equivalent search", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Responses["Search:songs"] = songs

		full := b.call(t, "search", map[string]any{"query": "q", "limit": 5})
		more := b.call(t, "search_more", map[string]any{"query": "q", "offset": 3, "limit": 2})
		assert.Equal(t, ids(full, "tracks")[3:], ids(more, "tracks"))
	})

	t.Run("artists filter", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Responses["Search:artists"] = `[{"browseId":"UC1"},{"browseId":"UC2"}]`

		res := b.call(t, "search_more", map[string]any{"query": "q", "offset": 1, "filter": "artists"})
		requireOK(t, res)
		assert.Equal(t, []string{"UC2"}, ids(res, "artists"))
		assert.False(t, res.Get("tracks").Exists())
	})
}

func TestArtist(t *testing.T) {
	artist := `{
		"name": "Band",
		"description": "bio",
		"thumbnails": [{"url":"a"},{"url":"b"}],
		"songs": {"browseId": "VLsongs", "params": "p1", "results": [{"videoId":"s1"},{"title":"no id"}]},
		"albums": {"browseId": "UCalbums", "params": "pa", "results": [{"browseId":"inline","year":"1999"}]},
		"singles": {"results": [{"browseId":"S1","type":"EP"},{"browseId":"S2","year":"2021"}]},
		"related": {"results": [{"browseId":"UC9","title":"Friend"}]}
	}`

	t.Run("full discography", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Responses["Artist:UC1"] = artist
		b.anon.Responses["ArtistAlbums:UCalbums"] = `[{"browseId":"A1","year":"2010"},{"browseId":"A2","year":"2015"},{"browseId":"A3"}]`

		res := b.call(t, "get_artist", map[string]any{"artistId": "UC1"})
		requireOK(t, res)

		assert.Equal(t, "Band", res.Get("name").String())
		assert.Equal(t, "bio", res.Get("description").String())
		assert.Equal(t, "b", res.Get("thumbUrl").String())
		assert.Equal(t, []string{"s1"}, ids(res, "topSongs"))
		assert.Equal(t, []string{"UC9"}, ids(res, "related"))
		assert.Equal(t, "VLsongs", res.Get("seeAllSongsId").String())
		assert.Equal(t, "p1", res.Get("seeAllSongsParams").String())
		assert.Equal(t, "UCalbums", res.Get("seeAllAlbumsId").String())
		assert.Equal(t, gjson.Null, res.Get("seeAllSinglesId").Type)

		assert.Equal(t, []string{"S2", "A2", "A1", "A3", "S1"}, ids(res, "discography"))
		assert.Equal(t, "Single", res.Get("discography.0.category").String())
		assert.Equal(t, "Album", res.Get("discography.1.category").String())
		assert.Equal(t, "EP", res.Get("discography.4.year").String())

		calls := b.anon.CallsTo("ArtistAlbums")
		require.Len(t, calls, 1)
		assert.Equal(t, []any{"UCalbums", "pa"}, calls[0].Args)
	})

	t.Run("falls back to inline results", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Responses["Artist:UC1"] = artist
		b.anon.Errors["ArtistAlbums:UCalbums"] = errors.New("unavailable")

		res := b.call(t, "get_artist", map[string]any{"artistId": "UC1"})
		requireOK(t, res)
		assert.Equal(t, []string{"S2", "inline", "S1"}, ids(res, "discography"))
	})

	t.Run("each section falls back on its own", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Responses["Artist:UC1"] = `{
			"name": "Band",
			"albums": {"browseId": "UCalbums", "params": "pa", "results": [{"browseId":"inline-album","year":"1999"}]},
			"singles": {"browseId": "UCsingles", "params": "ps", "results": [{"browseId":"inline-single","year":"2001"}]}
		}`
		b.anon.Responses["ArtistAlbums:UCalbums"] = `[{"browseId":"A1","year":"2010"}]`
		b.anon.Errors["ArtistAlbums:UCsingles"] = errors.New("unavailable")

		res := b.call(t, "get_artist", map[string]any{"artistId": "UC1"})
		requireOK(t, res)
		assert.Equal(t, []string{"A1", "inline-single"}, ids(res, "discography"))
		assert.Len(t, b.anon.CallsTo("ArtistAlbums"), 2)
	})

	t.Run("upstream failure", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Errors["Artist:UC1"] = fmt.Errorf("%w: artist", shared.ErrNotFound)

		res := b.call(t, "get_artist", map[string]any{"artistId": "UC1"})
		assert.Equal(t, "error", res.Get("status").String())
	})
}

func TestArtistSongs(t *testing.T) {
	t.Run("playlist browse id", func(t *testing.T) {
		for _, id := range []string{"VLabc", "PLabc"} {
			b := newBridge(t, false)
			b.anon.Responses["Playlist:"+id] = `{"tracks":[{"videoId":"v1"}]}`

			res := b.call(t, "get_artist_songs", map[string]any{"browseId": id})
			requireOK(t, res)
			assert.Equal(t, []string{"v1"}, ids(res, "tracks"))
			assert.Equal(t, []any{id, 100}, b.anon.CallsTo("Playlist")[0].Args)
			assert.Empty(t, b.anon.CallsTo("ArtistAlbums"))
		}
	})

	t.Run("discography browse id", func(t *testing.T) {
		b := newBridge(t, false)
		b.anon.Responses["ArtistAlbums:MPAD1"] = `[{"videoId":"v1"},{"videoId":"v2"}]`

		res := b.call(t, "get_artist_songs", map[string]any{"browseId": "MPAD1", "params": "xyz"})
		requireOK(t, res)
		assert.Equal(t, []string{"v1", "v2"}, ids(res, "tracks"))
		assert.Equal(t, []any{"MPAD1", "xyz"}, b.anon.CallsTo("ArtistAlbums")[0].Args)
	})
}

func TestHome(t *testing.T) {
	b := newBridge(t, false)
	b.anon.Responses["Home"] = `[
		{"title": "Quick picks", "contents": [
			{"videoId": "v1", "title": "Song", "browseId": "UCx"},
			{"browseId": "UC1234", "title": "Artist"},
			{"browseId": "MPAD5678", "title": "Album", "year": "2020"},
			{"playlistId": "PL1", "title": "Mix"}
		]},
		{"title": "Empty after normalization", "contents": [{"title": "nothing"}]}
	]`

	res := b.call(t, "get_home", nil)
	requireOK(t, res)

	sections := res.Get("data").Array()
	require.Len(t, sections, 1)
	assert.Equal(t, "Quick picks", sections[0].Get("title").String())

	var kinds []string
	for _, item := range sections[0].Get("contents").Array() {
		kinds = append(kinds, item.Get("type").String())
	}
	assert.Equal(t, []string{"song", "artist", "album", "playlist"}, kinds)
	assert.Equal(t, []any{10}, b.anon.CallsTo("Home")[0].Args)
}

func TestQueueRecommendations(t *testing.T) {
	b := newBridge(t, false)
	b.anon.Responses["WatchPlaylist"] = `{"tracks":[{"videoId":"seed"},{"videoId":"n1"},{"videoId":"n2"}]}`

	res := b.call(t, "get_queue_recommendations", map[string]any{"videoId": "seed"})
	requireOK(t, res)
	assert.Equal(t, []string{"n1", "n2"}, ids(res, "tracks"))
	assert.Equal(t, []any{"seed", 20}, b.anon.CallsTo("WatchPlaylist")[0].Args)
}

func TestAlbum(t *testing.T) {
	b := newBridge(t, false)
	b.anon.Responses["Album:MPRE1"] = `{
		"title": "Record",
		"thumbnails": [{"url":"cover"}],
		"tracks": [{"videoId":"t1","title":"One"},{"videoId":"t2","title":"Two","album":"Other"}]
	}`

	res := b.call(t, "get_album", map[string]any{"albumId": "MPRE1"})
	requireOK(t, res)
	assert.Equal(t, "MPRE1", res.Get("id").String())
	assert.Equal(t, "Record", res.Get("title").String())
	assert.Equal(t, "cover", res.Get("thumbUrl").String())
	for _, track := range res.Get("tracks").Array() {
		assert.Equal(t, "Record", track.Get("album").String())
		assert.Equal(t, "MPRE1", track.Get("albumId").String())
		assert.Equal(t, "cover", track.Get("thumbUrl").String())
	}
}

func TestStreamURL(t *testing.T) {
	t.Run("resolves", func(t *testing.T) {
		b := newBridge(t, false)
		res := b.call(t, "get_stream_url", map[string]any{"videoId": "v1"})
		requireOK(t, res)
		assert.Equal(t, "https://media.example/v1", res.Get("url").String())
	})

	t.Run("resolver failure", func(t *testing.T) {
		b := newBridge(t, false)
		b.resolver.Err = fmt.Errorf("%w: video unavailable", shared.ErrStreamUnavailable)

		res := b.call(t, "get_stream_url", map[string]any{"videoId": "v1"})
		assert.Equal(t, "error", res.Get("status").String())
		assert.Contains(t, res.Get("message").String(), "video unavailable")
	})

	t.Run("no resolver", func(t *testing.T) {
		sess := session.New(session.Options{Factory: (&th.FakeFactory{}).Factory()})
		router := server.NewRouter(nil)
		server.NewHandlers(sess, nil, nil, nil).Register(router)

		req, err := server.NewRequest("get_stream_url", 1, map[string]any{"videoId": "v1"})
		require.NoError(t, err)
		resp := router.Dispatch(context.Background(), req)
		assert.Equal(t, server.StatusError, resp.Status)
		assert.Contains(t, resp.Message, "no stream resolver configured")
	})
}
