// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytbridge/internal/services"
)

// FakeCatalog is a test double for [services.Catalog] serving canned JSON.
//
// Responses maps a method name ("Search", "Home", ...) to the JSON it returns; Errors maps a
// method name to the error it fails with. Search responses can be keyed per filter as
// "Search:songs". Calls records every method invoked with its arguments.
type FakeCatalog struct {
	Responses   map[string]string
	Errors      map[string]error
	Suggestions []string

	mu    sync.Mutex
	calls []Call
	gate  chan struct{}
}

// Call is one recorded [FakeCatalog] invocation.
type Call struct {
	Method string
	Args   []any
}

// NewFakeCatalog creates a FakeCatalog with the given canned responses.
func NewFakeCatalog(responses map[string]string) *FakeCatalog {
	if responses == nil {
		responses = map[string]string{}
	}
	return &FakeCatalog{Responses: responses, Errors: map[string]error{}}
}

// Block makes every call wait until the returned release function is called.
func (f *FakeCatalog) Block() (release func()) {
	f.gate = make(chan struct{})
	var once sync.Once
	return func() { once.Do(func() { close(f.gate) }) }
}

// Calls returns a copy of the recorded calls.
func (f *FakeCatalog) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns the recorded calls of one method.
func (f *FakeCatalog) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeCatalog) serve(ctx context.Context, key, method string, args ...any) (gjson.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return gjson.Result{}, ctx.Err()
		}
	}

	if err, ok := f.Errors[key]; ok {
		return gjson.Result{}, err
	}
	if err, ok := f.Errors[method]; ok {
		return gjson.Result{}, err
	}
	if body, ok := f.Responses[key]; ok {
		return gjson.Parse(body), nil
	}
	if body, ok := f.Responses[method]; ok {
		return gjson.Parse(body), nil
	}
	return gjson.Parse("[]"), nil
}

func (f *FakeCatalog) Search(ctx context.Context, query, filter string, limit int) (gjson.Result, error) {
	return f.serve(ctx, "Search:"+filter, "Search", query, filter, limit)
}

func (f *FakeCatalog) SearchSuggestions(ctx context.Context, query string) ([]string, error) {
	if _, err := f.serve(ctx, "SearchSuggestions", "SearchSuggestions", query); err != nil {
		return nil, err
	}
	return f.Suggestions, nil
}

func (f *FakeCatalog) LibraryPlaylists(ctx context.Context, limit int) (gjson.Result, error) {
	return f.serve(ctx, "LibraryPlaylists", "LibraryPlaylists", limit)
}

func (f *FakeCatalog) LikedSongs(ctx context.Context, limit int) (gjson.Result, error) {
	return f.serve(ctx, "LikedSongs", "LikedSongs", limit)
}

func (f *FakeCatalog) Playlist(ctx context.Context, playlistID string, limit int) (gjson.Result, error) {
	return f.serve(ctx, "Playlist:"+playlistID, "Playlist", playlistID, limit)
}

func (f *FakeCatalog) Album(ctx context.Context, browseID string) (gjson.Result, error) {
	return f.serve(ctx, "Album:"+browseID, "Album", browseID)
}

func (f *FakeCatalog) Artist(ctx context.Context, channelID string) (gjson.Result, error) {
	return f.serve(ctx, "Artist:"+channelID, "Artist", channelID)
}

func (f *FakeCatalog) ArtistAlbums(ctx context.Context, browseID, params string) (gjson.Result, error) {
	return f.serve(ctx, "ArtistAlbums:"+browseID, "ArtistAlbums", browseID, params)
}

func (f *FakeCatalog) WatchPlaylist(ctx context.Context, videoID string, limit int) (gjson.Result, error) {
	return f.serve(ctx, "WatchPlaylist", "WatchPlaylist", videoID, limit)
}

func (f *FakeCatalog) AccountInfo(ctx context.Context) (gjson.Result, error) {
	return f.serve(ctx, "AccountInfo", "AccountInfo")
}

func (f *FakeCatalog) Home(ctx context.Context, limit int) (gjson.Result, error) {
	return f.serve(ctx, "Home", "Home", limit)
}

// FakeFactory is a [services.ClientFactory] handing out Authed for credentialed requests and
// Anonymous otherwise. It records the credentials it was asked to build.
type FakeFactory struct {
	Authed    services.Catalog
	Anonymous services.Catalog
	Err       error

	mu    sync.Mutex
	Built []*services.Credentials
}

// Factory returns the [services.ClientFactory] func.
func (f *FakeFactory) Factory() services.ClientFactory {
	return func(_ context.Context, creds *services.Credentials) (services.Catalog, error) {
		f.mu.Lock()
		f.Built = append(f.Built, creds)
		f.mu.Unlock()

		if f.Err != nil && creds != nil {
			return nil, f.Err
		}
		if creds == nil {
			return f.Anonymous, nil
		}
		return f.Authed, nil
	}
}

// BuiltCount returns how many clients were requested.
func (f *FakeFactory) BuiltCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Built)
}

// FakeResolver is a test double for [services.StreamResolver].
type FakeResolver struct {
	URL string
	Err error

	calls atomic.Int32
}

func (r *FakeResolver) ResolveAudioURL(_ context.Context, videoID string) (string, error) {
	r.calls.Add(1)
	if r.Err != nil {
		return "", r.Err
	}
	return r.URL + videoID, nil
}

// Calls returns how many times the resolver ran.
func (r *FakeResolver) Calls() int { return int(r.calls.Load()) }

// WriteCookieFile writes a minimal browser.json to path.
func WriteCookieFile(t *testing.T, path string) {
	t.Helper()
	body := `{"User-Agent":"test","Cookie":"SAPISID=abc","Authorization":"SAPISIDHASH 1_x","X-Goog-AuthUser":"0"}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("Failed to write cookie file: %v", err)
	}
}

// WriteOAuthFile writes a minimal oauth.json to path.
func WriteOAuthFile(t *testing.T, path string) {
	t.Helper()
	body := `{"access_token":"ya29.test","refresh_token":"1//r","token_type":"Bearer","expires_at":4102444800,"client_id":"stale","client_secret":"stale"}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("Failed to write oauth file: %v", err)
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
