// Package session owns the process-wide authenticated catalog client.
//
// One [Manager] exists per process. Every read and write of the shared client handle goes
// through its mutex, so building a client from disk and logging out never interleave.
// Handlers take one snapshot via [Manager.Client] and use it for their whole execution;
// catalog calls themselves run outside the lock.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytbridge/internal/services"
)

// Paths locates the two credential files. Cookie wins when both exist.
type Paths struct {
	Cookie string
	OAuth  string
}

// Options configures a [Manager].
type Options struct {
	Paths   Paths
	Factory services.ClientFactory
	// OAuth refreshes oauth-token credentials; nil uses stored tokens as-is.
	OAuth  *oauth2.Config
	Logger *log.Logger
}

// Manager holds the shared client.
type Manager struct {
	mu     sync.Mutex
	client services.Catalog
	kind   services.CredentialKind

	paths   Paths
	factory services.ClientFactory
	oauth   *oauth2.Config
	logger  *log.Logger
}

// New creates an unauthenticated Manager.
func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		paths:   opts.Paths,
		factory: opts.Factory,
		oauth:   opts.OAuth,
		logger:  logger.WithPrefix("session"),
	}
}

// EnsureAuthenticated builds the shared client from stored credentials unless one is present,
// trying the cookie file before the oauth-token file. It reports whether a client is now available.
// Failures are logged and leave the session unauthenticated.
func (m *Manager) EnsureAuthenticated(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return true
	}

	loaders := []struct {
		path string
		load func(string) (*services.Credentials, error)
	}{
		{m.paths.Cookie, LoadCookie},
		{m.paths.OAuth, func(p string) (*services.Credentials, error) { return LoadOAuth(p, m.oauth) }},
	}

	for _, l := range loaders {
		if l.path == "" {
			continue
		}
		if _, err := os.Stat(l.path); err != nil {
			continue
		}

		m.logger.Info("loading credentials", "file", l.path)
		creds, err := l.load(l.path)
		if err != nil {
			m.logger.Error("failed to load credentials", "file", l.path, "error", err)
			continue
		}

		client, err := m.factory(ctx, creds)
		if err != nil {
			m.logger.Error("failed to initialize client", "file", l.path, "error", err)
			continue
		}

		m.client, m.kind = client, creds.Kind
		m.logger.Info("client initialized", "kind", creds.Kind, "refreshing", creds.OAuth != nil)
		return true
	}
	return false
}

// Client returns the shared client, or a fresh anonymous one (never cached) when the session
// is unauthenticated. authenticated reports which one was returned.
func (m *Manager) Client(ctx context.Context) (client services.Catalog, authenticated bool, err error) {
	m.mu.Lock()
	client = m.client
	m.mu.Unlock()

	if client != nil {
		return client, true, nil
	}

	client, err = m.factory(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create anonymous client: %w", err)
	}
	return client, false, nil
}

// Shared returns the authenticated client, or nil when the session is unauthenticated.
func (m *Manager) Shared() services.Catalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// Authenticated reports whether the shared client is present.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

// Kind is the credential kind of the shared client, "" when unauthenticated.
func (m *Manager) Kind() services.CredentialKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return ""
	}
	return m.kind
}

// Logout deletes both credential files and drops the shared client. The client is dropped
// even when a file cannot be removed.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, path := range []string{m.paths.OAuth, m.paths.Cookie} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
		}
	}

	m.client, m.kind = nil, ""
	m.logger.Info("logged out")
	return errors.Join(errs...)
}
