// YouTube Music [Catalog] implementation
//
// Communicates with the FastAPI proxy server running on port 8080.
// The proxy wraps the ytmusicapi Python library for YouTube Music operations.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ytbridge/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// ClientOptions configures every [YTMusicClient] built by a factory.
type ClientOptions struct {
	BaseURL  string
	Language string
	Location string
	// RateLimit is requests per second shared by all clients of a factory; 0 disables it.
	RateLimit float64
	Retries   int
	// HTTPClient is the base client; OAuth clients wrap its transport.
	HTTPClient *http.Client
}

// YTMusicClient implements [Catalog] against the ytmusicapi proxy.
type YTMusicClient struct {
	baseURL    string
	language   string
	location   string
	authFile   string
	retries    int
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewYTMusicClient creates a client. Nil credentials give an anonymous client.
//
// Cookie credentials are forwarded to the proxy as the X-Auth-File path. OAuth credentials
// are carried by an [oauth2.Transport]; with a config present the token refreshes itself.
func NewYTMusicClient(ctx context.Context, opts ClientOptions, creds *Credentials) (*YTMusicClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultYTBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	y := &YTMusicClient{
		baseURL:    opts.BaseURL,
		language:   opts.Language,
		location:   opts.Location,
		retries:    opts.Retries,
		httpClient: opts.HTTPClient,
	}
	if opts.RateLimit > 0 {
		y.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	if creds == nil {
		return y, nil
	}

	switch creds.Kind {
	case CredentialCookie:
		if creds.Source == "" {
			return nil, fmt.Errorf("%w: cookie credentials without a source file", shared.ErrInvalidCredentials)
		}
		y.authFile = creds.Source
	case CredentialOAuth:
		// Without a client config the access token is used as is; with one, a refresh token is enough.
		switch {
		case creds.Token == nil:
			return nil, fmt.Errorf("%w: oauth credentials without a token", shared.ErrInvalidCredentials)
		case creds.OAuth == nil && creds.Token.AccessToken == "":
			return nil, fmt.Errorf("%w: oauth credentials without an access token", shared.ErrInvalidCredentials)
		case creds.Token.AccessToken == "" && creds.Token.RefreshToken == "":
			return nil, fmt.Errorf("%w: oauth credentials without an access or refresh token", shared.ErrInvalidCredentials)
		}
		y.authFile = creds.Source

		tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, opts.HTTPClient)
		var src oauth2.TokenSource
		if creds.OAuth != nil {
			src = creds.OAuth.TokenSource(tokenCtx, creds.Token)
		} else {
			src = oauth2.StaticTokenSource(creds.Token)
		}
		y.httpClient = oauth2.NewClient(tokenCtx, src)
	default:
		return nil, fmt.Errorf("%w: unknown credential kind %q", shared.ErrInvalidCredentials, creds.Kind)
	}
	return y, nil
}

// NewClientFactory returns a [ClientFactory] sharing opts (and one rate limiter) across clients.
func NewClientFactory(opts ClientOptions) ClientFactory {
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return func(ctx context.Context, creds *Credentials) (Catalog, error) {
		client, err := NewYTMusicClient(ctx, opts, creds)
		if err != nil {
			return nil, err
		}
		if limiter != nil {
			client.limiter = limiter
		}
		return client, nil
	}
}

func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// doRequest performs a GET against the proxy and parses the JSON body.
//
// Network failures and 5xx responses are retried; 4xx responses are not.
func (y *YTMusicClient) doRequest(ctx context.Context, endpoint string, query url.Values) (gjson.Result, error) {
	if query == nil {
		query = url.Values{}
	}
	if y.language != "" {
		query.Set("hl", y.language)
	}
	if y.location != "" {
		query.Set("gl", y.location)
	}
	apiURL := y.baseURL + endpoint + "?" + query.Encode()

	var result gjson.Result
	op := func() error {
		if y.limiter != nil {
			if err := y.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		res, err := y.get(ctx, apiURL)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newBackoff(), uint64(max(y.retries, 0))), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return gjson.Result{}, err
	}
	return result, nil
}

func (y *YTMusicClient) get(ctx context.Context, apiURL string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return gjson.Result{}, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return gjson.Result{}, backoff.Permanent(fmt.Errorf("%w: %v", shared.ErrTokenExpired, retrieveErr))
		}
		return gjson.Result{}, fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := "status " + strconv.Itoa(resp.StatusCode)
		if detail := gjson.GetBytes(body, "detail"); detail.Type == gjson.String && detail.Str != "" {
			reason = fmt.Sprintf("status %d: %s", resp.StatusCode, detail.Str)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return gjson.Result{}, backoff.Permanent(fmt.Errorf("%w: youtube music API error (%s)", shared.ErrNotAuthenticated, reason))
		case resp.StatusCode == http.StatusNotFound:
			return gjson.Result{}, backoff.Permanent(fmt.Errorf("%w: youtube music API error (%s)", shared.ErrNotFound, reason))
		case resp.StatusCode < 500:
			return gjson.Result{}, backoff.Permanent(fmt.Errorf("%w: youtube music API error (%s)", shared.ErrAPIRequest, reason))
		}
		return gjson.Result{}, fmt.Errorf("%w: youtube music API error (%s)", shared.ErrAPIRequest, reason)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, backoff.Permanent(fmt.Errorf("%w: invalid JSON response", shared.ErrAPIRequest))
	}
	return gjson.ParseBytes(body), nil
}

func limitQuery(limit int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// Search calls GET /api/search?q={query}&filter={filter}&limit={limit} on the proxy.
func (y *YTMusicClient) Search(ctx context.Context, query, filter string, limit int) (gjson.Result, error) {
	q := limitQuery(limit)
	q.Set("q", query)
	if filter != "" {
		q.Set("filter", filter)
	}
	return y.doRequest(ctx, "/api/search", q)
}

// SearchSuggestions calls GET /api/search/suggestions?q={query} on the proxy.
//
// Suggestions are plain strings, or objects with a "text" field when the proxy returns detailed runs.
func (y *YTMusicClient) SearchSuggestions(ctx context.Context, query string) ([]string, error) {
	res, err := y.doRequest(ctx, "/api/search/suggestions", url.Values{"q": {query}})
	if err != nil {
		return nil, err
	}

	suggestions := []string{}
	for _, s := range res.Array() {
		switch {
		case s.Type == gjson.String:
			suggestions = append(suggestions, s.Str)
		case s.IsObject() && s.Get("text").String() != "":
			suggestions = append(suggestions, s.Get("text").String())
		}
	}
	return suggestions, nil
}

// LibraryPlaylists calls GET /api/library/playlists on the proxy.
func (y *YTMusicClient) LibraryPlaylists(ctx context.Context, limit int) (gjson.Result, error) {
	return y.doRequest(ctx, "/api/library/playlists", limitQuery(limit))
}

// LikedSongs calls GET /api/library/liked on the proxy.
func (y *YTMusicClient) LikedSongs(ctx context.Context, limit int) (gjson.Result, error) {
	return y.doRequest(ctx, "/api/library/liked", limitQuery(limit))
}

// Playlist calls GET /api/playlists/{id} on the proxy.
func (y *YTMusicClient) Playlist(ctx context.Context, playlistID string, limit int) (gjson.Result, error) {
	return y.doRequest(ctx, "/api/playlists/"+url.PathEscape(playlistID), limitQuery(limit))
}

// Album calls GET /api/albums/{id} on the proxy.
func (y *YTMusicClient) Album(ctx context.Context, browseID string) (gjson.Result, error) {
	return y.doRequest(ctx, "/api/albums/"+url.PathEscape(browseID), nil)
}

// Artist calls GET /api/artists/{id} on the proxy.
func (y *YTMusicClient) Artist(ctx context.Context, channelID string) (gjson.Result, error) {
	return y.doRequest(ctx, "/api/artists/"+url.PathEscape(channelID), nil)
}

// ArtistAlbums calls GET /api/artists/{id}/albums?params={params} on the proxy.
func (y *YTMusicClient) ArtistAlbums(ctx context.Context, browseID, params string) (gjson.Result, error) {
	q := url.Values{}
	if params != "" {
		q.Set("params", params)
	}
	return y.doRequest(ctx, "/api/artists/"+url.PathEscape(browseID)+"/albums", q)
}

// WatchPlaylist calls GET /api/watch?videoId={id}&limit={limit} on the proxy.
func (y *YTMusicClient) WatchPlaylist(ctx context.Context, videoID string, limit int) (gjson.Result, error) {
	q := limitQuery(limit)
	q.Set("videoId", videoID)
	return y.doRequest(ctx, "/api/watch", q)
}

// AccountInfo calls GET /api/account on the proxy.
func (y *YTMusicClient) AccountInfo(ctx context.Context) (gjson.Result, error) {
	return y.doRequest(ctx, "/api/account", nil)
}

// Home calls GET /api/home?limit={limit} on the proxy.
func (y *YTMusicClient) Home(ctx context.Context, limit int) (gjson.Result, error) {
	return y.doRequest(ctx, "/api/home", limitQuery(limit))
}

var _ Catalog = (*YTMusicClient)(nil)
