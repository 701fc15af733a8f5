package session

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytbridge/internal/services"
	"github.com/desertthunder/ytbridge/internal/shared"
)

// YouTubeScope is the OAuth scope the oauth-token credential is issued for.
const YouTubeScope = "https://www.googleapis.com/auth/youtube"

// Google OAuth endpoints for the device-code flow.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:       "https://accounts.google.com/o/oauth2/auth",
	TokenURL:      "https://oauth2.googleapis.com/token",
	DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
	AuthStyle:     oauth2.AuthStyleInParams,
}

// OAuthConfig builds the OAuth client config from the environment-provided pair, or nil
// when no client id is configured.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	if clientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     GoogleEndpoint,
		Scopes:       []string{YouTubeScope},
	}
}

// LoadCookie reads browser.json, a flat map of request headers captured from a signed-in
// browser. The map must carry a Cookie header.
func LoadCookie(path string) (*services.Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", shared.ErrInvalidCredentials, path)
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: %s is not a header map", shared.ErrInvalidCredentials, path)
	}

	headers := map[string]string{}
	parsed.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			headers[key.String()] = value.Str
		}
		return true
	})

	if !hasHeader(headers, "cookie") {
		return nil, fmt.Errorf("%w: %s has no cookie header", shared.ErrInvalidCredentials, path)
	}

	return &services.Credentials{Kind: services.CredentialCookie, Source: path, Headers: headers}, nil
}

func hasHeader(headers map[string]string, name string) bool {
	for key, value := range headers {
		if strings.EqualFold(key, name) && value != "" {
			return true
		}
	}
	return false
}

// oauthFile is the on-disk oauth.json layout.
type oauthFile struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// LoadOAuth reads oauth.json. Any client id/secret stored in the file is ignored; cfg, built from
// the environment, is what refreshes the token. A nil cfg uses the token as stored.
func LoadOAuth(path string, cfg *oauth2.Config) (*services.Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f oauthFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidCredentials, path, err)
	}
	if f.AccessToken == "" && f.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s has no token", shared.ErrInvalidCredentials, path)
	}

	token := &oauth2.Token{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		TokenType:    f.TokenType,
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if f.ExpiresAt > 0 {
		token.Expiry = time.Unix(f.ExpiresAt, 0)
	}

	return &services.Credentials{Kind: services.CredentialOAuth, Source: path, Token: token, OAuth: cfg}, nil
}

// WriteOAuth stores token as oauth.json.
func WriteOAuth(path string, token *oauth2.Token) error {
	f := oauthFile{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Scope:        YouTubeScope,
	}
	if !token.Expiry.IsZero() {
		f.ExpiresAt = token.Expiry.Unix()
		f.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
