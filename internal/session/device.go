package session

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/desertthunder/ytbridge/internal/shared"
)

// DeviceLogin runs the OAuth device-code flow: it requests a user code, hands it to prompt,
// then polls until the user approves it in a browser or the code expires.
func DeviceLogin(ctx context.Context, cfg *oauth2.Config, prompt func(*oauth2.DeviceAuthResponse)) (*oauth2.Token, error) {
	if cfg == nil || cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: %s is not set", shared.ErrMissingCredentials, shared.EnvClientID)
	}

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: device code request: %v", shared.ErrAuthFailed, err)
	}

	if prompt != nil {
		prompt(resp)
	}

	token, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}
