package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytbridge/internal/session"
	"github.com/desertthunder/ytbridge/internal/shared"
	"github.com/desertthunder/ytbridge/internal/ui"
)

// AuthCookie writes browser.json from a cURL command copied out of the browser's DevTools.
func (r *Runner) AuthCookie(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var (
		headers *shared.CurlHeaders
		err     error
	)
	if curlFile != "" {
		headers, err = shared.ParseCurlFile(curlFile)
	} else {
		headers, err = shared.ParseCurlCommand([]byte(curlCmd))
	}
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}

	outputPath := cmd.String("output")
	if outputPath == "" {
		outputPath = r.config.CookiePath()
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := headers.WriteBrowserFile(outputPath); err != nil {
		return err
	}

	r.logger.Info("browser.json saved", "path", outputPath)
	r.writePlainln("%s", ui.Success("✓ Cookie credentials saved"))
	r.writePlainln("Auth file: %s", outputPath)
	return nil
}

// AuthOAuth runs the device-code flow and stores the token as oauth.json.
func (r *Runner) AuthOAuth(ctx context.Context, cmd *cli.Command) error {
	cfg := session.OAuthConfig(r.config.OAuth.ClientID, r.config.OAuth.ClientSecret)
	openBrowser := !cmd.Bool("no-browser")

	token, err := session.DeviceLogin(ctx, cfg, func(resp *oauth2.DeviceAuthResponse) {
		r.writePlainln("%s", ui.Title("Sign in to YouTube Music"))
		r.writePlainln("Open %s and enter the code %s", resp.VerificationURI, ui.Success(resp.UserCode))
		if openBrowser {
			if err := shared.OpenBrowser(resp.VerificationURI); err != nil {
				r.logger.Warn("could not open browser", "error", err)
			}
		}
	})
	if err != nil {
		return err
	}

	path := r.config.OAuthPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := session.WriteOAuth(path, token); err != nil {
		return err
	}

	r.logger.Info("oauth.json saved", "path", path)
	r.writePlainln("%s", ui.Success("✓ OAuth credentials saved"))
	r.writePlainln("Auth file: %s", path)
	return nil
}

// AuthStatus reports which stored credential the session would use and who it belongs to.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sess := r.newSession(ctx)
	if !sess.Authenticated() {
		r.writePlainln("%s", ui.Failure("✗ Not authenticated"))
		r.writePlainln("Run 'ytbridge auth cookie' or 'ytbridge auth oauth' to sign in.")
		return nil
	}

	r.writePlainln("%s", ui.Success("✓ Authenticated"))
	r.writePlainln("Credential: %s", sess.Kind())

	router := r.newRouter(sess, nil)
	payload, err := r.dispatch(ctx, router, "get_user_info", nil)
	if err != nil {
		r.writePlainln("%s", ui.Warning(fmt.Sprintf("Account lookup failed: %v", err)))
		return nil
	}
	r.writePlainln("Account: %v", payload["name"])
	return nil
}

// AuthLogout deletes both credential files.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sess := r.newSession(ctx)
	if err := sess.Logout(); err != nil {
		return err
	}
	r.writePlainln("%s", ui.Success("✓ Logged out"))
	return nil
}
