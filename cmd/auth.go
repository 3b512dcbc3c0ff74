package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/server"
	"github.com/desertthunder/clouder/internal/services"
	"github.com/desertthunder/clouder/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthLogin runs the authorization-code flow through a local callback server and stores the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	oauthConfig, err := services.NewOAuthConfig(r.config.Credentials.Spotify.Map())
	if err != nil {
		return err
	}

	sess, err := r.Session(ctx)
	if err != nil {
		return err
	}

	tokens, err := r.doOAuth(ctx, oauthConfig, cmd.Duration("timeout"), !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := sess.Login(ctx, tokens); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.logger.Info("authentication successful")
	return r.writePlain("✓ Signed in to Spotify\n")
}

// doOAuth serves the redirect URL until the first callback arrives or timeout passes.
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config, timeout time.Duration, openBrowser bool) (models.Session, error) {
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: redirect_uri: %w", shared.ErrInvalidConfig, err)
	}
	if timeout <= 0 {
		timeout = authTimeout
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(config, state)
	router := server.NewRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx, redirect.Host, router, r.logger)
	}()

	authURL := services.GetAuthURL(config, state)
	r.writePlain("Open this URL to sign in with Spotify:\n%s\n", authURL)
	if openBrowser {
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	r.logger.Info("waiting for authorization callback", "addr", redirect.Host, "timeout", timeout)

	select {
	case result := <-handler.Result():
		cancel()
		<-serveErr
		return result.Session, result.Err
	case err := <-serveErr:
		if err == nil {
			err = ctx.Err()
		}
		return models.Session{}, fmt.Errorf("%w: callback server: %w", shared.ErrAuthFailed, err)
	case <-ctx.Done():
		<-serveErr
		return models.Session{}, fmt.Errorf("%w: timed out waiting for callback", shared.ErrAuthFailed)
	}
}

// AuthStatus reports whether a session is stored and how it refreshes.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.Session(ctx)
	if err != nil {
		return err
	}

	authenticated := sess.Authenticated()
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated": authenticated,
			"refresh":       r.config.API.Refresh,
			"mode":          r.config.Player.Mode,
		}, true)
	}

	if !authenticated {
		return r.writePlain("✗ Not signed in\nRun 'clouder auth login' to connect Spotify\n")
	}
	return r.writePlain("✓ Signed in\nRefresh: %s\nPlayer mode: %s\n", r.config.API.Refresh, r.config.Player.Mode)
}

// AuthRefresh forces a token refresh.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.authenticated(ctx)
	if err != nil {
		return err
	}

	if _, err := sess.Refresh(ctx, sess.AccessToken()); err != nil {
		if errors.Is(err, shared.ErrAuthExpired) {
			return fmt.Errorf("%w: run `clouder auth login`", err)
		}
		return err
	}

	r.logger.Info("access token refreshed")
	return r.writePlain("✓ Access token refreshed\n")
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.Session(ctx)
	if err != nil {
		return err
	}
	if err := sess.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}
