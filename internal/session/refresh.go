package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
	"golang.org/x/oauth2"
)

// BackendRefresher refreshes through the clouder backend's /refresh_token endpoint.
type BackendRefresher struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendRefresher creates a refresher for the backend at baseURL. A nil client uses [http.DefaultClient].
func NewBackendRefresher(baseURL string, client *http.Client) *BackendRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackendRefresher{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: client}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Refresh posts refreshToken and decodes the new pair.
func (r *BackendRefresher) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/refresh_token", bytes.NewReader(body))
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: failed to read response: %w", shared.ErrRefreshFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Session{}, fmt.Errorf("%w: %w", shared.ErrRefreshFailed,
			&shared.StatusError{StatusCode: resp.StatusCode, Body: string(data)})
	}

	var out refreshResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return models.Session{}, fmt.Errorf("%w: failed to decode response: %w", shared.ErrRefreshFailed, err)
	}
	if out.AccessToken == "" {
		return models.Session{}, fmt.Errorf("%w: response has no access_token", shared.ErrRefreshFailed)
	}

	return models.Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

// OAuthRefresher refreshes directly against the OAuth token endpoint of config.
type OAuthRefresher struct {
	config *oauth2.Config
}

func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{config: config}
}

// Refresh uses a token source seeded with only the refresh token, which forces an exchange.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return models.Session{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}
