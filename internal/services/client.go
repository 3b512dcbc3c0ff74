// Session-aware HTTP client shared by the Spotify and clouder services
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/shared"
)

// AuthMode selects how the access token is attached to a request.
type AuthMode int

const (
	// AuthBearer sends Authorization: Bearer <token>.
	AuthBearer AuthMode = iota
	// AuthQuery sends the token as the sp_token query parameter.
	AuthQuery
	// AuthNone sends no credentials and never refreshes.
	AuthNone
)

const tokenParam = "sp_token"

func (m AuthMode) String() string {
	switch m {
	case AuthBearer:
		return "bearer"
	case AuthQuery:
		return "query"
	default:
		return "none"
	}
}

// Tokens is the session the client authenticates with. [session.Session] implements it.
type Tokens interface {
	AccessToken() string
	Refresh(ctx context.Context, stale string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Empty reports a 204 or a response without a body.
func (r *APIResponse) Empty() bool {
	return r.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(r.Body)) == 0
}

// Err returns a [shared.StatusError] for non-2xx responses and nil otherwise.
func (r *APIResponse) Err() error {
	if r.OK() {
		return nil
	}
	return &shared.StatusError{StatusCode: r.StatusCode, Body: string(r.Body)}
}

// Decode unmarshals the JSON body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client wraps outbound calls with the session token.
//
// A 401 triggers one shared refresh and exactly one retry; a 401 on the retry revokes the session.
type Client struct {
	tokens     Tokens
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a client bound to tokens. A nil httpClient uses [http.DefaultClient].
func NewClient(tokens Tokens, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Client{tokens: tokens, httpClient: httpClient, logger: shared.WithLogger(logger, "component", "client")}
}

// Do sends the request and returns the response for any status except an unrecoverable 401.
func (c *Client) Do(ctx context.Context, method, rawURL string, body []byte, mode AuthMode) (*APIResponse, error) {
	if mode == AuthNone {
		return c.send(ctx, method, rawURL, body, mode, "")
	}

	token := c.tokens.AccessToken()
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	resp, err := c.send(ctx, method, rawURL, body, mode, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	c.logger.Debug("request unauthorized, refreshing", "method", method, "mode", mode)
	fresh, err := c.tokens.Refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(ctx, method, rawURL, body, mode, fresh)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, c.tokens.Revoke(ctx, fresh)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, rawURL string, body []byte, mode AuthMode, token string) (*APIResponse, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if mode == AuthQuery {
		q := u.Query()
		q.Set(tokenParam, token)
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mode == AuthBearer {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("request", "method", method, "host", u.Host, "path", u.Path, "status", resp.StatusCode)
	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}
