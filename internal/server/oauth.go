package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
	"golang.org/x/oauth2"
)

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head><title>clouder</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
  <h1 style="color: #1DB954">Logged in</h1>
  <p>{{.}}</p>
</body>
</html>
`))

// OAuthResult is the outcome of one authorization-code callback.
type OAuthResult struct {
	Session models.Session
	Err     error
}

// OAuthHandler receives the authorization-code redirect and exchanges the code for a session.
//
// Only the first callback is processed.
type OAuthHandler struct {
	config *oauth2.Config
	state  string
	hit    atomic.Bool
	once   sync.Once
	result chan OAuthResult
}

// NewOAuthHandler creates a handler expecting state, which should be random per login.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config: config,
		state:  state,
		result: make(chan OAuthResult, 1),
	}
}

// Routes returns the path of the configured redirect URL.
func (h *OAuthHandler) Routes() []string {
	if u, err := url.Parse(h.config.RedirectURL); err == nil && u.Path != "" {
		return []string{u.Path}
	}
	return []string{"/callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.hit.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.send(OAuthResult{Err: fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.send(OAuthResult{Err: fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{Err: fmt.Errorf("%w: token exchange: %w", shared.ErrAuthFailed, err)})
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}

	h.send(OAuthResult{Session: models.Session{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	successPage.Execute(w, "You can close this window and return to the terminal.")
}

func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.result <- result
		close(h.result)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.result
}
