package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/clouder/internal/shared"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"acc","refresh_token":"ref","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:3000/callback",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestOAuthHandler(t *testing.T) {
	tokens := newTokenServer(t)

	t.Run("Routes", func(t *testing.T) {
		h := NewOAuthHandler(newOAuthConfig(tokens.URL), "s")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("Success", func(t *testing.T) {
		h := NewOAuthHandler(newOAuthConfig(tokens.URL), "s")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := <-h.Result()
		if result.Err != nil {
			t.Fatalf("unexpected error %v", result.Err)
		}
		if result.Session.AccessToken != "acc" || result.Session.RefreshToken != "ref" {
			t.Errorf("unexpected session %+v", result.Session)
		}
	})

	t.Run("Failures", func(t *testing.T) {
		tests := []struct {
			name   string
			query  string
			status int
		}{
			{"state mismatch", "state=other&code=good", http.StatusBadRequest},
			{"denied", "state=s&error=access_denied", http.StatusBadRequest},
			{"bad code", "state=s&code=bad", http.StatusBadGateway},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := NewOAuthHandler(newOAuthConfig(tokens.URL), "s")
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

				if rec.Code != tt.status {
					t.Errorf("expected %d, got %d", tt.status, rec.Code)
				}
				if result := <-h.Result(); !errors.Is(result.Err, shared.ErrAuthFailed) {
					t.Errorf("expected ErrAuthFailed, got %v", result.Err)
				}
			})
		}
	})

	t.Run("Only First Callback", func(t *testing.T) {
		h := NewOAuthHandler(newOAuthConfig(tokens.URL), "s")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}

		<-h.Result()
		if _, open := <-h.Result(); open {
			t.Error("expected result channel to be closed")
		}
	})
}
