package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/session"
	"github.com/desertthunder/clouder/internal/shared"
	tu "github.com/desertthunder/clouder/internal/testing"
)

func newTestSession(t *testing.T, tokens models.Session, r session.Refresher) *session.Session {
	t.Helper()
	s, err := session.New(context.Background(), session.NewMemoryStore(tokens), r, nil)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return s
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Auth Modes", func(t *testing.T) {
		t.Run("Bearer", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer a1" {
					t.Errorf("expected bearer a1, got %q", got)
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			s := newTestSession(t, models.Session{AccessToken: "a1"}, &tu.StubRefresher{})
			resp, err := NewClient(s, nil, nil).Do(ctx, http.MethodGet, server.URL+"/me", nil, AuthBearer)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() {
				t.Errorf("expected 200, got %d", resp.StatusCode)
			}
		})

		t.Run("Query", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("sp_token"); got != "a1" {
					t.Errorf("expected sp_token a1, got %q", got)
				}
				if got := r.URL.Query().Get("keep"); got != "yes" {
					t.Errorf("expected existing query to be kept, got %q", got)
				}
				if r.Header.Get("Authorization") != "" {
					t.Error("expected no Authorization header")
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			s := newTestSession(t, models.Session{AccessToken: "a1"}, &tu.StubRefresher{})
			_, err := NewClient(s, nil, nil).Do(ctx, http.MethodPost, server.URL+"/move?keep=yes", []byte(`{}`), AuthQuery)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("None", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "" || r.URL.Query().Has("sp_token") {
					t.Error("expected no credentials")
				}
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			r := &tu.StubRefresher{}
			s := newTestSession(t, models.Session{}, r)
			resp, err := NewClient(s, nil, nil).Do(ctx, http.MethodGet, server.URL, nil, AuthNone)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected raw 401, got %d", resp.StatusCode)
			}
			if r.Calls.Load() != 0 {
				t.Error("unauthenticated requests must not refresh")
			}
		})
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		s := newTestSession(t, models.Session{}, &tu.StubRefresher{})
		_, err := NewClient(s, nil, nil).Do(ctx, http.MethodGet, "http://example.com", nil, AuthBearer)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Failed HTTP Request", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed"))}
		s := newTestSession(t, models.Session{AccessToken: "a1"}, &tu.StubRefresher{})

		_, err := NewClient(s, client, nil).Do(ctx, http.MethodGet, "http://example.com", nil, AuthBearer)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Failed Response Read", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       &tu.FCloser{},
			Header:     http.Header{},
		}, nil)}
		s := newTestSession(t, models.Session{AccessToken: "a1"}, &tu.StubRefresher{})

		if _, err := NewClient(s, client, nil).Do(ctx, http.MethodGet, "http://example.com", nil, AuthBearer); err == nil {
			t.Error("expected read error")
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Retries Once With New Token", func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				if r.Header.Get("Authorization") != "Bearer a2" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.Write([]byte(`{"ok":true}`))
			}))
			defer server.Close()

			r := &tu.StubRefresher{Next: models.Session{AccessToken: "a2"}}
			s := newTestSession(t, models.Session{AccessToken: "a1", RefreshToken: "r1"}, r)

			resp, err := NewClient(s, nil, nil).Do(ctx, http.MethodGet, server.URL, nil, AuthBearer)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() || string(resp.Body) != `{"ok":true}` {
				t.Errorf("unexpected response %d %s", resp.StatusCode, resp.Body)
			}
			if hits.Load() != 2 {
				t.Errorf("expected original request and one retry, got %d", hits.Load())
			}
			if r.Calls.Load() != 1 {
				t.Errorf("expected one refresh, got %d", r.Calls.Load())
			}
		})

		t.Run("Query Token Is Replaced On Retry", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("sp_token") != "a2" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			r := &tu.StubRefresher{Next: models.Session{AccessToken: "a2"}}
			s := newTestSession(t, models.Session{AccessToken: "a1", RefreshToken: "r1"}, r)

			resp, err := NewClient(s, nil, nil).Do(ctx, http.MethodPost, server.URL, nil, AuthQuery)
			if err != nil || !resp.OK() {
				t.Fatalf("expected success after refresh, got %v", err)
			}
		})

		t.Run("Concurrent 401s Share One Refresh", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer a2" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			r := &tu.StubRefresher{Next: models.Session{AccessToken: "a2"}}
			s := newTestSession(t, models.Session{AccessToken: "a1", RefreshToken: "r1"}, r)
			client := NewClient(s, nil, nil)

			const requests = 10
			var wg sync.WaitGroup
			errs := make([]error, requests)
			for i := range requests {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					resp, err := client.Do(ctx, http.MethodGet, server.URL, nil, AuthBearer)
					if err == nil && !resp.OK() {
						err = resp.Err()
					}
					errs[i] = err
				}(i)
			}
			wg.Wait()

			for i, err := range errs {
				if err != nil {
					t.Errorf("request %d: %v", i, err)
				}
			}
			if r.Calls.Load() != 1 {
				t.Errorf("expected exactly one refresh, got %d", r.Calls.Load())
			}
		})

		t.Run("Refresh Failure Clears Session", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			r := &tu.StubRefresher{Err: errors.New("refresh rejected")}
			s := newTestSession(t, models.Session{AccessToken: "a1", RefreshToken: "r1"}, r)
			expired := false
			s.OnExpired(func() { expired = true })

			_, err := NewClient(s, nil, nil).Do(ctx, http.MethodGet, server.URL, nil, AuthBearer)
			if !errors.Is(err, shared.ErrAuthExpired) {
				t.Errorf("expected ErrAuthExpired, got %v", err)
			}
			if s.Authenticated() || !expired {
				t.Error("expected session to be cleared and login to be requested")
			}
		})

		t.Run("Second 401 Is Hard Auth Error", func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			r := &tu.StubRefresher{Next: models.Session{AccessToken: "a2"}}
			s := newTestSession(t, models.Session{AccessToken: "a1", RefreshToken: "r1"}, r)
			expired := false
			s.OnExpired(func() { expired = true })

			_, err := NewClient(s, nil, nil).Do(ctx, http.MethodGet, server.URL, nil, AuthBearer)
			if !errors.Is(err, shared.ErrAuthExpired) {
				t.Errorf("expected ErrAuthExpired, got %v", err)
			}
			if hits.Load() != 2 {
				t.Errorf("expected exactly one retry, got %d requests", hits.Load())
			}
			if s.Authenticated() || !expired {
				t.Error("expected session to be cleared after the retry was rejected")
			}
		})
	})
}

func TestAPIResponse(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		tc := []struct {
			name string
			resp APIResponse
			want bool
		}{
			{"no content", APIResponse{StatusCode: http.StatusNoContent}, true},
			{"whitespace body", APIResponse{StatusCode: http.StatusOK, Body: []byte("  \n")}, true},
			{"json body", APIResponse{StatusCode: http.StatusOK, Body: []byte(`{}`)}, false},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.resp.Empty(); got != tt.want {
					t.Errorf("Empty() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Err", func(t *testing.T) {
		resp := APIResponse{StatusCode: http.StatusBadGateway, Body: []byte("upstream")}
		var statusErr *shared.StatusError
		if !errors.As(resp.Err(), &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
			t.Errorf("expected StatusError 502, got %v", resp.Err())
		}
		if (&APIResponse{StatusCode: http.StatusOK}).Err() != nil {
			t.Error("expected nil error for 200")
		}
	})

	t.Run("AuthMode String", func(t *testing.T) {
		if AuthBearer.String() != "bearer" || AuthQuery.String() != "query" || AuthNone.String() != "none" {
			t.Error("unexpected AuthMode names")
		}
	})
}
