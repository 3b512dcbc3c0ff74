package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
	tu "github.com/desertthunder/clouder/internal/testing"
	"golang.org/x/time/rate"
)

func newTestSpotify(t *testing.T, handler http.HandlerFunc) (*SpotifyService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s := newTestSession(t, models.Session{AccessToken: "a1", RefreshToken: "r1"}, &tu.StubRefresher{})
	return NewSpotifyService(NewClient(s, nil, nil), server.URL, rate.NewLimiter(rate.Inf, 1), nil), server
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewOAuthConfig", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			config, err := NewOAuthConfig(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:3000/callback",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.ClientID != "test_client_id" {
				t.Errorf("expected client ID test_client_id, got %s", config.ClientID)
			}

			hasScope := false
			for _, scope := range config.Scopes {
				if scope == "user-modify-playback-state" {
					hasScope = true
				}
			}
			if !hasScope {
				t.Error("expected playback control scope")
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewOAuthConfig(map[string]string{"client_secret": "secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewOAuthConfig(map[string]string{"client_id": "id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			config, err := NewOAuthConfig(map[string]string{"client_id": "id", "client_secret": "secret"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("unexpected default redirect %s", config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		config, _ := NewOAuthConfig(map[string]string{"client_id": "test_client_id", "client_secret": "secret"})
		authURL := GetAuthURL(config, "test-state")

		if !strings.Contains(authURL, "accounts.spotify.com/authorize") {
			t.Errorf("expected Spotify authorize URL, got %s", authURL)
		}
		if !strings.Contains(authURL, "state=test-state") || !strings.Contains(authURL, "client_id=test_client_id") {
			t.Errorf("expected state and client id in %s", authURL)
		}
	})

	t.Run("CurrentlyPlaying", func(t *testing.T) {
		t.Run("No Content Is Idle", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/me/player/currently-playing" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(http.StatusNoContent)
			})

			snap, err := svc.CurrentlyPlaying(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if snap.Track != nil || snap.IsPlaying || snap.ProgressMs != 0 || snap.Context != nil {
				t.Errorf("expected idle snapshot, got %+v", snap)
			}
		})

		t.Run("Normalizes Track And Context", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{
					"is_playing": true,
					"progress_ms": 1500,
					"currently_playing_type": "track",
					"context": {"uri": "spotify:playlist:pl1", "type": "playlist"},
					"item": {
						"id": "t1", "name": "Song", "duration_ms": 200000,
						"artists": [{"name": "A"}, {"name": "B"}],
						"album": {"name": "Album", "images": [{"url": "http://img/1"}]}
					}
				}`))
			})

			snap, err := svc.CurrentlyPlaying(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !snap.IsPlaying || snap.ProgressMs != 1500 {
				t.Errorf("unexpected state %+v", snap)
			}
			if snap.Track == nil || snap.Track.ID != "t1" || snap.Track.ArtistNames() != "A, B" {
				t.Fatalf("unexpected track %+v", snap.Track)
			}
			if len(snap.Track.Album.Images) != 1 || snap.Track.Album.Images[0].URL != "http://img/1" {
				t.Errorf("unexpected album %+v", snap.Track.Album)
			}
			if id, ok := snap.Context.PlaylistID(); !ok || id != "pl1" {
				t.Errorf("expected playlist context pl1, got %q", id)
			}
		})

		t.Run("Clamps Progress", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"is_playing": true, "progress_ms": 250000, "item": {"id": "t1", "duration_ms": 200000}}`))
			})

			snap, _ := svc.CurrentlyPlaying(ctx)
			if snap.ProgressMs != 200000 {
				t.Errorf("expected progress clamped to 200000, got %d", snap.ProgressMs)
			}
		})

		t.Run("Non-2xx Is Playback Fetch Error", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			})

			_, err := svc.CurrentlyPlaying(ctx)
			if !errors.Is(err, shared.ErrPlaybackFetch) {
				t.Errorf("expected ErrPlaybackFetch, got %v", err)
			}
		})

		t.Run("Invalid JSON", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{not json`))
			})

			if _, err := svc.CurrentlyPlaying(ctx); !errors.Is(err, shared.ErrPlaybackFetch) {
				t.Errorf("expected ErrPlaybackFetch, got %v", err)
			}
		})
	})

	t.Run("Commands", func(t *testing.T) {
		tc := []struct {
			name       string
			call       func(*SpotifyService) error
			wantMethod string
			wantPath   string
			wantQuery  string
		}{
			{"Play", func(s *SpotifyService) error { return s.Play(ctx, "") }, http.MethodPut, "/me/player/play", ""},
			{"Pause", func(s *SpotifyService) error { return s.Pause(ctx, "") }, http.MethodPut, "/me/player/pause", ""},
			{"Next", func(s *SpotifyService) error { return s.Next(ctx, "") }, http.MethodPost, "/me/player/next", ""},
			{"Previous", func(s *SpotifyService) error { return s.Previous(ctx, "") }, http.MethodPost, "/me/player/previous", ""},
			{"Seek", func(s *SpotifyService) error { return s.Seek(ctx, 40000, "") }, http.MethodPut, "/me/player/seek", "position_ms=40000"},
			{"Seek On Device", func(s *SpotifyService) error { return s.Seek(ctx, 0, "dev1") }, http.MethodPut, "/me/player/seek", "device_id=dev1&position_ms=0"},
			{"Pause On Device", func(s *SpotifyService) error { return s.Pause(ctx, "dev1") }, http.MethodPut, "/me/player/pause", "device_id=dev1"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
					if r.Method != tt.wantMethod || r.URL.Path != tt.wantPath {
						t.Errorf("expected %s %s, got %s %s", tt.wantMethod, tt.wantPath, r.Method, r.URL.Path)
					}
					if r.URL.RawQuery != tt.wantQuery {
						t.Errorf("expected query %q, got %q", tt.wantQuery, r.URL.RawQuery)
					}
					w.WriteHeader(http.StatusNoContent)
				})

				if err := tt.call(svc); err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			})
		}

		t.Run("PlayContext Body", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				data, _ := io.ReadAll(r.Body)
				var body map[string]string
				json.Unmarshal(data, &body)
				if body["context_uri"] != "spotify:playlist:pl1" {
					t.Errorf("unexpected body %s", data)
				}
				w.WriteHeader(http.StatusNoContent)
			})

			if err := svc.PlayContext(ctx, "spotify:playlist:pl1", ""); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("Failure Is Command Error", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"status":404,"message":"Player command failed: No active device found"}}`, http.StatusNotFound)
			})

			err := svc.Next(ctx, "")
			if !errors.Is(err, shared.ErrCommand) {
				t.Errorf("expected ErrCommand, got %v", err)
			}
			var statusErr *shared.StatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
				t.Errorf("expected StatusError 404 in chain, got %v", err)
			}
		})
	})

	t.Run("GetPlaylists", func(t *testing.T) {
		t.Run("Follows Next Links", func(t *testing.T) {
			var base string
			svc, server := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/me/playlists" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				switch r.URL.Query().Get("offset") {
				case "":
					fmt.Fprintf(w, `{"items":[{"id":"p1","name":"One","tracks":{"total":3},"uri":"spotify:playlist:p1"}],"total":2,"next":"%s/me/playlists?limit=50&offset=50"}`, base)
				case "50":
					w.Write([]byte(`{"items":[{"id":"p2","name":"Two","tracks":{"total":5}}],"total":2,"next":null}`))
				default:
					t.Errorf("unexpected offset %s", r.URL.Query().Get("offset"))
				}
			})
			base = server.URL

			playlists, err := svc.GetPlaylists(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(playlists) != 2 {
				t.Fatalf("expected 2 playlists, got %d", len(playlists))
			}
			if playlists[0].ID != "p1" || playlists[0].TrackCount != 3 || playlists[0].URI != "spotify:playlist:p1" {
				t.Errorf("unexpected first playlist %+v", playlists[0])
			}
			if playlists[1].Name != "Two" {
				t.Errorf("unexpected second playlist %+v", playlists[1])
			}
		})

		t.Run("Error Response", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			})

			if _, err := svc.GetPlaylists(ctx); !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Canceled Context", func(t *testing.T) {
			svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			})
			svc.limiter = rate.NewLimiter(rate.Limit(1), 0)

			canceled, cancel := context.WithCancel(ctx)
			cancel()
			if _, err := svc.GetPlaylists(canceled); err == nil {
				t.Error("expected limiter error")
			}
		})
	})

	t.Run("Name", func(t *testing.T) {
		svc, _ := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {})
		if svc.Name() != "Spotify" {
			t.Errorf("expected Spotify, got %s", svc.Name())
		}
	})
}
