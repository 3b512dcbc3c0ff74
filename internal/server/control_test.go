package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/clouder/internal/categories"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/playback"
	tu "github.com/desertthunder/clouder/internal/testing"
)

type authed struct{}

func (authed) Authenticated() bool { return true }

type controlFixture struct {
	router *MuxRouter
	player *tu.FakePlayer
	cats   *tu.FakeCategories
}

func newControlFixture(t *testing.T, snap models.Snapshot) controlFixture {
	t.Helper()
	ctx := context.Background()

	player := tu.NewFakePlayer(snap)
	source := playback.NewPoller(player, time.Hour, nil)
	source.Poll(ctx)
	dispatcher := playback.NewDispatcher(player, source, authed{}, playback.DispatcherOptions{SettleDelay: time.Hour})

	cats := &tu.FakeCategories{
		WeekOf: map[string]string{"src": "w1"},
		ByWeek: map[string][]models.WeekPlaylist{"w1": {
			{PlaylistID: "c1", Name: "techno", Type: models.PlaylistTypeCategory},
			{PlaylistID: "tr", Name: "trash"},
		}},
	}
	resolver := categories.NewResolver(cats, nil)
	mover := categories.NewMover(resolver, cats, source, nil)

	router := NewRouter()
	NewControlAPI(source, dispatcher, resolver, mover, nil).Mount(router)

	t.Cleanup(func() {
		dispatcher.Close()
		source.Close()
	})
	return controlFixture{router: router, player: player, cats: cats}
}

func (f controlFixture) do(method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func fromPlaylist() models.Snapshot {
	return models.Snapshot{
		IsPlaying:  true,
		ProgressMs: 30000,
		Track:      &models.Track{ID: "trk", Name: "Song", DurationMs: 100000},
		Context:    &models.Context{URI: "spotify:playlist:src", Type: models.ContextPlaylist},
	}
}

func TestControlAPIPlayer(t *testing.T) {
	t.Run("State", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		rec := f.do(http.MethodGet, "/api/player", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var state PlayerState
		if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if state.Mode != "poll" || !state.Ready || !state.Known || state.Snapshot.Track.ID != "trk" {
			t.Errorf("unexpected state %+v", state)
		}
	})

	t.Run("Transport", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		for _, action := range []string{"play-pause", "next", "previous", "rewind", "forward"} {
			if rec := f.do(http.MethodPost, "/api/player/"+action, ""); rec.Code != http.StatusNoContent {
				t.Errorf("%s: expected 204, got %d", action, rec.Code)
			}
		}
		want := []string{"pause", "next", "previous", "seek:20000", "seek:40000"}
		if got := f.player.Calls(); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("Unknown Action", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		if rec := f.do(http.MethodPost, "/api/player/shuffle", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Seek", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		if rec := f.do(http.MethodPost, "/api/player/seek?percent=40", ""); rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
		for _, q := range []string{"", "?percent=abc", "?percent=150"} {
			if rec := f.do(http.MethodPost, "/api/player/seek"+q, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("%q: expected 400, got %d", q, rec.Code)
			}
		}
		if got := f.player.Calls(); !slices.Equal(got, []string{"seek:40000"}) {
			t.Errorf("unexpected calls %v", got)
		}
	})

	t.Run("Play Context", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		if rec := f.do(http.MethodPost, "/api/player/context", `{"uri":"spotify:playlist:x"}`); rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
		if rec := f.do(http.MethodPost, "/api/player/context", `{}`); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if got := f.player.Calls(); !slices.Equal(got, []string{"play:spotify:playlist:x"}) {
			t.Errorf("unexpected calls %v", got)
		}
	})

	t.Run("Command Failure", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		f.player.CommandErr = context.DeadlineExceeded
		rec := f.do(http.MethodPost, "/api/player/next", "")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
		var body map[string]string
		json.NewDecoder(rec.Body).Decode(&body)
		if body["error"] == "" {
			t.Error("expected error message")
		}
	})
}

func TestControlAPICategories(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		rec := f.do(http.MethodGet, "/api/categories", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var got []models.CategoryPlaylist
		json.NewDecoder(rec.Body).Decode(&got)
		if len(got) != 2 || got[0].DisplayName != "Techno" || got[1].DisplayName != "Trash" {
			t.Errorf("unexpected categories %+v", got)
		}
	})

	t.Run("Move", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		f.do(http.MethodGet, "/api/categories", "")

		if rec := f.do(http.MethodPost, "/api/categories/c1/move", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		moves := f.cats.Moves()
		if len(moves) != 1 || moves[0].TargetPlaylistID != "c1" || moves[0].TrashPlaylistID != "tr" {
			t.Errorf("unexpected moves %+v", moves)
		}
	})

	t.Run("Move Before Resolution", func(t *testing.T) {
		f := newControlFixture(t, fromPlaylist())
		if rec := f.do(http.MethodPost, "/api/categories/c1/move", ""); rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
		if f.cats.MoveCalls.Load() != 0 {
			t.Error("expected no move call")
		}
	})

	t.Run("Idle Player", func(t *testing.T) {
		f := newControlFixture(t, models.Idle())
		rec := f.do(http.MethodGet, "/api/categories", "")
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected empty list, got %d %q", rec.Code, rec.Body.String())
		}
	})
}
