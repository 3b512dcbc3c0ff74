package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/categories"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/playback"
	"github.com/desertthunder/clouder/internal/shared"
)

// PlayerState is the body of GET /api/player.
type PlayerState struct {
	Mode     string          `json:"mode"`
	Ready    bool            `json:"ready"`
	DeviceID string          `json:"device_id,omitempty"`
	Known    bool            `json:"known"`
	Snapshot models.Snapshot `json:"snapshot"`
}

// ControlAPI exposes the player and category workflow over HTTP on the local machine.
type ControlAPI struct {
	source     playback.Source
	dispatcher *playback.Dispatcher
	resolver   *categories.Resolver
	mover      *categories.Mover
	logger     *log.Logger
}

func NewControlAPI(source playback.Source, dispatcher *playback.Dispatcher, resolver *categories.Resolver, mover *categories.Mover, logger *log.Logger) *ControlAPI {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ControlAPI{
		source:     source,
		dispatcher: dispatcher,
		resolver:   resolver,
		mover:      mover,
		logger:     shared.WithLogger(logger, "component", "control"),
	}
}

// Mount registers the API routes on r.
func (a *ControlAPI) Mount(r Router) {
	r.Handle(http.MethodGet, "/api/player", http.HandlerFunc(a.player))
	r.Handle(http.MethodPost, "/api/player/seek", http.HandlerFunc(a.seek))
	r.Handle(http.MethodPost, "/api/player/context", http.HandlerFunc(a.playContext))
	r.Handle(http.MethodPost, "/api/player/{action}", http.HandlerFunc(a.transport))
	r.Handle(http.MethodGet, "/api/categories", http.HandlerFunc(a.categories))
	r.Handle(http.MethodPost, "/api/categories/{id}/move", http.HandlerFunc(a.move))
}

func (a *ControlAPI) player(w http.ResponseWriter, r *http.Request) {
	snap, known := a.source.Current()
	writeJSON(w, http.StatusOK, PlayerState{
		Mode:     a.source.Mode(),
		Ready:    a.source.Ready(),
		DeviceID: a.source.DeviceID(),
		Known:    known,
		Snapshot: snap,
	})
}

func (a *ControlAPI) transport(w http.ResponseWriter, r *http.Request) {
	var run func(ctx context.Context) error
	switch action := Vars(r)["action"]; action {
	case "play-pause":
		run = a.dispatcher.PlayPause
	case "next":
		run = a.dispatcher.Next
	case "previous":
		run = a.dispatcher.Previous
	case "rewind":
		run = a.dispatcher.Rewind
	case "forward":
		run = a.dispatcher.FastForward
	default:
		a.fail(w, fmt.Errorf("%w: unknown action %q", shared.ErrInvalidArgument, action))
		return
	}

	if err := run(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// seek takes ?percent=0..100.
func (a *ControlAPI) seek(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("percent")
	if raw == "" {
		a.fail(w, fmt.Errorf("%w: percent", shared.ErrMissingArgument))
		return
	}
	percent, err := strconv.ParseFloat(raw, 64)
	if err != nil || percent < 0 || percent > 100 {
		a.fail(w, fmt.Errorf("%w: percent must be between 0 and 100", shared.ErrInvalidArgument))
		return
	}

	if err := a.dispatcher.SeekAbsolute(r.Context(), percent/100); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ControlAPI) playContext(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.fail(w, fmt.Errorf("%w: invalid JSON", shared.ErrInvalidArgument))
		return
	}
	if body.URI == "" {
		a.fail(w, fmt.Errorf("%w: uri", shared.ErrMissingArgument))
		return
	}

	if err := a.dispatcher.PlayContext(r.Context(), body.URI); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// categories lists the move targets for the playing context, sorted and truncated.
func (a *ControlAPI) categories(w http.ResponseWriter, r *http.Request) {
	snap, _ := a.source.Current()
	resolved, err := a.resolver.ResolveContext(r.Context(), snap.Context)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories.Present(resolved, categories.MaxShown))
}

func (a *ControlAPI) move(w http.ResponseWriter, r *http.Request) {
	if err := a.mover.MoveCurrentTrack(r.Context(), Vars(r)["id"]); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps err onto a status code and writes it as {"error": "..."}.
func (a *ControlAPI) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrAuthExpired), errors.Is(err, shared.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, shared.ErrPrecondition):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrCommand), errors.Is(err, shared.ErrCategoryFetch),
		errors.Is(err, shared.ErrPlaybackFetch), errors.Is(err, shared.ErrAPIRequest):
		status = http.StatusBadGateway
	}
	a.logger.Warn("request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
