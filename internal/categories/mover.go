package categories

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/services"
	"github.com/desertthunder/clouder/internal/shared"
)

// Snapshots exposes the latest playback snapshot. playback.Source implements it.
type Snapshots interface {
	Current() (models.Snapshot, bool)
}

// Mover re-files the playing track into a category playlist.
type Mover struct {
	resolver *Resolver
	service  services.CategoryService
	source   Snapshots
	logger   *log.Logger
	busy     atomic.Bool
}

func NewMover(resolver *Resolver, service services.CategoryService, source Snapshots, logger *log.Logger) *Mover {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Mover{
		resolver: resolver,
		service:  service,
		source:   source,
		logger:   shared.WithLogger(logger, "component", "mover"),
	}
}

// Busy reports whether a move is in flight.
func (m *Mover) Busy() bool {
	return m.busy.Load()
}

// Request builds the move for targetID from the current snapshot and the cached categories.
func (m *Mover) Request(targetID string) (models.MoveRequest, error) {
	if targetID == "" {
		return models.MoveRequest{}, fmt.Errorf("%w: target category", shared.ErrMissingArgument)
	}

	snap, ok := m.source.Current()
	if !ok || snap.Track == nil {
		return models.MoveRequest{}, fmt.Errorf("%w: no track playing", shared.ErrPrecondition)
	}

	sourceID, ok := snap.Context.PlaylistID()
	if !ok {
		return models.MoveRequest{}, fmt.Errorf("%w: not playing from a playlist", shared.ErrPrecondition)
	}

	categories, ok := m.resolver.Cached(sourceID)
	if !ok {
		return models.MoveRequest{}, fmt.Errorf("%w: categories not resolved for %s", shared.ErrPrecondition, sourceID)
	}

	trash, ok := Trash(categories)
	if !ok {
		return models.MoveRequest{}, fmt.Errorf("%w: no trash category for %s", shared.ErrPrecondition, sourceID)
	}

	return models.MoveRequest{
		TrackID:          snap.Track.ID,
		SourcePlaylistID: sourceID,
		TargetPlaylistID: targetID,
		TrashPlaylistID:  trash.PlaylistID,
	}, nil
}

// MoveCurrentTrack sends one move request for the playing track. A second call while one is in flight fails.
func (m *Mover) MoveCurrentTrack(ctx context.Context, targetID string) error {
	req, err := m.Request(targetID)
	if err != nil {
		m.logger.Warn("move skipped", "target", targetID, "error", err)
		return err
	}

	if !m.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: move already in progress", shared.ErrPrecondition)
	}
	defer m.busy.Store(false)

	if err := m.service.MoveTrack(ctx, req); err != nil {
		m.logger.Error("move failed", "track", req.TrackID, "target", targetID, "error", err)
		return err
	}
	return nil
}
