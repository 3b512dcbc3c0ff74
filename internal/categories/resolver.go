package categories

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/services"
	"github.com/desertthunder/clouder/internal/shared"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	week       string
	categories []models.CategoryPlaylist
}

// Resolver maps a source playlist to the category playlists of its week.
type Resolver struct {
	service services.CategoryService
	logger  *log.Logger
	group   singleflight.Group

	mu    sync.RWMutex
	cache map[string]entry
}

func NewResolver(service services.CategoryService, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{
		service: service,
		logger:  shared.WithLogger(logger, "component", "categories"),
		cache:   make(map[string]entry),
	}
}

// Resolve returns the categories for contextURI. Non-playlist contexts and unmapped playlists yield none.
func (r *Resolver) Resolve(ctx context.Context, contextURI string) ([]models.CategoryPlaylist, error) {
	playlistID, ok := models.PlaylistIDFromURI(contextURI)
	if !ok {
		return nil, nil
	}
	return r.ResolvePlaylist(ctx, playlistID)
}

// ResolveContext is [Resolver.Resolve] for a snapshot context.
func (r *Resolver) ResolveContext(ctx context.Context, c *models.Context) ([]models.CategoryPlaylist, error) {
	playlistID, ok := c.PlaylistID()
	if !ok {
		return nil, nil
	}
	return r.ResolvePlaylist(ctx, playlistID)
}

// ResolvePlaylist returns the categories for playlistID, fetching them at most once per process.
func (r *Resolver) ResolvePlaylist(ctx context.Context, playlistID string) ([]models.CategoryPlaylist, error) {
	if cached, ok := r.Cached(playlistID); ok {
		return cached, nil
	}

	ctx = context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(playlistID, func() (any, error) {
		if cached, ok := r.Cached(playlistID); ok {
			return cached, nil
		}
		return r.fetch(ctx, playlistID)
	})
	if err != nil {
		r.logger.Error("category resolution failed", "playlist", playlistID, "error", err)
		return nil, err
	}
	return slices.Clone(v.([]models.CategoryPlaylist)), nil
}

func (r *Resolver) fetch(ctx context.Context, playlistID string) ([]models.CategoryPlaylist, error) {
	week, err := r.service.Week(ctx, playlistID)
	if err != nil {
		return nil, wrapFetch(err)
	}
	if week == "" {
		r.logger.Debug("playlist has no week", "playlist", playlistID)
		return []models.CategoryPlaylist(nil), nil
	}

	records, err := r.service.WeekPlaylists(ctx, week)
	if err != nil {
		return nil, wrapFetch(err)
	}

	categories := make([]models.CategoryPlaylist, 0, len(records))
	for _, rec := range records {
		if !rec.IsMoveTarget() {
			continue
		}
		categories = append(categories, models.CategoryPlaylist{
			PlaylistID:  rec.PlaylistID,
			DisplayName: shared.Capitalize(rec.Name),
		})
	}

	r.mu.Lock()
	r.cache[playlistID] = entry{week: week, categories: categories}
	r.mu.Unlock()

	r.logger.Debug("categories resolved", "playlist", playlistID, "week", week, "count", len(categories))
	return categories, nil
}

// Cached returns the stored categories for playlistID without any network call.
func (r *Resolver) Cached(playlistID string) ([]models.CategoryPlaylist, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[playlistID]
	if !ok {
		return nil, false
	}
	return slices.Clone(e.categories), true
}

// Week returns the cached week of playlistID.
func (r *Resolver) Week(playlistID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[playlistID]
	return e.week, ok
}

func wrapFetch(err error) error {
	if errors.Is(err, shared.ErrCategoryFetch) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrCategoryFetch, err)
}
