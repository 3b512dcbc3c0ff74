// Clouder backend: weekly category playlists and track moves
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
)

// ClouderService calls the clouder backend through the session [Client].
type ClouderService struct {
	client  *Client
	baseURL string
	logger  *log.Logger
}

// NewClouderService creates a service for the backend at baseURL.
func NewClouderService(client *Client, baseURL string, logger *log.Logger) *ClouderService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ClouderService{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  shared.WithLogger(logger, "service", "clouder"),
	}
}

func (s *ClouderService) Name() string {
	return "Clouder"
}

// get performs an unauthenticated GET and decodes the JSON body into v.
func (s *ClouderService) get(ctx context.Context, path string, v any) error {
	resp, err := s.client.Do(ctx, http.MethodGet, s.baseURL+path, nil, AuthNone)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return resp.Decode(v)
}

// Week returns the week playlistID belongs to, or "" when the backend has no mapping.
func (s *ClouderService) Week(ctx context.Context, playlistID string) (string, error) {
	var body struct {
		ClouderWeek *string `json:"clouder_week"`
	}
	if err := s.get(ctx, "/clouder_playlists/"+url.PathEscape(playlistID)+"/clouder_week", &body); err != nil {
		return "", fmt.Errorf("%w: week for %s: %w", shared.ErrCategoryFetch, playlistID, err)
	}
	if body.ClouderWeek == nil {
		return "", nil
	}
	return *body.ClouderWeek, nil
}

// WeekPlaylists lists every playlist record of week.
func (s *ClouderService) WeekPlaylists(ctx context.Context, week string) ([]models.WeekPlaylist, error) {
	var records []models.WeekPlaylist
	if err := s.get(ctx, "/clouder_weeks/"+url.PathEscape(week)+"/sp_playlists", &records); err != nil {
		return nil, fmt.Errorf("%w: playlists for week %s: %w", shared.ErrCategoryFetch, week, err)
	}
	return records, nil
}

// Weeks lists the known weeks.
func (s *ClouderService) Weeks(ctx context.Context) ([]models.Week, error) {
	var weeks []models.Week
	if err := s.get(ctx, "/clouder_weeks", &weeks); err != nil {
		return nil, fmt.Errorf("%w: weeks: %w", shared.ErrCategoryFetch, err)
	}
	return weeks, nil
}

// MoveTrack asks the backend to move a track between playlists, authenticating with the sp_token parameter.
func (s *ClouderService) MoveTrack(ctx context.Context, req models.MoveRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode move request: %w", err)
	}

	resp, err := s.client.Do(ctx, http.MethodPost, s.baseURL+"/clouder_playlists/move_track", body, AuthQuery)
	if err != nil {
		return fmt.Errorf("failed to move track: %w", err)
	}
	if !resp.OK() {
		var detail struct {
			Detail any `json:"detail"`
		}
		if json.Unmarshal(resp.Body, &detail) == nil && detail.Detail != nil {
			return fmt.Errorf("%w: failed to move track: %v", shared.ErrAPIRequest, detail.Detail)
		}
		return fmt.Errorf("%w: failed to move track: %w", shared.ErrAPIRequest, resp.Err())
	}

	s.logger.Info("track moved", "track", req.TrackID, "from", req.SourcePlaylistID, "to", req.TargetPlaylistID)
	return nil
}
