// Spotify Web API player and playlist endpoints
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize = 50
)

// spotifyScopes covers playback state, transport control and playlist reads.
var spotifyScopes = []string{
	"streaming",
	"user-read-email",
	"user-read-private",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-private",
	"playlist-modify-public",
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyContext is the playback source of a currently-playing response.
type SpotifyContext struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// SpotifyCurrentlyPlaying is the body of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	IsPlaying            bool            `json:"is_playing"`
	ProgressMS           *int            `json:"progress_ms"`
	Item                 *SpotifyTrack   `json:"item"`
	Context              *SpotifyContext `json:"context"`
	CurrentlyPlayingType string          `json:"currently_playing_type"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Owner       owner                `json:"owner"`
	Public      bool                 `json:"public"`
	Tracks      simplePlaylistTracks `json:"tracks"`
	URI         string               `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items []SpotifySimplePlaylist `json:"items"`
	Total int                     `json:"total"`
	Next  *string                 `json:"next"`
}

// Snapshot normalizes the response. Episodes and other non-track items yield a nil track.
func (c SpotifyCurrentlyPlaying) Snapshot() models.Snapshot {
	snap := models.Snapshot{IsPlaying: c.IsPlaying}
	if c.ProgressMS != nil {
		snap.ProgressMs = *c.ProgressMS
	}

	if c.Item != nil && c.Item.ID != "" {
		t := &models.Track{
			ID:         c.Item.ID,
			Name:       c.Item.Name,
			DurationMs: c.Item.DurationMS,
			Album:      models.Album{Name: c.Item.Album.Name},
		}
		for _, a := range c.Item.Artists {
			t.Artists = append(t.Artists, models.Artist{Name: a.Name})
		}
		for _, img := range c.Item.Album.Images {
			t.Album.Images = append(t.Album.Images, models.Image{URL: img.URL})
		}
		snap.Track = t
	}

	if c.Context != nil {
		snap.Context = &models.Context{URI: c.Context.URI, Type: c.Context.Type}
	}

	return snap.Clamp()
}

// NewOAuthConfig builds the authorization-code config for the player scopes.
func NewOAuthConfig(credentials map[string]string) (*oauth2.Config, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func GetAuthURL(config *oauth2.Config, state string) string {
	return config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SpotifyService calls the Spotify Web API through the session [Client].
type SpotifyService struct {
	client  *Client
	baseURL string
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewSpotifyService creates a service rooted at baseURL (default https://api.spotify.com/v1).
//
// limiter throttles playlist pagination; nil allows five pages per second.
func NewSpotifyService(client *Client, baseURL string, limiter *rate.Limiter, logger *log.Logger) *SpotifyService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(5), 1)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyService{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		limiter: limiter,
		logger:  shared.WithLogger(logger, "service", "spotify"),
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// CurrentlyPlaying reads the playback state. A 204 yields [models.Idle].
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (models.Snapshot, error) {
	resp, err := s.client.Do(ctx, http.MethodGet, s.baseURL+"/me/player/currently-playing", nil, AuthBearer)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", shared.ErrPlaybackFetch, err)
	}
	if err := resp.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", shared.ErrPlaybackFetch, err)
	}
	if resp.Empty() {
		return models.Idle(), nil
	}

	var body SpotifyCurrentlyPlaying
	if err := resp.Decode(&body); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", shared.ErrPlaybackFetch, err)
	}
	return body.Snapshot(), nil
}

// Play resumes playback on deviceID, or the active device when empty.
func (s *SpotifyService) Play(ctx context.Context, deviceID string) error {
	return s.command(ctx, http.MethodPut, "/me/player/play", deviceID, nil, nil)
}

// PlayContext starts contextURI (e.g. spotify:playlist:<id>) from its first track.
func (s *SpotifyService) PlayContext(ctx context.Context, contextURI, deviceID string) error {
	body, err := json.Marshal(map[string]string{"context_uri": contextURI})
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrCommand, err)
	}
	return s.command(ctx, http.MethodPut, "/me/player/play", deviceID, nil, body)
}

func (s *SpotifyService) Pause(ctx context.Context, deviceID string) error {
	return s.command(ctx, http.MethodPut, "/me/player/pause", deviceID, nil, nil)
}

func (s *SpotifyService) Next(ctx context.Context, deviceID string) error {
	return s.command(ctx, http.MethodPost, "/me/player/next", deviceID, nil, nil)
}

func (s *SpotifyService) Previous(ctx context.Context, deviceID string) error {
	return s.command(ctx, http.MethodPost, "/me/player/previous", deviceID, nil, nil)
}

// Seek moves playback to positionMs.
func (s *SpotifyService) Seek(ctx context.Context, positionMs int, deviceID string) error {
	q := url.Values{"position_ms": {strconv.Itoa(positionMs)}}
	return s.command(ctx, http.MethodPut, "/me/player/seek", deviceID, q, nil)
}

// command issues one transport write; failures wrap [shared.ErrCommand].
func (s *SpotifyService) command(ctx context.Context, method, path, deviceID string, q url.Values, body []byte) error {
	if q == nil {
		q = url.Values{}
	}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}

	endpoint := s.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	resp, err := s.client.Do(ctx, method, endpoint, body, AuthBearer)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrCommand, method, path, err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrCommand, method, path, err)
	}
	return nil
}

// UserPlaylists retrieves one page of the current user's playlists. An empty pageURL starts at the first page.
func (s *SpotifyService) UserPlaylists(ctx context.Context, pageURL string) (*SpotifyPaginatedPlaylists, error) {
	if pageURL == "" {
		pageURL = fmt.Sprintf("%s/me/playlists?limit=%d", s.baseURL, playlistPageSize)
	}

	resp, err := s.client.Do(ctx, http.MethodGet, pageURL, nil, AuthBearer)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlists: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to fetch playlists: %w", shared.ErrAPIRequest, err)
	}

	var page SpotifyPaginatedPlaylists
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPlaylists follows next links until every playlist is fetched.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	next := ""

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := s.UserPlaylists(ctx, next)
		if err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			all = append(all, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				URI:         sp.URI,
			})
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		next = *page.Next
	}

	s.logger.Debug("fetched playlists", "count", len(all))
	return all, nil
}
