// package services defines the provider interfaces for the Spotify Web API and the clouder backend
package services

import (
	"context"

	"github.com/desertthunder/clouder/internal/models"
)

// Service is implemented by every remote API wrapper.
type Service interface {
	// Name returns the name of the service (e.g., "Spotify", "Clouder")
	Name() string
}

// PlayerService reads playback state and issues transport commands.
//
// deviceID routes a command to a specific playback surface; empty targets the active device.
type PlayerService interface {
	Service

	// CurrentlyPlaying returns the latest snapshot; nothing playing yields [models.Idle].
	CurrentlyPlaying(ctx context.Context) (models.Snapshot, error)

	Play(ctx context.Context, deviceID string) error
	Pause(ctx context.Context, deviceID string) error
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error

	// Seek moves the playhead to positionMs.
	Seek(ctx context.Context, positionMs int, deviceID string) error

	// PlayContext starts a playlist or album by URI.
	PlayContext(ctx context.Context, contextURI, deviceID string) error
}

// PlaylistService lists the user's playlists.
type PlaylistService interface {
	Service
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
}

// CategoryService resolves weekly category playlists and moves tracks between them.
type CategoryService interface {
	Service

	// Week returns "" when the playlist is not part of any week.
	Week(ctx context.Context, playlistID string) (string, error)
	WeekPlaylists(ctx context.Context, week string) ([]models.WeekPlaylist, error)
	Weeks(ctx context.Context) ([]models.Week, error)
	MoveTrack(ctx context.Context, req models.MoveRequest) error
}

var (
	_ PlayerService   = (*SpotifyService)(nil)
	_ PlaylistService = (*SpotifyService)(nil)
	_ CategoryService = (*ClouderService)(nil)
)
