package models

import (
	"strings"
	"time"
)

// Session is the bearer-token pair. RefreshToken is empty when the provider did not issue one.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Valid reports whether the session can authorize requests.
func (s Session) Valid() bool { return s.AccessToken != "" }

// Image is a cover art reference.
type Image struct {
	URL string `json:"url"`
}

// Artist is a credited performer.
type Artist struct {
	Name string `json:"name"`
}

// Album is the album a track belongs to.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is the item being played.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DurationMs int      `json:"duration_ms"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// ArtistNames joins artist names with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// ContextPlaylist is the context type of a playlist.
const ContextPlaylist = "playlist"

// Context is the playback source currently active.
type Context struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// PlaylistID returns the owning playlist id ("spotify:playlist:<id>") for playlist contexts.
func (c *Context) PlaylistID() (string, bool) {
	if c == nil || c.Type != ContextPlaylist {
		return "", false
	}
	return PlaylistIDFromURI(c.URI)
}

// PlaylistIDFromURI extracts the third colon-delimited segment of a playlist URI.
func PlaylistIDFromURI(uri string) (string, bool) {
	parts := strings.Split(uri, ":")
	if len(parts) < 3 || parts[1] != ContextPlaylist || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

// Snapshot is the latest known playback state.
type Snapshot struct {
	IsPlaying  bool     `json:"is_playing"`
	ProgressMs int      `json:"progress_ms"`
	Track      *Track   `json:"track"`
	Context    *Context `json:"context"`
}

// Idle is the snapshot used when nothing is playing.
func Idle() Snapshot { return Snapshot{} }

// Clamp bounds ProgressMs to [0, Track.DurationMs].
func (s Snapshot) Clamp() Snapshot {
	if s.ProgressMs < 0 {
		s.ProgressMs = 0
	}
	if s.Track != nil && s.ProgressMs > s.Track.DurationMs {
		s.ProgressMs = s.Track.DurationMs
	}
	return s
}

// Advance adds elapsed wall-clock time to ProgressMs, capped at the track duration.
// Paused or trackless snapshots are returned unchanged.
func (s Snapshot) Advance(elapsed time.Duration) Snapshot {
	if !s.IsPlaying || s.Track == nil || elapsed <= 0 {
		return s
	}
	s.ProgressMs += int(elapsed.Milliseconds())
	return s.Clamp()
}

// Fraction is progress as a ratio in [0, 1].
func (s Snapshot) Fraction() float64 {
	if s.Track == nil || s.Track.DurationMs == 0 {
		return 0
	}
	return float64(s.ProgressMs) / float64(s.Track.DurationMs)
}

// Playlist represents a user playlist from Spotify.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	URI         string
}

// CategoryPlaylist is a move target for the current week.
type CategoryPlaylist struct {
	PlaylistID  string `json:"playlist_id"`
	DisplayName string `json:"display_name"`
}

// TrashName is the display name of the mandatory fallback bin.
const TrashName = "trash"

// IsTrash reports whether c is the trash bin (case-insensitive).
func (c CategoryPlaylist) IsTrash() bool {
	return strings.EqualFold(c.DisplayName, TrashName)
}

// Week is one entry of the weekly category rotation.
type Week struct {
	ClouderWeek string `json:"clouder_week"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// Category playlist types reported by the backend.
const (
	PlaylistTypeBase     = "base"
	PlaylistTypeCategory = "category"
)

// WeekPlaylist is a backend record linking a Spotify playlist to a week.
type WeekPlaylist struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	ClouderWeek  string `json:"clouder_week"`
	Name         string `json:"clouder_pl_name"`
	Type         string `json:"clouder_pl_type"`
}

// IsMoveTarget reports whether the record is a category or the trash bin.
func (p WeekPlaylist) IsMoveTarget() bool {
	return p.Type == PlaylistTypeCategory || p.Name == TrashName
}

// MoveRequest moves a track from its source playlist into a category, with trash as the fallback bin.
type MoveRequest struct {
	TrackID          string `json:"track_id"`
	SourcePlaylistID string `json:"source_playlist_id"`
	TargetPlaylistID string `json:"target_playlist_id"`
	TrashPlaylistID  string `json:"trash_playlist_id"`
}
