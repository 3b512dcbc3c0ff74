package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/clouder/internal/models"
)

// PlaylistPageSize is the number of playlists per page.
const PlaylistPageSize = 20

var _ list.Item = playlistItem{}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	return fmt.Sprintf("%s (%d)", i.playlist.Name, i.playlist.TrackCount)
}
func (i playlistItem) Description() string { return i.playlist.Description }

// newPlaylistList builds a filterable single-line list showing [PlaylistPageSize] items per page.
func newPlaylistList(playlists []models.Playlist, width int) list.Model {
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	// title, status bar and paginator take the remaining lines
	l := list.New(items, delegate, width, PlaylistPageSize+6)
	l.Title = "Playlists"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	return l
}
