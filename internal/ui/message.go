package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/clouder/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgSnapshot
	MsgCategoriesResolved
	MsgCommandDone
	MsgMoveDone
	MsgSessionExpired
)

type snapshotData struct {
	snap models.Snapshot
	err  error
}

type categoriesData struct {
	playlistID string
	categories []models.CategoryPlaylist
	err        error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{
		kind: MsgPlaylistsFetched,
		data: struct {
			playlists []models.Playlist
			err       error
		}{playlists, err},
	}
}

// SnapshotMsg is the constructor for [MsgSnapshot]. err is set when a fetch failed and snap is the retained snapshot.
func SnapshotMsg(snap models.Snapshot, err error) Msg {
	return Msg{kind: MsgSnapshot, data: snapshotData{snap, err}}
}

// categoriesResolvedMsg is the constructor for [MsgCategoriesResolved]
func categoriesResolvedMsg(playlistID string, categories []models.CategoryPlaylist, err error) Msg {
	return Msg{kind: MsgCategoriesResolved, data: categoriesData{playlistID, categories, err}}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(intent string, err error) Msg {
	return Msg{kind: MsgCommandDone, data: struct {
		intent string
		err    error
	}{intent, err}}
}

// moveDoneMsg is the constructor for [MsgMoveDone]
func moveDoneMsg(target string, err error) Msg {
	return Msg{kind: MsgMoveDone, data: struct {
		target string
		err    error
	}{target, err}}
}

// ExpiredMsg is the constructor for [MsgSessionExpired]
func ExpiredMsg() Msg {
	return Msg{kind: MsgSessionExpired}
}
