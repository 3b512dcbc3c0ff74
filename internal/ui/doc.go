// Package ui implements the interactive terminal player using bubbletea's Elm architecture.
//
// The TUI has two views, switched with tab:
//  1. [PlaylistView] : browse and filter the user's playlists; enter starts one on the playback surface
//  2. [PlayerView] : the current track with a progress bar, transport keys and the category picker
//
// Snapshots reach the [Model] through [Watch], which forwards every snapshot of a playback.Source
// to the running program. Transport keys go through playback.Lookup and are ignored while the playlist
// filter has focus. When the session expires the model shows a login prompt and stops issuing commands.
package ui
