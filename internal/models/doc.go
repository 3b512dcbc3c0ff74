// Package models defines the domain entities shared by the session, playback and category layers.
//
//   - [Session] : the access/refresh token pair owned by session.Session
//   - [Snapshot] : one self-consistent view of current playback ([Track], [Context], progress)
//   - [CategoryPlaylist] : a weekly move target, including the "trash" fallback bin
//   - [Playlist] : a user playlist shown in the browser views
//
// Snapshots are values. Sources replace them wholesale; the only in-place change is the advisory
// progress interpolation done by the push source ([Snapshot.Advance]).
package models
