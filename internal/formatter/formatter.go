// package formatter renders playlists, categories, weeks and the now-playing snapshot as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
)

// Format is an output encoding.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat accepts text, markdown (md), csv and json. Empty is text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

func toJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func toCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV records: %w", err)
	}
	return buf.Bytes(), nil
}

// Playlists renders the user's playlists.
func Playlists(f Format, playlists []models.Playlist) ([]byte, error) {
	switch f {
	case JSON:
		if playlists == nil {
			playlists = []models.Playlist{}
		}
		return toJSON(playlists)
	case CSV:
		rows := make([][]string, len(playlists))
		for i, p := range playlists {
			rows[i] = []string{p.ID, p.Name, strconv.Itoa(p.TrackCount), p.URI}
		}
		return toCSV([]string{"ID", "Name", "Tracks", "URI"}, rows)
	case Markdown:
		var buf bytes.Buffer
		buf.WriteString("# Playlists\n\n")
		buf.WriteString("| Name | Tracks | ID |\n|---|---|---|\n")
		for _, p := range playlists {
			fmt.Fprintf(&buf, "| %s | %d | `%s` |\n", escapeCell(p.Name), p.TrackCount, p.ID)
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "Playlists: %d\n\n", len(playlists))
		for i, p := range playlists {
			fmt.Fprintf(&buf, "%d. %s (%d tracks) %s\n", i+1, p.Name, p.TrackCount, p.ID)
		}
		return buf.Bytes(), nil
	}
}

// Categories renders move targets in the given order.
func Categories(f Format, categories []models.CategoryPlaylist) ([]byte, error) {
	switch f {
	case JSON:
		if categories == nil {
			categories = []models.CategoryPlaylist{}
		}
		return toJSON(categories)
	case CSV:
		rows := make([][]string, len(categories))
		for i, c := range categories {
			rows[i] = []string{c.PlaylistID, c.DisplayName}
		}
		return toCSV([]string{"ID", "Name"}, rows)
	case Markdown:
		var buf bytes.Buffer
		buf.WriteString("## Categories\n\n")
		for _, c := range categories {
			fmt.Fprintf(&buf, "- %s (`%s`)\n", c.DisplayName, c.PlaylistID)
		}
		return buf.Bytes(), nil
	default:
		if len(categories) == 0 {
			return []byte("No categories for this playlist\n"), nil
		}
		var buf bytes.Buffer
		for i, c := range categories {
			fmt.Fprintf(&buf, "%d. %-16s %s\n", i+1, c.DisplayName, c.PlaylistID)
		}
		return buf.Bytes(), nil
	}
}

// Weeks renders the known weeks.
func Weeks(f Format, weeks []models.Week) ([]byte, error) {
	switch f {
	case JSON:
		if weeks == nil {
			weeks = []models.Week{}
		}
		return toJSON(weeks)
	case CSV:
		rows := make([][]string, len(weeks))
		for i, w := range weeks {
			rows[i] = []string{w.ClouderWeek, w.StartDate, w.EndDate}
		}
		return toCSV([]string{"Week", "Start", "End"}, rows)
	case Markdown:
		var buf bytes.Buffer
		buf.WriteString("| Week | Start | End |\n|---|---|---|\n")
		for _, w := range weeks {
			fmt.Fprintf(&buf, "| %s | %s | %s |\n", w.ClouderWeek, w.StartDate, w.EndDate)
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		for _, w := range weeks {
			fmt.Fprintf(&buf, "%s  %s to %s\n", w.ClouderWeek, w.StartDate, w.EndDate)
		}
		return buf.Bytes(), nil
	}
}

// NowPlaying renders one snapshot.
func NowPlaying(f Format, snap models.Snapshot) ([]byte, error) {
	switch f {
	case JSON:
		return toJSON(snap)
	case CSV:
		row := []string{"", "", "", "0", "0", strconv.FormatBool(snap.IsPlaying), ""}
		if t := snap.Track; t != nil {
			row = []string{t.ID, t.Name, t.ArtistNames(), strconv.Itoa(snap.ProgressMs), strconv.Itoa(t.DurationMs), strconv.FormatBool(snap.IsPlaying), ""}
		}
		if snap.Context != nil {
			row[6] = snap.Context.URI
		}
		return toCSV([]string{"ID", "Title", "Artists", "Progress", "Duration", "Playing", "Context"}, [][]string{row})
	case Markdown:
		if snap.Track == nil {
			return []byte("_Nothing playing_\n"), nil
		}
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "**%s** by %s\n\n", snap.Track.Name, snap.Track.ArtistNames())
		if snap.Track.Album.Name != "" {
			fmt.Fprintf(&buf, "Album: %s\n\n", snap.Track.Album.Name)
		}
		fmt.Fprintf(&buf, "`%s` %s / %s\n", state(snap), shared.FormatDuration(snap.ProgressMs), shared.FormatDuration(snap.Track.DurationMs))
		return buf.Bytes(), nil
	default:
		return []byte(Line(snap) + "\n"), nil
	}
}

// Line is a one-line summary of snap, e.g. "▶ Song - Artist [1:02/3:20]".
func Line(snap models.Snapshot) string {
	if snap.Track == nil {
		return "Nothing playing"
	}
	symbol := "⏸"
	if snap.IsPlaying {
		symbol = "▶"
	}
	return fmt.Sprintf("%s %s - %s [%s/%s]", symbol, snap.Track.Name, snap.Track.ArtistNames(),
		shared.FormatDuration(snap.ProgressMs), shared.FormatDuration(snap.Track.DurationMs))
}

func state(snap models.Snapshot) string {
	if snap.IsPlaying {
		return "playing"
	}
	return "paused"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
