package playback

import (
	"testing"
	"time"

	"github.com/desertthunder/clouder/internal/models"
)

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func playing(progress, duration int) models.Snapshot {
	return models.Snapshot{
		IsPlaying:  true,
		ProgressMs: progress,
		Track:      &models.Track{ID: "t1", Name: "Song", DurationMs: duration},
		Context:    &models.Context{URI: "spotify:playlist:pl1", Type: models.ContextPlaylist},
	}
}
