// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/clouder/internal/models"
)

// StubRefresher is a test double for session.Refresher that counts calls.
type StubRefresher struct {
	Calls atomic.Int32
	Next  models.Session
	Err   error
}

func (s *StubRefresher) Refresh(ctx context.Context, refreshToken string) (models.Session, error) {
	s.Calls.Add(1)
	return s.Next, s.Err
}

// FakePlayer is a test double for services.PlayerService.
//
// Commands are recorded as "name" or "name:arg" with the device id appended after "@" when set.
type FakePlayer struct {
	mu         sync.Mutex
	snapshot   models.Snapshot
	FetchErr   error
	CommandErr error
	fetches    int
	calls      []string
}

// NewFakePlayer returns a player reporting snap.
func NewFakePlayer(snap models.Snapshot) *FakePlayer {
	return &FakePlayer{snapshot: snap}
}

func (f *FakePlayer) Name() string { return "fake" }

// SetSnapshot replaces the snapshot returned by CurrentlyPlaying.
func (f *FakePlayer) SetSnapshot(snap models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = snap
}

func (f *FakePlayer) CurrentlyPlaying(ctx context.Context) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.FetchErr != nil {
		return models.Snapshot{}, f.FetchErr
	}
	return f.snapshot, nil
}

// Fetches returns the number of CurrentlyPlaying calls.
func (f *FakePlayer) Fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// Calls returns a copy of the recorded commands.
func (f *FakePlayer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakePlayer) record(name, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if deviceID != "" {
		name += "@" + deviceID
	}
	f.calls = append(f.calls, name)
	return f.CommandErr
}

func (f *FakePlayer) Play(ctx context.Context, deviceID string) error {
	return f.record("play", deviceID)
}

func (f *FakePlayer) Pause(ctx context.Context, deviceID string) error {
	return f.record("pause", deviceID)
}

func (f *FakePlayer) Next(ctx context.Context, deviceID string) error {
	return f.record("next", deviceID)
}

func (f *FakePlayer) Previous(ctx context.Context, deviceID string) error {
	return f.record("previous", deviceID)
}

func (f *FakePlayer) Seek(ctx context.Context, positionMs int, deviceID string) error {
	return f.record(fmt.Sprintf("seek:%d", positionMs), deviceID)
}

func (f *FakePlayer) PlayContext(ctx context.Context, contextURI, deviceID string) error {
	return f.record("play:"+contextURI, deviceID)
}

// FakeCategories is a test double for services.CategoryService backed by maps.
type FakeCategories struct {
	WeekOf    map[string]string
	ByWeek    map[string][]models.WeekPlaylist
	AllWeeks  []models.Week
	Err       error
	MoveErr   error
	MoveGate  chan struct{}
	WeekCalls atomic.Int32
	ListCalls atomic.Int32
	MoveCalls atomic.Int32
	mu        sync.Mutex
	moves     []models.MoveRequest
}

func (f *FakeCategories) Name() string { return "fake" }

func (f *FakeCategories) Week(ctx context.Context, playlistID string) (string, error) {
	f.WeekCalls.Add(1)
	if f.Err != nil {
		return "", f.Err
	}
	return f.WeekOf[playlistID], nil
}

func (f *FakeCategories) WeekPlaylists(ctx context.Context, week string) ([]models.WeekPlaylist, error) {
	f.ListCalls.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.ByWeek[week], nil
}

func (f *FakeCategories) Weeks(ctx context.Context) ([]models.Week, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.AllWeeks, nil
}

// MoveTrack records req, blocking on MoveGate when set.
func (f *FakeCategories) MoveTrack(ctx context.Context, req models.MoveRequest) error {
	f.MoveCalls.Add(1)
	if f.MoveGate != nil {
		<-f.MoveGate
	}
	f.mu.Lock()
	f.moves = append(f.moves, req)
	f.mu.Unlock()
	return f.MoveErr
}

// Moves returns a copy of the recorded move requests.
func (f *FakeCategories) Moves() []models.MoveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MoveRequest(nil), f.moves...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
