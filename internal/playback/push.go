package playback

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
)

// Device event types.
const (
	EventReady        = "ready"
	EventNotReady     = "not_ready"
	EventStateChanged = "player_state_changed"
	EventInitError    = "initialization_error"
	EventAuthError    = "authentication_error"
	EventAccountError = "account_error"
	EventPlaybackErr  = "playback_error"
)

const (
	defaultInterpolateInterval = time.Second
	defaultReconnectDelay      = 2 * time.Second
	dialTimeout                = 5 * time.Second
)

// vendorNoise lists device error messages that carry no user-facing meaning.
var vendorNoise = []string{
	"item_before_load",
	"playload event failed",
	"cpapi.spotify.com",
	"no list was loaded",
}

// DeviceTrack is the current track as reported by the device.
type DeviceTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	DurationMs int             `json:"duration_ms"`
	Artists    []models.Artist `json:"artists"`
	Album      models.Album    `json:"album"`
}

// DeviceState is the device's view of playback.
type DeviceState struct {
	Paused   bool `json:"paused"`
	Position int  `json:"position"`
	Duration int  `json:"duration"`
	Context  struct {
		URI string `json:"uri"`
	} `json:"context"`
	TrackWindow struct {
		CurrentTrack *DeviceTrack `json:"current_track"`
	} `json:"track_window"`
}

// Snapshot normalizes the device state.
func (s *DeviceState) Snapshot() models.Snapshot {
	if s == nil {
		return models.Idle()
	}

	snap := models.Snapshot{IsPlaying: !s.Paused, ProgressMs: s.Position}
	if t := s.TrackWindow.CurrentTrack; t != nil {
		duration := t.DurationMs
		if duration == 0 {
			duration = s.Duration
		}
		snap.Track = &models.Track{
			ID:         t.ID,
			Name:       t.Name,
			DurationMs: duration,
			Artists:    t.Artists,
			Album:      t.Album,
		}
	}
	if uri := s.Context.URI; uri != "" {
		snap.Context = &models.Context{URI: uri, Type: contextType(uri)}
	}
	return snap.Clamp()
}

// contextType reads the kind segment of a spotify:<kind>:<id> URI.
func contextType(uri string) string {
	parts := strings.Split(uri, ":")
	if len(parts) < 3 {
		return "unknown"
	}
	return parts[1]
}

// DeviceEvent is one message on the device channel.
type DeviceEvent struct {
	Type     string       `json:"type"`
	DeviceID string       `json:"device_id,omitempty"`
	State    *DeviceState `json:"state,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// isVendorNoise reports device errors that are dropped inside this adapter.
func isVendorNoise(msg string) bool {
	msg = strings.ToLower(msg)
	for _, n := range vendorNoise {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

// PushSource is the push-mode [Source]: a websocket to a locally attached playback device.
type PushSource struct {
	hub
	url            string
	interpolate    time.Duration
	reconnectDelay time.Duration
	logger         *log.Logger
	now            func() time.Time

	devMu    sync.Mutex
	deviceID string
	stop     context.CancelFunc
	done     bool
}

// NewPushSource creates a source reading events from the websocket at url.
//
// interpolate is the progress tick while playing (default 1s).
func NewPushSource(url string, interpolate time.Duration, logger *log.Logger) *PushSource {
	if interpolate <= 0 {
		interpolate = defaultInterpolateInterval
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PushSource{
		url:            url,
		interpolate:    interpolate,
		reconnectDelay: defaultReconnectDelay,
		logger:         shared.WithLogger(logger, "source", shared.ModePush),
		now:            time.Now,
	}
}

func (p *PushSource) Mode() string { return shared.ModePush }

func (p *PushSource) DeviceID() string {
	p.devMu.Lock()
	defer p.devMu.Unlock()
	return p.deviceID
}

// Ready reports whether the device has announced itself.
func (p *PushSource) Ready() bool {
	return p.DeviceID() != ""
}

// Start connects to the device and starts the interpolation timer.
func (p *PushSource) Start(ctx context.Context) {
	ctx, stop := context.WithCancel(ctx)

	p.devMu.Lock()
	if p.stop != nil || p.done {
		p.devMu.Unlock()
		stop()
		return
	}
	p.stop = stop
	p.devMu.Unlock()

	go p.listen(ctx)
	go p.tick(ctx)
}

// listen reads events, reconnecting after connection loss until ctx is done.
func (p *PushSource) listen(ctx context.Context) {
	for {
		err := p.session(ctx)
		if ctx.Err() != nil {
			return
		}

		p.setDevice("")
		p.logger.Warn("device channel lost", "error", err, "retry", p.reconnectDelay)
		p.fail(fmt.Errorf("%w: device channel: %w", shared.ErrPlaybackFetch, err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.reconnectDelay):
		}
	}
}

// session runs one connection until it fails.
func (p *PushSource) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, p.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	p.logger.Info("connected to device channel", "url", p.url)
	for {
		var ev DeviceEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return err
		}
		p.HandleEvent(ev)
	}
}

// HandleEvent applies one device event.
func (p *PushSource) HandleEvent(ev DeviceEvent) {
	switch ev.Type {
	case EventReady:
		p.setDevice(ev.DeviceID)
		p.logger.Info("device ready", "device", ev.DeviceID)
	case EventNotReady:
		p.devMu.Lock()
		if ev.DeviceID == "" || ev.DeviceID == p.deviceID {
			p.deviceID = ""
		}
		p.devMu.Unlock()
		p.logger.Warn("device went offline", "device", ev.DeviceID)
	case EventStateChanged:
		p.publish(ev.State.Snapshot(), p.now())
	case EventInitError, EventAuthError, EventAccountError, EventPlaybackErr:
		if isVendorNoise(ev.Message) {
			p.logger.Debug("dropped device noise", "type", ev.Type, "message", ev.Message)
			return
		}
		err := fmt.Errorf("%w: %s: %s", shared.ErrPlaybackFetch, ev.Type, ev.Message)
		p.logger.Error("device error", "error", err)
		p.fail(err)
	default:
		p.logger.Debug("ignored device event", "type", ev.Type)
	}
}

func (p *PushSource) setDevice(id string) {
	p.devMu.Lock()
	defer p.devMu.Unlock()
	p.deviceID = id
}

func (p *PushSource) tick(ctx context.Context) {
	ticker := time.NewTicker(p.interpolate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Advance()
		}
	}
}

// Advance moves a playing snapshot forward by the wall-clock time since it was taken.
//
// The result is dropped if a device event arrived meanwhile. It returns whether a snapshot was published.
func (p *PushSource) Advance() bool {
	snap, at, version, seen := p.latest()
	if !seen || !snap.IsPlaying || snap.Track == nil {
		return false
	}

	now := p.now()
	next := snap.Advance(now.Sub(at))
	if next.ProgressMs == snap.ProgressMs {
		return false
	}
	return p.replace(next, now, version)
}

// Close stops the timers and the connection and drops listeners.
func (p *PushSource) Close() {
	p.devMu.Lock()
	p.done = true
	if p.stop != nil {
		p.stop()
	}
	p.devMu.Unlock()
	p.close()
}
