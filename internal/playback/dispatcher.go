package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/services"
	"github.com/desertthunder/clouder/internal/shared"
)

const (
	DefaultSettleDelay = 500 * time.Millisecond
	DefaultSeekStep    = 10 * time.Second
)

// Authenticator reports whether commands can be sent. session.Session implements it.
type Authenticator interface {
	Authenticated() bool
}

// poller is a source that can be re-read on demand.
type poller interface {
	Poll(ctx context.Context) error
}

// DispatcherOptions tunes a [Dispatcher]. Zero values use the defaults.
type DispatcherOptions struct {
	SettleDelay time.Duration
	SeekStep    time.Duration
	Logger      *log.Logger
}

// Dispatcher forwards transport intents to the player.
type Dispatcher struct {
	player services.PlayerService
	source Source
	auth   Authenticator
	settle time.Duration
	step   int
	logger *log.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewDispatcher creates a dispatcher reading positions from source and sending commands to player.
func NewDispatcher(player services.PlayerService, source Source, auth Authenticator, opts DispatcherOptions) *Dispatcher {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.SeekStep <= 0 {
		opts.SeekStep = DefaultSeekStep
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Dispatcher{
		player: player,
		source: source,
		auth:   auth,
		settle: opts.SettleDelay,
		step:   int(opts.SeekStep.Milliseconds()),
		logger: shared.WithLogger(opts.Logger, "component", "dispatcher"),
	}
}

// addressable reports whether a command can reach a playback surface, logging the reason when not.
func (d *Dispatcher) addressable(intent string) bool {
	if d.auth != nil && !d.auth.Authenticated() {
		d.logger.Debug("command skipped", "intent", intent, "reason", "not authenticated")
		return false
	}
	if !d.source.Ready() {
		d.logger.Debug("command skipped", "intent", intent, "reason", "no playback surface")
		return false
	}
	return true
}

// current returns the latest snapshot with a track, read at call time.
func (d *Dispatcher) current(intent string) (models.Snapshot, bool) {
	snap, ok := d.source.Current()
	if !ok || snap.Track == nil {
		d.logger.Debug("command skipped", "intent", intent, "reason", "no track")
		return models.Snapshot{}, false
	}
	return snap, true
}

// run issues one provider call and schedules the settle re-poll on success.
func (d *Dispatcher) run(ctx context.Context, intent string, call func(ctx context.Context, deviceID string) error) error {
	if err := call(ctx, d.source.DeviceID()); err != nil {
		if !errors.Is(err, shared.ErrCommand) {
			err = fmt.Errorf("%w: %s: %w", shared.ErrCommand, intent, err)
		}
		d.logger.Error("command failed", "intent", intent, "error", err)
		return err
	}

	d.logger.Debug("command sent", "intent", intent)
	d.scheduleSettle(ctx)
	return nil
}

// scheduleSettle (re)arms the single settle timer when the source can be polled.
func (d *Dispatcher) scheduleSettle(ctx context.Context) {
	p, ok := d.source.(poller)
	if !ok {
		return
	}

	ctx = context.WithoutCancel(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.settle, func() {
		d.mu.Lock()
		closed := d.closed
		d.mu.Unlock()
		if !closed {
			p.Poll(ctx)
		}
	})
}

// PlayPause pauses when the snapshot says playing and plays otherwise.
func (d *Dispatcher) PlayPause(ctx context.Context) error {
	if !d.addressable("play_pause") {
		return nil
	}
	snap, ok := d.source.Current()
	if !ok {
		return nil
	}
	if snap.IsPlaying {
		return d.run(ctx, "pause", d.player.Pause)
	}
	return d.run(ctx, "play", d.player.Play)
}

func (d *Dispatcher) Next(ctx context.Context) error {
	if !d.addressable("next") {
		return nil
	}
	return d.run(ctx, "next", d.player.Next)
}

func (d *Dispatcher) Previous(ctx context.Context) error {
	if !d.addressable("previous") {
		return nil
	}
	return d.run(ctx, "previous", d.player.Previous)
}

// SeekAbsolute seeks to fraction (clamped to [0, 1]) of the current track.
func (d *Dispatcher) SeekAbsolute(ctx context.Context, fraction float64) error {
	if !d.addressable("seek") {
		return nil
	}
	snap, ok := d.current("seek")
	if !ok {
		return nil
	}

	fraction = math.Max(0, math.Min(1, fraction))
	position := int(math.Round(fraction * float64(snap.Track.DurationMs)))
	return d.seek(ctx, "seek", position)
}

// Rewind seeks back by the seek step, stopping at 0.
func (d *Dispatcher) Rewind(ctx context.Context) error {
	if !d.addressable("rewind") {
		return nil
	}
	snap, ok := d.current("rewind")
	if !ok {
		return nil
	}
	return d.seek(ctx, "rewind", max(0, snap.ProgressMs-d.step))
}

// FastForward seeks ahead by the seek step, stopping at the track duration.
func (d *Dispatcher) FastForward(ctx context.Context) error {
	if !d.addressable("fast_forward") {
		return nil
	}
	snap, ok := d.current("fast_forward")
	if !ok {
		return nil
	}
	return d.seek(ctx, "fast_forward", min(snap.Track.DurationMs, snap.ProgressMs+d.step))
}

func (d *Dispatcher) seek(ctx context.Context, intent string, position int) error {
	return d.run(ctx, intent, func(ctx context.Context, deviceID string) error {
		return d.player.Seek(ctx, position, deviceID)
	})
}

// PlayContext starts a playlist or album URI on the playback surface.
func (d *Dispatcher) PlayContext(ctx context.Context, contextURI string) error {
	if !d.addressable("play_context") {
		return nil
	}
	return d.run(ctx, "play_context", func(ctx context.Context, deviceID string) error {
		return d.player.PlayContext(ctx, contextURI, deviceID)
	})
}

// Close cancels a pending settle re-poll.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
