package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/shared"
)

// DefaultPollInterval is the currently-playing refresh period.
const DefaultPollInterval = 2 * time.Second

// Fetcher reads the current playback state. services.SpotifyService implements it.
type Fetcher interface {
	CurrentlyPlaying(ctx context.Context) (models.Snapshot, error)
}

// Poller is the polling [Source].
type Poller struct {
	hub
	fetcher  Fetcher
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time

	runMu sync.Mutex
	stop  context.CancelFunc
	done  bool
}

// NewPoller creates a poller reading fetcher every interval (default 2s).
func NewPoller(fetcher Fetcher, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		logger:   shared.WithLogger(logger, "source", shared.ModePoll),
		now:      time.Now,
	}
}

func (p *Poller) Mode() string { return shared.ModePoll }

// DeviceID is always empty: polled commands go to the active device.
func (p *Poller) DeviceID() string { return "" }

func (p *Poller) Ready() bool { return true }

// Start polls immediately and then on every tick.
func (p *Poller) Start(ctx context.Context) {
	ctx, stop := context.WithCancel(ctx)

	p.runMu.Lock()
	if p.stop != nil || p.done {
		p.runMu.Unlock()
		stop()
		return
	}
	p.stop = stop
	p.runMu.Unlock()

	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs one read and publishes the result. It is also the settle re-poll used by [Dispatcher].
//
// The read itself is not canceled with ctx; a result arriving after Close is dropped.
func (p *Poller) Poll(ctx context.Context) error {
	snap, err := p.fetcher.CurrentlyPlaying(context.WithoutCancel(ctx))
	if err != nil {
		if !errors.Is(err, shared.ErrPlaybackFetch) {
			err = fmt.Errorf("%w: %w", shared.ErrPlaybackFetch, err)
		}
		p.logger.Warn("poll failed, keeping previous snapshot", "error", err)
		p.fail(err)
		return err
	}

	p.publish(snap.Clamp(), p.now())
	return nil
}

// Close stops the ticker and drops listeners.
func (p *Poller) Close() {
	p.runMu.Lock()
	p.done = true
	if p.stop != nil {
		p.stop()
	}
	p.runMu.Unlock()
	p.close()
}
