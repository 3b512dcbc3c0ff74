package playback

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/clouder/internal/models"
)

// Listener receives each new snapshot. On a failed fetch err is set and snap is the retained snapshot.
type Listener func(snap models.Snapshot, err error)

// Source produces playback snapshots from one strategy.
type Source interface {
	// Start begins producing snapshots until ctx is done or Close is called.
	Start(ctx context.Context)

	// Subscribe registers fn and returns its unsubscribe func. A known snapshot is delivered immediately.
	Subscribe(fn Listener) (unsubscribe func())

	// Current returns the latest snapshot and whether one has been seen.
	Current() (models.Snapshot, bool)

	// DeviceID is the playback surface commands are routed to; "" targets the active device.
	DeviceID() string

	// Ready reports whether a playback surface is addressable.
	Ready() bool

	// Mode returns "poll" or "push".
	Mode() string

	Close()
}

// hub holds the latest snapshot and fans it out to listeners.
type hub struct {
	emit sync.Mutex

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	current   models.Snapshot
	at        time.Time
	version   uint64
	seen      bool
	closed    bool
}

func (h *hub) Subscribe(fn Listener) func() {
	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[int]Listener)
	}
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	current, seen := h.current, h.seen
	h.mu.Unlock()

	if seen {
		fn(current, nil)
	}

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *hub) Current() (models.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.seen
}

// latest returns the snapshot with the time it was taken and its version.
func (h *hub) latest() (models.Snapshot, time.Time, uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.at, h.version, h.seen
}

// publish replaces the snapshot unconditionally.
func (h *hub) publish(snap models.Snapshot, at time.Time) {
	h.store(snap, at, 0, false)
}

// replace publishes snap only if no other snapshot arrived since version.
func (h *hub) replace(snap models.Snapshot, at time.Time, version uint64) bool {
	return h.store(snap, at, version, true)
}

func (h *hub) store(snap models.Snapshot, at time.Time, version uint64, conditional bool) bool {
	h.emit.Lock()
	defer h.emit.Unlock()

	h.mu.Lock()
	if h.closed || (conditional && h.version != version) {
		h.mu.Unlock()
		return false
	}
	h.current, h.at, h.seen = snap, at, true
	h.version++
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(snap, nil)
	}
	return true
}

// fail reports err with the retained snapshot.
func (h *hub) fail(err error) {
	h.emit.Lock()
	defer h.emit.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	current := h.current
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(current, err)
	}
}

func (h *hub) snapshotListeners() []Listener {
	listeners := make([]Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

// close drops all listeners; later publishes are ignored.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.listeners = nil
}
