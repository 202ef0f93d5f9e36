// Package proctor turns raw browser signals into violation events.
package proctor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/psikotes-proctor/internal/model"
)

// SignalKind enumerates the browser-level signals the monitor observes.
type SignalKind string

const (
	SignalVisibility  SignalKind = "visibility"
	SignalBlur        SignalKind = "blur"
	SignalFullscreen  SignalKind = "fullscreen"
	SignalKey         SignalKind = "key"
	SignalContextMenu SignalKind = "contextmenu"
)

// Signal is one browser observation.
type Signal struct {
	Kind SignalKind
	// Hidden is the new page visibility for SignalVisibility.
	Hidden bool
	// Active is the new fullscreen state for SignalFullscreen.
	Active bool
	Key    KeyCombo
}

// Classify maps a signal to a violation reason, if it is one.
func Classify(sig Signal) (model.ViolationReason, bool) {
	switch sig.Kind {
	case SignalVisibility:
		return model.ViolationTabHidden, sig.Hidden
	case SignalBlur:
		return model.ViolationFocusLost, true
	case SignalFullscreen:
		return model.ViolationFullscreenExit, !sig.Active
	case SignalKey:
		return model.ViolationRestrictedKey, sig.Key.Restricted()
	case SignalContextMenu:
		return model.ViolationContextMenu, true
	}
	return "", false
}

// Event is one violation raised while armed.
type Event struct {
	Reason   model.ViolationReason
	Sequence uint64
	// Epoch identifies the arming period the event belongs to. Events
	// from an earlier epoch are stale and must be discarded.
	Epoch uint64
	At    time.Time
}

// DefaultBuffer bounds queued events. It exceeds the violation threshold, so
// an overflow can only drop events after the test has already been forced to end.
const DefaultBuffer = 64

// Monitor counts nothing and scores nothing; it only emits events while armed.
// Observe may be called from the connection reader while the session loop
// arms and disarms.
type Monitor struct {
	mu     sync.Mutex
	armed  bool
	epoch  uint64
	seq    uint64
	events chan Event
	now    func() time.Time
	log    zerolog.Logger
}

// NewMonitor creates a disarmed monitor.
func NewMonitor(buffer int, log zerolog.Logger) *Monitor {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Monitor{
		events: make(chan Event, buffer),
		now:    time.Now,
		log:    log.With().Str("component", "violation_monitor").Logger(),
	}
}

// Events is the channel the session controller consumes.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Arm starts a new epoch and begins raising events.
func (m *Monitor) Arm() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.armed = true
	return m.epoch
}

// Disarm stops raising events. Once it returns no event of the current
// epoch can be produced, and any already queued carries a stale epoch.
func (m *Monitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.armed {
		m.armed = false
		m.epoch++
	}
}

// Armed reports whether the monitor is raising events.
func (m *Monitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Epoch returns the current arming epoch.
func (m *Monitor) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Observe raises one event per violating signal while armed. Signals are
// never coalesced.
func (m *Monitor) Observe(sig Signal) (Event, bool) {
	reason, ok := Classify(sig)
	if !ok {
		return Event{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.armed {
		return Event{}, false
	}

	m.seq++
	ev := Event{Reason: reason, Sequence: m.seq, Epoch: m.epoch, At: m.now()}

	select {
	case m.events <- ev:
	default:
		m.log.Warn().
			Str("reason", string(reason)).
			Uint64("sequence", ev.Sequence).
			Msg("Violation queue full, event dropped")
	}
	return ev, true
}
