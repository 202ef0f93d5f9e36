package timer

import (
	"sync"
	"time"
)

// Ticker delivers the one-second ticks that drive every time-based transition.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Factory creates a ticker for the given period.
type Factory func(d time.Duration) Ticker

// Real is the production factory backed by time.Ticker.
func Real(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Manual is a ticker fired explicitly by tests.
type Manual struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
	now     time.Time
}

// NewManual returns an unbuffered manual ticker.
func NewManual() *Manual {
	return &Manual{ch: make(chan time.Time), now: time.Unix(0, 0)}
}

// Factory returns a Factory that always hands out m.
func (m *Manual) Factory() Factory {
	return func(time.Duration) Ticker { return m }
}

func (m *Manual) C() <-chan time.Time { return m.ch }

func (m *Manual) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Fire delivers one tick, blocking until the consumer receives it.
func (m *Manual) Fire() {
	m.mu.Lock()
	m.now = m.now.Add(time.Second)
	now := m.now
	m.mu.Unlock()
	m.ch <- now
}

// Stopped reports whether Stop was called.
func (m *Manual) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}
