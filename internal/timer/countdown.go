package timer

// Countdown is a whole-second budget driven by external ticks.
// It is not safe for concurrent use; its owner ticks it from one goroutine.
type Countdown struct {
	total     int
	remaining int
	running   bool
	expired   bool
}

// NewCountdown returns a running countdown of seconds. A non-positive budget
// starts already expired.
func NewCountdown(seconds int) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{
		total:     seconds,
		remaining: seconds,
		running:   seconds > 0,
		expired:   seconds == 0,
	}
}

// Tick consumes one second. It returns true exactly once: on the tick that
// brings the remaining time to zero.
func (c *Countdown) Tick() bool {
	if !c.running {
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
		c.expired = true
		return true
	}
	return false
}

// Reset restarts the countdown with a fresh budget.
func (c *Countdown) Reset(seconds int) {
	*c = *NewCountdown(seconds)
}

// Stop freezes the countdown without marking it expired.
func (c *Countdown) Stop() {
	c.running = false
}

func (c *Countdown) Remaining() int { return c.remaining }
func (c *Countdown) Total() int     { return c.total }
func (c *Countdown) Running() bool  { return c.running }
func (c *Countdown) Expired() bool  { return c.expired }

// Elapsed is the number of seconds consumed so far.
func (c *Countdown) Elapsed() int {
	return c.total - c.remaining
}
