package session

import (
	"context"
	"time"

	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/timer"
)

// AbandonTimeout bounds the forced submission made after the connection is gone.
const AbandonTimeout = 10 * time.Second

// Command is one candidate input delivered to the session loop.
type Command interface {
	apply(ctx context.Context, c *Controller) error
}

type SelectTest struct{ Kind model.TestKind }

func (s SelectTest) apply(_ context.Context, c *Controller) error { return c.SelectTest(s.Kind) }

type AnswerQuestion struct{ Index, Option int }

func (a AnswerQuestion) apply(_ context.Context, c *Controller) error {
	return c.Answer(a.Index, a.Option)
}

type KeyDigit struct{ Digit int }

func (k KeyDigit) apply(ctx context.Context, c *Controller) error { return c.Key(ctx, k.Digit) }

type SkipColumn struct{}

func (SkipColumn) apply(ctx context.Context, c *Controller) error { return c.Skip(ctx) }

type SubmitTest struct{}

func (SubmitTest) apply(ctx context.Context, c *Controller) error { return c.SubmitNow(ctx) }

type RetrySubmit struct{}

func (RetrySubmit) apply(ctx context.Context, c *Controller) error { return c.RetrySubmissions(ctx) }

type ReportFullscreenUnsupported struct{}

func (ReportFullscreenUnsupported) apply(_ context.Context, c *Controller) error {
	c.FullscreenUnavailable()
	return nil
}

// Run drives the controller until the session is terminal, cmds is closed
// or ctx is cancelled. Commands, the one-second tick and violation events
// are serialized on this goroutine. Validate must have been called first.
func (c *Controller) Run(ctx context.Context, cmds <-chan Command, newTicker timer.Factory) error {
	if newTicker == nil {
		newTicker = timer.Real
	}
	ticker := newTicker(c.settings.TickPeriod)
	defer ticker.Stop()
	clock := tickClock{period: c.settings.TickPeriod}

	for !c.session.State.Terminal() {
		select {
		case <-ctx.Done():
			c.abandonDetached(ctx)
			return ctx.Err()

		case cmd, ok := <-cmds:
			if !ok {
				c.abandonDetached(ctx)
				return nil
			}
			if err := cmd.apply(ctx, c); err != nil {
				c.log.Debug().Err(err).Msg("Command rejected")
				c.notify.Notify(Notice{Type: NoticeError, Message: err.Error(), Err: err})
			}

		case at := <-ticker.C():
			if c.run != nil {
				c.Advance(ctx, clock.periods(c.epoch, at))
			}

		case ev := <-c.monitor.Events():
			c.HandleViolation(ctx, ev)
		}
	}
	return nil
}

// tickClock converts tick timestamps into elapsed periods of the running
// test. A ticker drops ticks while its reader is busy, so the gap between
// two received ticks is charged in full.
type tickClock struct {
	period time.Duration
	epoch  uint64
	last   time.Time
}

// periods returns how many periods at covers since the previous tick of the
// same run. The first tick of a run always counts as one.
func (k *tickClock) periods(epoch uint64, at time.Time) int {
	if epoch != k.epoch || k.last.IsZero() {
		k.epoch, k.last = epoch, at
		return 1
	}
	n := int((at.Sub(k.last) + k.period/2) / k.period)
	k.last = at
	if n < 1 {
		n = 1
	}
	return n
}

func (c *Controller) abandonDetached(ctx context.Context) {
	if c.run == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), AbandonTimeout)
	defer cancel()
	c.Abandon(actx)
}
