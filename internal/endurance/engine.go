package endurance

import (
	"errors"
	"fmt"

	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/timer"
)

var (
	ErrFinished     = errors.New("grid attempt already finished")
	ErrInvalidDigit = errors.New("answer must be a single digit")
	ErrGridShape    = errors.New("grid does not match configuration")
)

// Step describes what an input or tick did to the cursor.
type Step int

const (
	StepNone     Step = iota
	StepSlot          // moved up one gap within the column
	StepColumn        // advanced to the next column
	StepFinished      // left the last column
)

// Engine administers one grid attempt. Columns and slots only move forward;
// a column's slots are frozen once it is left.
type Engine struct {
	cfg      model.GridConfig
	grid     Grid
	answers  [][]*int
	column   int
	slot     int
	colClock *timer.Countdown
	finished bool
}

// NewEngine starts an attempt at column 0, bottom gap, with a fresh column clock.
func NewEngine(cfg model.GridConfig, grid Grid) (*Engine, error) {
	if cfg.Columns < 1 || cfg.Rows < 2 || cfg.PerColumnSeconds < 1 {
		return nil, ErrInvalidConfig
	}
	if grid.Columns() != cfg.Columns {
		return nil, fmt.Errorf("%w: %d columns", ErrGridShape, grid.Columns())
	}
	for c := range grid {
		if len(grid[c]) != cfg.Rows {
			return nil, fmt.Errorf("%w: column %d has %d rows", ErrGridShape, c, len(grid[c]))
		}
	}

	answers := make([][]*int, cfg.Columns)
	for c := range answers {
		answers[c] = make([]*int, cfg.Gaps())
	}

	return &Engine{
		cfg:      cfg,
		grid:     grid.Clone(),
		answers:  answers,
		slot:     cfg.Rows - 2,
		colClock: timer.NewCountdown(cfg.PerColumnSeconds),
	}, nil
}

// Key stores digit in the active slot and moves the cursor. Filling gap 0
// completes the column immediately, whatever column time is left.
func (e *Engine) Key(digit int) (Step, error) {
	if e.finished {
		return StepNone, ErrFinished
	}
	if digit < 0 || digit > 9 {
		return StepNone, fmt.Errorf("%w: %d", ErrInvalidDigit, digit)
	}
	v := digit
	e.answers[e.column][e.slot] = &v

	if e.slot > 0 {
		e.slot--
		return StepSlot, nil
	}
	return e.advance(), nil
}

// Tick consumes one second of column time; an exhausted column is left with
// its remaining slots unanswered.
func (e *Engine) Tick() Step {
	if e.finished {
		return StepNone
	}
	if e.colClock.Tick() {
		return e.advance()
	}
	return StepNone
}

// Skip abandons the active column. Same effect as column expiry.
func (e *Engine) Skip() (Step, error) {
	if e.finished {
		return StepNone, ErrFinished
	}
	return e.advance(), nil
}

// Stop freezes the attempt where it stands (forced termination).
func (e *Engine) Stop() {
	e.finished = true
	e.colClock.Stop()
}

func (e *Engine) advance() Step {
	if e.column >= e.cfg.Columns-1 {
		e.finished = true
		e.colClock.Stop()
		return StepFinished
	}
	e.column++
	e.slot = e.cfg.Rows - 2
	e.colClock.Reset(e.cfg.PerColumnSeconds)
	return StepColumn
}

// Position returns the active column and slot.
func (e *Engine) Position() (column, slot int) {
	return e.column, e.slot
}

func (e *Engine) Finished() bool          { return e.finished }
func (e *Engine) ColumnTimeRemaining() int { return e.colClock.Remaining() }
func (e *Engine) Config() model.GridConfig { return e.cfg }

// Grid returns a copy of the generated grid.
func (e *Engine) Grid() Grid { return e.grid.Clone() }

// Answers returns a copy of the answer matrix.
func (e *Engine) Answers() [][]*int {
	out := make([][]*int, len(e.answers))
	for c, col := range e.answers {
		out[c] = make([]*int, len(col))
		for i, a := range col {
			if a != nil {
				v := *a
				out[c][i] = &v
			}
		}
	}
	return out
}

// Report scores the current answers against the grid.
func (e *Engine) Report() model.EnduranceReport {
	return Score(e.grid, e.answers)
}
