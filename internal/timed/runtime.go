// Package timed administers question-set tests against a single countdown.
package timed

import (
	"errors"
	"fmt"

	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/timer"
)

var (
	ErrNoQuestions   = errors.New("question set is empty")
	ErrInvalidBudget = errors.New("duration must be positive")
	ErrNotRunning    = errors.New("run is not active")
	ErrQuestionIndex = errors.New("question index out of range")
	ErrOptionIndex   = errors.New("option index out of range")
)

// Runtime holds the answers of one question-set test run.
// Correctness is never evaluated here.
type Runtime struct {
	questions []model.Question
	answers   []*int
	clock     *timer.Countdown
	running   bool
}

// Start initializes every answer to unanswered and starts the countdown.
func Start(questions []model.Question, durationSeconds int) (*Runtime, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if durationSeconds <= 0 {
		return nil, ErrInvalidBudget
	}
	qs := make([]model.Question, len(questions))
	copy(qs, questions)

	return &Runtime{
		questions: qs,
		answers:   make([]*int, len(qs)),
		clock:     timer.NewCountdown(durationSeconds),
		running:   true,
	}, nil
}

// Answer overwrites the answer at index. Re-answering is always allowed
// while the run is active.
func (r *Runtime) Answer(index, option int) error {
	if !r.running {
		return ErrNotRunning
	}
	if index < 0 || index >= len(r.answers) {
		return fmt.Errorf("%w: %d", ErrQuestionIndex, index)
	}
	if n := r.questions[index].OptionCount; option < 0 || (n > 0 && option >= n) {
		return fmt.Errorf("%w: %d", ErrOptionIndex, option)
	}
	v := option
	r.answers[index] = &v
	return nil
}

// Tick advances the countdown one second. It reports true exactly once, on
// the tick that exhausts the budget; the run stops at that point.
func (r *Runtime) Tick() bool {
	if !r.running {
		return false
	}
	if r.clock.Tick() {
		r.running = false
		return true
	}
	return false
}

// Stop ends the run. Further answers are rejected.
func (r *Runtime) Stop() {
	r.running = false
	r.clock.Stop()
}

// Snapshot copies the answer array. Safe to call at any time.
func (r *Runtime) Snapshot() []*int {
	out := make([]*int, len(r.answers))
	for i, a := range r.answers {
		if a != nil {
			v := *a
			out[i] = &v
		}
	}
	return out
}

func (r *Runtime) Running() bool  { return r.running }
func (r *Runtime) Remaining() int { return r.clock.Remaining() }
func (r *Runtime) Elapsed() int   { return r.clock.Elapsed() }
func (r *Runtime) Len() int       { return len(r.answers) }
