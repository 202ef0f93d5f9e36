package session

import (
	"github.com/stemsi/psikotes-proctor/internal/endurance"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/timed"
	"github.com/stemsi/psikotes-proctor/internal/timer"
)

type tickResult int

const (
	tickRunning tickResult = iota
	tickExpired
	tickFinished
)

// runtime is the controller's view of an active test. It never outlives
// its test and never touches session state.
type runtime interface {
	Kind() model.TestKind
	Tick() tickResult
	Remaining() int
	Elapsed() int
	Stop()
	// Fill copies the run's answers (and score, if any) into sub.
	Fill(sub *model.Submission)
}

type questionRun struct {
	kind model.TestKind
	rt   *timed.Runtime
}

func newQuestionRun(kind model.TestKind, questions []model.Question, seconds int) (*questionRun, error) {
	rt, err := timed.Start(questions, seconds)
	if err != nil {
		return nil, err
	}
	return &questionRun{kind: kind, rt: rt}, nil
}

func (q *questionRun) Kind() model.TestKind { return q.kind }
func (q *questionRun) Remaining() int       { return q.rt.Remaining() }
func (q *questionRun) Elapsed() int         { return q.rt.Elapsed() }
func (q *questionRun) Stop()                { q.rt.Stop() }

func (q *questionRun) Tick() tickResult {
	if q.rt.Tick() {
		return tickExpired
	}
	return tickRunning
}

func (q *questionRun) Fill(sub *model.Submission) {
	sub.Answers = q.rt.Snapshot()
}

// enduranceRun pairs the grid engine with the session-level budget of
// columns x perColumnSeconds.
type enduranceRun struct {
	eng   *endurance.Engine
	clock *timer.Countdown
}

func newEnduranceRun(cfg model.GridConfig, src endurance.Source) (*enduranceRun, error) {
	grid, err := endurance.Generate(cfg, src)
	if err != nil {
		return nil, err
	}
	eng, err := endurance.NewEngine(cfg, grid)
	if err != nil {
		return nil, err
	}
	return &enduranceRun{eng: eng, clock: timer.NewCountdown(cfg.TotalSeconds())}, nil
}

func (e *enduranceRun) Kind() model.TestKind { return model.TestEndurance }
func (e *enduranceRun) Remaining() int       { return e.clock.Remaining() }
func (e *enduranceRun) Elapsed() int         { return e.clock.Elapsed() }

func (e *enduranceRun) Stop() {
	e.eng.Stop()
	e.clock.Stop()
}

// Tick drives both clocks. Exhausting the session budget wins over a
// simultaneous natural finish.
func (e *enduranceRun) Tick() tickResult {
	step := e.eng.Tick()
	if e.clock.Tick() {
		return tickExpired
	}
	if step == endurance.StepFinished {
		return tickFinished
	}
	return tickRunning
}

func (e *enduranceRun) Fill(sub *model.Submission) {
	grid := e.eng.Grid()
	answers := e.eng.Answers()
	rep := endurance.Score(grid, answers)

	sub.Grid = [][]int(grid)
	sub.GridAnswers = answers
	sub.Report = &rep
}

func (e *enduranceRun) view(withDigits bool) *GridView {
	col, slot := e.eng.Position()
	v := &GridView{
		Column:          col,
		Slot:            slot,
		ColumnRemaining: e.eng.ColumnTimeRemaining(),
		Columns:         e.eng.Config().Columns,
	}
	if withDigits {
		v.Digits = e.eng.Grid().Raw()
	}
	return v
}
