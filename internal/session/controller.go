// Package session implements the assessment session state machine: token
// validation, test selection, timing, violation enforcement, submission and
// finalization. All mutation happens on the goroutine that calls the
// controller; it is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/psikotes-proctor/internal/endurance"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/proctor"
	"github.com/stemsi/psikotes-proctor/internal/validator"
)

var (
	ErrAccessDenied       = errors.New("access denied")
	ErrAlreadyValidated   = errors.New("session already validated")
	ErrNotValidated       = errors.New("session not validated")
	ErrSessionClosed      = errors.New("session is closed")
	ErrUnknownTest        = errors.New("unknown test")
	ErrTestCompleted      = errors.New("test already completed")
	ErrTestActive         = errors.New("another test is running")
	ErrNoActiveTest       = errors.New("no test is running")
	ErrWrongTest          = errors.New("input does not apply to the running test")
	ErrConfigUnavailable  = errors.New("test configuration unavailable")
	ErrSubmissionsPending = errors.New("submissions still pending")
)

// DefaultQuestionSeconds is the fixed budget of each question-set test.
const DefaultQuestionSeconds = 180

// DefaultTickPeriod is the length of one budgeted second.
const DefaultTickPeriod = time.Second

// Settings tunes a controller. Zero values fall back to product defaults.
type Settings struct {
	QuestionSeconds int
	MaxViolations   int
	GridSource      endurance.Source
	TickPeriod      time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.QuestionSeconds <= 0 {
		s.QuestionSeconds = DefaultQuestionSeconds
	}
	if s.MaxViolations <= 0 {
		s.MaxViolations = model.MaxViolations
	}
	if s.TickPeriod <= 0 {
		s.TickPeriod = DefaultTickPeriod
	}
	return s
}

// Controller owns one AssessmentSession for its whole lifetime.
type Controller struct {
	backend  Backend
	notify   Notifier
	monitor  *proctor.Monitor
	log      zerolog.Logger
	settings Settings

	session   *model.AssessmentSession
	configs   map[model.TestKind]*model.TestConfig
	configErr map[model.TestKind]error
	run       runtime
	epoch     uint64
	pending   map[model.TestKind]*model.Submission
}

// NewController creates an unvalidated controller for token.
func NewController(token string, backend Backend, monitor *proctor.Monitor, notify Notifier, settings Settings, log zerolog.Logger) *Controller {
	if notify == nil {
		notify = Notifiers(nil)
	}
	return &Controller{
		backend:   backend,
		notify:    notify,
		monitor:   monitor,
		log:       log.With().Str("component", "session_controller").Str("token_hash", model.HashToken(token)[:12]).Logger(),
		settings:  settings.withDefaults(),
		session:   model.NewAssessmentSession(token),
		configs:   make(map[model.TestKind]*model.TestConfig),
		configErr: make(map[model.TestKind]error),
		pending:   make(map[model.TestKind]*model.Submission),
	}
}

// Validate checks the token with the backend and loads test configuration.
// Any failure is terminal: the session moves to AccessDenied and is never retried.
func (c *Controller) Validate(ctx context.Context) error {
	if c.session.State != model.SessionUnvalidated {
		return ErrAlreadyValidated
	}

	info, err := c.backend.ValidateSession(ctx, c.session.Token)
	if err != nil {
		c.session.State = model.SessionAccessDenied
		c.log.Warn().Err(err).Msg("Session token rejected")
		c.notify.Notify(Notice{Type: NoticeAccessDenied, Err: ErrAccessDenied})
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}

	c.session.CandidateName = info.CandidateName
	for _, k := range info.CompletedTests {
		if k.Valid() {
			c.session.MarkCompleted(k)
		}
	}
	c.session.State = model.SessionValidated

	c.loadConfigs(ctx)

	c.log.Info().
		Int("completed", len(c.session.CompletedTests)).
		Int("blocked", len(c.configErr)).
		Msg("Session validated")

	if c.session.IsCompleted() {
		c.session.State = model.SessionAllCompleted
		c.maybeFinalize(ctx)
	}
	c.notifyState()
	return nil
}

// loadConfigs fetches configuration for every test not yet completed. A
// failure blocks only the affected test.
func (c *Controller) loadConfigs(ctx context.Context) {
	for _, kind := range c.session.Remaining() {
		cfg, err := c.backend.TestConfig(ctx, kind)
		if err == nil {
			err = checkConfig(kind, cfg)
		}
		if err != nil {
			c.configErr[kind] = err
			c.log.Error().Err(err).Str("kind", string(kind)).Msg("Test configuration unavailable")
			continue
		}
		c.configs[kind] = cfg
	}
}

func checkConfig(kind model.TestKind, cfg *model.TestConfig) error {
	if cfg == nil {
		return errors.New("empty configuration")
	}
	if kind == model.TestEndurance {
		if cfg.Grid == nil {
			return errors.New("missing grid configuration")
		}
		if fields := validator.Struct(cfg.Grid); fields != nil {
			return fmt.Errorf("invalid grid configuration: %v", fields)
		}
		return nil
	}
	if len(cfg.Questions) == 0 {
		return errors.New("question set is empty")
	}
	return nil
}

// SelectTest starts kind. Completed tests can never be retaken and only one
// test runs at a time.
func (c *Controller) SelectTest(kind model.TestKind) error {
	switch c.session.State {
	case model.SessionUnvalidated:
		return ErrNotValidated
	case model.SessionAccessDenied, model.SessionFinalized:
		return ErrSessionClosed
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTest, kind)
	}
	if c.session.HasCompleted(kind) {
		return fmt.Errorf("%w: %s", ErrTestCompleted, kind)
	}
	if c.run != nil {
		return fmt.Errorf("%w: %s", ErrTestActive, c.run.Kind())
	}
	cfg, ok := c.configs[kind]
	if !ok {
		return fmt.Errorf("%w: %s: %v", ErrConfigUnavailable, kind, c.configErr[kind])
	}

	var (
		run runtime
		err error
	)
	if kind == model.TestEndurance {
		run, err = newEnduranceRun(*cfg.Grid, c.settings.GridSource)
	} else {
		run, err = newQuestionRun(kind, cfg.Questions, c.settings.QuestionSeconds)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigUnavailable, kind, err)
	}

	// Fullscreen is requested before the countdown is visible to the candidate.
	c.notify.Notify(Notice{Type: NoticeFullscreenRequest, Kind: kind})

	c.run = run
	c.session.ActiveTest = kind
	c.session.ViolationCount = 0
	c.session.State = model.SessionRunning
	c.epoch = c.monitor.Arm()

	n := Notice{Type: NoticeStarted, Kind: kind, Remaining: run.Remaining()}
	if er, ok := run.(*enduranceRun); ok {
		n.Grid = er.view(true)
	} else {
		n.Questions = cfg.Questions
	}
	c.notify.Notify(n)

	c.log.Info().Str("kind", string(kind)).Int("seconds", run.Remaining()).Msg("Test started")
	return nil
}

// Answer records an option for a question-set test.
func (c *Controller) Answer(index, option int) error {
	qr, err := c.activeQuestionRun()
	if err != nil {
		return err
	}
	return qr.rt.Answer(index, option)
}

// Key enters one digit into the endurance grid.
func (c *Controller) Key(ctx context.Context, digit int) error {
	er, err := c.activeEnduranceRun()
	if err != nil {
		return err
	}
	step, err := er.eng.Key(digit)
	if err != nil {
		return err
	}
	c.afterGridStep(ctx, er, step)
	return nil
}

// Skip abandons the active endurance column.
func (c *Controller) Skip(ctx context.Context) error {
	er, err := c.activeEnduranceRun()
	if err != nil {
		return err
	}
	step, err := er.eng.Skip()
	if err != nil {
		return err
	}
	c.afterGridStep(ctx, er, step)
	return nil
}

func (c *Controller) afterGridStep(ctx context.Context, er *enduranceRun, step endurance.Step) {
	if step == endurance.StepFinished {
		c.complete(ctx, model.CauseGridFinished)
		return
	}
	c.notify.Notify(Notice{Type: NoticeGrid, Kind: model.TestEndurance, Remaining: er.Remaining(), Grid: er.view(false)})
}

// SubmitNow ends the running test by candidate choice. Same snapshot
// semantics as expiry.
func (c *Controller) SubmitNow(ctx context.Context) error {
	if c.run == nil {
		return ErrNoActiveTest
	}
	c.complete(ctx, model.CauseSubmitted)
	return nil
}

// Tick advances the running test by one second.
func (c *Controller) Tick(ctx context.Context) {
	c.Advance(ctx, 1)
}

// Advance charges seconds to the running test, one second at a time, and
// stops at the first second that ends it. Observers get a single tick
// notice for the whole step.
func (c *Controller) Advance(ctx context.Context, seconds int) {
	if c.run == nil || seconds < 1 {
		return
	}
	for i := 0; i < seconds; i++ {
		switch c.run.Tick() {
		case tickExpired:
			c.onTimeExpired(ctx)
			return
		case tickFinished:
			c.complete(ctx, model.CauseGridFinished)
			return
		}
	}
	n := Notice{Type: NoticeTick, Kind: c.run.Kind(), Remaining: c.run.Remaining()}
	if er, ok := c.run.(*enduranceRun); ok {
		n.Grid = er.view(false)
	}
	c.notify.Notify(n)
}

// onTimeExpired submits whatever answers exist; partial completion is final.
func (c *Controller) onTimeExpired(ctx context.Context) {
	c.log.Info().Str("kind", string(c.run.Kind())).Msg("Test time expired")
	c.complete(ctx, model.CauseTimeExpired)
}

// HandleViolation counts ev against the running test. Events from an
// earlier arming, or arriving with no test running, are ignored. It reports
// whether the event was counted.
func (c *Controller) HandleViolation(ctx context.Context, ev proctor.Event) bool {
	if c.run == nil || ev.Epoch != c.epoch {
		return false
	}

	c.session.ViolationCount++
	count := c.session.ViolationCount
	kind := c.run.Kind()

	c.log.Warn().
		Str("kind", string(kind)).
		Str("reason", string(ev.Reason)).
		Int("count", count).
		Msg("Proctoring violation")

	if count >= c.settings.MaxViolations {
		c.complete(ctx, model.CauseViolations)
		c.notify.Notify(Notice{
			Type:           NoticeTerminated,
			Kind:           kind,
			Reason:         ev.Reason,
			ViolationCount: count,
			Message:        "Tes otomatis disubmit karena terlalu banyak pelanggaran!",
		})
		return true
	}

	c.notify.Notify(Notice{
		Type:           NoticeWarning,
		Kind:           kind,
		Reason:         ev.Reason,
		ViolationCount: count,
		Message:        fmt.Sprintf("Peringatan %d/%d: %s", count, c.settings.MaxViolations, ev.Reason.Message()),
	})
	c.notify.Notify(Notice{Type: NoticeFullscreenRequest, Kind: kind})
	return true
}

// FullscreenUnavailable degrades to a warning banner; it is not a violation.
func (c *Controller) FullscreenUnavailable() {
	if c.run == nil {
		return
	}
	c.notify.Notify(Notice{
		Type:    NoticeFullscreenUnsupported,
		Kind:    c.run.Kind(),
		Message: "Browser tidak mendukung mode fullscreen.",
	})
}

// Abandon force-completes the running test when the candidate's connection
// is gone. Progress is forfeited, never resumed.
func (c *Controller) Abandon(ctx context.Context) {
	if c.run == nil {
		return
	}
	c.log.Warn().Str("kind", string(c.run.Kind())).Msg("Connection lost during test")
	c.complete(ctx, model.CauseDisconnected)
}

// complete ends the running test exactly once: disarm, snapshot, record,
// submit, and finalize when the catalog is done.
func (c *Controller) complete(ctx context.Context, cause model.CompletionCause) {
	run := c.run
	if run == nil {
		return
	}
	c.monitor.Disarm()
	run.Stop()
	c.run = nil

	kind := run.Kind()
	sub := &model.Submission{
		Token:          c.session.Token,
		Kind:           kind,
		Cause:          cause,
		ViolationCount: c.session.ViolationCount,
		ElapsedSeconds: run.Elapsed(),
	}
	run.Fill(sub)

	c.session.ActiveTest = ""
	c.session.MarkCompleted(kind)
	if c.session.IsCompleted() {
		c.session.State = model.SessionAllCompleted
	} else {
		c.session.State = model.SessionValidated
	}

	c.log.Info().
		Str("kind", string(kind)).
		Str("cause", string(cause)).
		Int("answered", sub.AnsweredCount()).
		Int("violations", sub.ViolationCount).
		Msg("Test completed")

	c.notify.Notify(Notice{
		Type:           NoticeCompleted,
		Kind:           kind,
		Cause:          cause,
		Outcome:        model.OutcomeFor(cause),
		ViolationCount: sub.ViolationCount,
		Submission:     sub,
	})

	c.submit(ctx, sub)
	c.maybeFinalize(ctx)
	c.notifyState()
}

func (c *Controller) submit(ctx context.Context, sub *model.Submission) {
	if err := c.backend.Submit(ctx, sub); err != nil {
		c.pending[sub.Kind] = sub
		c.log.Error().Err(err).Str("kind", string(sub.Kind)).Msg("Submission failed, kept for retry")
		c.notify.Notify(Notice{
			Type:    NoticeSubmitFailed,
			Kind:    sub.Kind,
			Message: "Gagal menyimpan hasil. Coba lagi.",
			Err:     err,
		})
		return
	}
	delete(c.pending, sub.Kind)
	c.notify.Notify(Notice{Type: NoticeSubmitted, Kind: sub.Kind})
}

// RetrySubmissions re-sends every failed submission unchanged, then
// finalizes if possible. Retries wait until no test is running.
func (c *Controller) RetrySubmissions(ctx context.Context) error {
	if c.session.State.Terminal() {
		return ErrSessionClosed
	}
	if c.run != nil {
		return fmt.Errorf("%w: %s", ErrTestActive, c.run.Kind())
	}
	for _, kind := range model.TestCatalog {
		if sub, ok := c.pending[kind]; ok {
			c.submit(ctx, sub)
		}
	}
	c.maybeFinalize(ctx)
	c.notifyState()
	if len(c.pending) > 0 {
		return ErrSubmissionsPending
	}
	return nil
}

// maybeFinalize calls the backend once every test is completed and every
// submission has been accepted.
func (c *Controller) maybeFinalize(ctx context.Context) {
	if c.session.State != model.SessionAllCompleted || len(c.pending) > 0 {
		return
	}
	if err := c.backend.Finalize(ctx, c.session.Token); err != nil {
		c.log.Error().Err(err).Msg("Finalize failed")
		c.notify.Notify(Notice{Type: NoticeFinalizeFailed, Message: "Gagal mengunci hasil tes. Coba lagi.", Err: err})
		return
	}
	c.session.State = model.SessionFinalized
	c.monitor.Disarm()
	c.log.Info().Msg("Session finalized")
	c.notify.Notify(Notice{Type: NoticeFinalized})
}

func (c *Controller) activeQuestionRun() (*questionRun, error) {
	if c.run == nil {
		return nil, ErrNoActiveTest
	}
	qr, ok := c.run.(*questionRun)
	if !ok {
		return nil, ErrWrongTest
	}
	return qr, nil
}

func (c *Controller) activeEnduranceRun() (*enduranceRun, error) {
	if c.run == nil {
		return nil, ErrNoActiveTest
	}
	er, ok := c.run.(*enduranceRun)
	if !ok {
		return nil, ErrWrongTest
	}
	return er, nil
}

func (c *Controller) notifyState() {
	v := c.View()
	c.notify.Notify(Notice{Type: NoticeState, View: &v})
}

// State returns the session state.
func (c *Controller) State() model.SessionState {
	return c.session.State
}

// View snapshots the session for presentation.
func (c *Controller) View() View {
	v := View{
		State:          c.session.State,
		CompletedTests: append([]model.TestKind{}, c.session.CompletedTests...),
		ActiveTest:     c.session.ActiveTest,
		ViolationCount: c.session.ViolationCount,
		MaxViolations:  c.settings.MaxViolations,
		Available:      []model.TestKind{},
	}
	if c.session.State == model.SessionAccessDenied {
		return v
	}
	v.CandidateName = c.session.CandidateName

	for _, k := range model.TestCatalog {
		if c.session.HasCompleted(k) {
			if _, ok := c.pending[k]; ok {
				v.Pending = append(v.Pending, k)
			}
			continue
		}
		if _, ok := c.configs[k]; !ok {
			v.Blocked = append(v.Blocked, k)
			continue
		}
		if c.run == nil && !c.session.State.Terminal() && c.session.State != model.SessionUnvalidated {
			v.Available = append(v.Available, k)
		}
	}
	return v
}
