package model

// SessionState enumerates the lifecycle of an assessment session.
type SessionState string

const (
	SessionUnvalidated  SessionState = "UNVALIDATED"
	SessionValidated    SessionState = "VALIDATED"
	SessionRunning      SessionState = "RUNNING"
	SessionAllCompleted SessionState = "ALL_COMPLETED"
	SessionFinalized    SessionState = "FINALIZED"
	SessionAccessDenied SessionState = "ACCESS_DENIED"
)

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	return s == SessionFinalized || s == SessionAccessDenied
}

// CompletionCause records why a test run ended.
type CompletionCause string

const (
	CauseSubmitted    CompletionCause = "SUBMITTED"
	CauseGridFinished CompletionCause = "GRID_FINISHED"
	CauseTimeExpired  CompletionCause = "TIME_EXPIRED"
	CauseViolations   CompletionCause = "VIOLATION_LIMIT"
	CauseDisconnected CompletionCause = "DISCONNECTED"
)

// Forced reports whether the run ended without the candidate's choice.
func (c CompletionCause) Forced() bool {
	return c == CauseTimeExpired || c == CauseViolations || c == CauseDisconnected
}

// RunOutcome is the per-test terminal state.
type RunOutcome string

const (
	OutcomeCompleted         RunOutcome = "COMPLETED"
	OutcomeForciblyCompleted RunOutcome = "FORCIBLY_COMPLETED"
)

// OutcomeFor maps a completion cause to the run outcome.
func OutcomeFor(c CompletionCause) RunOutcome {
	if c.Forced() {
		return OutcomeForciblyCompleted
	}
	return OutcomeCompleted
}

// AssessmentSession is one candidate's attempt at the full test catalog.
type AssessmentSession struct {
	Token          string       `json:"-"`
	CandidateName  string       `json:"candidate_name"`
	CompletedTests []TestKind   `json:"completed_tests"`
	ActiveTest     TestKind     `json:"active_test,omitempty"`
	ViolationCount int          `json:"violation_count"`
	State          SessionState `json:"state"`
}

// NewAssessmentSession returns an unvalidated session for token.
func NewAssessmentSession(token string) *AssessmentSession {
	return &AssessmentSession{
		Token:          token,
		CompletedTests: []TestKind{},
		State:          SessionUnvalidated,
	}
}

// HasCompleted reports whether kind is in the completed set.
func (s *AssessmentSession) HasCompleted(kind TestKind) bool {
	for _, k := range s.CompletedTests {
		if k == kind {
			return true
		}
	}
	return false
}

// MarkCompleted adds kind to the completed set. The set never shrinks.
func (s *AssessmentSession) MarkCompleted(kind TestKind) {
	if !s.HasCompleted(kind) {
		s.CompletedTests = append(s.CompletedTests, kind)
	}
}

// IsStarted reports whether a test is currently running.
func (s *AssessmentSession) IsStarted() bool {
	return s.ActiveTest != ""
}

// IsCompleted reports whether every catalog test has been completed.
func (s *AssessmentSession) IsCompleted() bool {
	for _, k := range TestCatalog {
		if !s.HasCompleted(k) {
			return false
		}
	}
	return true
}

// Remaining returns the catalog tests not yet completed, in catalog order.
func (s *AssessmentSession) Remaining() []TestKind {
	out := make([]TestKind, 0, len(TestCatalog))
	for _, k := range TestCatalog {
		if !s.HasCompleted(k) {
			out = append(out, k)
		}
	}
	return out
}
