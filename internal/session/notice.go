package session

import (
	"github.com/stemsi/psikotes-proctor/internal/model"
)

// NoticeType enumerates what the controller tells its observers.
type NoticeType string

const (
	NoticeState                 NoticeType = "state"
	NoticeAccessDenied          NoticeType = "access_denied"
	NoticeStarted               NoticeType = "started"
	NoticeTick                  NoticeType = "tick"
	NoticeGrid                  NoticeType = "grid"
	NoticeFullscreenRequest     NoticeType = "fullscreen"
	NoticeFullscreenUnsupported NoticeType = "fullscreen_unsupported"
	NoticeWarning               NoticeType = "warning"
	NoticeTerminated            NoticeType = "terminated"
	NoticeCompleted             NoticeType = "completed"
	NoticeSubmitted             NoticeType = "submitted"
	NoticeSubmitFailed          NoticeType = "submit_failed"
	NoticeFinalized             NoticeType = "finalized"
	NoticeFinalizeFailed        NoticeType = "finalize_failed"
	NoticeError                 NoticeType = "error"
)

// GridView is the candidate-visible endurance cursor.
type GridView struct {
	Column          int     `json:"column"`
	Slot            int     `json:"slot"`
	ColumnRemaining int     `json:"column_remaining"`
	Columns         int     `json:"columns"`
	Digits          [][]int `json:"digits,omitempty"`
}

// View is a read-only snapshot of the session.
type View struct {
	State          model.SessionState `json:"state"`
	CandidateName  string             `json:"candidate_name,omitempty"`
	CompletedTests []model.TestKind   `json:"completed_tests"`
	ActiveTest     model.TestKind     `json:"active_test,omitempty"`
	ViolationCount int                `json:"violation_count"`
	MaxViolations  int                `json:"max_violations"`
	// Available lists the tests that can be started now.
	Available []model.TestKind `json:"available"`
	// Blocked lists tests whose configuration failed to load.
	Blocked []model.TestKind `json:"blocked,omitempty"`
	Pending []model.TestKind `json:"pending_submissions,omitempty"`
}

// Notice is one observable controller event.
type Notice struct {
	Type           NoticeType
	Kind           model.TestKind
	Message        string
	Reason         model.ViolationReason
	ViolationCount int
	Remaining      int
	Cause          model.CompletionCause
	Outcome        model.RunOutcome
	Questions      []model.Question
	Grid           *GridView
	Submission     *model.Submission
	View           *View
	Err            error
}

// Notifier receives controller notices. Implementations must not block the
// session loop for long and must not call back into the controller.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Notifiers fans a notice out in registration order.
type Notifiers []Notifier

func (ns Notifiers) Notify(n Notice) {
	for _, x := range ns {
		if x != nil {
			x.Notify(n)
		}
	}
}
