package websocket

import (
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/proctor"
	"github.com/stemsi/psikotes-proctor/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect                Action = "select"
	ActionAnswer                Action = "answer"
	ActionKey                   Action = "key"
	ActionSkip                  Action = "skip"
	ActionSubmit                Action = "submit"
	ActionRetry                 Action = "retry"
	ActionSignal                Action = "signal"
	ActionFullscreenUnsupported Action = "fullscreen_unsupported"
	ActionPing                  Action = "ping"
)

// Request is every client message. Which fields are required depends on Action.
type Request struct {
	Action Action         `json:"action" validate:"required,oneof=select answer key skip submit retry signal fullscreen_unsupported ping"`
	Test   model.TestKind `json:"test,omitempty" validate:"required_if=Action select,omitempty,oneof=cfit kraepelin papi"`
	Index  *int           `json:"index,omitempty" validate:"required_if=Action answer,omitempty,min=0"`
	Option *int           `json:"option,omitempty" validate:"required_if=Action answer,omitempty,min=0"`
	Digit  *int           `json:"digit,omitempty" validate:"required_if=Action key,omitempty,min=0,max=9"`
	Signal *SignalPayload `json:"signal,omitempty" validate:"required_if=Action signal,omitempty"`
}

// SignalPayload is one browser proctoring observation.
type SignalPayload struct {
	Kind   proctor.SignalKind `json:"kind" validate:"required,oneof=visibility blur fullscreen key contextmenu"`
	Hidden bool               `json:"hidden"`
	Active bool               `json:"active"`
	Key    *proctor.KeyCombo  `json:"key,omitempty" validate:"required_if=Kind key,omitempty"`
}

// ToSignal converts the payload to a monitor signal.
func (p *SignalPayload) ToSignal() proctor.Signal {
	sig := proctor.Signal{Kind: p.Kind, Hidden: p.Hidden, Active: p.Active}
	if p.Key != nil {
		sig.Key = *p.Key
	}
	return sig
}

// Command converts a session action into a controller command. Signal and
// ping are handled by the connection itself and yield false.
func (r *Request) Command() (session.Command, bool) {
	switch r.Action {
	case ActionSelect:
		return session.SelectTest{Kind: r.Test}, true
	case ActionAnswer:
		return session.AnswerQuestion{Index: *r.Index, Option: *r.Option}, true
	case ActionKey:
		return session.KeyDigit{Digit: *r.Digit}, true
	case ActionSkip:
		return session.SkipColumn{}, true
	case ActionSubmit:
		return session.SubmitTest{}, true
	case ActionRetry:
		return session.RetrySubmit{}, true
	case ActionFullscreenUnsupported:
		return session.ReportFullscreenUnsupported{}, true
	}
	return nil, false
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState        Event = "state"
	EventAccessDenied Event = "access_denied"
	EventStarted      Event = "started"
	EventTick         Event = "tick"
	EventGrid         Event = "grid"
	EventFullscreen   Event = "fullscreen"
	EventWarning      Event = "warning"
	EventTerminated   Event = "terminated"
	EventCompleted    Event = "completed"
	EventSubmitted    Event = "submitted"
	EventSubmitFailed Event = "submit_failed"
	EventFinalized    Event = "finalized"
	EventFinalizeFail Event = "finalize_failed"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

type StateResponse struct {
	Event   Event         `json:"event"`
	Session *session.View `json:"session"`
}

type StartedResponse struct {
	Event     Event             `json:"event"`
	Test      model.TestKind    `json:"test"`
	Remaining int               `json:"remaining"`
	Questions []model.Question  `json:"questions,omitempty"`
	Grid      *session.GridView `json:"grid,omitempty"`
}

// TickResponse carries the countdown and, for the grid test, the cursor.
type TickResponse struct {
	Event     Event             `json:"event"`
	Test      model.TestKind    `json:"test"`
	Remaining int               `json:"remaining"`
	Grid      *session.GridView `json:"grid,omitempty"`
}

type FullscreenResponse struct {
	Event     Event          `json:"event"`
	Test      model.TestKind `json:"test"`
	Supported bool           `json:"supported"`
	Message   string         `json:"message,omitempty"`
}

type ViolationResponse struct {
	Event          Event                 `json:"event"`
	Test           model.TestKind        `json:"test"`
	Reason         model.ViolationReason `json:"reason"`
	ViolationCount int                   `json:"violation_count"`
	Message        string                `json:"message"`
}

type CompletedResponse struct {
	Event    Event                 `json:"event"`
	Test     model.TestKind        `json:"test"`
	Cause    model.CompletionCause `json:"cause"`
	Outcome  model.RunOutcome      `json:"outcome"`
	Answered int                   `json:"answered"`
}

type StatusResponse struct {
	Event   Event          `json:"event"`
	Test    model.TestKind `json:"test,omitempty"`
	Message string         `json:"message,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// FromNotice maps a controller notice to its wire message. Notices without a
// candidate-facing representation yield false. Errors are mapped by the caller.
func FromNotice(n session.Notice) (interface{}, bool) {
	switch n.Type {
	case session.NoticeState:
		return StateResponse{Event: EventState, Session: n.View}, true
	case session.NoticeAccessDenied:
		return StatusResponse{Event: EventAccessDenied, Message: "Token tidak valid atau sesi telah berakhir."}, true
	case session.NoticeStarted:
		return StartedResponse{Event: EventStarted, Test: n.Kind, Remaining: n.Remaining, Questions: n.Questions, Grid: n.Grid}, true
	case session.NoticeTick:
		return TickResponse{Event: EventTick, Test: n.Kind, Remaining: n.Remaining, Grid: n.Grid}, true
	case session.NoticeGrid:
		return TickResponse{Event: EventGrid, Test: n.Kind, Remaining: n.Remaining, Grid: n.Grid}, true
	case session.NoticeFullscreenRequest:
		return FullscreenResponse{Event: EventFullscreen, Test: n.Kind, Supported: true}, true
	case session.NoticeFullscreenUnsupported:
		return FullscreenResponse{Event: EventFullscreen, Test: n.Kind, Supported: false, Message: n.Message}, true
	case session.NoticeWarning:
		return ViolationResponse{Event: EventWarning, Test: n.Kind, Reason: n.Reason, ViolationCount: n.ViolationCount, Message: n.Message}, true
	case session.NoticeTerminated:
		return ViolationResponse{Event: EventTerminated, Test: n.Kind, Reason: n.Reason, ViolationCount: n.ViolationCount, Message: n.Message}, true
	case session.NoticeCompleted:
		resp := CompletedResponse{Event: EventCompleted, Test: n.Kind, Cause: n.Cause, Outcome: n.Outcome}
		if n.Submission != nil {
			resp.Answered = n.Submission.AnsweredCount()
		}
		return resp, true
	case session.NoticeSubmitted:
		return StatusResponse{Event: EventSubmitted, Test: n.Kind}, true
	case session.NoticeSubmitFailed:
		return StatusResponse{Event: EventSubmitFailed, Test: n.Kind, Message: n.Message}, true
	case session.NoticeFinalized:
		return StatusResponse{Event: EventFinalized, Message: "Seluruh rangkaian tes telah diselesaikan."}, true
	case session.NoticeFinalizeFailed:
		return StatusResponse{Event: EventFinalizeFail, Message: n.Message}, true
	}
	return nil, false
}
