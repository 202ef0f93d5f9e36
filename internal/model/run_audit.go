package model

import (
	"time"

	"github.com/google/uuid"
)

// RunAudit is the persisted aggregate record of one finished test run.
// Individual violation events are never stored.
type RunAudit struct {
	ID             uuid.UUID       `json:"id"`
	TokenHash      string          `json:"token_hash"`
	Kind           TestKind        `json:"kind"`
	Cause          CompletionCause `json:"cause"`
	Outcome        RunOutcome      `json:"outcome"`
	ViolationCount int             `json:"violation_count"`
	ElapsedSeconds int             `json:"elapsed_seconds"`
	AnsweredCount  int             `json:"answered_count"`
	Panker         *float64        `json:"panker,omitempty"`
	Janker         *float64        `json:"janker,omitempty"`
	TotalErrors    *int            `json:"total_errors,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

// ListRunsQuery filters the audit listing.
type ListRunsQuery struct {
	Kind      string `form:"kind" validate:"omitempty,oneof=cfit kraepelin papi"`
	TokenHash string `form:"token_hash" validate:"omitempty,hexadecimal,len=64"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PerPage   int    `form:"per_page" validate:"omitempty,min=1,max=100"`
}
