package session

import (
	"context"

	"github.com/stemsi/psikotes-proctor/internal/model"
)

// SessionInfo is what the backend returns for a valid token.
type SessionInfo struct {
	CandidateName  string           `json:"candidate_name"`
	CompletedTests []model.TestKind `json:"completed_tests"`
}

// Backend is the external HR backend. It owns token validation, durable
// storage of submissions, and the composite scoring of the question sets.
type Backend interface {
	ValidateSession(ctx context.Context, token string) (*SessionInfo, error)
	TestConfig(ctx context.Context, kind model.TestKind) (*model.TestConfig, error)
	// Submit must be idempotent per (token, kind): a retry re-sends the same payload.
	Submit(ctx context.Context, sub *model.Submission) error
	Finalize(ctx context.Context, token string) error
}
