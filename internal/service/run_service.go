package service

import (
	"context"

	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/response"
)

type runLister interface {
	ListPaginated(ctx context.Context, kind, tokenHash string, limit, offset int) ([]model.RunAudit, int, error)
}

// RunService exposes the persisted run audit trail to proctors.
type RunService struct {
	runRepo runLister
}

// NewRunService creates a new RunService.
func NewRunService(runRepo runLister) *RunService {
	return &RunService{runRepo: runRepo}
}

// ListRuns retrieves audited runs with pagination and optional filters.
func (s *RunService) ListRuns(ctx context.Context, q model.ListRunsQuery) ([]model.RunAudit, *response.Pagination, error) {
	page, perPage := q.Page, q.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	runs, total, err := s.runRepo.ListPaginated(ctx, q.Kind, q.TokenHash, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if runs == nil {
		runs = []model.RunAudit{}
	}

	return runs, response.NewPagination(page, perPage, total), nil
}
