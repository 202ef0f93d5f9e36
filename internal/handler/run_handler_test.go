package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/psikotes-proctor/internal/endurance"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/response"
	"github.com/stemsi/psikotes-proctor/internal/service"
	"github.com/stemsi/psikotes-proctor/internal/session"
	"github.com/stemsi/psikotes-proctor/internal/timed"
)

type stubRuns struct {
	kind, tokenHash string
	limit, offset   int
	err             error
}

func (s *stubRuns) ListPaginated(_ context.Context, kind, tokenHash string, limit, offset int) ([]model.RunAudit, int, error) {
	s.kind, s.tokenHash, s.limit, s.offset = kind, tokenHash, limit, offset
	if s.err != nil {
		return nil, 0, s.err
	}
	return []model.RunAudit{{ID: uuid.New(), Kind: model.TestPreference, Cause: model.CauseSubmitted}}, 41, nil
}

func serveRuns(t *testing.T, runs *stubRuns, query string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewRunHandler(service.NewRunService(runs), zerolog.Nop())
	r := gin.New()
	r.GET("/api/v1/proctor/runs", h.ListRuns)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/proctor/runs"+query, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestListRunsPaginates(t *testing.T) {
	runs := &stubRuns{}
	w := serveRuns(t, runs, "?kind=papi&page=3&per_page=20")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "papi", runs.kind)
	assert.Equal(t, 20, runs.limit)
	assert.Equal(t, 40, runs.offset)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	assert.Equal(t, 41, body.Pagination.TotalItems)
}

func TestListRunsRejectsInvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"unknown kind", "?kind=mbti", "kind"},
		{"per page too large", "?per_page=500", "per_page"},
		{"malformed token hash", "?token_hash=abc", "token_hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveRuns(t, &stubRuns{}, tt.query)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var body response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Equal(t, response.ErrValidation, body.Error.Code)
			assert.Contains(t, body.Error.Fields, tt.field)
		})
	}
}

func TestListRunsStoreFailure(t *testing.T) {
	w := serveRuns(t, &stubRuns{err: errors.New("connection reset")}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want response.ErrCode
	}{
		{session.ErrTestCompleted, response.ErrTestCompleted},
		{fmt.Errorf("select: %w", session.ErrTestActive), response.ErrTestActive},
		{session.ErrConfigUnavailable, response.ErrConfigUnavailable},
		{session.ErrSubmissionsPending, response.ErrSubmissionsPending},
		{timed.ErrOptionIndex, response.ErrInvalidAnswer},
		{endurance.ErrInvalidDigit, response.ErrInvalidAnswer},
		{errors.New("boom"), response.ErrInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCode(tt.err), tt.err.Error())
	}
}
