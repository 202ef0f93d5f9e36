package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/psikotes-proctor/internal/model"
	"github.com/stemsi/psikotes-proctor/internal/response"
	"github.com/stemsi/psikotes-proctor/internal/service"
	"github.com/stemsi/psikotes-proctor/internal/validator"
)

// RunHandler exposes the audit trail of finished test runs.
type RunHandler struct {
	runService *service.RunService
	log        zerolog.Logger
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runService *service.RunService, log zerolog.Logger) *RunHandler {
	return &RunHandler{
		runService: runService,
		log:        log.With().Str("component", "run_handler").Logger(),
	}
}

// ListRuns godoc
// GET /api/v1/proctor/runs?kind=&token_hash=&page=&per_page=
func (h *RunHandler) ListRuns(c *gin.Context) {
	var q model.ListRunsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	runs, pagination, err := h.runService.ListRuns(c.Request.Context(), q)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, runs, pagination)
}
