package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harborview/timetable-api/internal/dto"
	"github.com/harborview/timetable-api/internal/service"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
	"github.com/harborview/timetable-api/pkg/response"
)

type optimizerRunner interface {
	StartRun(ctx context.Context, req dto.StartRunRequest, actorID string) (*dto.RunResponse, error)
	GetRunReport(ctx context.Context, runID string) (*dto.RunReportResponse, error)
	ListRuns(ctx context.Context, termID string, limit int) ([]dto.RunResponse, error)
	ListConfigs(ctx context.Context) ([]dto.OptimizationConfigResponse, error)
	CreateConfig(ctx context.Context, req dto.OptimizationConfigRequest) (*dto.OptimizationConfigResponse, error)
	UpdateConfig(ctx context.Context, id string, req dto.OptimizationConfigRequest) (*dto.OptimizationConfigResponse, error)
	DeleteConfig(ctx context.Context, id string) error
}

// OptimizerHandler exposes solver run and parameter set endpoints.
type OptimizerHandler struct {
	service optimizerRunner
}

// NewOptimizerHandler constructs the handler.
func NewOptimizerHandler(svc *service.OptimizerService) *OptimizerHandler {
	return &OptimizerHandler{service: svc}
}

// StartRun godoc
// @Summary Queue a solver run
// @Description Records a run and dispatches it to the background queue
// @Tags Optimizer
// @Accept json
// @Produce json
// @Param payload body dto.StartRunRequest true "Run payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /optimizer/runs [post]
func (h *OptimizerHandler) StartRun(c *gin.Context) {
	var req dto.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	run, err := h.service.StartRun(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// GetRun godoc
// @Summary Get a run with its violation report
// @Tags Optimizer
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /optimizer/runs/{id} [get]
func (h *OptimizerHandler) GetRun(c *gin.Context) {
	report, err := h.service.GetRunReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ListRuns godoc
// @Summary List recent runs for a term
// @Tags Optimizer
// @Produce json
// @Param termId query string true "Term ID"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope
// @Router /optimizer/runs [get]
func (h *OptimizerHandler) ListRuns(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	runs, err := h.service.ListRuns(c.Request.Context(), termID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, runs)
}

// ListConfigs godoc
// @Summary List stored parameter sets
// @Tags Optimizer
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /optimizer/configs [get]
func (h *OptimizerHandler) ListConfigs(c *gin.Context) {
	configs, err := h.service.ListConfigs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, configs)
}

// CreateConfig godoc
// @Summary Create a parameter set
// @Tags Optimizer
// @Accept json
// @Produce json
// @Param payload body dto.OptimizationConfigRequest true "Config payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /optimizer/configs [post]
func (h *OptimizerHandler) CreateConfig(c *gin.Context) {
	var req dto.OptimizationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid config payload"))
		return
	}
	cfg, err := h.service.CreateConfig(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

// UpdateConfig godoc
// @Summary Update a parameter set
// @Tags Optimizer
// @Accept json
// @Produce json
// @Param id path string true "Config ID"
// @Param payload body dto.OptimizationConfigRequest true "Config payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /optimizer/configs/{id} [put]
func (h *OptimizerHandler) UpdateConfig(c *gin.Context) {
	var req dto.OptimizationConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid config payload"))
		return
	}
	cfg, err := h.service.UpdateConfig(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

// DeleteConfig godoc
// @Summary Delete a parameter set
// @Tags Optimizer
// @Param id path string true "Config ID"
// @Success 204
// @Router /optimizer/configs/{id} [delete]
func (h *OptimizerHandler) DeleteConfig(c *gin.Context) {
	if err := h.service.DeleteConfig(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
