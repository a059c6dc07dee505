package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborview/timetable-api/internal/dto"
	"github.com/harborview/timetable-api/internal/service"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
	"github.com/harborview/timetable-api/pkg/response"
)

type enrollmentPlacer interface {
	RunPlacement(ctx context.Context, req dto.PlacementRunRequest) (*dto.PlacementSummaryResponse, error)
	GetWaitlist(ctx context.Context, unitID string) ([]dto.WaitlistEntryResponse, error)
	PromoteHead(ctx context.Context, termID, unitID string) (*dto.WaitlistEntryResponse, error)
}

// EnrollmentHandler exposes placement and waitlist endpoints.
type EnrollmentHandler struct {
	service enrollmentPlacer
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// RunPlacement godoc
// @Summary Run a placement pass for a term
// @Description Binds every open enrollment request against the persisted schedule
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body dto.PlacementRunRequest true "Placement payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollment/placements [post]
func (h *EnrollmentHandler) RunPlacement(c *gin.Context) {
	var req dto.PlacementRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid placement payload"))
		return
	}
	summary, err := h.service.RunPlacement(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// Waitlist godoc
// @Summary Get a section's active waitlist
// @Tags Enrollment
// @Produce json
// @Param unitId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment/waitlists/{unitId} [get]
func (h *EnrollmentHandler) Waitlist(c *gin.Context) {
	entries, err := h.service.GetWaitlist(c.Request.Context(), c.Param("unitId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Promote godoc
// @Summary Seat the first waitlisted student of a section
// @Tags Enrollment
// @Produce json
// @Param unitId path string true "Section ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /enrollment/waitlists/{unitId}/promote [post]
func (h *EnrollmentHandler) Promote(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	entry, err := h.service.PromoteHead(c.Request.Context(), termID, c.Param("unitId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}
