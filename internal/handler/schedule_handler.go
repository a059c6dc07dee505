package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/harborview/timetable-api/internal/dto"
	"github.com/harborview/timetable-api/internal/service"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
	"github.com/harborview/timetable-api/pkg/response"
)

type scheduleProvider interface {
	TermSchedule(ctx context.Context, termID string) ([]dto.ScheduleSlotResponse, error)
	TeacherSchedule(ctx context.Context, termID, teacherID string) ([]dto.ScheduleSlotResponse, error)
	RoomSchedule(ctx context.Context, termID, roomID string) ([]dto.ScheduleSlotResponse, error)
}

// ScheduleHandler exposes the persisted timetable.
type ScheduleHandler struct {
	service scheduleProvider
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Term godoc
// @Summary Get the master schedule for a term
// @Tags Schedule
// @Produce json
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) Term(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	slots, err := h.service.TermSchedule(c.Request.Context(), termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// Teacher godoc
// @Summary Get one teacher's weekly schedule
// @Tags Schedule
// @Produce json
// @Param termId query string true "Term ID"
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/teachers/{id} [get]
func (h *ScheduleHandler) Teacher(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	slots, err := h.service.TeacherSchedule(c.Request.Context(), termID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// Room godoc
// @Summary Get one room's weekly occupancy
// @Tags Schedule
// @Produce json
// @Param termId query string true "Term ID"
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/rooms/{id} [get]
func (h *ScheduleHandler) Room(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	slots, err := h.service.RoomSchedule(c.Request.Context(), termID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}
