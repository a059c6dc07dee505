package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborview/timetable-api/internal/service"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
	"github.com/harborview/timetable-api/pkg/response"
)

type scheduleExporter interface {
	MasterSchedule(ctx context.Context, termID, format string) (*service.ExportResult, error)
	TeacherSchedule(ctx context.Context, termID, teacherID, format string) (*service.ExportResult, error)
	RoomSchedule(ctx context.Context, termID, roomID, format string) (*service.ExportResult, error)
}

// ExportHandler streams schedule exports.
type ExportHandler struct {
	service scheduleExporter
	enabled bool
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService, enabled bool) *ExportHandler {
	return &ExportHandler{service: svc, enabled: enabled}
}

// Master godoc
// @Summary Export the master schedule
// @Tags Exports
// @Produce text/csv
// @Param termId query string true "Term ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Router /exports/schedule [get]
func (h *ExportHandler) Master(c *gin.Context) {
	h.serve(c, func(termID, format string) (*service.ExportResult, error) {
		return h.service.MasterSchedule(c.Request.Context(), termID, format)
	})
}

// Teacher godoc
// @Summary Export one teacher's schedule
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Teacher ID"
// @Param termId query string true "Term ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Router /exports/teachers/{id} [get]
func (h *ExportHandler) Teacher(c *gin.Context) {
	h.serve(c, func(termID, format string) (*service.ExportResult, error) {
		return h.service.TeacherSchedule(c.Request.Context(), termID, c.Param("id"), format)
	})
}

// Room godoc
// @Summary Export one room's schedule
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Room ID"
// @Param termId query string true "Term ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Router /exports/rooms/{id} [get]
func (h *ExportHandler) Room(c *gin.Context) {
	h.serve(c, func(termID, format string) (*service.ExportResult, error) {
		return h.service.RoomSchedule(c.Request.Context(), termID, c.Param("id"), format)
	})
}

func (h *ExportHandler) serve(c *gin.Context, render func(termID, format string) (*service.ExportResult, error)) {
	if !h.enabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled"))
		return
	}
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId is required"))
		return
	}
	format := c.DefaultQuery("format", "csv")

	result, err := render(termID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
