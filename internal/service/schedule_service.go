package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/harborview/timetable-api/internal/dto"
	"github.com/harborview/timetable-api/internal/models"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
)

type scheduleSlotReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.ScheduleSlotRecord, error)
	ListByTeacher(ctx context.Context, termID, teacherID string) ([]models.ScheduleSlotRecord, error)
	ListByRoom(ctx context.Context, termID, roomID string) ([]models.ScheduleSlotRecord, error)
}

// ScheduleService serves the persisted timetable to clients.
type ScheduleService struct {
	repo   scheduleSlotReader
	logger *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(repo scheduleSlotReader, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, logger: logger}
}

// TermSchedule returns the full timetable for a term.
func (s *ScheduleService) TermSchedule(ctx context.Context, termID string) ([]dto.ScheduleSlotResponse, error) {
	slots, err := s.repo.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return slotsToResponses(slots), nil
}

// TeacherSchedule returns one teacher's weekly meetings.
func (s *ScheduleService) TeacherSchedule(ctx context.Context, termID, teacherID string) ([]dto.ScheduleSlotResponse, error) {
	slots, err := s.repo.ListByTeacher(ctx, termID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	return slotsToResponses(slots), nil
}

// RoomSchedule returns one room's weekly occupancy.
func (s *ScheduleService) RoomSchedule(ctx context.Context, termID, roomID string) ([]dto.ScheduleSlotResponse, error) {
	slots, err := s.repo.ListByRoom(ctx, termID, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room schedule")
	}
	return slotsToResponses(slots), nil
}

func slotsToResponses(slots []models.ScheduleSlotRecord) []dto.ScheduleSlotResponse {
	out := make([]dto.ScheduleSlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, dto.ScheduleSlotResponse{
			UnitID:    slot.UnitID,
			TeacherID: slot.TeacherID,
			RoomID:    slot.RoomID,
			Day:       models.DayName(slot.DayOfWeek),
			Period:    slot.Period,
			Locked:    slot.Locked,
		})
	}
	return out
}
