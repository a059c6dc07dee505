package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harborview/timetable-api/internal/dto"
	"github.com/harborview/timetable-api/internal/models"
	"github.com/harborview/timetable-api/internal/solver"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
)

type enrollmentStore interface {
	ListRequests(ctx context.Context, termID string) ([]models.EnrollmentRequest, error)
	ListSeats(ctx context.Context, termID string) ([]models.StudentEnrollment, error)
	ApplyPlacements(ctx context.Context, termID string, placements []models.Placement, delta models.WaitlistDelta) error
	ListWaitlist(ctx context.Context, unitID string) ([]models.WaitlistEntry, error)
	PromoteWaitlistHead(ctx context.Context, termID, unitID string) (*models.WaitlistEntry, error)
}

type enrollmentCatalogLoader interface {
	Load(ctx context.Context, termID string) (*models.Catalog, error)
}

type scheduleReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.ScheduleSlotRecord, error)
}

type placementObserver interface {
	ObservePlacement(enrolled, waitlisted, bypassed, denied int)
}

// EnrollmentService runs placement passes over the finalized schedule and
// manages section waitlists.
type EnrollmentService struct {
	repo     enrollmentStore
	catalog  enrollmentCatalogLoader
	schedule scheduleReader
	manager  *solver.WaitlistManager
	metrics  placementObserver
	validate *validator.Validate
	logger   *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentStore, catalog enrollmentCatalogLoader, schedule scheduleReader, metrics placementObserver, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		repo:     repo,
		catalog:  catalog,
		schedule: schedule,
		manager:  solver.NewWaitlistManager(logger),
		metrics:  metrics,
		validate: validate,
		logger:   logger,
	}
}

// RunPlacement binds every open enrollment request for the term against the
// persisted schedule and stores the outcome.
func (s *EnrollmentService) RunPlacement(ctx context.Context, req dto.PlacementRunRequest) (*dto.PlacementSummaryResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement request")
	}

	catalog, err := s.catalog.Load(ctx, req.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	requests, err := s.repo.ListRequests(ctx, req.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment requests")
	}
	seats, err := s.repo.ListSeats(ctx, req.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seats")
	}
	slots, err := s.schedule.ListByTerm(ctx, req.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	result := s.manager.Place(solver.PlacementInput{
		Units:              catalog.Units,
		Requests:           requests,
		Existing:           seats,
		Schedule:           assignmentsFromSlots(slots),
		MaxUnitsPerStudent: req.MaxUnitsPerStudent,
	})

	if err := s.repo.ApplyPlacements(ctx, req.TermID, result.Placements, result.Delta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist placements")
	}

	summary := summarize(req.TermID, result.Placements)
	if s.metrics != nil {
		s.metrics.ObservePlacement(summary.Enrolled, summary.Waitlisted, summary.Bypassed, summary.Denied)
	}
	s.logger.Info("placement pass complete",
		zap.String("term_id", req.TermID),
		zap.Int("requests", summary.Requests),
		zap.Int("enrolled", summary.Enrolled),
		zap.Int("waitlisted", summary.Waitlisted),
		zap.Int("bypassed", summary.Bypassed),
		zap.Int("denied", summary.Denied))
	return summary, nil
}

// GetWaitlist returns a section's active waitlist.
func (s *EnrollmentService) GetWaitlist(ctx context.Context, unitID string) ([]dto.WaitlistEntryResponse, error) {
	entries, err := s.repo.ListWaitlist(ctx, unitID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist")
	}
	out := make([]dto.WaitlistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.WaitlistEntryResponse{
			ID:        entry.ID,
			UnitID:    entry.UnitID,
			StudentID: entry.StudentID,
			Position:  entry.Position,
			Status:    string(entry.Status),
		})
	}
	return out, nil
}

// PromoteHead seats the first waitlisted student of a section.
func (s *EnrollmentService) PromoteHead(ctx context.Context, termID, unitID string) (*dto.WaitlistEntryResponse, error) {
	entry, err := s.repo.PromoteWaitlistHead(ctx, termID, unitID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote waitlist head")
	}
	return &dto.WaitlistEntryResponse{
		ID:        entry.ID,
		UnitID:    entry.UnitID,
		StudentID: entry.StudentID,
		Position:  entry.Position,
		Status:    string(entry.Status),
	}, nil
}

// assignmentsFromSlots folds persisted slot rows back into per-unit
// assignments for conflict detection.
func assignmentsFromSlots(slots []models.ScheduleSlotRecord) map[string]models.Assignment {
	out := map[string]models.Assignment{}
	for _, slot := range slots {
		a := out[slot.UnitID]
		a.UnitID = slot.UnitID
		a.TeacherID = slot.TeacherID
		a.RoomID = slot.RoomID
		a.Slots = append(a.Slots, models.TimeSlot{Day: slot.DayOfWeek, Period: slot.Period})
		out[slot.UnitID] = a
	}
	return out
}

func summarize(termID string, placements []models.Placement) *dto.PlacementSummaryResponse {
	summary := &dto.PlacementSummaryResponse{TermID: termID, Requests: len(placements)}
	for _, p := range placements {
		switch p.Status {
		case models.PlacementEnrolled:
			summary.Enrolled++
		case models.PlacementWaitlisted:
			summary.Waitlisted++
		case models.PlacementBypassed:
			summary.Bypassed++
		case models.PlacementDenied:
			summary.Denied++
		}
		summary.Placements = append(summary.Placements, dto.PlacementResponse{
			RequestID:        p.RequestID,
			StudentID:        p.StudentID,
			CourseID:         p.CourseID,
			UnitID:           p.UnitID,
			Status:           string(p.Status),
			WaitlistPosition: p.WaitlistPosition,
			BypassReason:     p.BypassReason,
		})
	}
	return summary
}
