package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/harborview/timetable-api/internal/models"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
	"github.com/harborview/timetable-api/pkg/export"
)

type exportScheduleReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.ScheduleSlotRecord, error)
	ListByTeacher(ctx context.Context, termID, teacherID string) ([]models.ScheduleSlotRecord, error)
	ListByRoom(ctx context.Context, termID, roomID string) ([]models.ScheduleSlotRecord, error)
}

type exportCatalogReader interface {
	Load(ctx context.Context, termID string) (*models.Catalog, error)
}

// ExportResult is a rendered export ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders the persisted master schedule as CSV or PDF.
type ExportService struct {
	schedule   exportScheduleReader
	catalog    exportCatalogReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	schoolName string
	logger     *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(schedule exportScheduleReader, catalog exportCatalogReader, schoolName string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedule:   schedule,
		catalog:    catalog,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		schoolName: schoolName,
		logger:     logger,
	}
}

// MasterSchedule renders the whole term schedule in the requested format.
func (s *ExportService) MasterSchedule(ctx context.Context, termID, format string) (*ExportResult, error) {
	slots, err := s.schedule.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return s.render(ctx, termID, format, fmt.Sprintf("master-schedule-%s", termID), slots)
}

// TeacherSchedule renders one teacher's weekly schedule.
func (s *ExportService) TeacherSchedule(ctx context.Context, termID, teacherID, format string) (*ExportResult, error) {
	slots, err := s.schedule.ListByTeacher(ctx, termID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	return s.render(ctx, termID, format, fmt.Sprintf("teacher-schedule-%s", teacherID), slots)
}

// RoomSchedule renders one room's weekly occupancy.
func (s *ExportService) RoomSchedule(ctx context.Context, termID, roomID, format string) (*ExportResult, error) {
	slots, err := s.schedule.ListByRoom(ctx, termID, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room schedule")
	}
	return s.render(ctx, termID, format, fmt.Sprintf("room-schedule-%s", roomID), slots)
}

var scheduleHeaders = []string{"Day", "Period", "Course", "Section", "Teacher", "Room"}

func (s *ExportService) render(ctx context.Context, termID, format, basename string, slots []models.ScheduleSlotRecord) (*ExportResult, error) {
	catalog, err := s.catalog.Load(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	names := newNameIndex(catalog)

	dataset := export.Dataset{Headers: scheduleHeaders}
	for _, slot := range slots {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":     models.DayName(slot.DayOfWeek),
			"Period":  strconv.Itoa(slot.Period),
			"Course":  names.course(slot.UnitID),
			"Section": names.section(slot.UnitID),
			"Teacher": names.teacher(slot.TeacherID),
			"Room":    names.room(slot.RoomID),
		})
	}

	switch format {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Filename: basename + ".csv", ContentType: "text/csv", Content: content}, nil
	case "pdf":
		title := fmt.Sprintf("%s - %s", s.schoolName, termID)
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Filename: basename + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

type nameIndex struct {
	units    map[string]models.PlanningUnit
	teachers map[string]string
	rooms    map[string]string
}

func newNameIndex(catalog *models.Catalog) nameIndex {
	idx := nameIndex{
		units:    make(map[string]models.PlanningUnit, len(catalog.Units)),
		teachers: make(map[string]string, len(catalog.Teachers)),
		rooms:    make(map[string]string, len(catalog.Rooms)),
	}
	for _, unit := range catalog.Units {
		idx.units[unit.ID] = unit
	}
	for _, teacher := range catalog.Teachers {
		idx.teachers[teacher.ID] = teacher.FullName
	}
	for _, room := range catalog.Rooms {
		idx.rooms[room.ID] = room.Name
	}
	return idx
}

func (n nameIndex) course(unitID string) string {
	if unit, ok := n.units[unitID]; ok {
		return unit.CourseName
	}
	return unitID
}

func (n nameIndex) section(unitID string) string {
	if unit, ok := n.units[unitID]; ok {
		return strconv.Itoa(unit.SectionNumber)
	}
	return ""
}

func (n nameIndex) teacher(id string) string {
	if name, ok := n.teachers[id]; ok {
		return name
	}
	return id
}

func (n nameIndex) room(id string) string {
	if name, ok := n.rooms[id]; ok {
		return name
	}
	return id
}
