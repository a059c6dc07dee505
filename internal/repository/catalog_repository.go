package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/harborview/timetable-api/internal/models"
)

// CatalogRepository assembles the read-only solver catalog for a term:
// sections, the teacher roster, rooms, pinned assignments, and the bell
// schedule. JSON-encoded columns (certifications, availability windows, room
// preferences) are decoded into typed values here, once, so the solver never
// reparses them.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

type sectionRow struct {
	ID                  string         `db:"id"`
	CourseID            string         `db:"course_id"`
	CourseName          string         `db:"course_name"`
	SectionNumber       int            `db:"section_number"`
	Subject             string         `db:"subject"`
	GradeLow            int            `db:"grade_low"`
	GradeHigh           int            `db:"grade_high"`
	SessionsPerWeek     int            `db:"sessions_per_week"`
	DurationMinutes     int            `db:"duration_minutes"`
	RoomType            string         `db:"room_type"`
	Equipment           types.JSONText `db:"equipment"`
	TargetEnrollment    int            `db:"target_enrollment"`
	MinEnrollment       int            `db:"min_enrollment"`
	MaxEnrollment       int            `db:"max_enrollment"`
	Enrollment          int            `db:"enrollment"`
	Singleton           bool           `db:"singleton"`
	Doubleton           bool           `db:"doubleton"`
	RequiresConsecutive bool           `db:"requires_consecutive"`
	RequiresMultiRoom   bool           `db:"requires_multi_room"`
	RequiresCoTeacher   bool           `db:"requires_co_teacher"`
	AllowWaitlist       bool           `db:"allow_waitlist"`
	MaxWaitlist         int            `db:"max_waitlist"`
}

type teacherRow struct {
	ID                   string         `db:"id"`
	FullName             string         `db:"full_name"`
	Role                 string         `db:"role"`
	Certifications       types.JSONText `db:"certifications"`
	Unavailable          types.JSONText `db:"unavailable"`
	PreferredRooms       types.JSONText `db:"preferred_rooms"`
	RestrictedRooms      types.JSONText `db:"restricted_rooms"`
	TargetPeriodsPerWeek int            `db:"target_periods_per_week"`
	MaxPeriodsPerWeek    int            `db:"max_periods_per_week"`
	NeedsPlanningPeriod  bool           `db:"needs_planning_period"`
}

type roomRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Type        string         `db:"type"`
	Capacity    int            `db:"capacity"`
	Equipment   types.JSONText `db:"equipment"`
	Unavailable types.JSONText `db:"unavailable"`
}

type lockRow struct {
	UnitID    string         `db:"unit_id"`
	TeacherID string         `db:"teacher_id"`
	RoomID    string         `db:"room_id"`
	Slots     types.JSONText `db:"slots"`
	Reason    string         `db:"reason"`
}

// Load builds the full catalog snapshot for a term.
func (r *CatalogRepository) Load(ctx context.Context, termID string) (*models.Catalog, error) {
	catalog := &models.Catalog{TermID: termID}

	var periods int
	if err := r.db.GetContext(ctx, &periods,
		"SELECT periods_per_day FROM terms WHERE id = $1", termID); err != nil {
		return nil, fmt.Errorf("load term %s: %w", termID, err)
	}
	catalog.PeriodsPerDay = periods

	units, err := r.loadSections(ctx, termID)
	if err != nil {
		return nil, err
	}
	catalog.Units = units

	teachers, err := r.loadTeachers(ctx, termID)
	if err != nil {
		return nil, err
	}
	catalog.Teachers = teachers

	rooms, err := r.loadRooms(ctx)
	if err != nil {
		return nil, err
	}
	catalog.Rooms = rooms

	locks, err := r.loadLocks(ctx, termID)
	if err != nil {
		return nil, err
	}
	catalog.Locks = locks

	if err := r.db.SelectContext(ctx, &catalog.BellSchedule,
		"SELECT period, start_minute, end_minute FROM bell_periods WHERE term_id = $1 ORDER BY period", termID); err != nil {
		return nil, fmt.Errorf("load bell schedule: %w", err)
	}

	return catalog, nil
}

func (r *CatalogRepository) loadSections(ctx context.Context, termID string) ([]models.PlanningUnit, error) {
	query := `SELECT s.id, s.course_id, c.name AS course_name, s.section_number, c.subject, c.grade_low, c.grade_high,
        s.sessions_per_week, s.duration_minutes, s.room_type, s.equipment,
        s.target_enrollment, s.min_enrollment, s.max_enrollment, s.enrollment,
        s.singleton, s.doubleton, s.requires_consecutive, s.requires_multi_room, s.requires_co_teacher,
        c.allow_waitlist, c.max_waitlist
        FROM sections s
        JOIN courses c ON c.id = s.course_id
        WHERE s.term_id = $1
        ORDER BY c.subject, c.name, s.section_number`
	var rows []sectionRow
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}

	units := make([]models.PlanningUnit, 0, len(rows))
	for _, row := range rows {
		unit := models.PlanningUnit{
			ID:                  row.ID,
			CourseID:            row.CourseID,
			CourseName:          row.CourseName,
			SectionNumber:       row.SectionNumber,
			Subject:             row.Subject,
			GradeLow:            row.GradeLow,
			GradeHigh:           row.GradeHigh,
			SessionsPerWeek:     row.SessionsPerWeek,
			DurationMinutes:     row.DurationMinutes,
			RoomType:            models.RoomType(row.RoomType),
			TargetEnrollment:    row.TargetEnrollment,
			MinEnrollment:       row.MinEnrollment,
			MaxEnrollment:       row.MaxEnrollment,
			Enrollment:          row.Enrollment,
			Singleton:           row.Singleton,
			Doubleton:           row.Doubleton,
			RequiresConsecutive: row.RequiresConsecutive,
			RequiresMultiRoom:   row.RequiresMultiRoom,
			RequiresCoTeacher:   row.RequiresCoTeacher,
			AllowWaitlist:       row.AllowWaitlist,
			MaxWaitlist:         row.MaxWaitlist,
		}
		if err := decodeJSON(row.Equipment, &unit.Equipment); err != nil {
			return nil, fmt.Errorf("section %s equipment: %w", row.ID, err)
		}
		units = append(units, unit)
	}
	return units, nil
}

func (r *CatalogRepository) loadTeachers(ctx context.Context, termID string) ([]models.Teacher, error) {
	query := `SELECT t.id, t.full_name, t.role, t.certifications, t.unavailable,
        t.preferred_rooms, t.restricted_rooms, t.target_periods_per_week, t.max_periods_per_week, t.needs_planning_period
        FROM teachers t
        JOIN teacher_terms tt ON tt.teacher_id = t.id
        WHERE tt.term_id = $1 AND t.active = true
        ORDER BY t.full_name`
	var rows []teacherRow
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}

	teachers := make([]models.Teacher, 0, len(rows))
	for _, row := range rows {
		teacher := models.Teacher{
			ID:                   row.ID,
			FullName:             row.FullName,
			Role:                 models.TeacherRole(row.Role),
			TargetPeriodsPerWeek: row.TargetPeriodsPerWeek,
			MaxPeriodsPerWeek:    row.MaxPeriodsPerWeek,
			NeedsPlanningPeriod:  row.NeedsPlanningPeriod,
		}
		if err := decodeJSON(row.Certifications, &teacher.Certifications); err != nil {
			return nil, fmt.Errorf("teacher %s certifications: %w", row.ID, err)
		}
		if err := decodeJSON(row.Unavailable, &teacher.Unavailable); err != nil {
			return nil, fmt.Errorf("teacher %s availability: %w", row.ID, err)
		}
		if err := decodeJSON(row.PreferredRooms, &teacher.PreferredRooms); err != nil {
			return nil, fmt.Errorf("teacher %s preferred rooms: %w", row.ID, err)
		}
		if err := decodeJSON(row.RestrictedRooms, &teacher.RestrictedRooms); err != nil {
			return nil, fmt.Errorf("teacher %s restricted rooms: %w", row.ID, err)
		}
		teachers = append(teachers, teacher)
	}
	return teachers, nil
}

func (r *CatalogRepository) loadRooms(ctx context.Context) ([]models.Room, error) {
	query := `SELECT id, name, type, capacity, equipment, unavailable
        FROM rooms WHERE active = true ORDER BY name`
	var rows []roomRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	rooms := make([]models.Room, 0, len(rows))
	for _, row := range rows {
		room := models.Room{
			ID:       row.ID,
			Name:     row.Name,
			Type:     models.RoomType(row.Type),
			Capacity: row.Capacity,
		}
		if err := decodeJSON(row.Equipment, &room.Equipment); err != nil {
			return nil, fmt.Errorf("room %s equipment: %w", row.ID, err)
		}
		if err := decodeJSON(row.Unavailable, &room.Unavailable); err != nil {
			return nil, fmt.Errorf("room %s availability: %w", row.ID, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *CatalogRepository) loadLocks(ctx context.Context, termID string) ([]models.ScheduleLock, error) {
	query := `SELECT unit_id, teacher_id, room_id, slots, reason
        FROM schedule_locks WHERE term_id = $1 ORDER BY unit_id`
	var rows []lockRow
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("load schedule locks: %w", err)
	}

	locks := make([]models.ScheduleLock, 0, len(rows))
	for _, row := range rows {
		lock := models.ScheduleLock{
			UnitID:    row.UnitID,
			TeacherID: row.TeacherID,
			RoomID:    row.RoomID,
			Reason:    row.Reason,
		}
		if err := decodeJSON(row.Slots, &lock.Slots); err != nil {
			return nil, fmt.Errorf("lock on unit %s slots: %w", row.UnitID, err)
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

func decodeJSON(raw types.JSONText, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
