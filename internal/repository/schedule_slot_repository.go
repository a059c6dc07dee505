package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harborview/timetable-api/internal/models"
)

// ScheduleSlotRepository persists finalized schedules as one row per meeting.
type ScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewScheduleSlotRepository constructs a ScheduleSlotRepository.
func NewScheduleSlotRepository(db *sqlx.DB) *ScheduleSlotRepository {
	return &ScheduleSlotRepository{db: db}
}

// ReplaceForTerm atomically swaps the term's schedule for the given run's
// assignments. The previous schedule is dropped in the same transaction so a
// failed persist never leaves a half-written timetable.
func (r *ScheduleSlotRepository) ReplaceForTerm(ctx context.Context, termID, runID string, assignments []models.Assignment, lockedUnits map[string]bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_slots WHERE term_id = $1", termID); err != nil {
		return fmt.Errorf("clear schedule for term %s: %w", termID, err)
	}

	now := time.Now()
	query := `INSERT INTO schedule_slots (id, run_id, term_id, unit_id, teacher_id, room_id, day_of_week, period, locked, created_at)
        VALUES (:id, :run_id, :term_id, :unit_id, :teacher_id, :room_id, :day_of_week, :period, :locked, :created_at)`
	for _, a := range assignments {
		for _, slot := range a.Slots {
			record := models.ScheduleSlotRecord{
				ID:        uuid.NewString(),
				RunID:     runID,
				TermID:    termID,
				UnitID:    a.UnitID,
				TeacherID: a.TeacherID,
				RoomID:    a.RoomID,
				DayOfWeek: slot.Day,
				Period:    slot.Period,
				Locked:    lockedUnits[a.UnitID],
				CreatedAt: now,
			}
			if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
				return fmt.Errorf("insert slot for unit %s: %w", a.UnitID, err)
			}
		}
	}
	return tx.Commit()
}

// ListByTerm returns the persisted schedule for a term in week order.
func (r *ScheduleSlotRepository) ListByTerm(ctx context.Context, termID string) ([]models.ScheduleSlotRecord, error) {
	var slots []models.ScheduleSlotRecord
	query := `SELECT id, run_id, term_id, unit_id, teacher_id, room_id, day_of_week, period, locked, created_at
        FROM schedule_slots WHERE term_id = $1 ORDER BY day_of_week, period, room_id`
	if err := r.db.SelectContext(ctx, &slots, query, termID); err != nil {
		return nil, fmt.Errorf("list schedule for term %s: %w", termID, err)
	}
	return slots, nil
}

// ListByTeacher returns one teacher's weekly meetings for a term.
func (r *ScheduleSlotRepository) ListByTeacher(ctx context.Context, termID, teacherID string) ([]models.ScheduleSlotRecord, error) {
	var slots []models.ScheduleSlotRecord
	query := `SELECT id, run_id, term_id, unit_id, teacher_id, room_id, day_of_week, period, locked, created_at
        FROM schedule_slots WHERE term_id = $1 AND teacher_id = $2 ORDER BY day_of_week, period`
	if err := r.db.SelectContext(ctx, &slots, query, termID, teacherID); err != nil {
		return nil, fmt.Errorf("list schedule for teacher %s: %w", teacherID, err)
	}
	return slots, nil
}

// ListByRoom returns one room's weekly occupancy for a term.
func (r *ScheduleSlotRepository) ListByRoom(ctx context.Context, termID, roomID string) ([]models.ScheduleSlotRecord, error) {
	var slots []models.ScheduleSlotRecord
	query := `SELECT id, run_id, term_id, unit_id, teacher_id, room_id, day_of_week, period, locked, created_at
        FROM schedule_slots WHERE term_id = $1 AND room_id = $2 ORDER BY day_of_week, period`
	if err := r.db.SelectContext(ctx, &slots, query, termID, roomID); err != nil {
		return nil, fmt.Errorf("list schedule for room %s: %w", roomID, err)
	}
	return slots, nil
}
