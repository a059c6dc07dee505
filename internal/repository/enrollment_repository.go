package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harborview/timetable-api/internal/models"
)

// EnrollmentRepository persists enrollment requests, seats, and section
// waitlists.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListRequests returns every open enrollment request for a term.
func (r *EnrollmentRepository) ListRequests(ctx context.Context, termID string) ([]models.EnrollmentRequest, error) {
	var requests []models.EnrollmentRequest
	query := `SELECT er.id, er.student_id, er.course_id, er.priority, er.hold, er.requested_at
        FROM enrollment_requests er
        WHERE er.term_id = $1 AND er.resolved = false
        ORDER BY er.course_id, er.priority DESC, er.requested_at, er.id`
	if err := r.db.SelectContext(ctx, &requests, query, termID); err != nil {
		return nil, fmt.Errorf("list enrollment requests: %w", err)
	}
	return requests, nil
}

// ListSeats returns every existing seat for a term, used for conflict and
// unit-limit checks during placement.
func (r *EnrollmentRepository) ListSeats(ctx context.Context, termID string) ([]models.StudentEnrollment, error) {
	var seats []models.StudentEnrollment
	query := `SELECT student_id, unit_id FROM section_seats WHERE term_id = $1`
	if err := r.db.SelectContext(ctx, &seats, query, termID); err != nil {
		return nil, fmt.Errorf("list seats for term %s: %w", termID, err)
	}
	return seats, nil
}

// ApplyPlacements persists one placement pass: new seats, placement outcomes
// on the requests, and the rebuilt waitlists, all in one transaction.
func (r *EnrollmentRepository) ApplyPlacements(ctx context.Context, termID string, placements []models.Placement, delta models.WaitlistDelta) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin placements tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, p := range placements {
		if _, err := tx.ExecContext(ctx,
			`UPDATE enrollment_requests SET resolved = true, status = $1, bypass_reason = $2, resolved_at = $3 WHERE id = $4`,
			p.Status, p.BypassReason, now, p.RequestID); err != nil {
			return fmt.Errorf("resolve request %s: %w", p.RequestID, err)
		}
		if p.Status != models.PlacementEnrolled {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO section_seats (id, term_id, unit_id, student_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), termID, p.UnitID, p.StudentID, now); err != nil {
			return fmt.Errorf("seat student %s in unit %s: %w", p.StudentID, p.UnitID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sections SET enrollment = enrollment + 1 WHERE id = $1`, p.UnitID); err != nil {
			return fmt.Errorf("bump enrollment for unit %s: %w", p.UnitID, err)
		}
	}

	for _, removed := range delta.Removed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE waitlist_entries SET status = $1 WHERE id = $2`,
			models.WaitlistStatusRemoved, removed.ID); err != nil {
			return fmt.Errorf("remove waitlist entry %s: %w", removed.ID, err)
		}
	}
	for _, added := range delta.Added {
		id := added.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO waitlist_entries (id, unit_id, student_id, position, status, created_at)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			id, added.UnitID, added.StudentID, added.Position, added.Status, now); err != nil {
			return fmt.Errorf("waitlist student %s on unit %s: %w", added.StudentID, added.UnitID, err)
		}
	}

	return tx.Commit()
}

// ListWaitlist returns a section's active waitlist in position order.
func (r *EnrollmentRepository) ListWaitlist(ctx context.Context, unitID string) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	query := `SELECT id, unit_id, student_id, position, status, created_at
        FROM waitlist_entries WHERE unit_id = $1 AND status = $2 ORDER BY position`
	if err := r.db.SelectContext(ctx, &entries, query, unitID, models.WaitlistStatusActive); err != nil {
		return nil, fmt.Errorf("list waitlist for unit %s: %w", unitID, err)
	}
	return entries, nil
}

// PromoteWaitlistHead moves the first active waitlist entry into a seat when
// one opens, shifting the remaining positions up.
func (r *EnrollmentRepository) PromoteWaitlistHead(ctx context.Context, termID, unitID string) (*models.WaitlistEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin promote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var head models.WaitlistEntry
	query := `SELECT id, unit_id, student_id, position, status, created_at
        FROM waitlist_entries WHERE unit_id = $1 AND status = $2 ORDER BY position LIMIT 1 FOR UPDATE`
	if err := tx.GetContext(ctx, &head, query, unitID, models.WaitlistStatusActive); err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET status = $1 WHERE id = $2`,
		models.WaitlistStatusPromoted, head.ID); err != nil {
		return nil, fmt.Errorf("promote waitlist entry %s: %w", head.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET position = position - 1 WHERE unit_id = $1 AND status = $2 AND position > $3`,
		unitID, models.WaitlistStatusActive, head.Position); err != nil {
		return nil, fmt.Errorf("shift waitlist for unit %s: %w", unitID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO section_seats (id, term_id, unit_id, student_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), termID, unitID, head.StudentID, now); err != nil {
		return nil, fmt.Errorf("seat promoted student %s: %w", head.StudentID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sections SET enrollment = enrollment + 1 WHERE id = $1`, unitID); err != nil {
		return nil, fmt.Errorf("bump enrollment for unit %s: %w", unitID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	head.Status = models.WaitlistStatusPromoted
	return &head, nil
}
