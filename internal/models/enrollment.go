package models

import "time"

// PlacementStatus is the outcome of binding one enrollment request.
type PlacementStatus string

const (
	PlacementEnrolled   PlacementStatus = "ENROLLED"
	PlacementWaitlisted PlacementStatus = "WAITLISTED"
	// PlacementBypassed marks requests skipped for a reason other than
	// capacity: schedule conflict, administrative hold, or unit-limit
	// overflow. Bypasses never consume a waitlist slot.
	PlacementBypassed PlacementStatus = "BYPASSED"
	PlacementDenied   PlacementStatus = "DENIED"
)

// Bypass reasons recorded on PlacementBypassed outcomes.
const (
	BypassReasonConflict  = "SCHEDULE_CONFLICT"
	BypassReasonHold      = "ADMINISTRATIVE_HOLD"
	BypassReasonUnitLimit = "UNIT_LIMIT_EXCEEDED"
)

// EnrollmentRequest is a student's ask for a seat in a course.
type EnrollmentRequest struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Priority    float64   `db:"priority" json:"priority"`
	Hold        bool      `db:"hold" json:"hold"`
	RequestedAt time.Time `db:"requested_at" json:"requested_at"`
}

// Placement is the resolved outcome for one request.
type Placement struct {
	RequestID        string          `json:"request_id"`
	StudentID        string          `json:"student_id"`
	CourseID         string          `json:"course_id"`
	UnitID           string          `json:"unit_id,omitempty"`
	Status           PlacementStatus `json:"status"`
	WaitlistPosition int             `json:"waitlist_position,omitempty"`
	BypassReason     string          `json:"bypass_reason,omitempty"`
}

// WaitlistStatus tracks a waitlist entry's lifecycle.
type WaitlistStatus string

const (
	WaitlistStatusActive   WaitlistStatus = "ACTIVE"
	WaitlistStatusPromoted WaitlistStatus = "PROMOTED"
	WaitlistStatusRemoved  WaitlistStatus = "REMOVED"
)

// WaitlistEntry is one student's position on a section waitlist.
type WaitlistEntry struct {
	ID        string         `db:"id" json:"id"`
	UnitID    string         `db:"unit_id" json:"unit_id"`
	StudentID string         `db:"student_id" json:"student_id"`
	Position  int            `db:"position" json:"position"`
	Status    WaitlistStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// WaitlistDelta carries waitlist changes for enrollment persistence.
type WaitlistDelta struct {
	Added   []WaitlistEntry `json:"added"`
	Removed []WaitlistEntry `json:"removed"`
}

// StudentEnrollment is an existing seat used for conflict detection and
// unit-limit checks during placement.
type StudentEnrollment struct {
	StudentID string `db:"student_id" json:"student_id"`
	UnitID    string `db:"unit_id" json:"unit_id"`
}
