package models

// PlanningUnit is one schedulable course section: N meetings per week of a
// given duration, with room, certification, and enrollment requirements.
// Immutable during a solver run; only its Assignment changes.
type PlanningUnit struct {
	ID              string   `json:"id"`
	CourseID        string   `json:"course_id"`
	CourseName      string   `json:"course_name"`
	SectionNumber   int      `json:"section_number"`
	Subject         string   `json:"subject"`
	GradeLow        int      `json:"grade_low"`
	GradeHigh       int      `json:"grade_high"`
	SessionsPerWeek int      `json:"sessions_per_week"`
	DurationMinutes int      `json:"duration_minutes"`
	RoomType        RoomType `json:"room_type"`
	Equipment       []string `json:"equipment,omitempty"`

	TargetEnrollment int `json:"target_enrollment"`
	MinEnrollment    int `json:"min_enrollment"`
	MaxEnrollment    int `json:"max_enrollment"`
	Enrollment       int `json:"enrollment"`

	Singleton           bool `json:"singleton"`
	Doubleton           bool `json:"doubleton"`
	RequiresConsecutive bool `json:"requires_consecutive"`
	RequiresMultiRoom   bool `json:"requires_multi_room"`
	RequiresCoTeacher   bool `json:"requires_co_teacher"`

	AllowWaitlist bool `json:"allow_waitlist"`
	MaxWaitlist   int  `json:"max_waitlist"`
}

// Catalog is the read-only snapshot a solver run operates on. It is loaded
// once before INITIALIZE and never mutated during the run.
type Catalog struct {
	TermID        string         `json:"term_id"`
	PeriodsPerDay int            `json:"periods_per_day"`
	Units         []PlanningUnit `json:"units"`
	Teachers      []Teacher      `json:"teachers"`
	Rooms         []Room         `json:"rooms"`
	Locks         []ScheduleLock `json:"locks"`
	BellSchedule  []BellPeriod   `json:"bell_schedule,omitempty"`
}

// BellPeriod maps a period index to wall-clock minutes for display.
type BellPeriod struct {
	Period      int `json:"period" db:"period"`
	StartMinute int `json:"start_minute" db:"start_minute"`
	EndMinute   int `json:"end_minute" db:"end_minute"`
}
