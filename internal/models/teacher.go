package models

// TeacherRole distinguishes lead teachers from co-teachers who follow
// assigned students between sections.
type TeacherRole string

const (
	TeacherRoleLead TeacherRole = "LEAD_TEACHER"
	TeacherRoleCo   TeacherRole = "CO_TEACHER"
)

// Certification qualifies a teacher for a subject across a grade range.
type Certification struct {
	Subject   string `json:"subject"`
	GradeLow  int    `json:"grade_low"`
	GradeHigh int    `json:"grade_high"`
}

// Covers reports whether the certification spans the requested subject and
// grade range.
func (c Certification) Covers(subject string, gradeLow, gradeHigh int) bool {
	return c.Subject == subject && c.GradeLow <= gradeLow && c.GradeHigh >= gradeHigh
}

// Teacher is a roster entry as the solver sees it: certifications, blocked
// windows, and room preferences resolved into typed values at catalog load.
// Workload counters are never stored here; they are derived from the schedule
// under evaluation.
type Teacher struct {
	ID                   string          `json:"id"`
	FullName             string          `json:"full_name"`
	Role                 TeacherRole     `json:"role"`
	Certifications       []Certification `json:"certifications"`
	Unavailable          []TimeWindow    `json:"unavailable,omitempty"`
	PreferredRooms       []string        `json:"preferred_rooms,omitempty"`
	RestrictedRooms      []string        `json:"restricted_rooms,omitempty"`
	TargetPeriodsPerWeek int             `json:"target_periods_per_week"`
	MaxPeriodsPerWeek    int             `json:"max_periods_per_week"`
	NeedsPlanningPeriod  bool            `json:"needs_planning_period"`
}

// CertifiedFor reports whether any certification covers the subject and
// grade range.
func (t Teacher) CertifiedFor(subject string, gradeLow, gradeHigh int) bool {
	for _, c := range t.Certifications {
		if c.Covers(subject, gradeLow, gradeHigh) {
			return true
		}
	}
	return false
}

// PrefersRoom reports whether the room is in the teacher's preferred set.
func (t Teacher) PrefersRoom(roomID string) bool {
	for _, id := range t.PreferredRooms {
		if id == roomID {
			return true
		}
	}
	return false
}

// RestrictsRoom reports whether the teacher marked the room restricted.
func (t Teacher) RestrictsRoom(roomID string) bool {
	for _, id := range t.RestrictedRooms {
		if id == roomID {
			return true
		}
	}
	return false
}
