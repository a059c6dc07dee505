package models

import "time"

// Assignment binds a planning unit to a teacher, a room, and its weekly
// meeting slots. Slot count always equals the unit's sessions per week.
type Assignment struct {
	UnitID      string     `json:"unit_id"`
	TeacherID   string     `json:"teacher_id"`
	CoTeacherID string     `json:"co_teacher_id,omitempty"`
	RoomID      string     `json:"room_id"`
	Slots       []TimeSlot `json:"slots"`
}

// Overlaps reports whether two assignments share any day/period cell.
func (a Assignment) Overlaps(other Assignment) bool {
	for _, s := range a.Slots {
		for _, o := range other.Slots {
			if s.SameCell(o) {
				return true
			}
		}
	}
	return false
}

// ScheduleLock pins an assignment the solver must preserve verbatim, such as
// a teacher lunch lock or an admin-pinned section.
type ScheduleLock struct {
	UnitID    string     `json:"unit_id" db:"unit_id"`
	TeacherID string     `json:"teacher_id" db:"teacher_id"`
	RoomID    string     `json:"room_id" db:"room_id"`
	Slots     []TimeSlot `json:"slots"`
	Reason    string     `json:"reason" db:"reason"`
}

// ScheduleSlotRecord is one persisted meeting of the finalized schedule.
type ScheduleSlotRecord struct {
	ID        string    `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id"`
	TermID    string    `db:"term_id" json:"term_id"`
	UnitID    string    `db:"unit_id" json:"unit_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	Period    int       `db:"period" json:"period"`
	Locked    bool      `db:"locked" json:"locked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
