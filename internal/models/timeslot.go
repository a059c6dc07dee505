package models

import "strings"

// Days of the instructional week, Monday through Friday.
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5

	DaysPerWeek = 5
)

var dayNames = map[int]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
}

var dayIndexes = map[string]int{
	"MONDAY":    Monday,
	"TUESDAY":   Tuesday,
	"WEDNESDAY": Wednesday,
	"THURSDAY":  Thursday,
	"FRIDAY":    Friday,
}

// DayName returns the canonical name for a day index, empty when out of range.
func DayName(day int) string {
	return dayNames[day]
}

// DayIndex resolves a day name back to its index, 0 when unknown.
func DayIndex(name string) int {
	return dayIndexes[strings.ToUpper(strings.TrimSpace(name))]
}

/// TimeSlot identifies one meeting: a (day, period) cell in the bell schedule.
// Start and end minutes are carried for display and persistence; slot identity
// and overlap checks use only Day and Period.
type TimeSlot struct {
	Day         int `json:"day" db:"day_of_week"`
	Period      int `json:"period" db:"period"`
	StartMinute int `json:"start_minute" db:"start_minute"`
	EndMinute   int `json:"end_minute" db:"end_minute"`
}

// SameCell reports whether two slots occupy the same day/period cell.
func (s TimeSlot) SameCell(other TimeSlot) bool {
	return s.Day == other.Day && s.Period == other.Period
}

// TimeWindow is a blocked range of periods on one day, used for teacher and
// room unavailability. Windows are built once at catalog load, never reparsed.
type TimeWindow struct {
	Day         int `json:"day"`
	StartPeriod int `json:"start_period"`
	EndPeriod   int `json:"end_period"`
}

// Contains reports whether a slot falls inside the window.
func (w TimeWindow) Contains(slot TimeSlot) bool {
	return w.Day == slot.Day && slot.Period >= w.StartPeriod && slot.Period <= w.EndPeriod
}

// AnyWindowContains reports whether any window covers the slot.
func AnyWindowContains(windows []TimeWindow, slot TimeSlot) bool {
	for _, w := range windows {
		if w.Contains(slot) {
			return true
		}
	}
	return false
}
