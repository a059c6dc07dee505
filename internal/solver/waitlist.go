package solver

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/harborview/timetable-api/internal/models"
)

// PlacementInput is everything the capacity manager needs to bind enrollment
// requests to a finalized schedule. It is read-only; placement is a pure
// function of the input, so re-running it over unchanged data reproduces the
// same outcomes and waitlist positions.
type PlacementInput struct {
	Units    []models.PlanningUnit
	Requests []models.EnrollmentRequest
	// Existing seats, used for conflict detection and unit-limit checks.
	Existing []models.StudentEnrollment
	// Schedule maps unit id to its finalized assignment.
	Schedule map[string]models.Assignment
	// MaxUnitsPerStudent caps total seats per student; zero disables the cap.
	MaxUnitsPerStudent int
}

// PlacementResult carries one run's placements and the waitlist delta for
// enrollment persistence.
type PlacementResult struct {
	Placements []models.Placement
	Enrolled   []models.StudentEnrollment
	Delta      models.WaitlistDelta
}

// WaitlistManager binds students to sections after solving: seats fill in
// priority order, overflow lands on section waitlists, and requests skipped
// for conflict, hold, or unit-limit reasons are bypassed without consuming a
// waitlist slot.
type WaitlistManager struct {
	log *zap.Logger
}

// NewWaitlistManager builds a manager. A nil logger becomes a no-op logger.
func NewWaitlistManager(log *zap.Logger) *WaitlistManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &WaitlistManager{log: log}
}

type sectionState struct {
	unit     models.PlanningUnit
	enrolled int
	waitlist []models.WaitlistEntry
}

// Place processes every request and returns the placements. Requests are
// ordered per course by priority descending, then request time ascending,
// then id, so placement and waitlist positions are deterministic.
func (m *WaitlistManager) Place(in PlacementInput) PlacementResult {
	var out PlacementResult

	sections := map[string][]*sectionState{}
	byUnit := map[string]*sectionState{}
	for _, unit := range in.Units {
		state := &sectionState{unit: unit, enrolled: unit.Enrollment}
		sections[unit.CourseID] = append(sections[unit.CourseID], state)
		byUnit[unit.ID] = state
	}

	studentSlots := map[string][]models.TimeSlot{}
	studentLoad := map[string]int{}
	for _, seat := range in.Existing {
		studentLoad[seat.StudentID]++
		if a, ok := in.Schedule[seat.UnitID]; ok {
			studentSlots[seat.StudentID] = append(studentSlots[seat.StudentID], a.Slots...)
		}
	}

	requests := make([]models.EnrollmentRequest, len(in.Requests))
	copy(requests, in.Requests)
	sort.SliceStable(requests, func(a, b int) bool {
		if requests[a].CourseID != requests[b].CourseID {
			return requests[a].CourseID < requests[b].CourseID
		}
		if requests[a].Priority != requests[b].Priority {
			return requests[a].Priority > requests[b].Priority
		}
		if !requests[a].RequestedAt.Equal(requests[b].RequestedAt) {
			return requests[a].RequestedAt.Before(requests[b].RequestedAt)
		}
		return requests[a].ID < requests[b].ID
	})

	for _, req := range requests {
		placement := m.placeOne(req, sections[req.CourseID], in, studentSlots, studentLoad)
		out.Placements = append(out.Placements, placement)

		switch placement.Status {
		case models.PlacementEnrolled:
			seat := models.StudentEnrollment{StudentID: req.StudentID, UnitID: placement.UnitID}
			out.Enrolled = append(out.Enrolled, seat)
			studentLoad[req.StudentID]++
			if a, ok := in.Schedule[placement.UnitID]; ok {
				studentSlots[req.StudentID] = append(studentSlots[req.StudentID], a.Slots...)
			}
		case models.PlacementWaitlisted:
			state := byUnit[placement.UnitID]
			entry := models.WaitlistEntry{
				UnitID:    placement.UnitID,
				StudentID: req.StudentID,
				Position:  placement.WaitlistPosition,
				Status:    models.WaitlistStatusActive,
			}
			state.waitlist = append(state.waitlist, entry)
			out.Delta.Added = append(out.Delta.Added, entry)
		}
	}

	m.log.Debug("placement pass finished",
		zap.Int("requests", len(requests)),
		zap.Int("enrolled", len(out.Enrolled)),
		zap.Int("waitlisted", len(out.Delta.Added)))
	return out
}

func (m *WaitlistManager) placeOne(req models.EnrollmentRequest, states []*sectionState, in PlacementInput, studentSlots map[string][]models.TimeSlot, studentLoad map[string]int) models.Placement {
	placement := models.Placement{
		RequestID: req.ID,
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
	}

	if req.Hold {
		placement.Status = models.PlacementBypassed
		placement.BypassReason = models.BypassReasonHold
		return placement
	}
	if in.MaxUnitsPerStudent > 0 && studentLoad[req.StudentID] >= in.MaxUnitsPerStudent {
		placement.Status = models.PlacementBypassed
		placement.BypassReason = models.BypassReasonUnitLimit
		return placement
	}
	if len(states) == 0 {
		placement.Status = models.PlacementDenied
		placement.BypassReason = fmt.Sprintf("course %s has no scheduled sections", req.CourseID)
		return placement
	}

	// Least-filled section first keeps parallel sections balanced.
	ordered := make([]*sectionState, len(states))
	copy(ordered, states)
	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].enrolled != ordered[b].enrolled {
			return ordered[a].enrolled < ordered[b].enrolled
		}
		return ordered[a].unit.SectionNumber < ordered[b].unit.SectionNumber
	})

	sawNonConflicting := false
	for _, state := range ordered {
		if m.conflicts(in.Schedule[state.unit.ID], studentSlots[req.StudentID]) {
			continue
		}
		sawNonConflicting = true
		if state.enrolled < state.unit.MaxEnrollment {
			state.enrolled++
			placement.Status = models.PlacementEnrolled
			placement.UnitID = state.unit.ID
			return placement
		}
	}

	if !sawNonConflicting {
		placement.Status = models.PlacementBypassed
		placement.BypassReason = models.BypassReasonConflict
		return placement
	}

	// Every reachable section is full: waitlist the shortest open one.
	var target *sectionState
	for _, state := range ordered {
		if !state.unit.AllowWaitlist || len(state.waitlist) >= state.unit.MaxWaitlist {
			continue
		}
		if m.conflicts(in.Schedule[state.unit.ID], studentSlots[req.StudentID]) {
			continue
		}
		if target == nil || len(state.waitlist) < len(target.waitlist) {
			target = state
		}
	}
	if target != nil {
		placement.Status = models.PlacementWaitlisted
		placement.UnitID = target.unit.ID
		placement.WaitlistPosition = len(target.waitlist) + 1
		return placement
	}

	placement.Status = models.PlacementDenied
	return placement
}

func (m *WaitlistManager) conflicts(a models.Assignment, taken []models.TimeSlot) bool {
	for _, slot := range a.Slots {
		for _, t := range taken {
			if slot.SameCell(t) {
				return true
			}
		}
	}
	return false
}
