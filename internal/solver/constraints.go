package solver

import (
	"fmt"
	"sort"

	"github.com/harborview/timetable-api/internal/models"
)

// Evaluation is the scored outcome for one schedule.
type Evaluation struct {
	Fitness    models.Fitness
	Violations []models.Violation
}

// Evaluator scores schedules against the full constraint catalog. Evaluation
// is a pure function of the schedule and the problem's static inputs, so
// repeated scoring during search is reproducible and safe to run on
// concurrent workers.
type Evaluator struct {
	problem *Problem
	weights models.WeightSet
}

// NewEvaluator builds an evaluator using the problem's weight overrides.
func NewEvaluator(p *Problem) *Evaluator {
	return &Evaluator{problem: p, weights: p.Weights}
}

// Evaluate computes the (hard count, soft score) pair and the full violation
// list for the schedule. Hard violations each count once toward the hard
// count; soft penalties accumulate into the soft score.
func (e *Evaluator) Evaluate(s *Schedule) Evaluation {
	var out Evaluation
	catalog := e.problem.Catalog

	// Side indexes rebuilt per evaluation. Teacher and room load never lives
	// on the roster entities themselves.
	teacherCells := map[string]map[int]string{}
	roomCells := map[string]map[int]string{}
	teacherPeriods := map[string]int{}
	teacherDayLoad := map[string]map[int]int{}

	for i, a := range s.Assignments {
		unit := catalog.Units[i]
		e.checkAssignment(&out, unit, a)

		for _, slot := range a.Slots {
			key := cellKey(slot.Day, slot.Period)
			e.claimCell(&out, teacherCells, models.ConstraintTeacherDoubleBooked, a.TeacherID, key, unit.ID, slot)
			if a.CoTeacherID != "" {
				e.claimCell(&out, teacherCells, models.ConstraintTeacherDoubleBooked, a.CoTeacherID, key, unit.ID, slot)
			}
			e.claimCell(&out, roomCells, models.ConstraintRoomDoubleBooked, a.RoomID, key, unit.ID, slot)

			teacherPeriods[a.TeacherID]++
			if teacherDayLoad[a.TeacherID] == nil {
				teacherDayLoad[a.TeacherID] = map[int]int{}
			}
			teacherDayLoad[a.TeacherID][slot.Day]++
		}
	}

	e.checkEnrollmentBalance(&out)
	e.checkWorkload(&out, teacherPeriods)
	e.checkPlanningPeriods(&out, teacherDayLoad)

	return out
}

// claimCell records occupancy for one resource cell, emitting a double-booking
// violation when the cell is already held by another unit.
func (e *Evaluator) claimCell(out *Evaluation, cells map[string]map[int]string, t models.ConstraintType, resourceID string, key int, unitID string, slot models.TimeSlot) {
	if resourceID == "" {
		return
	}
	if cells[resourceID] == nil {
		cells[resourceID] = map[int]string{}
	}
	if holder, taken := cells[resourceID][key]; taken {
		e.hard(out, t, unitID, fmt.Sprintf("%s already holds day %d period %d for unit %s", resourceID, slot.Day, slot.Period, holder))
		return
	}
	cells[resourceID][key] = unitID
}

// checkAssignment evaluates the per-unit constraints that need no cross-unit
// state: certification, capacity, room fit, availability, and the consecutive
// meeting pattern.
func (e *Evaluator) checkAssignment(out *Evaluation, unit models.PlanningUnit, a models.Assignment) {
	teacher, teacherOK := e.problem.teacherByID(a.TeacherID)
	room, roomOK := e.problem.roomByID(a.RoomID)

	if !teacherOK || !teacher.CertifiedFor(unit.Subject, unit.GradeLow, unit.GradeHigh) {
		e.hard(out, models.ConstraintCertificationMismatch, unit.ID, fmt.Sprintf("teacher %s is not certified for %s grades %d-%d", a.TeacherID, unit.Subject, unit.GradeLow, unit.GradeHigh))
	}
	if roomOK {
		if room.Capacity < unit.Enrollment {
			e.hard(out, models.ConstraintRoomCapacityExceeded, unit.ID, fmt.Sprintf("room %s seats %d, section enrolls %d", room.ID, room.Capacity, unit.Enrollment))
		}
		if room.Type != unit.RoomType || !room.HasEquipment(unit.Equipment) {
			e.hard(out, models.ConstraintRoomTypeMismatch, unit.ID, fmt.Sprintf("room %s does not satisfy %s requirements", room.ID, unit.RoomType))
		}
		if anySlotBlocked(room.Unavailable, a.Slots) {
			e.hard(out, models.ConstraintRoomUnavailable, unit.ID, fmt.Sprintf("room %s is unavailable during a scheduled meeting", room.ID))
		}
	} else {
		e.hard(out, models.ConstraintRoomTypeMismatch, unit.ID, "no room assigned")
	}
	if teacherOK && anySlotBlocked(teacher.Unavailable, a.Slots) {
		e.hard(out, models.ConstraintTeacherUnavailable, unit.ID, fmt.Sprintf("teacher %s is unavailable during a scheduled meeting", teacher.ID))
	}
	if unit.RequiresConsecutive && !consecutiveSameDay(a.Slots) {
		e.hard(out, models.ConstraintConsecutivePeriodsViolated, unit.ID, "meetings are not contiguous periods on one day")
	}

	// Soft, per-unit.
	if teacherOK {
		preferred := len(teacher.PreferredRooms) == 0 || teacher.PrefersRoom(a.RoomID)
		if !preferred || teacher.RestrictsRoom(a.RoomID) {
			e.soft(out, models.ConstraintTeacherRoomPreference, unit.ID, 1, fmt.Sprintf("teacher %s would rather not teach in room %s", teacher.ID, a.RoomID))
		}
	}
	if unit.Enrollment < unit.MinEnrollment {
		e.soft(out, models.ConstraintMinimumEnrollmentUnmet, unit.ID, 1, fmt.Sprintf("section enrolls %d below minimum %d", unit.Enrollment, unit.MinEnrollment))
	}
	if unit.RequiresCoTeacher && a.CoTeacherID == "" {
		e.soft(out, models.ConstraintCoTeacherUnassigned, unit.ID, 1, "section requires a co-teacher and has none")
	}
}

// checkEnrollmentBalance penalises multi-section courses by squared deviation
// from each section's target enrollment.
func (e *Evaluator) checkEnrollmentBalance(out *Evaluation) {
	sections := map[string][]int{}
	for i, unit := range e.problem.Catalog.Units {
		sections[unit.CourseID] = append(sections[unit.CourseID], i)
	}

	courseIDs := make([]string, 0, len(sections))
	for id := range sections {
		courseIDs = append(courseIDs, id)
	}
	sort.Strings(courseIDs)

	for _, courseID := range courseIDs {
		idxs := sections[courseID]
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			unit := e.problem.Catalog.Units[i]
			dev := float64(unit.Enrollment - unit.TargetEnrollment)
			if dev == 0 {
				continue
			}
			e.soft(out, models.ConstraintEnrollmentImbalance, unit.ID, dev*dev, fmt.Sprintf("section enrolls %d against target %d", unit.Enrollment, unit.TargetEnrollment))
		}
	}
}

// checkWorkload penalises teachers assigned more weekly periods than their
// target. Load is derived from the schedule under evaluation, never stored.
func (e *Evaluator) checkWorkload(out *Evaluation, teacherPeriods map[string]int) {
	for _, teacher := range e.problem.Catalog.Teachers {
		load := teacherPeriods[teacher.ID]
		if teacher.TargetPeriodsPerWeek > 0 && load > teacher.TargetPeriodsPerWeek {
			excess := load - teacher.TargetPeriodsPerWeek
			e.soft(out, models.ConstraintTeacherWorkloadOverTarget, "", float64(excess), fmt.Sprintf("teacher %s carries %d periods against target %d", teacher.ID, load, teacher.TargetPeriodsPerWeek))
		}
	}
}

// checkPlanningPeriods penalises each teaching day on which a teacher who
// needs a planning period has every period filled.
func (e *Evaluator) checkPlanningPeriods(out *Evaluation, teacherDayLoad map[string]map[int]int) {
	periods := e.problem.Catalog.PeriodsPerDay
	for _, teacher := range e.problem.Catalog.Teachers {
		if !teacher.NeedsPlanningPeriod {
			continue
		}
		for day := models.Monday; day <= models.Friday; day++ {
			if teacherDayLoad[teacher.ID][day] >= periods {
				e.soft(out, models.ConstraintPlanningPeriodMissing, "", 1, fmt.Sprintf("teacher %s has no free period on %s", teacher.ID, models.DayName(day)))
			}
		}
	}
}

func (e *Evaluator) hard(out *Evaluation, t models.ConstraintType, unitID, detail string) {
	out.Fitness.HardCount++
	out.Violations = append(out.Violations, models.Violation{
		Type:    t,
		UnitID:  unitID,
		Penalty: e.weights.Weight(t),
		Detail:  detail,
	})
}

func (e *Evaluator) soft(out *Evaluation, t models.ConstraintType, unitID string, magnitude float64, detail string) {
	penalty := e.weights.Weight(t) * magnitude
	out.Fitness.SoftScore += penalty
	out.Violations = append(out.Violations, models.Violation{
		Type:    t,
		UnitID:  unitID,
		Penalty: penalty,
		Detail:  detail,
	})
}

// consecutiveSameDay reports whether the slots form one contiguous run of
// periods on a single day.
func consecutiveSameDay(slots []models.TimeSlot) bool {
	if len(slots) <= 1 {
		return true
	}
	sorted := cloneSlots(slots)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Period < sorted[b].Period
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Day != sorted[0].Day || sorted[i].Period != sorted[i-1].Period+1 {
			return false
		}
	}
	return true
}
