package solver

import (
	"github.com/harborview/timetable-api/internal/models"
)

// RepairOutcome summarises one repair pass over a schedule.
type RepairOutcome struct {
	MovesApplied int
	Exhausted    []models.Violation
}

// Repairer removes hard violations with bounded local moves. For each
// violated unit it tries candidate rooms first, then candidate slot sets,
// then candidate teachers. Room changes go first because they disturb nothing
// else the unit depends on. The first move that lowers the hard count is
// kept; a move is never accepted if it raises it, so repair cannot regress a
// schedule.
type Repairer struct {
	problem *Problem
	eval    *Evaluator
	budget  int
}

// NewRepairer builds a repairer with a per-violation move budget.
func NewRepairer(p *Problem, eval *Evaluator, budget int) *Repairer {
	if budget < 1 {
		budget = 1
	}
	return &Repairer{problem: p, eval: eval, budget: budget}
}

// Repair mutates the schedule in place until no repairable hard violation
// remains or every remaining violation has exhausted its budget.
func (r *Repairer) Repair(s *Schedule) RepairOutcome {
	var outcome RepairOutcome
	attempted := map[string]bool{}

	for {
		ev := r.eval.Evaluate(s)
		if ev.Fitness.HardCount == 0 {
			return outcome
		}

		progressed := false
		for _, v := range ev.Violations {
			if v.Type.Severity() != models.SeverityHard {
				continue
			}
			idx := r.problem.UnitIndex(v.UnitID)
			if idx < 0 || r.problem.Locked(idx) || attempted[v.UnitID] {
				continue
			}
			if r.repairUnit(s, idx, ev.Fitness.HardCount) {
				outcome.MovesApplied++
				progressed = true
				break
			}
			attempted[v.UnitID] = true
			outcome.Exhausted = append(outcome.Exhausted, v)
		}

		if !progressed {
			return outcome
		}
	}
}

// repairUnit tries up to the budget of candidate moves for one unit and keeps
// the first that lowers the schedule's hard count.
func (r *Repairer) repairUnit(s *Schedule, idx, baseline int) bool {
	p := r.problem
	current := s.Assignments[idx]
	tried := 0

	attempt := func(teacherID, roomID string, slots []models.TimeSlot) (bool, bool) {
		tried++
		if err := s.ApplyMove(idx, teacherID, roomID, slots); err != nil {
			return false, tried >= r.budget
		}
		after := r.eval.Evaluate(s)
		if after.Fitness.HardCount < baseline {
			return true, true
		}
		s.Assignments[idx] = cloneAssignment(current)
		return false, tried >= r.budget
	}

	for _, ri := range p.candidateRooms[idx] {
		roomID := p.Catalog.Rooms[ri].ID
		if roomID == current.RoomID {
			continue
		}
		if ok, done := attempt(current.TeacherID, roomID, current.Slots); ok {
			return true
		} else if done {
			return false
		}
	}

	for _, slots := range p.candidateSlotSets[idx] {
		if sameCells(slots, current.Slots) {
			continue
		}
		if ok, done := attempt(current.TeacherID, current.RoomID, slots); ok {
			return true
		} else if done {
			return false
		}
	}

	for _, ti := range p.candidateTeachers[idx] {
		teacherID := p.Catalog.Teachers[ti].ID
		if teacherID == current.TeacherID {
			continue
		}
		if ok, done := attempt(teacherID, current.RoomID, current.Slots); ok {
			return true
		} else if done {
			return false
		}
	}

	return false
}

func sameCells(a, b []models.TimeSlot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].SameCell(b[i]) {
			return false
		}
	}
	return true
}
