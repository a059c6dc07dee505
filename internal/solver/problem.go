package solver

import (
	"fmt"
	"sort"

	"github.com/harborview/timetable-api/internal/models"
	"github.com/harborview/timetable-api/pkg/errors"
)

// Problem is the preprocessed, read-only form of a catalog that a solver run
// operates on. All lookups the hot loop needs are resolved here once: index
// maps, per-unit candidate teachers and rooms, and the enumerated slot sets
// that satisfy each unit's weekly meeting pattern.
type Problem struct {
	Catalog *models.Catalog
	Weights models.WeightSet

	unitIndex    map[string]int
	teacherIndex map[string]int
	roomIndex    map[string]int

	// Per unit index. Candidate lists hold only hard-feasible choices; an
	// empty list means the unit has no feasible option of that kind and the
	// greedy seeder falls back to a best-effort infeasible placement.
	candidateTeachers [][]int
	candidateRooms    [][]int
	candidateSlotSets [][][]models.TimeSlot

	// Co-teachers eligible per unit, only populated when the unit asks for one.
	candidateCoTeachers [][]int

	locked      []bool
	lockedUnits map[int]models.Assignment
}

// NewProblem validates the catalog, resolves the lock set, and precomputes
// candidate lists. It fails fast with ErrInvalidCatalog on malformed input and
// ErrInfeasibleLocks when pinned assignments already conflict.
func NewProblem(catalog *models.Catalog, weights models.WeightSet) (*Problem, error) {
	if catalog == nil {
		return nil, errors.Clone(errors.ErrInvalidCatalog, "catalog is required")
	}
	if catalog.PeriodsPerDay < 1 {
		return nil, errors.Clone(errors.ErrInvalidCatalog, "periods per day must be at least 1")
	}
	if len(catalog.Units) == 0 {
		return nil, errors.Clone(errors.ErrInvalidCatalog, "catalog has no planning units")
	}
	if len(catalog.Teachers) == 0 || len(catalog.Rooms) == 0 {
		return nil, errors.Clone(errors.ErrInvalidCatalog, "catalog needs at least one teacher and one room")
	}

	p := &Problem{
		Catalog:      catalog,
		Weights:      weights,
		unitIndex:    make(map[string]int, len(catalog.Units)),
		teacherIndex: make(map[string]int, len(catalog.Teachers)),
		roomIndex:    make(map[string]int, len(catalog.Rooms)),
		locked:       make([]bool, len(catalog.Units)),
		lockedUnits:  make(map[int]models.Assignment, len(catalog.Locks)),
	}

	for i, unit := range catalog.Units {
		if unit.ID == "" {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("unit at position %d has no id", i))
		}
		if _, dup := p.unitIndex[unit.ID]; dup {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("duplicate unit id %s", unit.ID))
		}
		if unit.SessionsPerWeek < 1 {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("unit %s requires %d sessions per week", unit.ID, unit.SessionsPerWeek))
		}
		if unit.RequiresConsecutive && unit.SessionsPerWeek > catalog.PeriodsPerDay {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("unit %s needs %d consecutive periods but the day has %d", unit.ID, unit.SessionsPerWeek, catalog.PeriodsPerDay))
		}
		if !unit.RequiresConsecutive && unit.SessionsPerWeek > models.DaysPerWeek {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("unit %s needs %d weekly sessions but the week has %d days", unit.ID, unit.SessionsPerWeek, models.DaysPerWeek))
		}
		if unit.MaxEnrollment > 0 && unit.MinEnrollment > unit.MaxEnrollment {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("unit %s min enrollment exceeds max", unit.ID))
		}
		p.unitIndex[unit.ID] = i
	}

	for i, t := range catalog.Teachers {
		if t.ID == "" {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("teacher at position %d has no id", i))
		}
		if _, dup := p.teacherIndex[t.ID]; dup {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("duplicate teacher id %s", t.ID))
		}
		p.teacherIndex[t.ID] = i
	}

	for i, r := range catalog.Rooms {
		if r.ID == "" {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("room at position %d has no id", i))
		}
		if _, dup := p.roomIndex[r.ID]; dup {
			return nil, errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("duplicate room id %s", r.ID))
		}
		p.roomIndex[r.ID] = i
	}

	p.buildCandidates()

	if err := p.resolveLocks(); err != nil {
		return nil, err
	}

	return p, nil
}

// UnitCount returns the number of planning units in the problem.
func (p *Problem) UnitCount() int {
	return len(p.Catalog.Units)
}

// UnitIndex resolves a unit id, returning -1 when unknown.
func (p *Problem) UnitIndex(id string) int {
	if i, ok := p.unitIndex[id]; ok {
		return i
	}
	return -1
}

// Locked reports whether the unit at the index carries a pinned assignment.
func (p *Problem) Locked(unitIdx int) bool {
	return p.locked[unitIdx]
}

// LockedAssignment returns the pinned assignment for a unit, if any.
func (p *Problem) LockedAssignment(unitIdx int) (models.Assignment, bool) {
	a, ok := p.lockedUnits[unitIdx]
	return a, ok
}

func (p *Problem) teacherByID(id string) (models.Teacher, bool) {
	if i, ok := p.teacherIndex[id]; ok {
		return p.Catalog.Teachers[i], true
	}
	return models.Teacher{}, false
}

func (p *Problem) roomByID(id string) (models.Room, bool) {
	if i, ok := p.roomIndex[id]; ok {
		return p.Catalog.Rooms[i], true
	}
	return models.Room{}, false
}

func (p *Problem) buildCandidates() {
	n := len(p.Catalog.Units)
	p.candidateTeachers = make([][]int, n)
	p.candidateCoTeachers = make([][]int, n)
	p.candidateRooms = make([][]int, n)
	p.candidateSlotSets = make([][][]models.TimeSlot, n)

	for i, unit := range p.Catalog.Units {
		for ti, t := range p.Catalog.Teachers {
			if t.Role == models.TeacherRoleCo {
				if unit.RequiresCoTeacher {
					p.candidateCoTeachers[i] = append(p.candidateCoTeachers[i], ti)
				}
				continue
			}
			if t.CertifiedFor(unit.Subject, unit.GradeLow, unit.GradeHigh) {
				p.candidateTeachers[i] = append(p.candidateTeachers[i], ti)
			}
		}

		for ri, r := range p.Catalog.Rooms {
			if r.Type != unit.RoomType {
				continue
			}
			if r.Capacity < unit.Enrollment {
				continue
			}
			if !r.HasEquipment(unit.Equipment) {
				continue
			}
			p.candidateRooms[i] = append(p.candidateRooms[i], ri)
		}

		p.candidateSlotSets[i] = p.enumerateSlotSets(unit)
	}
}

// enumerateSlotSets lists every weekly meeting pattern satisfying the unit:
// contiguous same-day periods when consecutive meetings are required, and the
// same period across distinct days otherwise. Holding one period steady across
// days keeps student week patterns stable, which is how master schedules are
// built in practice.
func (p *Problem) enumerateSlotSets(unit models.PlanningUnit) [][]models.TimeSlot {
	periods := p.Catalog.PeriodsPerDay
	k := unit.SessionsPerWeek
	var sets [][]models.TimeSlot

	if unit.RequiresConsecutive && k > 1 {
		for day := models.Monday; day <= models.Friday; day++ {
			for start := 1; start+k-1 <= periods; start++ {
				set := make([]models.TimeSlot, 0, k)
				for off := 0; off < k; off++ {
					set = append(set, p.slotAt(day, start+off))
				}
				sets = append(sets, set)
			}
		}
		return sets
	}

	dayCombos := combinations(models.DaysPerWeek, k)
	for period := 1; period <= periods; period++ {
		for _, combo := range dayCombos {
			set := make([]models.TimeSlot, 0, k)
			for _, day := range combo {
				set = append(set, p.slotAt(day, period))
			}
			sets = append(sets, set)
		}
	}
	return sets
}

func (p *Problem) slotAt(day, period int) models.TimeSlot {
	slot := models.TimeSlot{Day: day, Period: period}
	for _, bp := range p.Catalog.BellSchedule {
		if bp.Period == period {
			slot.StartMinute = bp.StartMinute
			slot.EndMinute = bp.EndMinute
			break
		}
	}
	return slot
}

// combinations enumerates k-element subsets of days 1..n in ascending order.
func combinations(n, k int) [][]int {
	if k > n {
		k = n
	}
	var out [][]int
	combo := make([]int, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			picked := make([]int, k)
			copy(picked, combo)
			out = append(out, picked)
			return
		}
		for day := start; day <= n; day++ {
			combo[depth] = day
			walk(day+1, depth+1)
		}
	}
	walk(1, 0)
	return out
}

// resolveLocks validates each lock against the catalog and rejects lock sets
// that conflict among themselves.
func (p *Problem) resolveLocks() error {
	type occupancy struct {
		unitID string
	}
	teacherCells := map[string]occupancy{}
	roomCells := map[string]occupancy{}

	for _, lock := range p.Catalog.Locks {
		idx, ok := p.unitIndex[lock.UnitID]
		if !ok {
			return errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("lock references unknown unit %s", lock.UnitID))
		}
		if _, dup := p.lockedUnits[idx]; dup {
			return errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("unit %s is locked twice", lock.UnitID))
		}
		if _, ok := p.teacherByID(lock.TeacherID); !ok {
			return errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("lock on unit %s references unknown teacher %s", lock.UnitID, lock.TeacherID))
		}
		if _, ok := p.roomByID(lock.RoomID); !ok {
			return errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("lock on unit %s references unknown room %s", lock.UnitID, lock.RoomID))
		}
		unit := p.Catalog.Units[idx]
		if len(lock.Slots) != unit.SessionsPerWeek {
			return errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("lock on unit %s pins %d slots but the unit meets %d times", lock.UnitID, len(lock.Slots), unit.SessionsPerWeek))
		}

		for _, slot := range lock.Slots {
			if slot.Day < models.Monday || slot.Day > models.Friday || slot.Period < 1 || slot.Period > p.Catalog.PeriodsPerDay {
				return errors.Clone(errors.ErrInvalidCatalog, fmt.Sprintf("lock on unit %s pins slot outside the bell schedule", lock.UnitID))
			}
			tKey := fmt.Sprintf("%s/%d/%d", lock.TeacherID, slot.Day, slot.Period)
			if prev, clash := teacherCells[tKey]; clash {
				return errors.Clone(errors.ErrInfeasibleLocks, fmt.Sprintf("locked units %s and %s both pin teacher %s on day %d period %d", prev.unitID, lock.UnitID, lock.TeacherID, slot.Day, slot.Period))
			}
			teacherCells[tKey] = occupancy{unitID: lock.UnitID}

			rKey := fmt.Sprintf("%s/%d/%d", lock.RoomID, slot.Day, slot.Period)
			if prev, clash := roomCells[rKey]; clash {
				return errors.Clone(errors.ErrInfeasibleLocks, fmt.Sprintf("locked units %s and %s both pin room %s on day %d period %d", prev.unitID, lock.UnitID, lock.RoomID, slot.Day, slot.Period))
			}
			roomCells[rKey] = occupancy{unitID: lock.UnitID}
		}

		slots := make([]models.TimeSlot, len(lock.Slots))
		copy(slots, lock.Slots)
		sort.Slice(slots, func(a, b int) bool {
			if slots[a].Day != slots[b].Day {
				return slots[a].Day < slots[b].Day
			}
			return slots[a].Period < slots[b].Period
		})

		p.locked[idx] = true
		p.lockedUnits[idx] = models.Assignment{
			UnitID:    lock.UnitID,
			TeacherID: lock.TeacherID,
			RoomID:    lock.RoomID,
			Slots:     slots,
		}
	}
	return nil
}
