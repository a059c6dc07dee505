package solver

import (
	"math/rand"

	"github.com/harborview/timetable-api/internal/models"
	"github.com/harborview/timetable-api/pkg/errors"
)

// Schedule is one candidate solution: an assignment per planning unit, indexed
// the same way as the problem's unit slice. Each Schedule owns its assignment
// arena outright, so two individuals never share mutable state.
type Schedule struct {
	problem     *Problem
	Assignments []models.Assignment
}

// cellKey packs a (day, period) pair into a single map key.
func cellKey(day, period int) int {
	return day<<8 | period
}

// occupancy tracks which cells each teacher and room already holds while a
// schedule is being built greedily.
type occupancy struct {
	teacher map[string]map[int]bool
	room    map[string]map[int]bool
}

func newOccupancy() *occupancy {
	return &occupancy{
		teacher: map[string]map[int]bool{},
		room:    map[string]map[int]bool{},
	}
}

func (o *occupancy) free(teacherID, roomID string, slots []models.TimeSlot) bool {
	for _, s := range slots {
		key := cellKey(s.Day, s.Period)
		if o.teacher[teacherID][key] || o.room[roomID][key] {
			return false
		}
	}
	return true
}

func (o *occupancy) take(teacherID, roomID string, slots []models.TimeSlot) {
	if o.teacher[teacherID] == nil {
		o.teacher[teacherID] = map[int]bool{}
	}
	if o.room[roomID] == nil {
		o.room[roomID] = map[int]bool{}
	}
	for _, s := range slots {
		key := cellKey(s.Day, s.Period)
		o.teacher[teacherID][key] = true
		o.room[roomID][key] = true
	}
}

// NewInitial builds a schedule by greedy seeding: units are visited in
// shuffled order (catalog order when rng is nil, which yields the
// deterministic seed individual), and each is assigned the first
// teacher/room/slot combination that is certified, available, and free of
// clashes with what has been placed so far. Units with no clean option get a
// best-effort placement; the violations surface through evaluation.
func NewInitial(p *Problem, rng *rand.Rand) *Schedule {
	s := &Schedule{
		problem:     p,
		Assignments: make([]models.Assignment, p.UnitCount()),
	}
	occ := newOccupancy()

	order := make([]int, p.UnitCount())
	for i := range order {
		order[i] = i
	}
	if rng != nil {
		rng.Shuffle(len(order), func(a, b int) {
			order[a], order[b] = order[b], order[a]
		})
	}

	// Locks are placed first so free units route around them.
	for idx, pinned := range p.lockedUnits {
		s.Assignments[idx] = cloneAssignment(pinned)
		occ.take(pinned.TeacherID, pinned.RoomID, pinned.Slots)
	}

	for _, idx := range order {
		if p.Locked(idx) {
			continue
		}
		s.Assignments[idx] = s.seedUnit(idx, occ, rng)
	}
	return s
}

func (s *Schedule) seedUnit(idx int, occ *occupancy, rng *rand.Rand) models.Assignment {
	p := s.problem
	unit := p.Catalog.Units[idx]

	teachers := orderedCopy(p.candidateTeachers[idx], rng)
	rooms := orderedCopy(p.candidateRooms[idx], rng)
	slotSets := p.candidateSlotSets[idx]
	slotOrder := make([]int, len(slotSets))
	for i := range slotOrder {
		slotOrder[i] = i
	}
	if rng != nil {
		rng.Shuffle(len(slotOrder), func(a, b int) {
			slotOrder[a], slotOrder[b] = slotOrder[b], slotOrder[a]
		})
	}

	for _, ti := range teachers {
		teacher := p.Catalog.Teachers[ti]
		for _, si := range slotOrder {
			slots := slotSets[si]
			if anySlotBlocked(teacher.Unavailable, slots) {
				continue
			}
			for _, ri := range rooms {
				room := p.Catalog.Rooms[ri]
				if anySlotBlocked(room.Unavailable, slots) {
					continue
				}
				if !occ.free(teacher.ID, room.ID, slots) {
					continue
				}
				occ.take(teacher.ID, room.ID, slots)
				a := models.Assignment{
					UnitID:    unit.ID,
					TeacherID: teacher.ID,
					RoomID:    room.ID,
					Slots:     cloneSlots(slots),
				}
				a.CoTeacherID = s.pickCoTeacher(idx, slots, occ)
				return a
			}
		}
	}

	// Best-effort fallback when no clean combination exists.
	teacherID := fallbackID(teachers, p.candidateTeachers[idx], len(p.Catalog.Teachers), func(i int) string { return p.Catalog.Teachers[i].ID })
	roomID := fallbackID(rooms, p.candidateRooms[idx], len(p.Catalog.Rooms), func(i int) string { return p.Catalog.Rooms[i].ID })
	slots := slotSets[0]
	occ.take(teacherID, roomID, slots)
	return models.Assignment{
		UnitID:    unit.ID,
		TeacherID: teacherID,
		RoomID:    roomID,
		Slots:     cloneSlots(slots),
	}
}

// pickCoTeacher assigns the first eligible co-teacher free across the slots,
// or none. Co-teacher gaps are a soft penalty, never a placement blocker.
func (s *Schedule) pickCoTeacher(idx int, slots []models.TimeSlot, occ *occupancy) string {
	p := s.problem
	if !p.Catalog.Units[idx].RequiresCoTeacher {
		return ""
	}
	for _, ci := range p.candidateCoTeachers[idx] {
		co := p.Catalog.Teachers[ci]
		if anySlotBlocked(co.Unavailable, slots) {
			continue
		}
		blocked := false
		for _, slot := range slots {
			if occ.teacher[co.ID][cellKey(slot.Day, slot.Period)] {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		for _, slot := range slots {
			if occ.teacher[co.ID] == nil {
				occ.teacher[co.ID] = map[int]bool{}
			}
			occ.teacher[co.ID][cellKey(slot.Day, slot.Period)] = true
		}
		return co.ID
	}
	return ""
}

// Clone deep-copies the schedule for independent variation.
func (s *Schedule) Clone() *Schedule {
	dup := &Schedule{
		problem:     s.problem,
		Assignments: make([]models.Assignment, len(s.Assignments)),
	}
	for i, a := range s.Assignments {
		dup.Assignments[i] = cloneAssignment(a)
	}
	return dup
}

// ApplyMove replaces the assignment of one unit. Locked units reject the move.
func (s *Schedule) ApplyMove(unitIdx int, teacherID, roomID string, slots []models.TimeSlot) error {
	if unitIdx < 0 || unitIdx >= len(s.Assignments) {
		return errors.Clone(errors.ErrInvalidMove, "unit index out of range")
	}
	if s.problem.Locked(unitIdx) {
		return errors.ErrInvalidMove
	}
	prev := s.Assignments[unitIdx]
	s.Assignments[unitIdx] = models.Assignment{
		UnitID:      prev.UnitID,
		TeacherID:   teacherID,
		CoTeacherID: prev.CoTeacherID,
		RoomID:      roomID,
		Slots:       cloneSlots(slots),
	}
	return nil
}

// SwapSlots exchanges the time slots of two non-locked units. Used by
// mutation; teachers and rooms stay put.
func (s *Schedule) SwapSlots(a, b int) error {
	if s.problem.Locked(a) || s.problem.Locked(b) {
		return errors.ErrInvalidMove
	}
	s.Assignments[a].Slots, s.Assignments[b].Slots = s.Assignments[b].Slots, s.Assignments[a].Slots
	return nil
}

// Diff lists the unit indexes whose assignments differ between two schedules.
func (s *Schedule) Diff(other *Schedule) []int {
	var changed []int
	for i := range s.Assignments {
		if !sameAssignment(s.Assignments[i], other.Assignments[i]) {
			changed = append(changed, i)
		}
	}
	return changed
}

func sameAssignment(a, b models.Assignment) bool {
	if a.TeacherID != b.TeacherID || a.RoomID != b.RoomID || a.CoTeacherID != b.CoTeacherID || len(a.Slots) != len(b.Slots) {
		return false
	}
	for i := range a.Slots {
		if !a.Slots[i].SameCell(b.Slots[i]) {
			return false
		}
	}
	return true
}

func cloneAssignment(a models.Assignment) models.Assignment {
	a.Slots = cloneSlots(a.Slots)
	return a
}

func cloneSlots(slots []models.TimeSlot) []models.TimeSlot {
	out := make([]models.TimeSlot, len(slots))
	copy(out, slots)
	return out
}

func anySlotBlocked(windows []models.TimeWindow, slots []models.TimeSlot) bool {
	for _, slot := range slots {
		if models.AnyWindowContains(windows, slot) {
			return true
		}
	}
	return false
}

func orderedCopy(candidates []int, rng *rand.Rand) []int {
	out := make([]int, len(candidates))
	copy(out, candidates)
	if rng != nil {
		rng.Shuffle(len(out), func(a, b int) {
			out[a], out[b] = out[b], out[a]
		})
	}
	return out
}

// fallbackID picks a best-effort resource when candidate lists are empty:
// first candidate when one exists, otherwise the first catalog entry.
func fallbackID(shuffled, original []int, total int, idOf func(int) string) string {
	if len(shuffled) > 0 {
		return idOf(shuffled[0])
	}
	if len(original) > 0 {
		return idOf(original[0])
	}
	if total > 0 {
		return idOf(0)
	}
	return ""
}
