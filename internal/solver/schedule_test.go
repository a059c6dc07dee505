package solver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/timetable-api/internal/models"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
)

func TestNewInitialAssignsEveryUnit(t *testing.T) {
	p := mustProblem(smallCatalog())
	s := NewInitial(p, nil)

	require.Len(t, s.Assignments, 3)
	for i, a := range s.Assignments {
		unit := p.Catalog.Units[i]
		assert.Equal(t, unit.ID, a.UnitID)
		assert.NotEmpty(t, a.TeacherID)
		assert.NotEmpty(t, a.RoomID)
		assert.Len(t, a.Slots, unit.SessionsPerWeek)
	}
}

func TestNewInitialDeterministicSeedIsFeasible(t *testing.T) {
	p := mustProblem(smallCatalog())
	s := NewInitial(p, nil)

	ev := NewEvaluator(p).Evaluate(s)
	assert.Equal(t, 0, ev.Fitness.HardCount, "greedy seed on an easy catalog should be hard-feasible")
}

func TestNewInitialPreservesLocks(t *testing.T) {
	catalog := smallCatalog()
	lockSlots := []models.TimeSlot{slotOn(models.Wednesday, 3)}
	catalog.Locks = []models.ScheduleLock{{
		UnitID: "u-geo", TeacherID: "t-jones", RoomID: "r-small", Slots: lockSlots,
	}}
	p := mustProblem(catalog)

	for seed := int64(1); seed <= 5; seed++ {
		s := NewInitial(p, rand.New(rand.NewSource(seed)))
		a := s.Assignments[p.UnitIndex("u-geo")]
		assert.Equal(t, "t-jones", a.TeacherID)
		assert.Equal(t, "r-small", a.RoomID)
		require.Len(t, a.Slots, 1)
		assert.True(t, a.Slots[0].SameCell(lockSlots[0]))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := mustProblem(smallCatalog())
	s := NewInitial(p, nil)
	dup := s.Clone()

	idx := p.UnitIndex("u-alg")
	require.NoError(t, dup.ApplyMove(idx, "t-smith", "r-large", []models.TimeSlot{slotOn(models.Friday, 4)}))

	assert.NotEqual(t, s.Assignments[idx].TeacherID, dup.Assignments[idx].TeacherID)
	assert.False(t, s.Assignments[idx].Slots[0].SameCell(dup.Assignments[idx].Slots[0]))
}

func TestApplyMoveRejectsLockedUnit(t *testing.T) {
	catalog := smallCatalog()
	catalog.Locks = []models.ScheduleLock{{
		UnitID: "u-alg", TeacherID: "t-jones", RoomID: "r-small",
		Slots: []models.TimeSlot{slotOn(models.Monday, 1)},
	}}
	p := mustProblem(catalog)
	s := NewInitial(p, nil)

	idx := p.UnitIndex("u-alg")
	before := s.Assignments[idx]
	err := s.ApplyMove(idx, "t-smith", "r-large", []models.TimeSlot{slotOn(models.Friday, 4)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidMove.Code, appErrors.FromError(err).Code)
	assert.Equal(t, before, s.Assignments[idx])
}

func TestDiffListsChangedUnits(t *testing.T) {
	p := mustProblem(smallCatalog())
	s := NewInitial(p, nil)
	dup := s.Clone()

	assert.Empty(t, s.Diff(dup))

	idx := p.UnitIndex("u-geo")
	require.NoError(t, dup.ApplyMove(idx, "t-jones", "r-large", []models.TimeSlot{slotOn(models.Thursday, 2)}))
	assert.Equal(t, []int{idx}, s.Diff(dup))
}
