package solver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/timetable-api/internal/models"
)

func TestRepairResolvesRoomDoubleBooking(t *testing.T) {
	p := mustProblem(smallCatalog())
	eval := NewEvaluator(p)
	s := NewInitial(p, nil)

	require.NoError(t, s.ApplyMove(p.UnitIndex("u-alg"), "t-jones", "r-small", []models.TimeSlot{slotOn(models.Monday, 2)}))
	require.NoError(t, s.ApplyMove(p.UnitIndex("u-geo"), "t-jones", "r-small", []models.TimeSlot{slotOn(models.Monday, 2)}))
	require.Greater(t, eval.Evaluate(s).Fitness.HardCount, 0)

	outcome := NewRepairer(p, eval, 8).Repair(s)
	assert.Greater(t, outcome.MovesApplied, 0)
	assert.Equal(t, 0, eval.Evaluate(s).Fitness.HardCount)
}

func TestRepairNeverIncreasesHardCount(t *testing.T) {
	p := mustProblem(smallCatalog())
	eval := NewEvaluator(p)
	repairer := NewRepairer(p, eval, 4)

	for seed := int64(1); seed <= 20; seed++ {
		s := NewInitial(p, rand.New(rand.NewSource(seed)))
		before := eval.Evaluate(s).Fitness.HardCount
		repairer.Repair(s)
		after := eval.Evaluate(s).Fitness.HardCount
		assert.LessOrEqual(t, after, before, "seed %d", seed)
	}
}

func TestRepairSkipsLockedUnits(t *testing.T) {
	catalog := smallCatalog()
	// Pin the science section into the undersized room; repair must leave the
	// pinned assignment alone even though it violates capacity.
	catalog.Locks = []models.ScheduleLock{{
		UnitID: "u-sci", TeacherID: "t-smith", RoomID: "r-small",
		Slots: []models.TimeSlot{slotOn(models.Monday, 1)},
	}}
	p := mustProblem(catalog)
	eval := NewEvaluator(p)
	s := NewInitial(p, nil)

	NewRepairer(p, eval, 8).Repair(s)

	pinned := s.Assignments[p.UnitIndex("u-sci")]
	assert.Equal(t, "r-small", pinned.RoomID)
	assert.Equal(t, 1, eval.Evaluate(s).Fitness.HardCount)
}

func TestRepairReportsExhaustionWithinBudget(t *testing.T) {
	catalog := smallCatalog()
	// Nothing can host 30 students: shrink the large room.
	catalog.Rooms[1].Capacity = 25
	p := mustProblem(catalog)
	eval := NewEvaluator(p)
	s := NewInitial(p, nil)
	require.Greater(t, eval.Evaluate(s).Fitness.HardCount, 0)

	outcome := NewRepairer(p, eval, 3).Repair(s)
	require.NotEmpty(t, outcome.Exhausted)
	assert.Equal(t, "u-sci", outcome.Exhausted[0].UnitID)
}
