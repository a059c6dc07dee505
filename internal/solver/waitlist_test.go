package solver

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/timetable-api/internal/models"
)

func waitlistFixture(maxEnrollment, maxWaitlist int, allowWaitlist bool) PlacementInput {
	return PlacementInput{
		Units: []models.PlanningUnit{{
			ID: "u-band", CourseID: "c-band", CourseName: "Concert Band", SectionNumber: 1,
			Subject: "MUSIC", SessionsPerWeek: 1,
			RoomType:      models.RoomTypeMusicRoom,
			MaxEnrollment: maxEnrollment, Enrollment: 0,
			AllowWaitlist: allowWaitlist, MaxWaitlist: maxWaitlist,
		}},
		Schedule: map[string]models.Assignment{
			"u-band": {UnitID: "u-band", TeacherID: "t-band", RoomID: "r-music",
				Slots: []models.TimeSlot{slotOn(models.Monday, 3)}},
		},
	}
}

func orderedRequests(course string, n int) []models.EnrollmentRequest {
	base := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	requests := make([]models.EnrollmentRequest, 0, n)
	for i := 0; i < n; i++ {
		requests = append(requests, models.EnrollmentRequest{
			ID:          fmt.Sprintf("req-%02d", i+1),
			StudentID:   fmt.Sprintf("stu-%02d", i+1),
			CourseID:    course,
			Priority:    float64(100 - i),
			RequestedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return requests
}

func TestPlaceFillsSeatsThenWaitlists(t *testing.T) {
	in := waitlistFixture(30, 5, true)
	in.Requests = orderedRequests("c-band", 32)

	out := NewWaitlistManager(nil).Place(in)
	require.Len(t, out.Placements, 32)

	enrolled, waitlisted := 0, 0
	for _, placement := range out.Placements {
		switch placement.Status {
		case models.PlacementEnrolled:
			enrolled++
		case models.PlacementWaitlisted:
			waitlisted++
		}
	}
	assert.Equal(t, 30, enrolled)
	assert.Equal(t, 2, waitlisted)

	require.Len(t, out.Delta.Added, 2)
	assert.Equal(t, 1, out.Delta.Added[0].Position)
	assert.Equal(t, 2, out.Delta.Added[1].Position)
	assert.Equal(t, models.WaitlistStatusActive, out.Delta.Added[0].Status)
	assert.Equal(t, models.WaitlistStatusActive, out.Delta.Added[1].Status)
	// The two lowest-priority requests are the ones waitlisted.
	assert.Equal(t, "stu-31", out.Delta.Added[0].StudentID)
	assert.Equal(t, "stu-32", out.Delta.Added[1].StudentID)
}

func TestPlaceIsIdempotent(t *testing.T) {
	in := waitlistFixture(30, 5, true)
	in.Requests = orderedRequests("c-band", 32)
	manager := NewWaitlistManager(nil)

	first := manager.Place(in)
	second := manager.Place(in)
	assert.Equal(t, first.Placements, second.Placements)
	assert.Equal(t, first.Delta, second.Delta)
}

func TestPlaceOrdersByPriorityThenRequestTime(t *testing.T) {
	in := waitlistFixture(1, 5, true)
	base := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	in.Requests = []models.EnrollmentRequest{
		{ID: "req-late", StudentID: "stu-late", CourseID: "c-band", Priority: 50, RequestedAt: base.Add(time.Hour)},
		{ID: "req-early", StudentID: "stu-early", CourseID: "c-band", Priority: 50, RequestedAt: base},
		{ID: "req-vip", StudentID: "stu-vip", CourseID: "c-band", Priority: 90, RequestedAt: base.Add(2 * time.Hour)},
	}

	out := NewWaitlistManager(nil).Place(in)
	require.Len(t, out.Placements, 3)
	assert.Equal(t, "stu-vip", out.Placements[0].StudentID)
	assert.Equal(t, models.PlacementEnrolled, out.Placements[0].Status)
	assert.Equal(t, "stu-early", out.Placements[1].StudentID)
	assert.Equal(t, models.PlacementWaitlisted, out.Placements[1].Status)
	assert.Equal(t, 1, out.Placements[1].WaitlistPosition)
	assert.Equal(t, "stu-late", out.Placements[2].StudentID)
	assert.Equal(t, 2, out.Placements[2].WaitlistPosition)
}

func TestPlaceDeniesWhenWaitlistClosed(t *testing.T) {
	in := waitlistFixture(1, 0, false)
	in.Requests = orderedRequests("c-band", 3)

	out := NewWaitlistManager(nil).Place(in)
	require.Len(t, out.Placements, 3)
	assert.Equal(t, models.PlacementEnrolled, out.Placements[0].Status)
	assert.Equal(t, models.PlacementDenied, out.Placements[1].Status)
	assert.Equal(t, models.PlacementDenied, out.Placements[2].Status)
	assert.Empty(t, out.Delta.Added)
}

func TestPlaceBypassesHeldRequests(t *testing.T) {
	in := waitlistFixture(30, 5, true)
	in.Requests = orderedRequests("c-band", 2)
	in.Requests[0].Hold = true

	out := NewWaitlistManager(nil).Place(in)
	require.Len(t, out.Placements, 2)
	assert.Equal(t, models.PlacementBypassed, out.Placements[0].Status)
	assert.Equal(t, models.BypassReasonHold, out.Placements[0].BypassReason)
	assert.Equal(t, models.PlacementEnrolled, out.Placements[1].Status)
	assert.Empty(t, out.Delta.Added, "a bypass must not consume a waitlist slot")
}

func TestPlaceBypassesUnitLimitOverflow(t *testing.T) {
	in := waitlistFixture(30, 5, true)
	in.Requests = orderedRequests("c-band", 1)
	in.Existing = []models.StudentEnrollment{{StudentID: "stu-01", UnitID: "u-other"}}
	in.MaxUnitsPerStudent = 1

	out := NewWaitlistManager(nil).Place(in)
	require.Len(t, out.Placements, 1)
	assert.Equal(t, models.PlacementBypassed, out.Placements[0].Status)
	assert.Equal(t, models.BypassReasonUnitLimit, out.Placements[0].BypassReason)
}

func TestPlaceBypassesScheduleConflicts(t *testing.T) {
	in := waitlistFixture(30, 5, true)
	in.Requests = orderedRequests("c-band", 1)
	// The student already sits in a class on the band's meeting cell.
	in.Existing = []models.StudentEnrollment{{StudentID: "stu-01", UnitID: "u-choir"}}
	in.Schedule["u-choir"] = models.Assignment{
		UnitID: "u-choir", TeacherID: "t-choir", RoomID: "r-choir",
		Slots: []models.TimeSlot{slotOn(models.Monday, 3)},
	}

	out := NewWaitlistManager(nil).Place(in)
	require.Len(t, out.Placements, 1)
	assert.Equal(t, models.PlacementBypassed, out.Placements[0].Status)
	assert.Equal(t, models.BypassReasonConflict, out.Placements[0].BypassReason)
	assert.Empty(t, out.Delta.Added)
}

func TestPlaceBalancesParallelSections(t *testing.T) {
	in := waitlistFixture(10, 5, true)
	second := in.Units[0]
	second.ID = "u-band-2"
	second.SectionNumber = 2
	second.Enrollment = 4
	in.Units[0].Enrollment = 6
	in.Units = append(in.Units, second)
	in.Schedule["u-band-2"] = models.Assignment{
		UnitID: "u-band-2", TeacherID: "t-band", RoomID: "r-music",
		Slots: []models.TimeSlot{slotOn(models.Tuesday, 3)},
	}
	in.Requests = orderedRequests("c-band", 2)

	out := NewWaitlistManager(nil).Place(in)
	require.Len(t, out.Placements, 2)
	assert.Equal(t, "u-band-2", out.Placements[0].UnitID, "less filled section fills first")
	assert.Equal(t, "u-band-2", out.Placements[1].UnitID)
}
