package solver

import (
	"github.com/harborview/timetable-api/internal/models"
)

// smallCatalog builds the baseline three-section fixture: two lead teachers,
// two classrooms, four periods a day. Teacher t-smith is certified only for
// science, unit u-sci enrolls 30 students and so fits only the larger room.
func smallCatalog() *models.Catalog {
	return &models.Catalog{
		TermID:        "term-fall",
		PeriodsPerDay: 4,
		Units: []models.PlanningUnit{
			{
				ID: "u-sci", CourseID: "c-sci", CourseName: "Biology", SectionNumber: 1,
				Subject: "SCIENCE", GradeLow: 9, GradeHigh: 10,
				SessionsPerWeek: 1, DurationMinutes: 50,
				RoomType:         models.RoomTypeClassroom,
				TargetEnrollment: 30, MinEnrollment: 10, MaxEnrollment: 34, Enrollment: 30,
			},
			{
				ID: "u-alg", CourseID: "c-alg", CourseName: "Algebra I", SectionNumber: 1,
				Subject: "MATH", GradeLow: 9, GradeHigh: 10,
				SessionsPerWeek: 1, DurationMinutes: 50,
				RoomType:         models.RoomTypeClassroom,
				TargetEnrollment: 18, MinEnrollment: 8, MaxEnrollment: 20, Enrollment: 18,
			},
			{
				ID: "u-geo", CourseID: "c-geo", CourseName: "Geometry", SectionNumber: 1,
				Subject: "MATH", GradeLow: 9, GradeHigh: 10,
				SessionsPerWeek: 1, DurationMinutes: 50,
				RoomType:         models.RoomTypeClassroom,
				TargetEnrollment: 16, MinEnrollment: 8, MaxEnrollment: 20, Enrollment: 16,
			},
		},
		Teachers: []models.Teacher{
			{
				ID: "t-smith", FullName: "Dana Smith", Role: models.TeacherRoleLead,
				Certifications:       []models.Certification{{Subject: "SCIENCE", GradeLow: 6, GradeHigh: 12}},
				TargetPeriodsPerWeek: 20, MaxPeriodsPerWeek: 25,
			},
			{
				ID: "t-jones", FullName: "Riley Jones", Role: models.TeacherRoleLead,
				Certifications:       []models.Certification{{Subject: "MATH", GradeLow: 6, GradeHigh: 12}},
				TargetPeriodsPerWeek: 20, MaxPeriodsPerWeek: 25,
			},
		},
		Rooms: []models.Room{
			{ID: "r-small", Name: "Room 101", Type: models.RoomTypeClassroom, Capacity: 20},
			{ID: "r-large", Name: "Room 201", Type: models.RoomTypeClassroom, Capacity: 35},
		},
	}
}

func mustProblem(catalog *models.Catalog) *Problem {
	p, err := NewProblem(catalog, nil)
	if err != nil {
		panic(err)
	}
	return p
}

func slotOn(day, period int) models.TimeSlot {
	return models.TimeSlot{Day: day, Period: period}
}
