package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleSlotRepositoryReplaceForTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_slots WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WithArgs(sqlmock.AnyArg(), "run-1", "term-1", "u-sci", "t-smith", "r-large", 1, 2, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WithArgs(sqlmock.AnyArg(), "run-1", "term-1", "u-alg", "t-jones", "r-small", 2, 3, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assignments := []models.Assignment{
		{UnitID: "u-sci", TeacherID: "t-smith", RoomID: "r-large",
			Slots: []models.TimeSlot{{Day: 1, Period: 2}}},
		{UnitID: "u-alg", TeacherID: "t-jones", RoomID: "r-small",
			Slots: []models.TimeSlot{{Day: 2, Period: 3}}},
	}
	err := repo.ReplaceForTerm(context.Background(), "term-1", "run-1", assignments, map[string]bool{"u-alg": true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSlotRepositoryReplaceForTermRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_slots WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.ReplaceForTerm(context.Background(), "term-1", "run-1", nil, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleSlotRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "run_id", "term_id", "unit_id", "teacher_id", "room_id", "day_of_week", "period", "locked", "created_at"}).
		AddRow("slot-1", "run-1", "term-1", "u-sci", "t-smith", "r-large", 1, 2, false, time.Now()).
		AddRow("slot-2", "run-1", "term-1", "u-sci", "t-smith", "r-large", 3, 2, false, time.Now())
	mock.ExpectQuery("SELECT id, run_id, term_id, unit_id, teacher_id, room_id, day_of_week, period, locked, created_at").
		WithArgs("term-1", "t-smith").
		WillReturnRows(rows)

	slots, err := repo.ListByTeacher(context.Background(), "term-1", "t-smith")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "u-sci", slots[0].UnitID)
	assert.Equal(t, 1, slots[0].DayOfWeek)
}
