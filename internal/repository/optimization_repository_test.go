package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/timetable-api/internal/models"
)

func TestOptimizationRepositoryFindDefaultConfig(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "algorithm", "population_size", "max_generations", "mutation_rate", "crossover_rate",
		"elite_size", "tournament_size", "max_runtime_seconds", "stagnation_limit", "target_hard_count", "target_soft_score",
		"thread_count", "log_frequency", "weights", "is_default", "created_at", "updated_at",
	}).AddRow("cfg-1", "Default", "", "GENETIC_ALGORITHM", 100, 1000, 0.1, 0.8,
		5, 5, 300, 100, nil, nil, 4, 10, []byte(`{"TEACHER_DOUBLE_BOOKED":2000}`), true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, description, algorithm").
		WillReturnRows(rows)

	config, err := repo.FindDefaultConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", config.ID)
	assert.Equal(t, models.AlgorithmGenetic, config.Algorithm)
	assert.Equal(t, 100, config.PopulationSize)

	weights, err := config.ParseWeights()
	require.NoError(t, err)
	assert.Equal(t, 2000.0, weights.Weight(models.ConstraintTeacherDoubleBooked))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRepositoryCreateRun(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO optimization_runs")).
		WithArgs(sqlmock.AnyArg(), "term-1", "cfg-1", string(models.RunStatusQueued), "user-1", 0, 0, 0.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.OptimizationRun{
		TermID:      "term-1",
		ConfigID:    "cfg-1",
		Status:      models.RunStatusQueued,
		RequestedBy: "user-1",
	}
	require.NoError(t, repo.CreateRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizationRepositorySaveViolations(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOptimizationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM run_violations WHERE run_id = $1")).
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_violations")).
		WithArgs(sqlmock.AnyArg(), "run-1", string(models.ConstraintRoomCapacityExceeded), "u-sci", 1000.0, "room r-small seats 20, section enrolls 30", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	violations := []models.Violation{{
		Type:    models.ConstraintRoomCapacityExceeded,
		UnitID:  "u-sci",
		Penalty: 1000,
		Detail:  "room r-small seats 20, section enrolls 30",
	}}
	require.NoError(t, repo.SaveViolations(context.Background(), "run-1", violations))
	assert.NoError(t, mock.ExpectationsWereMet())
}
