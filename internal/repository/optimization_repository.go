package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harborview/timetable-api/internal/models"
)

// OptimizationRepository persists solver parameter sets, run records, and the
// violation reports attached to finished runs.
type OptimizationRepository struct {
	db *sqlx.DB
}

// NewOptimizationRepository constructs an OptimizationRepository.
func NewOptimizationRepository(db *sqlx.DB) *OptimizationRepository {
	return &OptimizationRepository{db: db}
}

// ListConfigs returns every stored parameter set, default first.
func (r *OptimizationRepository) ListConfigs(ctx context.Context) ([]models.OptimizationConfig, error) {
	var configs []models.OptimizationConfig
	query := `SELECT id, name, description, algorithm, population_size, max_generations, mutation_rate, crossover_rate,
        elite_size, tournament_size, max_runtime_seconds, stagnation_limit, target_hard_count, target_soft_score,
        thread_count, log_frequency, weights, is_default, created_at, updated_at
        FROM optimization_configs ORDER BY is_default DESC, name`
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list optimization configs: %w", err)
	}
	return configs, nil
}

// FindConfig fetches one parameter set by ID.
func (r *OptimizationRepository) FindConfig(ctx context.Context, id string) (*models.OptimizationConfig, error) {
	var config models.OptimizationConfig
	query := `SELECT id, name, description, algorithm, population_size, max_generations, mutation_rate, crossover_rate,
        elite_size, tournament_size, max_runtime_seconds, stagnation_limit, target_hard_count, target_soft_score,
        thread_count, log_frequency, weights, is_default, created_at, updated_at
        FROM optimization_configs WHERE id = $1`
	if err := r.db.GetContext(ctx, &config, query, id); err != nil {
		return nil, err
	}
	return &config, nil
}

// FindDefaultConfig fetches the parameter set marked as default.
func (r *OptimizationRepository) FindDefaultConfig(ctx context.Context) (*models.OptimizationConfig, error) {
	var config models.OptimizationConfig
	query := `SELECT id, name, description, algorithm, population_size, max_generations, mutation_rate, crossover_rate,
        elite_size, tournament_size, max_runtime_seconds, stagnation_limit, target_hard_count, target_soft_score,
        thread_count, log_frequency, weights, is_default, created_at, updated_at
        FROM optimization_configs WHERE is_default = true LIMIT 1`
	if err := r.db.GetContext(ctx, &config, query); err != nil {
		return nil, err
	}
	return &config, nil
}

// CreateConfig inserts a new parameter set.
func (r *OptimizationRepository) CreateConfig(ctx context.Context, config *models.OptimizationConfig) error {
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	now := time.Now()
	config.CreatedAt = now
	config.UpdatedAt = now

	query := `INSERT INTO optimization_configs
        (id, name, description, algorithm, population_size, max_generations, mutation_rate, crossover_rate,
         elite_size, tournament_size, max_runtime_seconds, stagnation_limit, target_hard_count, target_soft_score,
         thread_count, log_frequency, weights, is_default, created_at, updated_at)
        VALUES (:id, :name, :description, :algorithm, :population_size, :max_generations, :mutation_rate, :crossover_rate,
         :elite_size, :tournament_size, :max_runtime_seconds, :stagnation_limit, :target_hard_count, :target_soft_score,
         :thread_count, :log_frequency, :weights, :is_default, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("create optimization config: %w", err)
	}
	return nil
}

// UpdateConfig rewrites a parameter set.
func (r *OptimizationRepository) UpdateConfig(ctx context.Context, config *models.OptimizationConfig) error {
	config.UpdatedAt = time.Now()
	query := `UPDATE optimization_configs SET
        name = :name, description = :description, algorithm = :algorithm,
        population_size = :population_size, max_generations = :max_generations,
        mutation_rate = :mutation_rate, crossover_rate = :crossover_rate,
        elite_size = :elite_size, tournament_size = :tournament_size,
        max_runtime_seconds = :max_runtime_seconds, stagnation_limit = :stagnation_limit,
        target_hard_count = :target_hard_count, target_soft_score = :target_soft_score,
        thread_count = :thread_count, log_frequency = :log_frequency,
        weights = :weights, is_default = :is_default, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("update optimization config: %w", err)
	}
	return nil
}

// DeleteConfig removes a parameter set.
func (r *OptimizationRepository) DeleteConfig(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM optimization_configs WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete optimization config: %w", err)
	}
	return nil
}

// CreateRun records a queued solver run.
func (r *OptimizationRepository) CreateRun(ctx context.Context, run *models.OptimizationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.CreatedAt = time.Now()
	query := `INSERT INTO optimization_runs
        (id, term_id, config_id, status, requested_by, generations, best_hard_count, best_soft_score, created_at)
        VALUES (:id, :term_id, :config_id, :status, :requested_by, :generations, :best_hard_count, :best_soft_score, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create optimization run: %w", err)
	}
	return nil
}

// FindRun fetches one run by ID.
func (r *OptimizationRepository) FindRun(ctx context.Context, id string) (*models.OptimizationRun, error) {
	var run models.OptimizationRun
	query := `SELECT id, term_id, config_id, status, requested_by, generations, best_hard_count, best_soft_score,
        error, started_at, finished_at, created_at
        FROM optimization_runs WHERE id = $1`
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs for a term, newest first.
func (r *OptimizationRepository) ListRuns(ctx context.Context, termID string, limit int) ([]models.OptimizationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.OptimizationRun
	query := `SELECT id, term_id, config_id, status, requested_by, generations, best_hard_count, best_soft_score,
        error, started_at, finished_at, created_at
        FROM optimization_runs WHERE term_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &runs, query, termID, limit); err != nil {
		return nil, fmt.Errorf("list optimization runs: %w", err)
	}
	return runs, nil
}

// MarkRunning stamps the run as started.
func (r *OptimizationRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	query := "UPDATE optimization_runs SET status = $1, started_at = $2 WHERE id = $3"
	if _, err := r.db.ExecContext(ctx, query, models.RunStatusRunning, startedAt, id); err != nil {
		return fmt.Errorf("mark run %s running: %w", id, err)
	}
	return nil
}

// MarkFinished stamps the run terminal state and its best fitness.
func (r *OptimizationRepository) MarkFinished(ctx context.Context, run *models.OptimizationRun) error {
	query := `UPDATE optimization_runs SET status = :status, generations = :generations,
        best_hard_count = :best_hard_count, best_soft_score = :best_soft_score,
        error = :error, finished_at = :finished_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	return nil
}

// SaveViolations replaces the violation report for a run.
func (r *OptimizationRepository) SaveViolations(ctx context.Context, runID string, violations []models.Violation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin violations tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_violations WHERE run_id = $1", runID); err != nil {
		return fmt.Errorf("clear violations for run %s: %w", runID, err)
	}

	now := time.Now()
	query := `INSERT INTO run_violations (id, run_id, type, unit_id, penalty, detail, created_at)
        VALUES (:id, :run_id, :type, :unit_id, :penalty, :detail, :created_at)`
	for _, v := range violations {
		record := models.ViolationRecord{
			ID:        uuid.NewString(),
			RunID:     runID,
			Type:      v.Type,
			UnitID:    v.UnitID,
			Penalty:   v.Penalty,
			Detail:    v.Detail,
			CreatedAt: now,
		}
		if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
			return fmt.Errorf("insert violation for run %s: %w", runID, err)
		}
	}
	return tx.Commit()
}

// ListViolations returns the stored violation report for a run.
func (r *OptimizationRepository) ListViolations(ctx context.Context, runID string) ([]models.ViolationRecord, error) {
	var records []models.ViolationRecord
	query := `SELECT id, run_id, type, unit_id, penalty, detail, created_at
        FROM run_violations WHERE run_id = $1 ORDER BY penalty DESC, unit_id`
	if err := r.db.SelectContext(ctx, &records, query, runID); err != nil {
		return nil, fmt.Errorf("list violations for run %s: %w", runID, err)
	}
	return records, nil
}
