package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// OptimizationAlgorithm selects the search strategy for a run.
type OptimizationAlgorithm string

const (
	AlgorithmGenetic OptimizationAlgorithm = "GENETIC_ALGORITHM"
	// AlgorithmHybrid runs the genetic engine with extra repair passes over
	// the elite set each generation.
	AlgorithmHybrid OptimizationAlgorithm = "HYBRID"
)

// Valid reports whether the algorithm is supported.
func (a OptimizationAlgorithm) Valid() bool {
	return a == AlgorithmGenetic || a == AlgorithmHybrid
}

// OptimizationConfig is a stored, named parameter set for solver runs.
// Constraint weight overrides are kept as JSON in the row and parsed into a
// typed WeightSet once at catalog load.
type OptimizationConfig struct {
	ID                string                `db:"id" json:"id"`
	Name              string                `db:"name" json:"name"`
	Description       string                `db:"description" json:"description,omitempty"`
	Algorithm         OptimizationAlgorithm `db:"algorithm" json:"algorithm"`
	PopulationSize    int                   `db:"population_size" json:"population_size"`
	MaxGenerations    int                   `db:"max_generations" json:"max_generations"`
	MutationRate      float64               `db:"mutation_rate" json:"mutation_rate"`
	CrossoverRate     float64               `db:"crossover_rate" json:"crossover_rate"`
	EliteSize         int                   `db:"elite_size" json:"elite_size"`
	TournamentSize    int                   `db:"tournament_size" json:"tournament_size"`
	MaxRuntimeSeconds int                   `db:"max_runtime_seconds" json:"max_runtime_seconds"`
	StagnationLimit   int                   `db:"stagnation_limit" json:"stagnation_limit"`
	TargetHardCount   *int                  `db:"target_hard_count" json:"target_hard_count,omitempty"`
	TargetSoftScore   *float64              `db:"target_soft_score" json:"target_soft_score,omitempty"`
	ThreadCount       int                   `db:"thread_count" json:"thread_count"`
	LogFrequency      int                   `db:"log_frequency" json:"log_frequency"`
	Weights           types.JSONText        `db:"weights" json:"weights,omitempty"`
	IsDefault         bool                  `db:"is_default" json:"is_default"`
	CreatedAt         time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time             `db:"updated_at" json:"updated_at"`
}

// ParseWeights decodes the stored weight overrides.
func (c OptimizationConfig) ParseWeights() (WeightSet, error) {
	if len(c.Weights) == 0 {
		return nil, nil
	}
	raw := map[string]float64{}
	if err := json.Unmarshal(c.Weights, &raw); err != nil {
		return nil, fmt.Errorf("parse constraint weights: %w", err)
	}
	set := make(WeightSet, len(raw))
	for key, value := range raw {
		set[ConstraintType(key)] = value
	}
	return set, nil
}

// RunStatus tracks the lifecycle of a solver run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusPartial marks a run that terminated with hard violations
	// remaining; the result is still returned with its violation list.
	RunStatusPartial RunStatus = "PARTIAL"
	RunStatusFailed  RunStatus = "FAILED"
)

// OptimizationRun records one solver execution for a term.
type OptimizationRun struct {
	ID            string     `db:"id" json:"id"`
	TermID        string     `db:"term_id" json:"term_id"`
	ConfigID      string     `db:"config_id" json:"config_id"`
	Status        RunStatus  `db:"status" json:"status"`
	RequestedBy   string     `db:"requested_by" json:"requested_by"`
	Generations   int        `db:"generations" json:"generations"`
	BestHardCount int        `db:"best_hard_count" json:"best_hard_count"`
	BestSoftScore float64    `db:"best_soft_score" json:"best_soft_score"`
	Error         *string    `db:"error" json:"error,omitempty"`
	StartedAt     *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt    *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ViolationRecord is a persisted violation from a finished run.
type ViolationRecord struct {
	ID        string         `db:"id" json:"id"`
	RunID     string         `db:"run_id" json:"run_id"`
	Type      ConstraintType `db:"type" json:"type"`
	UnitID    string         `db:"unit_id" json:"unit_id"`
	Penalty   float64        `db:"penalty" json:"penalty"`
	Detail    string         `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
