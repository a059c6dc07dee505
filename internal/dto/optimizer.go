package dto

import "time"

// StartRunRequest asks for a new solver run on a term.
type StartRunRequest struct {
	TermID   string `json:"termId" validate:"required"`
	ConfigID string `json:"configId" validate:"omitempty"`
	// Seed fixes the random stream for reproducible runs; zero lets the
	// engine seed itself.
	Seed int64 `json:"seed" validate:"omitempty"`
}

// RunResponse describes a solver run to clients.
type RunResponse struct {
	ID            string     `json:"id"`
	TermID        string     `json:"termId"`
	ConfigID      string     `json:"configId"`
	Status        string     `json:"status"`
	Generations   int        `json:"generations"`
	BestHardCount int        `json:"bestHardCount"`
	BestSoftScore float64    `json:"bestSoftScore"`
	Error         string     `json:"error,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// ViolationResponse is one unresolved violation in a run report.
type ViolationResponse struct {
	Type    string  `json:"type"`
	UnitID  string  `json:"unitId,omitempty"`
	Penalty float64 `json:"penalty"`
	Detail  string  `json:"detail,omitempty"`
}

// RunReportResponse pairs a run with its violation report.
type RunReportResponse struct {
	Run        RunResponse         `json:"run"`
	Violations []ViolationResponse `json:"violations"`
}

// OptimizationConfigRequest creates or updates a stored parameter set.
type OptimizationConfigRequest struct {
	Name              string             `json:"name" validate:"required"`
	Description       string             `json:"description" validate:"omitempty"`
	Algorithm         string             `json:"algorithm" validate:"required,oneof=GENETIC_ALGORITHM HYBRID"`
	PopulationSize    int                `json:"populationSize" validate:"required,min=2,max=2000"`
	MaxGenerations    int                `json:"maxGenerations" validate:"required,min=1,max=100000"`
	MutationRate      float64            `json:"mutationRate" validate:"required,gt=0,lte=1"`
	CrossoverRate     float64            `json:"crossoverRate" validate:"required,gt=0,lte=1"`
	EliteSize         int                `json:"eliteSize" validate:"required,min=1"`
	TournamentSize    int                `json:"tournamentSize" validate:"required,min=2"`
	MaxRuntimeSeconds int                `json:"maxRuntimeSeconds" validate:"required,min=1,max=86400"`
	StagnationLimit   int                `json:"stagnationLimit" validate:"required,min=1"`
	TargetHardCount   *int               `json:"targetHardCount" validate:"omitempty,min=0"`
	TargetSoftScore   *float64           `json:"targetSoftScore" validate:"omitempty,min=0"`
	ThreadCount       int                `json:"threadCount" validate:"required,min=1,max=64"`
	LogFrequency      int                `json:"logFrequency" validate:"omitempty,min=1"`
	Weights           map[string]float64 `json:"weights" validate:"omitempty"`
	IsDefault         bool               `json:"isDefault"`
}

// OptimizationConfigResponse exposes a stored parameter set.
type OptimizationConfigResponse struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	Algorithm         string             `json:"algorithm"`
	PopulationSize    int                `json:"populationSize"`
	MaxGenerations    int                `json:"maxGenerations"`
	MutationRate      float64            `json:"mutationRate"`
	CrossoverRate     float64            `json:"crossoverRate"`
	EliteSize         int                `json:"eliteSize"`
	TournamentSize    int                `json:"tournamentSize"`
	MaxRuntimeSeconds int                `json:"maxRuntimeSeconds"`
	StagnationLimit   int                `json:"stagnationLimit"`
	TargetHardCount   *int               `json:"targetHardCount,omitempty"`
	TargetSoftScore   *float64           `json:"targetSoftScore,omitempty"`
	ThreadCount       int                `json:"threadCount"`
	LogFrequency      int                `json:"logFrequency"`
	Weights           map[string]float64 `json:"weights,omitempty"`
	IsDefault         bool               `json:"isDefault"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// ScheduleSlotResponse is one meeting of the persisted timetable.
type ScheduleSlotResponse struct {
	UnitID    string `json:"unitId"`
	TeacherID string `json:"teacherId"`
	RoomID    string `json:"roomId"`
	Day       string `json:"day"`
	Period    int    `json:"period"`
	Locked    bool   `json:"locked"`
}
