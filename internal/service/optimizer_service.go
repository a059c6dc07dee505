package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/harborview/timetable-api/internal/dto"
	"github.com/harborview/timetable-api/internal/models"
	"github.com/harborview/timetable-api/internal/solver"
	"github.com/harborview/timetable-api/pkg/config"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
	"github.com/harborview/timetable-api/pkg/jobs"
)

type optimizationStore interface {
	ListConfigs(ctx context.Context) ([]models.OptimizationConfig, error)
	FindConfig(ctx context.Context, id string) (*models.OptimizationConfig, error)
	FindDefaultConfig(ctx context.Context) (*models.OptimizationConfig, error)
	CreateConfig(ctx context.Context, config *models.OptimizationConfig) error
	UpdateConfig(ctx context.Context, config *models.OptimizationConfig) error
	DeleteConfig(ctx context.Context, id string) error
	CreateRun(ctx context.Context, run *models.OptimizationRun) error
	FindRun(ctx context.Context, id string) (*models.OptimizationRun, error)
	ListRuns(ctx context.Context, termID string, limit int) ([]models.OptimizationRun, error)
	MarkRunning(ctx context.Context, id string, startedAt time.Time) error
	MarkFinished(ctx context.Context, run *models.OptimizationRun) error
	SaveViolations(ctx context.Context, runID string, violations []models.Violation) error
	ListViolations(ctx context.Context, runID string) ([]models.ViolationRecord, error)
}

type scheduleStore interface {
	ReplaceForTerm(ctx context.Context, termID, runID string, assignments []models.Assignment, lockedUnits map[string]bool) error
}

type problemLoader interface {
	LoadProblem(ctx context.Context, termID string, weights models.WeightSet) (*solver.Problem, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type runObserver interface {
	ObserveRun(status string, generations int, elapsed time.Duration, hardCount int)
}

// OptimizerService owns the solver run lifecycle: stored parameter sets, run
// creation and queueing, background execution, and result retrieval. Runs
// execute on the in-process job queue; the HTTP request only enqueues.
type OptimizerService struct {
	repo     optimizationStore
	slots    scheduleStore
	catalog  problemLoader
	queue    jobDispatcher
	cache    reportCache
	metrics  runObserver
	validate *validator.Validate
	logger   *zap.Logger
	defaults config.SolverConfig
	cacheTTL time.Duration
}

// NewOptimizerService constructs the optimizer service.
func NewOptimizerService(repo optimizationStore, slots scheduleStore, catalog problemLoader, queue jobDispatcher, cache reportCache, metrics runObserver, validate *validator.Validate, logger *zap.Logger, defaults config.SolverConfig) *OptimizerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	ttl := defaults.ResultCacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &OptimizerService{
		repo:     repo,
		slots:    slots,
		catalog:  catalog,
		queue:    queue,
		cache:    cache,
		metrics:  metrics,
		validate: validate,
		logger:   logger,
		defaults: defaults,
		cacheTTL: ttl,
	}
}

// SetDispatcher binds the background queue. The queue is constructed after
// the service because the service is also its handler.
func (s *OptimizerService) SetDispatcher(queue jobDispatcher) {
	s.queue = queue
}

// StartRun validates the request, records a queued run, and dispatches it to
// the background queue.
func (s *OptimizerService) StartRun(ctx context.Context, req dto.StartRunRequest, actorID string) (*dto.RunResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run request")
	}

	cfg, err := s.resolveConfig(ctx, req.ConfigID)
	if err != nil {
		return nil, err
	}

	run := &models.OptimizationRun{
		TermID:      req.TermID,
		ConfigID:    cfg.ID,
		Status:      models.RunStatusQueued,
		RequestedBy: actorID,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record run")
	}

	payload, _ := json.Marshal(runJobPayload{RunID: run.ID, Seed: req.Seed})
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: "optimizer_run", Payload: payload}); err != nil {
		s.failRun(ctx, run, fmt.Sprintf("enqueue failed: %v", err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue run")
	}

	resp := runToResponse(*run)
	return &resp, nil
}

type runJobPayload struct {
	RunID string `json:"run_id"`
	Seed  int64  `json:"seed"`
}

// HandleJob is the queue handler executing one solver run end to end.
func (s *OptimizerService) HandleJob(ctx context.Context, job jobs.Job) error {
	var payload runJobPayload
	switch raw := job.Payload.(type) {
	case []byte:
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("decode run payload: %w", err)
		}
	default:
		payload.RunID = job.ID
	}

	run, err := s.repo.FindRun(ctx, payload.RunID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", payload.RunID, err)
	}
	if run.Status != models.RunStatusQueued {
		s.logger.Warn("skipping run in unexpected state",
			zap.String("run_id", run.ID), zap.String("status", string(run.Status)))
		return nil
	}

	startedAt := time.Now()
	if err := s.repo.MarkRunning(ctx, run.ID, startedAt); err != nil {
		return fmt.Errorf("mark run %s running: %w", run.ID, err)
	}

	result, err := s.execute(ctx, run, payload.Seed)
	if err != nil {
		s.failRun(ctx, run, err.Error())
		if s.metrics != nil {
			s.metrics.ObserveRun(string(models.RunStatusFailed), 0, time.Since(startedAt), 0)
		}
		// The failure is recorded on the run; retrying a solver run from
		// the queue would only repeat it.
		return nil
	}

	finishedAt := time.Now()
	run.Status = result.Status
	run.Generations = result.Generations
	run.BestHardCount = result.Fitness.HardCount
	run.BestSoftScore = result.Fitness.SoftScore
	run.FinishedAt = &finishedAt
	if err := s.repo.MarkFinished(ctx, run); err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}

	if s.metrics != nil {
		s.metrics.ObserveRun(string(result.Status), result.Generations, result.Elapsed, result.Fitness.HardCount)
	}
	s.cacheReport(ctx, run, result.Violations)

	s.logger.Info("solver run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(result.Status)),
		zap.Int("generations", result.Generations),
		zap.Int("hard_count", result.Fitness.HardCount),
		zap.Float64("soft_score", result.Fitness.SoftScore),
		zap.Duration("elapsed", result.Elapsed))
	return nil
}

// execute runs the engine and persists its output. Partial results persist
// like completed ones; the violation report carries the difference.
func (s *OptimizerService) execute(ctx context.Context, run *models.OptimizationRun, seed int64) (*solver.Result, error) {
	cfg, err := s.resolveConfig(ctx, run.ConfigID)
	if err != nil {
		return nil, err
	}
	weights, err := cfg.ParseWeights()
	if err != nil {
		return nil, err
	}

	problem, err := s.catalog.LoadProblem(ctx, run.TermID, weights)
	if err != nil {
		return nil, err
	}

	opts := s.engineOptions(cfg)
	opts.Seed = seed
	engine := solver.NewEngine(problem, opts, s.logger.With(zap.String("run_id", run.ID)))
	result, err := engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	lockedUnits := map[string]bool{}
	for i, a := range result.Best.Assignments {
		if problem.Locked(i) {
			lockedUnits[a.UnitID] = true
		}
	}
	if err := s.slots.ReplaceForTerm(ctx, run.TermID, run.ID, result.Best.Assignments, lockedUnits); err != nil {
		return nil, fmt.Errorf("persist schedule: %w", err)
	}
	if err := s.repo.SaveViolations(ctx, run.ID, result.Violations); err != nil {
		return nil, fmt.Errorf("persist violations: %w", err)
	}
	return result, nil
}

func (s *OptimizerService) engineOptions(cfg *models.OptimizationConfig) solver.Options {
	return solver.Options{
		PopulationSize:  orInt(cfg.PopulationSize, s.defaults.PopulationSize),
		MaxGenerations:  orInt(cfg.MaxGenerations, s.defaults.MaxGenerations),
		MutationRate:    orFloat(cfg.MutationRate, s.defaults.MutationRate),
		CrossoverRate:   orFloat(cfg.CrossoverRate, s.defaults.CrossoverRate),
		EliteSize:       orInt(cfg.EliteSize, s.defaults.EliteSize),
		TournamentSize:  orInt(cfg.TournamentSize, s.defaults.TournamentSize),
		MaxRuntime:      orDuration(time.Duration(cfg.MaxRuntimeSeconds)*time.Second, s.defaults.MaxRuntime),
		StagnationLimit: orInt(cfg.StagnationLimit, s.defaults.StagnationLimit),
		TargetHardCount: cfg.TargetHardCount,
		TargetSoftScore: cfg.TargetSoftScore,
		ThreadCount:     orInt(cfg.ThreadCount, s.defaults.ThreadCount),
		RepairBudget:    s.defaults.RepairBudget,
		LogFrequency:    orInt(cfg.LogFrequency, s.defaults.LogFrequency),
		Hybrid:          cfg.Algorithm == models.AlgorithmHybrid,
	}
}

// resolveConfig loads the named parameter set, the stored default, or a
// synthetic one built from service configuration, in that order.
func (s *OptimizerService) resolveConfig(ctx context.Context, configID string) (*models.OptimizationConfig, error) {
	if configID != "" {
		cfg, err := s.repo.FindConfig(ctx, configID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization config not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load config")
		}
		return cfg, nil
	}

	cfg, err := s.repo.FindDefaultConfig(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default config")
	}

	return &models.OptimizationConfig{
		Name:              "environment defaults",
		Algorithm:         models.AlgorithmGenetic,
		PopulationSize:    s.defaults.PopulationSize,
		MaxGenerations:    s.defaults.MaxGenerations,
		MutationRate:      s.defaults.MutationRate,
		CrossoverRate:     s.defaults.CrossoverRate,
		EliteSize:         s.defaults.EliteSize,
		TournamentSize:    s.defaults.TournamentSize,
		MaxRuntimeSeconds: int(s.defaults.MaxRuntime / time.Second),
		StagnationLimit:   s.defaults.StagnationLimit,
		ThreadCount:       s.defaults.ThreadCount,
		LogFrequency:      s.defaults.LogFrequency,
	}, nil
}

func (s *OptimizerService) failRun(ctx context.Context, run *models.OptimizationRun, message string) {
	now := time.Now()
	run.Status = models.RunStatusFailed
	run.Error = &message
	run.FinishedAt = &now
	if err := s.repo.MarkFinished(ctx, run); err != nil {
		s.logger.Error("failed to record run failure",
			zap.String("run_id", run.ID), zap.Error(err))
	}
}

func runReportCacheKey(runID string) string {
	return "optimizer:run:" + runID
}

func (s *OptimizerService) cacheReport(ctx context.Context, run *models.OptimizationRun, violations []models.Violation) {
	if s.cache == nil {
		return
	}
	report := dto.RunReportResponse{Run: runToResponse(*run)}
	for _, v := range violations {
		report.Violations = append(report.Violations, dto.ViolationResponse{
			Type: string(v.Type), UnitID: v.UnitID, Penalty: v.Penalty, Detail: v.Detail,
		})
	}
	if err := s.cache.Set(ctx, runReportCacheKey(run.ID), report, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache run report", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// GetRunReport returns a run with its violation report, served from cache
// when a fresh copy exists.
func (s *OptimizerService) GetRunReport(ctx context.Context, runID string) (*dto.RunReportResponse, error) {
	if s.cache != nil {
		var cached dto.RunReportResponse
		if err := s.cache.Get(ctx, runReportCacheKey(runID), &cached); err == nil {
			return &cached, nil
		}
	}

	run, err := s.repo.FindRun(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}
	records, err := s.repo.ListViolations(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load violations")
	}

	report := &dto.RunReportResponse{Run: runToResponse(*run)}
	for _, record := range records {
		report.Violations = append(report.Violations, dto.ViolationResponse{
			Type: string(record.Type), UnitID: record.UnitID, Penalty: record.Penalty, Detail: record.Detail,
		})
	}
	return report, nil
}

// ListRuns returns recent runs for a term.
func (s *OptimizerService) ListRuns(ctx context.Context, termID string, limit int) ([]dto.RunResponse, error) {
	runs, err := s.repo.ListRuns(ctx, termID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list runs")
	}
	out := make([]dto.RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, runToResponse(run))
	}
	return out, nil
}

// ListConfigs returns the stored parameter sets.
func (s *OptimizerService) ListConfigs(ctx context.Context) ([]dto.OptimizationConfigResponse, error) {
	configs, err := s.repo.ListConfigs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configs")
	}
	out := make([]dto.OptimizationConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		resp, err := configToResponse(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// CreateConfig stores a new parameter set.
func (s *OptimizerService) CreateConfig(ctx context.Context, req dto.OptimizationConfigRequest) (*dto.OptimizationConfigResponse, error) {
	cfg, err := s.configFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateConfig(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create config")
	}
	resp, err := configToResponse(*cfg)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateConfig rewrites a parameter set.
func (s *OptimizerService) UpdateConfig(ctx context.Context, id string, req dto.OptimizationConfigRequest) (*dto.OptimizationConfigResponse, error) {
	if _, err := s.repo.FindConfig(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization config not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load config")
	}
	cfg, err := s.configFromRequest(req)
	if err != nil {
		return nil, err
	}
	cfg.ID = id
	if err := s.repo.UpdateConfig(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update config")
	}
	resp, err := configToResponse(*cfg)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteConfig removes a parameter set.
func (s *OptimizerService) DeleteConfig(ctx context.Context, id string) error {
	if err := s.repo.DeleteConfig(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete config")
	}
	return nil
}

func (s *OptimizerService) configFromRequest(req dto.OptimizationConfigRequest) (*models.OptimizationConfig, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid config")
	}
	for key := range req.Weights {
		if !knownConstraint(key) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown constraint type %s", key))
		}
	}

	cfg := &models.OptimizationConfig{
		Name:              req.Name,
		Description:       req.Description,
		Algorithm:         models.OptimizationAlgorithm(req.Algorithm),
		PopulationSize:    req.PopulationSize,
		MaxGenerations:    req.MaxGenerations,
		MutationRate:      req.MutationRate,
		CrossoverRate:     req.CrossoverRate,
		EliteSize:         req.EliteSize,
		TournamentSize:    req.TournamentSize,
		MaxRuntimeSeconds: req.MaxRuntimeSeconds,
		StagnationLimit:   req.StagnationLimit,
		TargetHardCount:   req.TargetHardCount,
		TargetSoftScore:   req.TargetSoftScore,
		ThreadCount:       req.ThreadCount,
		LogFrequency:      orInt(req.LogFrequency, 10),
		IsDefault:         req.IsDefault,
	}
	if len(req.Weights) > 0 {
		raw, err := json.Marshal(req.Weights)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weights")
		}
		cfg.Weights = types.JSONText(raw)
	}
	return cfg, nil
}

func knownConstraint(key string) bool {
	t := models.ConstraintType(key)
	for _, known := range models.HardConstraintTypes {
		if t == known {
			return true
		}
	}
	for _, known := range models.SoftConstraintTypes {
		if t == known {
			return true
		}
	}
	return false
}

func runToResponse(run models.OptimizationRun) dto.RunResponse {
	resp := dto.RunResponse{
		ID:            run.ID,
		TermID:        run.TermID,
		ConfigID:      run.ConfigID,
		Status:        string(run.Status),
		Generations:   run.Generations,
		BestHardCount: run.BestHardCount,
		BestSoftScore: run.BestSoftScore,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		CreatedAt:     run.CreatedAt,
	}
	if run.Error != nil {
		resp.Error = *run.Error
	}
	return resp
}

func configToResponse(cfg models.OptimizationConfig) (dto.OptimizationConfigResponse, error) {
	resp := dto.OptimizationConfigResponse{
		ID:                cfg.ID,
		Name:              cfg.Name,
		Description:       cfg.Description,
		Algorithm:         string(cfg.Algorithm),
		PopulationSize:    cfg.PopulationSize,
		MaxGenerations:    cfg.MaxGenerations,
		MutationRate:      cfg.MutationRate,
		CrossoverRate:     cfg.CrossoverRate,
		EliteSize:         cfg.EliteSize,
		TournamentSize:    cfg.TournamentSize,
		MaxRuntimeSeconds: cfg.MaxRuntimeSeconds,
		StagnationLimit:   cfg.StagnationLimit,
		TargetHardCount:   cfg.TargetHardCount,
		TargetSoftScore:   cfg.TargetSoftScore,
		ThreadCount:       cfg.ThreadCount,
		LogFrequency:      cfg.LogFrequency,
		IsDefault:         cfg.IsDefault,
		CreatedAt:         cfg.CreatedAt,
		UpdatedAt:         cfg.UpdatedAt,
	}
	weights, err := cfg.ParseWeights()
	if err != nil {
		return resp, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt weights on config")
	}
	if len(weights) > 0 {
		resp.Weights = make(map[string]float64, len(weights))
		for key, value := range weights {
			resp.Weights[string(key)] = value
		}
	}
	return resp, nil
}

func orInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func orFloat(value, fallback float64) float64 {
	if value > 0 {
		return value
	}
	return fallback
}

func orDuration(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
