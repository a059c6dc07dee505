package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/timetable-api/internal/dto"
	"github.com/harborview/timetable-api/internal/models"
	"github.com/harborview/timetable-api/internal/solver"
	"github.com/harborview/timetable-api/pkg/config"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
	"github.com/harborview/timetable-api/pkg/jobs"
)

// testCatalog is the three-section fixture used across the service tests.
func testCatalog() *models.Catalog {
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

type optimizationStoreStub struct {
	configs       map[string]*models.OptimizationConfig
	defaultConfig *models.OptimizationConfig
	runs          map[string]*models.OptimizationRun
	violations    map[string][]models.Violation
	nextRun       int
}

func newOptimizationStoreStub() *optimizationStoreStub {
	return &optimizationStoreStub{
		configs:    map[string]*models.OptimizationConfig{},
		runs:       map[string]*models.OptimizationRun{},
		violations: map[string][]models.Violation{},
	}
}

func (s *optimizationStoreStub) ListConfigs(context.Context) ([]models.OptimizationConfig, error) {
	out := []models.OptimizationConfig{}
	for _, cfg := range s.configs {
		out = append(out, *cfg)
	}
	return out, nil
}

func (s *optimizationStoreStub) FindConfig(_ context.Context, id string) (*models.OptimizationConfig, error) {
	cfg, ok := s.configs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *cfg
	return &clone, nil
}

func (s *optimizationStoreStub) FindDefaultConfig(context.Context) (*models.OptimizationConfig, error) {
	if s.defaultConfig == nil {
		return nil, sql.ErrNoRows
	}
	clone := *s.defaultConfig
	return &clone, nil
}

func (s *optimizationStoreStub) CreateConfig(_ context.Context, cfg *models.OptimizationConfig) error {
	if cfg.ID == "" {
		cfg.ID = fmt.Sprintf("cfg-%d", len(s.configs)+1)
	}
	clone := *cfg
	s.configs[cfg.ID] = &clone
	return nil
}

func (s *optimizationStoreStub) UpdateConfig(_ context.Context, cfg *models.OptimizationConfig) error {
	clone := *cfg
	s.configs[cfg.ID] = &clone
	return nil
}

func (s *optimizationStoreStub) DeleteConfig(_ context.Context, id string) error {
	delete(s.configs, id)
	return nil
}

func (s *optimizationStoreStub) CreateRun(_ context.Context, run *models.OptimizationRun) error {
	s.nextRun++
	run.ID = fmt.Sprintf("run-%d", s.nextRun)
	run.CreatedAt = time.Now()
	clone := *run
	s.runs[run.ID] = &clone
	return nil
}

func (s *optimizationStoreStub) FindRun(_ context.Context, id string) (*models.OptimizationRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *run
	return &clone, nil
}

func (s *optimizationStoreStub) ListRuns(_ context.Context, termID string, _ int) ([]models.OptimizationRun, error) {
	out := []models.OptimizationRun{}
	for _, run := range s.runs {
		if run.TermID == termID {
			out = append(out, *run)
		}
	}
	return out, nil
}

func (s *optimizationStoreStub) MarkRunning(_ context.Context, id string, startedAt time.Time) error {
	run, ok := s.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	run.Status = models.RunStatusRunning
	run.StartedAt = &startedAt
	return nil
}

func (s *optimizationStoreStub) MarkFinished(_ context.Context, run *models.OptimizationRun) error {
	clone := *run
	s.runs[run.ID] = &clone
	return nil
}

func (s *optimizationStoreStub) SaveViolations(_ context.Context, runID string, violations []models.Violation) error {
	s.violations[runID] = append([]models.Violation{}, violations...)
	return nil
}

func (s *optimizationStoreStub) ListViolations(_ context.Context, runID string) ([]models.ViolationRecord, error) {
	out := []models.ViolationRecord{}
	for _, v := range s.violations[runID] {
		out = append(out, models.ViolationRecord{
			RunID: runID, Type: v.Type, UnitID: v.UnitID, Penalty: v.Penalty, Detail: v.Detail,
		})
	}
	return out, nil
}

type scheduleStoreStub struct {
	termID      string
	runID       string
	assignments []models.Assignment
	locked      map[string]bool
	err         error
}

func (s *scheduleStoreStub) ReplaceForTerm(_ context.Context, termID, runID string, assignments []models.Assignment, lockedUnits map[string]bool) error {
	if s.err != nil {
		return s.err
	}
	s.termID = termID
	s.runID = runID
	s.assignments = assignments
	s.locked = lockedUnits
	return nil
}

type problemLoaderStub struct {
	catalog *models.Catalog
	err     error
}

func (s *problemLoaderStub) LoadProblem(_ context.Context, _ string, weights models.WeightSet) (*solver.Problem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return solver.NewProblem(s.catalog, weights)
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (s *queueStub) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

type cacheStub struct {
	entries map[string][]byte
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: map[string][]byte{}}
}

func (s *cacheStub) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

type metricsStub struct {
	runStatuses []string
	placements  [][4]int
}

func (s *metricsStub) ObserveRun(status string, _ int, _ time.Duration, _ int) {
	s.runStatuses = append(s.runStatuses, status)
}

func (s *metricsStub) ObservePlacement(enrolled, waitlisted, bypassed, denied int) {
	s.placements = append(s.placements, [4]int{enrolled, waitlisted, bypassed, denied})
}

func testSolverDefaults() config.SolverConfig {
	return config.SolverConfig{
		PopulationSize:  10,
		MaxGenerations:  30,
		MutationRate:    0.1,
		CrossoverRate:   0.8,
		EliteSize:       2,
		TournamentSize:  3,
		MaxRuntime:      10 * time.Second,
		StagnationLimit: 20,
		ThreadCount:     2,
		RepairBudget:    8,
		LogFrequency:    10,
		ResultCacheTTL:  time.Minute,
	}
}

type optimizerFixture struct {
	svc     *OptimizerService
	store   *optimizationStoreStub
	slots   *scheduleStoreStub
	queue   *queueStub
	cache   *cacheStub
	metrics *metricsStub
}

func newOptimizerFixture() *optimizerFixture {
	store := newOptimizationStoreStub()
	slots := &scheduleStoreStub{}
	queue := &queueStub{}
	cache := newCacheStub()
	metrics := &metricsStub{}
	loader := &problemLoaderStub{catalog: testCatalog()}
	svc := NewOptimizerService(store, slots, loader, queue, cache, metrics, nil, nil, testSolverDefaults())
	return &optimizerFixture{svc: svc, store: store, slots: slots, queue: queue, cache: cache, metrics: metrics}
}

func TestOptimizerServiceStartRunQueuesJob(t *testing.T) {
	f := newOptimizerFixture()

	resp, err := f.svc.StartRun(context.Background(), dto.StartRunRequest{TermID: "term-fall", Seed: 42}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, string(models.RunStatusQueued), resp.Status)
	assert.Equal(t, "term-fall", resp.TermID)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, resp.ID, f.queue.jobs[0].ID)
	assert.Equal(t, "optimizer_run", f.queue.jobs[0].Type)

	stored, err := f.store.FindRun(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusQueued, stored.Status)
	assert.Equal(t, "admin-1", stored.RequestedBy)
}

func TestOptimizerServiceStartRunUnknownConfig(t *testing.T) {
	f := newOptimizerFixture()

	_, err := f.svc.StartRun(context.Background(), dto.StartRunRequest{TermID: "term-fall", ConfigID: "missing"}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.queue.jobs)
}

func TestOptimizerServiceStartRunEnqueueFailureFailsRun(t *testing.T) {
	f := newOptimizerFixture()
	f.queue.err = errors.New("queue full")

	_, err := f.svc.StartRun(context.Background(), dto.StartRunRequest{TermID: "term-fall"}, "admin-1")
	require.Error(t, err)

	stored, err := f.store.FindRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, "enqueue failed")
}

func TestOptimizerServiceHandleJobCompletesRun(t *testing.T) {
	f := newOptimizerFixture()

	resp, err := f.svc.StartRun(context.Background(), dto.StartRunRequest{TermID: "term-fall", Seed: 42}, "admin-1")
	require.NoError(t, err)

	err = f.svc.HandleJob(context.Background(), f.queue.jobs[0])
	require.NoError(t, err)

	stored, err := f.store.FindRun(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
	assert.Equal(t, 0, stored.BestHardCount)
	require.NotNil(t, stored.FinishedAt)

	assert.Equal(t, "term-fall", f.slots.termID)
	assert.Equal(t, resp.ID, f.slots.runID)
	assert.Len(t, f.slots.assignments, 2)

	require.Len(t, f.metrics.runStatuses, 1)
	assert.Equal(t, string(models.RunStatusCompleted), f.metrics.runStatuses[0])

	report, err := f.svc.GetRunReport(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.RunStatusCompleted), report.Run.Status)
}

func TestOptimizerServiceHandleJobSkipsNonQueuedRun(t *testing.T) {
	f := newOptimizerFixture()

	resp, err := f.svc.StartRun(context.Background(), dto.StartRunRequest{TermID: "term-fall"}, "admin-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleJob(context.Background(), f.queue.jobs[0]))
	require.NoError(t, f.svc.HandleJob(context.Background(), f.queue.jobs[0]))

	stored, err := f.store.FindRun(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
	assert.Len(t, f.metrics.runStatuses, 1)
}

func TestOptimizerServiceHandleJobRecordsFailure(t *testing.T) {
	f := newOptimizerFixture()
	loader := &problemLoaderStub{err: errors.New("catalog unavailable")}
	f.svc.catalog = loader

	resp, err := f.svc.StartRun(context.Background(), dto.StartRunRequest{TermID: "term-fall"}, "admin-1")
	require.NoError(t, err)

	// The handler swallows the error after recording it on the run.
	require.NoError(t, f.svc.HandleJob(context.Background(), f.queue.jobs[0]))

	stored, err := f.store.FindRun(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, "catalog unavailable")
}

func TestOptimizerServiceGetRunReportFallsBackToStore(t *testing.T) {
	f := newOptimizerFixture()
	run := &models.OptimizationRun{TermID: "term-fall", Status: models.RunStatusPartial}
	require.NoError(t, f.store.CreateRun(context.Background(), run))
	require.NoError(t, f.store.SaveViolations(context.Background(), run.ID, []models.Violation{
		{Type: models.ConstraintRoomCapacityExceeded, UnitID: "u-sci", Penalty: 1000, Detail: "enrollment 30 exceeds capacity 20"},
	}))

	report, err := f.svc.GetRunReport(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.RunStatusPartial), report.Run.Status)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, string(models.ConstraintRoomCapacityExceeded), report.Violations[0].Type)
}

func TestOptimizerServiceGetRunReportUnknownRun(t *testing.T) {
	f := newOptimizerFixture()

	_, err := f.svc.GetRunReport(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOptimizerServiceCreateConfigRejectsUnknownWeight(t *testing.T) {
	f := newOptimizerFixture()

	req := dto.OptimizationConfigRequest{
		Name: "tight", Algorithm: string(models.AlgorithmGenetic),
		PopulationSize: 50, MaxGenerations: 200, MutationRate: 0.1, CrossoverRate: 0.8,
		EliteSize: 5, TournamentSize: 5, MaxRuntimeSeconds: 60, StagnationLimit: 50, ThreadCount: 4,
		Weights: map[string]float64{"NOT_A_CONSTRAINT": 5},
	}
	_, err := f.svc.CreateConfig(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOptimizerServiceConfigRoundTrip(t *testing.T) {
	f := newOptimizerFixture()

	req := dto.OptimizationConfigRequest{
		Name: "nightly", Description: "overnight deep search",
		Algorithm:      string(models.AlgorithmHybrid),
		PopulationSize: 200, MaxGenerations: 2000, MutationRate: 0.15, CrossoverRate: 0.85,
		EliteSize: 10, TournamentSize: 7, MaxRuntimeSeconds: 3600, StagnationLimit: 300, ThreadCount: 8,
		Weights:   map[string]float64{string(models.ConstraintTeacherDoubleBooked): 2000},
		IsDefault: true,
	}
	created, err := f.svc.CreateConfig(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 2000.0, created.Weights[string(models.ConstraintTeacherDoubleBooked)])

	list, err := f.svc.ListConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "nightly", list[0].Name)

	req.Name = "nightly-v2"
	updated, err := f.svc.UpdateConfig(context.Background(), created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "nightly-v2", updated.Name)

	require.NoError(t, f.svc.DeleteConfig(context.Background(), created.ID))
	list, err = f.svc.ListConfigs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
