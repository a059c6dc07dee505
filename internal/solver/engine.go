package solver

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harborview/timetable-api/internal/models"
)

// Options holds the tunable parameters for one engine run.
type Options struct {
	PopulationSize  int
	MaxGenerations  int
	MutationRate    float64
	CrossoverRate   float64
	EliteSize       int
	TournamentSize  int
	MaxRuntime      time.Duration
	StagnationLimit int
	TargetHardCount *int
	TargetSoftScore *float64
	ThreadCount     int
	RepairBudget    int
	LogFrequency    int
	// Seed fixes the random stream; zero seeds from the clock.
	Seed int64
	// Hybrid runs an extra repair pass over the elite set each generation.
	Hybrid bool
	// OnGeneration, when set, observes the best fitness found so far after
	// each completed generation.
	OnGeneration func(generation int, best models.Fitness)
}

func (o Options) normalized() Options {
	if o.PopulationSize < 2 {
		o.PopulationSize = 100
	}
	if o.MaxGenerations < 1 {
		o.MaxGenerations = 1000
	}
	if o.MutationRate <= 0 {
		o.MutationRate = 0.1
	}
	if o.CrossoverRate <= 0 {
		o.CrossoverRate = 0.8
	}
	if o.EliteSize < 1 {
		o.EliteSize = 5
	}
	if o.EliteSize >= o.PopulationSize {
		o.EliteSize = o.PopulationSize - 1
	}
	if o.TournamentSize < 2 {
		o.TournamentSize = 5
	}
	if o.TournamentSize > o.PopulationSize {
		o.TournamentSize = o.PopulationSize
	}
	if o.MaxRuntime <= 0 {
		o.MaxRuntime = 5 * time.Minute
	}
	if o.StagnationLimit < 1 {
		o.StagnationLimit = 100
	}
	if o.ThreadCount < 1 {
		o.ThreadCount = 4
	}
	if o.RepairBudget < 1 {
		o.RepairBudget = 8
	}
	if o.LogFrequency < 1 {
		o.LogFrequency = 10
	}
	return o
}

// individual pairs a schedule with its score.
type individual struct {
	schedule *Schedule
	eval     Evaluation
}

// Result is the engine's terminal state: the best schedule found, its score
// and violation list, and how the run ended. A run that terminates with hard
// violations remaining is reported as PARTIAL with the violations attached,
// never silently dropped.
type Result struct {
	Best        *Schedule
	Fitness     models.Fitness
	Violations  []models.Violation
	Status      models.RunStatus
	Generations int
	Elapsed     time.Duration
}

// Engine drives population-based search over a problem: randomized greedy
// initialization, tournament selection, subset crossover with repair,
// mutation, and elitism, terminated by generation, runtime, stagnation, or
// target fitness.
type Engine struct {
	problem *Problem
	eval    *Evaluator
	repair  *Repairer
	opts    Options
	log     *zap.Logger
}

// NewEngine builds an engine over a prepared problem. A nil logger is
// replaced with a no-op logger.
func NewEngine(p *Problem, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.normalized()
	eval := NewEvaluator(p)
	return &Engine{
		problem: p,
		eval:    eval,
		repair:  NewRepairer(p, eval, opts.RepairBudget),
		opts:    opts,
		log:     log,
	}
}

// Run executes the search until a termination condition fires. Cancellation
// and the runtime budget are checked at generation boundaries only, so a
// running evaluation batch always completes first.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	seed := e.opts.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	pop := e.initialPopulation(rng)
	e.scoreAll(pop)
	sortByFitness(pop)

	best := clone(pop[0])
	stagnant := 0
	generations := 0

	for gen := 1; gen <= e.opts.MaxGenerations; gen++ {
		if reason := e.shouldStop(ctx, start, stagnant, best.eval.Fitness); reason != "" {
			e.log.Info("solver terminating",
				zap.String("reason", reason),
				zap.Int("generation", generations),
				zap.Int("hard_count", best.eval.Fitness.HardCount),
				zap.Float64("soft_score", best.eval.Fitness.SoftScore))
			break
		}

		next := make([]*individual, 0, e.opts.PopulationSize)
		for i := 0; i < e.opts.EliteSize; i++ {
			next = append(next, clone(pop[i]))
		}

		fresh := make([]*individual, 0, e.opts.PopulationSize-e.opts.EliteSize)
		for len(next)+len(fresh) < e.opts.PopulationSize {
			child := e.breed(pop, rng)
			fresh = append(fresh, &individual{schedule: child})
		}

		e.scoreAll(fresh)
		if e.opts.Hybrid {
			for _, elite := range next {
				e.repair.Repair(elite.schedule)
				elite.eval = e.eval.Evaluate(elite.schedule)
			}
		}
		pop = append(next, fresh...)
		sortByFitness(pop)
		generations = gen

		if pop[0].eval.Fitness.Better(best.eval.Fitness) {
			best = clone(pop[0])
			stagnant = 0
		} else {
			stagnant++
		}

		if e.opts.OnGeneration != nil {
			e.opts.OnGeneration(gen, best.eval.Fitness)
		}
		if gen%e.opts.LogFrequency == 0 {
			e.log.Info("solver progress",
				zap.Int("generation", gen),
				zap.Int("hard_count", best.eval.Fitness.HardCount),
				zap.Float64("soft_score", best.eval.Fitness.SoftScore),
				zap.Int("stagnant", stagnant))
		}
	}

	status := models.RunStatusCompleted
	if best.eval.Fitness.HardCount > 0 {
		status = models.RunStatusPartial
	}
	return &Result{
		Best:        best.schedule,
		Fitness:     best.eval.Fitness,
		Violations:  best.eval.Violations,
		Status:      status,
		Generations: generations,
		Elapsed:     time.Since(start),
	}, nil
}

// initialPopulation seeds one deterministic individual plus randomized greedy
// fills for the rest.
func (e *Engine) initialPopulation(rng *rand.Rand) []*individual {
	pop := make([]*individual, 0, e.opts.PopulationSize)
	pop = append(pop, &individual{schedule: NewInitial(e.problem, nil)})
	for len(pop) < e.opts.PopulationSize {
		child := NewInitial(e.problem, rand.New(rand.NewSource(rng.Int63())))
		pop = append(pop, &individual{schedule: child})
	}
	return pop
}

func (e *Engine) shouldStop(ctx context.Context, start time.Time, stagnant int, best models.Fitness) string {
	select {
	case <-ctx.Done():
		return "cancelled"
	default:
	}
	if time.Since(start) >= e.opts.MaxRuntime {
		return "runtime budget"
	}
	if stagnant >= e.opts.StagnationLimit {
		return "stagnation"
	}
	if e.targetReached(best) {
		return "target fitness"
	}
	return ""
}

func (e *Engine) targetReached(best models.Fitness) bool {
	if e.opts.TargetHardCount == nil {
		return false
	}
	if best.HardCount > *e.opts.TargetHardCount {
		return false
	}
	if e.opts.TargetSoftScore != nil && best.SoftScore > *e.opts.TargetSoftScore {
		return false
	}
	return true
}

// breed produces one child via tournament selection, crossover, and mutation.
// Variation is single-threaded; only scoring fans out to workers.
func (e *Engine) breed(pop []*individual, rng *rand.Rand) *Schedule {
	parent := e.tournament(pop, rng)
	var child *Schedule
	if rng.Float64() < e.opts.CrossoverRate {
		other := e.tournament(pop, rng)
		child = e.crossover(parent, other, rng)
	} else {
		child = parent.schedule.Clone()
	}
	if rng.Float64() < e.opts.MutationRate {
		e.mutate(child, rng)
	}
	return child
}

// tournament samples tournamentSize individuals and returns the best.
func (e *Engine) tournament(pop []*individual, rng *rand.Rand) *individual {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < e.opts.TournamentSize; i++ {
		contender := pop[rng.Intn(len(pop))]
		if contender.eval.Fitness.Better(best.eval.Fitness) {
			best = contender
		}
	}
	return best
}

// crossover builds a child from a random subset partition of the units: each
// non-locked unit inherits its assignment from one parent or the other.
// Recombination clashes are left for the repair pass during scoring.
func (e *Engine) crossover(a, b *individual, rng *rand.Rand) *Schedule {
	child := a.schedule.Clone()
	for i := range child.Assignments {
		if e.problem.Locked(i) {
			continue
		}
		if rng.Intn(2) == 1 {
			child.Assignments[i] = cloneAssignment(b.schedule.Assignments[i])
		}
	}
	return child
}

// mutate reassigns one random non-locked unit to a fresh candidate
// combination, or swaps the time slots of two units.
func (e *Engine) mutate(s *Schedule, rng *rand.Rand) {
	idx, ok := e.randomFreeUnit(s, rng)
	if !ok {
		return
	}

	if rng.Intn(2) == 0 {
		if other, ok := e.randomFreeUnit(s, rng); ok && other != idx &&
			len(s.Assignments[idx].Slots) == len(s.Assignments[other].Slots) {
			_ = s.SwapSlots(idx, other)
			return
		}
	}

	p := e.problem
	teacherID := s.Assignments[idx].TeacherID
	roomID := s.Assignments[idx].RoomID
	slots := s.Assignments[idx].Slots
	if cands := p.candidateTeachers[idx]; len(cands) > 0 {
		teacherID = p.Catalog.Teachers[cands[rng.Intn(len(cands))]].ID
	}
	if cands := p.candidateRooms[idx]; len(cands) > 0 {
		roomID = p.Catalog.Rooms[cands[rng.Intn(len(cands))]].ID
	}
	if sets := p.candidateSlotSets[idx]; len(sets) > 0 {
		slots = sets[rng.Intn(len(sets))]
	}
	_ = s.ApplyMove(idx, teacherID, roomID, slots)
}

func (e *Engine) randomFreeUnit(s *Schedule, rng *rand.Rand) (int, bool) {
	n := len(s.Assignments)
	start := rng.Intn(n)
	for off := 0; off < n; off++ {
		idx := (start + off) % n
		if !e.problem.Locked(idx) {
			return idx, true
		}
	}
	return 0, false
}

// scoreAll repairs and evaluates individuals across a fixed worker pool.
// Each schedule is owned by exactly one worker for the duration of its
// scoring; workers share only the read-only problem data.
func (e *Engine) scoreAll(pop []*individual) {
	workers := e.opts.ThreadCount
	if workers > len(pop) {
		workers = len(pop)
	}
	if workers <= 1 {
		for _, ind := range pop {
			e.repair.Repair(ind.schedule)
			ind.eval = e.eval.Evaluate(ind.schedule)
		}
		return
	}

	jobs := make(chan *individual)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for ind := range jobs {
				e.repair.Repair(ind.schedule)
				ind.eval = e.eval.Evaluate(ind.schedule)
			}
		}()
	}
	for _, ind := range pop {
		jobs <- ind
	}
	close(jobs)
	wg.Wait()
}

func sortByFitness(pop []*individual) {
	sort.SliceStable(pop, func(a, b int) bool {
		return pop[a].eval.Fitness.Better(pop[b].eval.Fitness)
	})
}

func clone(ind *individual) *individual {
	violations := make([]models.Violation, len(ind.eval.Violations))
	copy(violations, ind.eval.Violations)
	return &individual{
		schedule: ind.schedule.Clone(),
		eval:     Evaluation{Fitness: ind.eval.Fitness, Violations: violations},
	}
}
