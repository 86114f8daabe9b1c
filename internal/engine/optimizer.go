package engine

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const (
	defaultViolationWeight    = 0.6
	defaultDistributionWeight = 0.25
	defaultWorkloadWeight     = 0.15
)

// Optimizer improves a seeded timetable with randomized two-cell swaps under a
// simulated-annealing acceptance rule. The best grid seen is tracked
// separately from the working grid, so escaping a local optimum never loses
// the best result.
type Optimizer struct {
	opts     models.GenerationOptions
	required map[string]int
	rng      *rand.Rand
	logger   *zap.Logger
	now      func() time.Time
}

// NewOptimizer wires the optimizer. rng must be non-nil; tests pass a seeded
// source, production seeds from entropy.
func NewOptimizer(opts models.GenerationOptions, required map[string]int, rng *rand.Rand, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Optimizer{
		opts:     opts,
		required: required,
		rng:      rng,
		logger:   logger,
		now:      time.Now,
	}
}

// Optimize runs at most MaxIterations rounds, stopping early once the best
// fitness reaches QualityThreshold or the configured time budget elapses.
// The wall clock is checked once per iteration, so a long budget never stalls
// a run mid-swap. state has a single writer for the duration of the call.
func (o *Optimizer) Optimize(t *models.Timetable, state *models.GenerationState) *models.Timetable {
	best := t.Clone()
	bestFitness := o.Fitness(best)
	current := t.Clone()

	state.BestScore = bestFitness
	state.Touch()

	var deadline time.Time
	if o.opts.TimeBudget > 0 {
		deadline = o.now().Add(o.opts.TimeBudget)
	}

	maxIterations := o.opts.MaxIterations
	for iteration := 1; iteration <= maxIterations; iteration++ {
		if bestFitness >= o.opts.QualityThreshold {
			break
		}
		if !deadline.IsZero() && o.now().After(deadline) {
			o.logger.Debug("optimizer time budget exhausted", zap.Int("iteration", iteration))
			break
		}

		candidate := current.Clone()
		if !o.swapRandomPair(candidate) {
			break
		}
		candidateFitness := o.Fitness(candidate)

		state.Iteration = iteration
		state.Touch()

		if candidateFitness > bestFitness {
			best = candidate.Clone()
			bestFitness = candidateFitness
			state.BestScore = bestFitness
		}

		if candidateFitness >= bestFitness {
			current = candidate
			continue
		}
		temperature := float64(maxIterations-iteration) / float64(maxIterations)
		if temperature > 0 && o.rng.Float64() < math.Exp((candidateFitness-bestFitness)/temperature) {
			current = candidate
		} else {
			state.Backtracks++
		}
	}

	return best
}

// swapRandomPair exchanges the (subject, teacher, classroom) triples of two
// distinct non-fixed assigned cells chosen uniformly at random. Returns false
// when fewer than two cells are swappable.
func (o *Optimizer) swapRandomPair(t *models.Timetable) bool {
	var swappable []*models.TimetableSlot
	t.ForEach(func(slot *models.TimetableSlot) {
		if slot.Assigned() && !slot.IsFixed {
			swappable = append(swappable, slot)
		}
	})
	if len(swappable) < 2 {
		return false
	}
	i := o.rng.Intn(len(swappable))
	j := o.rng.Intn(len(swappable) - 1)
	if j >= i {
		j++
	}
	a, b := swappable[i], swappable[j]
	a.SubjectID, b.SubjectID = b.SubjectID, a.SubjectID
	a.TeacherID, b.TeacherID = b.TeacherID, a.TeacherID
	a.ClassroomID, b.ClassroomID = b.ClassroomID, a.ClassroomID
	return true
}

// Fitness scores a whole grid in [0, ~100]. The weight table from the request
// can rebalance the three components; defaults follow the violation-dominated
// split. This score guides the search only; reported statistics use the
// orchestrator's own quality formula.
func (o *Optimizer) Fitness(t *models.Timetable) float64 {
	violationWeight := o.weight("violations", defaultViolationWeight)
	distributionWeight := o.weight("distribution", defaultDistributionWeight)
	workloadWeight := o.weight("workload", defaultWorkloadWeight)

	violations := len(DetectViolations(t, o.required))
	violationScore := 100.0 - 5.0*float64(violations)

	fitness := violationWeight*violationScore +
		distributionWeight*subjectDistributionScore(t) +
		workloadWeight*teacherWorkloadScore(t)
	return math.Max(0, fitness)
}

func (o *Optimizer) weight(key string, fallback float64) float64 {
	if v, ok := o.opts.Weights[key]; ok && v >= 0 {
		return v
	}
	return fallback
}

// subjectDistributionScore rewards spreading each subject evenly across the
// week. It computes the variance of per-day lesson counts for every subject
// and maps the mean variance onto [0, 100].
func subjectDistributionScore(t *models.Timetable) float64 {
	perSubjectPerDay := make(map[string][]float64)
	t.ForEach(func(slot *models.TimetableSlot) {
		if !slot.Assigned() {
			return
		}
		counts, ok := perSubjectPerDay[*slot.SubjectID]
		if !ok {
			counts = make([]float64, t.Days)
		}
		counts[slot.DayOfWeek]++
		perSubjectPerDay[*slot.SubjectID] = counts
	})
	if len(perSubjectPerDay) == 0 {
		return 100
	}
	var total float64
	for _, counts := range perSubjectPerDay {
		total += variance(counts)
	}
	mean := total / float64(len(perSubjectPerDay))
	return math.Max(0, 100-25*mean)
}

// teacherWorkloadScore rewards balanced weekly loads across teachers by
// penalizing the variance of per-teacher lesson totals.
func teacherWorkloadScore(t *models.Timetable) float64 {
	loads := make(map[string]float64)
	t.ForEach(func(slot *models.TimetableSlot) {
		if slot.Assigned() && slot.TeacherID != nil {
			loads[*slot.TeacherID]++
		}
	})
	if len(loads) == 0 {
		return 100
	}
	values := make([]float64, 0, len(loads))
	for _, v := range loads {
		values = append(values, v)
	}
	return math.Max(0, 100-10*variance(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		diff := v - mean
		sq += diff * diff
	}
	return sq / float64(len(values))
}
