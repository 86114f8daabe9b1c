package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func seededGrid(t *testing.T) (*models.Timetable, map[string]int) {
	t.Helper()
	roster := testRoster()
	required := roster.RequiredLessons(10)
	assigner := NewGreedyAssigner(roster, &models.Constraints{Grade: 10, ClassSection: "A"}, nil)
	return assigner.Assign(emptyGrid(roster), required), required
}

func subjectSnapshot(grid *models.Timetable) []string {
	cells := make([]string, 0, grid.TotalSlots())
	grid.ForEach(func(slot *models.TimetableSlot) {
		if slot.Assigned() {
			cells = append(cells, *slot.SubjectID)
		} else {
			cells = append(cells, "")
		}
	})
	return cells
}

func TestOptimizerZeroIterationsReturnsSeed(t *testing.T) {
	grid, required := seededGrid(t)
	before := subjectSnapshot(grid)

	opts := models.GenerationOptions{MaxIterations: 0, QualityThreshold: 100}
	state := &models.GenerationState{}
	result := NewOptimizer(opts, required, testRand(), nil).Optimize(grid, state)

	assert.Equal(t, before, subjectSnapshot(result))
	assert.Equal(t, 0, state.Iteration)
	assert.Equal(t, 0, state.Backtracks)
}

func TestOptimizerStopsAtQualityThreshold(t *testing.T) {
	grid, required := seededGrid(t)
	before := subjectSnapshot(grid)

	// A zero threshold is satisfiable immediately, so no swap is attempted.
	opts := models.GenerationOptions{MaxIterations: 200, QualityThreshold: 0}
	state := &models.GenerationState{}
	result := NewOptimizer(opts, required, testRand(), nil).Optimize(grid, state)

	assert.Equal(t, before, subjectSnapshot(result))
	assert.Equal(t, 0, state.Iteration)
}

func TestOptimizerStopsOnTimeBudget(t *testing.T) {
	grid, required := seededGrid(t)

	opts := models.GenerationOptions{
		MaxIterations:    1000,
		QualityThreshold: 101,
		TimeBudget:       5 * time.Millisecond,
	}
	optimizer := NewOptimizer(opts, required, testRand(), nil)

	// Fake clock advancing one millisecond per reading: the first reading arms
	// the deadline, each iteration reads once, so exactly five iterations fit
	// inside the budget.
	base := time.Unix(0, 0)
	readings := 0
	optimizer.now = func() time.Time {
		readings++
		return base.Add(time.Duration(readings) * time.Millisecond)
	}

	state := &models.GenerationState{}
	result := optimizer.Optimize(grid, state)

	require.NotNil(t, result)
	assert.Equal(t, 5, state.Iteration)
}

func TestOptimizerNeverReturnsWorseGrid(t *testing.T) {
	grid := models.NewTimetable(10, "A", 5, 4, 2)
	// Deliberate teacher conflict in the first column.
	for c := 0; c < 2; c++ {
		slot := grid.At(0, 0, c)
		slot.SubjectID = strPtr("math")
		slot.TeacherID = strPtr("teacher-shared")
	}
	grid.At(1, 0, 0).SubjectID = strPtr("english")
	grid.At(1, 0, 0).TeacherID = strPtr("teacher-eng")
	grid.At(2, 0, 0).SubjectID = strPtr("english")
	grid.At(2, 0, 0).TeacherID = strPtr("teacher-eng")
	required := map[string]int{"math": 2, "english": 2}

	opts := models.GenerationOptions{MaxIterations: 300, QualityThreshold: 100}
	optimizer := NewOptimizer(opts, required, testRand(), nil)
	initial := optimizer.Fitness(grid)

	result := optimizer.Optimize(grid, &models.GenerationState{})

	assert.GreaterOrEqual(t, optimizer.Fitness(result), initial)
}

func TestOptimizerPreservesLessonCounts(t *testing.T) {
	grid, required := seededGrid(t)
	before := grid.SubjectLessonCount()

	opts := models.GenerationOptions{MaxIterations: 250, QualityThreshold: 100}
	result := NewOptimizer(opts, required, testRand(), nil).Optimize(grid, &models.GenerationState{})

	assert.Equal(t, before, result.SubjectLessonCount())
}

func TestOptimizerNeverMovesFixedSlots(t *testing.T) {
	grid, required := seededGrid(t)
	fixed := grid.At(0, 0, 0)
	require.True(t, fixed.Assigned())
	fixed.IsFixed = true
	fixedSubject := *fixed.SubjectID

	opts := models.GenerationOptions{MaxIterations: 250, QualityThreshold: 100}
	result := NewOptimizer(opts, required, testRand(), nil).Optimize(grid, &models.GenerationState{})

	slot := result.At(0, 0, 0)
	require.True(t, slot.Assigned())
	assert.Equal(t, fixedSubject, *slot.SubjectID)
	assert.True(t, slot.IsFixed)
}

func TestOptimizerTracksState(t *testing.T) {
	grid, required := seededGrid(t)

	opts := models.GenerationOptions{MaxIterations: 50, QualityThreshold: 101}
	state := &models.GenerationState{StartedAt: time.Now()}
	NewOptimizer(opts, required, testRand(), nil).Optimize(grid, state)

	assert.Equal(t, 50, state.Iteration)
	assert.Greater(t, state.BestScore, 0.0)
	assert.False(t, state.LastUpdatedAt.IsZero())
}

func TestFitnessCleanGridScoresHigh(t *testing.T) {
	grid, required := seededGrid(t)
	optimizer := NewOptimizer(models.GenerationOptions{}, required, testRand(), nil)

	fitness := optimizer.Fitness(grid)
	assert.Greater(t, fitness, 50.0)
	assert.LessOrEqual(t, fitness, 100.0)
}

func TestFitnessPenalizesViolations(t *testing.T) {
	clean, required := seededGrid(t)
	optimizer := NewOptimizer(models.GenerationOptions{}, required, testRand(), nil)
	cleanFitness := optimizer.Fitness(clean)

	broken := clean.Clone()
	broken.ForEach(func(slot *models.TimetableSlot) {
		if slot.Assigned() && *slot.SubjectID == "english" {
			slot.SubjectID = strPtr("math")
		}
	})

	assert.Less(t, optimizer.Fitness(broken), cleanFitness)
}

func TestFitnessHonoursWeightOverrides(t *testing.T) {
	grid, required := seededGrid(t)

	zeroed := NewOptimizer(models.GenerationOptions{
		Weights: map[string]float64{"violations": 0, "distribution": 0, "workload": 0},
	}, required, testRand(), nil)
	assert.Equal(t, 0.0, zeroed.Fitness(grid))

	violationsOnly := NewOptimizer(models.GenerationOptions{
		Weights: map[string]float64{"violations": 1, "distribution": 0, "workload": 0},
	}, required, testRand(), nil)
	assert.Equal(t, 100.0, violationsOnly.Fitness(grid))
}

func TestFitnessNegativeWeightFallsBackToDefault(t *testing.T) {
	grid, required := seededGrid(t)

	defaults := NewOptimizer(models.GenerationOptions{}, required, testRand(), nil)
	negative := NewOptimizer(models.GenerationOptions{
		Weights: map[string]float64{"violations": -1},
	}, required, testRand(), nil)

	assert.Equal(t, defaults.Fitness(grid), negative.Fitness(grid))
}

func TestSwapRandomPairNeedsTwoSwappableCells(t *testing.T) {
	grid := models.NewTimetable(10, "A", 5, 4, 1)
	grid.At(0, 0, 0).SubjectID = strPtr("math")

	optimizer := NewOptimizer(models.GenerationOptions{}, map[string]int{"math": 1}, testRand(), nil)
	assert.False(t, optimizer.swapRandomPair(grid))

	grid.At(1, 0, 0).SubjectID = strPtr("english")
	assert.True(t, optimizer.swapRandomPair(grid))
}
