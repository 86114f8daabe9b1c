package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/engine"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const (
	methodGreedyAnnealing = "greedy_annealing"
	settingsCacheKey      = "school:settings"
)

type schoolDataProvider interface {
	GetSettings(ctx context.Context) (*models.SchoolSettings, error)
	ListTeachers(ctx context.Context) ([]models.RosterTeacher, error)
	ListSubjects(ctx context.Context) ([]models.RosterSubject, error)
	ListClassrooms(ctx context.Context) ([]models.Classroom, error)
}

type timetableStore interface {
	Create(ctx context.Context, record *models.GeneratedTimetable) error
	List(ctx context.Context, filter models.GeneratedTimetableFilter) ([]models.GeneratedTimetable, error)
	FindByID(ctx context.Context, id string) (*models.GeneratedTimetable, error)
}

// SettingsCache is the narrow slice of the redis client used for the
// read-through settings cache. A nil cache disables caching.
type SettingsCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// TimetableServiceConfig carries generator defaults from configuration.
type TimetableServiceConfig struct {
	DefaultMaxIterations    int
	DefaultTimeBudget       time.Duration
	DefaultQualityThreshold float64
	SettingsCacheTTL        time.Duration
}

// TimetableService orchestrates the generation pipeline: roster loading, grid
// construction, greedy seeding, local search, violation detection, statistics
// and persistence.
type TimetableService struct {
	data      schoolDataProvider
	store     timetableStore
	cache     SettingsCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig
	newRand   func() *rand.Rand
}

// NewTimetableService wires the orchestrator.
func NewTimetableService(
	data schoolDataProvider,
	store timetableStore,
	cache SettingsCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultMaxIterations <= 0 {
		cfg.DefaultMaxIterations = 500
	}
	if cfg.DefaultQualityThreshold <= 0 {
		cfg.DefaultQualityThreshold = 95
	}
	if cfg.SettingsCacheTTL <= 0 {
		cfg.SettingsCacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		data:      data,
		store:     store,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// WithRandFactory overrides the entropy source; tests inject seeded sources
// for reproducible optimizer behaviour.
func (s *TimetableService) WithRandFactory(factory func() *rand.Rand) *TimetableService {
	if factory != nil {
		s.newRand = factory
	}
	return s
}

// Generate builds a weekly timetable for one grade and class section.
// Malformed input is rejected with a structured validation error before any
// work begins; every fault after that point is folded into a well-formed
// failure result, so callers never see a raw error from the pipeline itself.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*models.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	constraints := req.Constraints()
	options := s.resolveOptions(req.Options)
	start := time.Now()

	result := s.runPipeline(ctx, constraints, options, start)
	if s.metrics != nil {
		quality := 0.0
		if result.Statistics != nil {
			quality = result.Statistics.QualityScore
		}
		s.metrics.ObserveGeneration(result.Success, quality, time.Since(start))
	}
	return result, nil
}

func (s *TimetableService) runPipeline(ctx context.Context, constraints models.Constraints, options models.GenerationOptions, start time.Time) (result *models.GenerationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("generation pipeline panicked", zap.Any("panic", r))
			result = failureResult(options.Method, fmt.Sprintf("generation failed: %v", r))
		}
	}()

	roster, err := s.loadRoster(ctx)
	if err != nil {
		s.logger.Warn("roster load failed", zap.Error(err))
		return failureResult(options.Method, fmt.Sprintf("failed to load school data: %v", err))
	}
	if len(roster.Teachers) == 0 || len(roster.Subjects) == 0 {
		return failureResult(options.Method, "school data is incomplete: teachers and subjects are required")
	}

	days := roster.Settings.SchoolDays()
	periods := roster.Settings.DailyPeriods
	if constraints.MaxPeriodsPerDay > 0 && constraints.MaxPeriodsPerDay < periods {
		periods = constraints.MaxPeriodsPerDay
	}
	if periods <= 0 {
		return failureResult(options.Method, "school settings define no daily periods")
	}

	required := roster.RequiredLessons(constraints.Grade)
	state := &models.GenerationState{StartedAt: start, LastUpdatedAt: start}

	grid := models.NewTimetable(constraints.Grade, constraints.ClassSection, days, periods, 1)
	assigner := engine.NewGreedyAssigner(roster, &constraints, s.logger)
	assigner.ApplyFixedSlots(grid)
	seeded := assigner.Assign(grid, required)

	optimizer := engine.NewOptimizer(options, required, s.newRand(), s.logger)
	optimized := optimizer.Optimize(seeded, state)

	violations := engine.DetectViolations(optimized, required)
	state.Violations = violations

	stats := buildStatistics(optimized, violations, state, time.Since(start))
	success := optimized != nil && len(violations) == 0

	message := "timetable generated successfully"
	if !success {
		message = fmt.Sprintf("timetable generated with %d constraint violations", len(violations))
	}

	result = &models.GenerationResult{
		Success:     success,
		Timetable:   optimized,
		Statistics:  stats,
		Violations:  violations,
		Message:     message,
		GeneratedAt: time.Now().UTC(),
		Method:      options.Method,
	}

	if success {
		if err := s.persist(ctx, constraints, options, result); err != nil {
			// Persistence trouble is reported distinctly; the generated
			// timetable is still handed back to the caller.
			s.logger.Error("failed to persist generated timetable", zap.Error(err))
			result.Message = fmt.Sprintf("timetable generated but could not be saved: %v", err)
		}
	}
	return result
}

// loadRoster issues the four independent reads concurrently and waits for all
// of them before the grid is built.
func (s *TimetableService) loadRoster(ctx context.Context) (*engine.Roster, error) {
	roster := &engine.Roster{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		settings, err := s.loadSettings(gctx)
		if err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		roster.Settings = *settings
		return nil
	})
	g.Go(func() error {
		teachers, err := s.data.ListTeachers(gctx)
		if err != nil {
			return fmt.Errorf("teachers: %w", err)
		}
		roster.Teachers = teachers
		return nil
	})
	g.Go(func() error {
		subjects, err := s.data.ListSubjects(gctx)
		if err != nil {
			return fmt.Errorf("subjects: %w", err)
		}
		roster.Subjects = subjects
		return nil
	})
	g.Go(func() error {
		classrooms, err := s.data.ListClassrooms(gctx)
		if err != nil {
			return fmt.Errorf("classrooms: %w", err)
		}
		roster.Classrooms = classrooms
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return roster, nil
}

// loadSettings goes through the redis read-through cache when one is wired.
func (s *TimetableService) loadSettings(ctx context.Context) (*models.SchoolSettings, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, settingsCacheKey).Result(); err == nil && raw != "" {
			var cached models.SchoolSettings
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				s.metrics.ObserveCacheHit(true)
				return &cached, nil
			}
		}
		s.metrics.ObserveCacheHit(false)
	}
	settings, err := s.data.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if payload, err := json.Marshal(settings); err == nil {
			if err := s.cache.Set(ctx, settingsCacheKey, payload, s.cfg.SettingsCacheTTL).Err(); err != nil {
				s.logger.Debug("settings cache write failed", zap.Error(err))
			}
		}
	}
	return settings, nil
}

func (s *TimetableService) persist(ctx context.Context, constraints models.Constraints, options models.GenerationOptions, result *models.GenerationResult) error {
	if s.store == nil {
		return fmt.Errorf("timetable store unavailable")
	}
	timetableJSON, err := json.Marshal(result.Timetable)
	if err != nil {
		return fmt.Errorf("encode timetable: %w", err)
	}
	statsJSON, err := json.Marshal(result.Statistics)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	metaJSON, err := json.Marshal(map[string]any{
		"constraints": constraints,
		"generatedAt": result.GeneratedAt,
	})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	record := &models.GeneratedTimetable{
		Grade:          constraints.Grade,
		ClassSection:   constraints.ClassSection,
		Timetable:      timetableJSON,
		Statistics:     statsJSON,
		Meta:           metaJSON,
		Method:         options.Method,
		AssignmentRate: result.Statistics.AssignmentRate,
		TotalSlots:     result.Statistics.TotalSlots,
		AssignedSlots:  result.Statistics.AssignedSlots,
	}
	return s.store.Create(ctx, record)
}

// ListSaved returns stored timetables matching the filter, newest first.
func (s *TimetableService) ListSaved(ctx context.Context, query dto.SavedTimetableQuery) (*dto.SavedTimetablesResponse, error) {
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "timetable store unavailable")
	}
	records, err := s.store.List(ctx, models.GeneratedTimetableFilter{
		Grade:        query.Grade,
		ClassSection: query.ClassSection,
		Limit:        query.Limit,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list saved timetables")
	}
	if records == nil {
		records = []models.GeneratedTimetable{}
	}
	return &dto.SavedTimetablesResponse{Timetables: records}, nil
}

// GetSaved loads one stored timetable by id.
func (s *TimetableService) GetSaved(ctx context.Context, id string) (*models.GeneratedTimetable, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "saved timetable not found")
	}
	return record, nil
}

func (s *TimetableService) resolveOptions(req dto.GenerationOptionsRequest) models.GenerationOptions {
	options := models.GenerationOptions{
		Method:           req.Method,
		TimeBudget:       time.Duration(req.TimeBudgetMs) * time.Millisecond,
		Parallel:         req.Parallel,
		Weights:          req.Weights,
		MaxIterations:    s.cfg.DefaultMaxIterations,
		QualityThreshold: s.cfg.DefaultQualityThreshold,
	}
	if options.Method == "" {
		options.Method = methodGreedyAnnealing
	}
	if req.MaxIterations != nil {
		options.MaxIterations = *req.MaxIterations
	}
	if req.QualityThreshold != nil {
		options.QualityThreshold = *req.QualityThreshold
	}
	if options.TimeBudget <= 0 {
		options.TimeBudget = s.cfg.DefaultTimeBudget
	}
	return options
}

func buildStatistics(t *models.Timetable, violations []models.ConstraintViolation, state *models.GenerationState, elapsed time.Duration) *models.GenerationStatistics {
	total := t.TotalSlots()
	assigned := t.AssignedCount()
	rate := 0.0
	if total > 0 {
		rate = float64(assigned) / float64(total) * 100
	}
	// Reporting formula, deliberately distinct from the optimizer's fitness:
	// the fitness guides the search, this score summarises the outcome.
	quality := math.Max(0, rate-float64(len(violations))*5)
	return &models.GenerationStatistics{
		TotalSlots:      total,
		AssignedSlots:   assigned,
		UnassignedSlots: total - assigned,
		ViolationCount:  len(violations),
		BacktrackCount:  state.Backtracks,
		Elapsed:         elapsed,
		AssignmentRate:  rate,
		QualityScore:    quality,
	}
}

func failureResult(method, message string) *models.GenerationResult {
	return &models.GenerationResult{
		Success:     false,
		Statistics:  &models.GenerationStatistics{},
		Message:     message,
		GeneratedAt: time.Now().UTC(),
		Method:      method,
	}
}
