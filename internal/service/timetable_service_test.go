package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type stubSchoolData struct {
	settings      *models.SchoolSettings
	teachers      []models.RosterTeacher
	subjects      []models.RosterSubject
	classrooms    []models.Classroom
	err           error
	settingsCalls int
}

func (s *stubSchoolData) GetSettings(ctx context.Context) (*models.SchoolSettings, error) {
	s.settingsCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.settings, nil
}

func (s *stubSchoolData) ListTeachers(ctx context.Context) ([]models.RosterTeacher, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.teachers, nil
}

func (s *stubSchoolData) ListSubjects(ctx context.Context) ([]models.RosterSubject, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.subjects, nil
}

func (s *stubSchoolData) ListClassrooms(ctx context.Context) ([]models.Classroom, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.classrooms, nil
}

type stubTimetableStore struct {
	created   []*models.GeneratedTimetable
	createErr error
	records   []models.GeneratedTimetable
	listErr   error
	byID      map[string]*models.GeneratedTimetable
}

func (s *stubTimetableStore) Create(ctx context.Context, record *models.GeneratedTimetable) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, record)
	return nil
}

func (s *stubTimetableStore) List(ctx context.Context, filter models.GeneratedTimetableFilter) ([]models.GeneratedTimetable, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.records, nil
}

func (s *stubTimetableStore) FindByID(ctx context.Context, id string) (*models.GeneratedTimetable, error) {
	record, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("no rows")
	}
	return record, nil
}

type stubSettingsCache struct {
	data map[string]string
	sets int
}

func newStubSettingsCache() *stubSettingsCache {
	return &stubSettingsCache{data: make(map[string]string)}
}

func (c *stubSettingsCache) Get(ctx context.Context, key string) *redis.StringCmd {
	if value, ok := c.data[key]; ok {
		return redis.NewStringResult(value, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (c *stubSettingsCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	}
	c.sets++
	return redis.NewStatusResult("OK", nil)
}

func fixtureSchoolData() *stubSchoolData {
	return &stubSchoolData{
		settings: &models.SchoolSettings{ID: "settings-1", DailyPeriods: 4},
		teachers: []models.RosterTeacher{
			{ID: "teacher-eng", FullName: "English Teacher", Subjects: []string{"english"}, Grades: []int{10}},
			{ID: "teacher-math", FullName: "Math Teacher", Subjects: []string{"math"}, Grades: []int{10}},
		},
		subjects: []models.RosterSubject{
			{ID: "english", Name: "English", Grades: []int{10}, WeeklyHours: map[int]int{10: 3}},
			{ID: "math", Name: "Mathematics", Grades: []int{10}, WeeklyHours: map[int]int{10: 4}},
		},
		classrooms: []models.Classroom{
			{ID: "room-a", Name: "Room A", Type: "regular", Capacity: 36},
		},
	}
}

func newServiceFixture(data *stubSchoolData, store *stubTimetableStore, cache SettingsCache) *TimetableService {
	svc := NewTimetableService(data, store, cache, nil, nil, nil, TimetableServiceConfig{
		DefaultMaxIterations:    50,
		DefaultTimeBudget:       time.Second,
		DefaultQualityThreshold: 95,
	})
	return svc.WithRandFactory(func() *rand.Rand {
		return rand.New(rand.NewSource(7))
	})
}

func validRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{Grade: 10, ClassSection: "A"}
}

func TestTimetableServiceGenerateSuccess(t *testing.T) {
	store := &stubTimetableStore{}
	svc := newServiceFixture(fixtureSchoolData(), store, nil)

	result, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Empty(t, result.Violations)
	assert.Equal(t, "timetable generated successfully", result.Message)
	assert.Equal(t, "greedy_annealing", result.Method)

	require.NotNil(t, result.Statistics)
	assert.Equal(t, 20, result.Statistics.TotalSlots)
	assert.Equal(t, 7, result.Statistics.AssignedSlots)
	assert.Equal(t, 13, result.Statistics.UnassignedSlots)
	assert.InDelta(t, 35.0, result.Statistics.AssignmentRate, 0.001)
	assert.InDelta(t, 35.0, result.Statistics.QualityScore, 0.001)

	require.NotNil(t, result.Timetable)
	assert.Equal(t, result.Statistics.TotalSlots, result.Timetable.TotalSlots())
	assert.Equal(t, result.Statistics.AssignedSlots, result.Timetable.AssignedCount())
}

func TestTimetableServiceGeneratePersistsSuccessfulRun(t *testing.T) {
	store := &stubTimetableStore{}
	svc := newServiceFixture(fixtureSchoolData(), store, nil)

	result, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Len(t, store.created, 1)
	record := store.created[0]
	assert.Equal(t, 10, record.Grade)
	assert.Equal(t, "A", record.ClassSection)
	assert.Equal(t, "greedy_annealing", record.Method)
	assert.Equal(t, 20, record.TotalSlots)
	assert.Equal(t, 7, record.AssignedSlots)

	var stored models.Timetable
	require.NoError(t, json.Unmarshal(record.Timetable, &stored))
	assert.Equal(t, 7, stored.AssignedCount())
}

func TestTimetableServiceGenerateRejectsInvalidPayload(t *testing.T) {
	svc := newServiceFixture(fixtureSchoolData(), &stubTimetableStore{}, nil)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Grade: 0, ClassSection: ""})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, fieldErr := range verrs {
		fields = append(fields, fieldErr.Namespace()+":"+fieldErr.Tag())
	}
	return fields
}

func TestTimetableServiceValidationIsIdempotent(t *testing.T) {
	svc := newServiceFixture(fixtureSchoolData(), &stubTimetableStore{}, nil)
	malformed := dto.GenerateTimetableRequest{
		Grade:        13,
		ClassSection: "",
		FixedSlots:   []dto.FixedSlotRequest{{SubjectID: "", DayOfWeek: 9}},
	}

	_, first := svc.Generate(context.Background(), malformed)
	require.Error(t, first)
	_, second := svc.Generate(context.Background(), malformed)
	require.Error(t, second)

	var firstErr, secondErr *appErrors.Error
	require.ErrorAs(t, first, &firstErr)
	require.ErrorAs(t, second, &secondErr)
	assert.Equal(t, firstErr.Code, secondErr.Code)
	assert.Equal(t, first.Error(), second.Error())
	assert.Equal(t, validationFields(t, first), validationFields(t, second))
}

func TestTimetableServiceGenerateHonoursFixedSlots(t *testing.T) {
	store := &stubTimetableStore{}
	svc := newServiceFixture(fixtureSchoolData(), store, nil)

	req := validRequest()
	teacher := "teacher-math"
	room := "room-a"
	req.FixedSlots = []dto.FixedSlotRequest{
		{SubjectID: "math", TeacherID: &teacher, ClassroomID: &room, DayOfWeek: 0, Period: 1},
	}
	req.PreferredSlots = []dto.PreferredSlotRequest{
		{SubjectID: "english", DayOfWeek: 2, Period: 0},
	}

	result, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.Timetable)

	slot := result.Timetable.At(0, 1, 0)
	require.True(t, slot.Assigned())
	assert.Equal(t, "math", *slot.SubjectID)
	assert.Equal(t, "teacher-math", *slot.TeacherID)
	assert.Equal(t, "room-a", *slot.ClassroomID)
	assert.True(t, slot.IsFixed, "pinned cell must survive the whole pipeline")

	// The pinned lesson counts toward the weekly demand.
	counts := result.Timetable.SubjectLessonCount()
	assert.Equal(t, 4, counts["math"])
	assert.Equal(t, 3, counts["english"])
}

func TestTimetableServiceGenerateRosterFailureIsFolded(t *testing.T) {
	data := fixtureSchoolData()
	data.err = errors.New("db down")
	store := &stubTimetableStore{}
	svc := newServiceFixture(data, store, nil)

	result, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "failed to load school data")
	assert.Empty(t, store.created)
}

func TestTimetableServiceGenerateIncompleteRoster(t *testing.T) {
	data := fixtureSchoolData()
	data.teachers = nil
	svc := newServiceFixture(data, &stubTimetableStore{}, nil)

	result, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "school data is incomplete")
}

func TestTimetableServiceGenerateReportsViolations(t *testing.T) {
	data := fixtureSchoolData()
	// 25 weekly hours can never fit a 20-cell grid.
	data.subjects = []models.RosterSubject{
		{ID: "math", Name: "Mathematics", Grades: []int{10}, WeeklyHours: map[int]int{10: 25}},
	}
	store := &stubTimetableStore{}
	svc := newServiceFixture(data, store, nil)

	result, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Violations)
	assert.Contains(t, result.Message, "constraint violations")
	assert.Empty(t, store.created, "failed runs must not be persisted")
}

func TestTimetableServiceGeneratePersistFailureKeepsResult(t *testing.T) {
	store := &stubTimetableStore{createErr: errors.New("insert failed")}
	svc := newServiceFixture(fixtureSchoolData(), store, nil)

	result, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.NotNil(t, result.Timetable)
	assert.Contains(t, result.Message, "could not be saved")
}

func TestTimetableServiceGenerateHonoursMaxPeriodsPerDay(t *testing.T) {
	svc := newServiceFixture(fixtureSchoolData(), &stubTimetableStore{}, nil)

	req := validRequest()
	req.MaxPeriodsPerDay = 2

	result, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result.Timetable)
	assert.Equal(t, 10, result.Timetable.TotalSlots())
	assert.Equal(t, 2, result.Timetable.Periods)
}

func TestTimetableServiceGenerateIsDeterministicWithSeededRand(t *testing.T) {
	first, err := newServiceFixture(fixtureSchoolData(), &stubTimetableStore{}, nil).Generate(context.Background(), validRequest())
	require.NoError(t, err)
	second, err := newServiceFixture(fixtureSchoolData(), &stubTimetableStore{}, nil).Generate(context.Background(), validRequest())
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first.Timetable)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Timetable)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestTimetableServiceSettingsCacheReadThrough(t *testing.T) {
	data := fixtureSchoolData()
	cache := newStubSettingsCache()
	svc := newServiceFixture(data, &stubTimetableStore{}, cache)

	_, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, data.settingsCalls)
	assert.Equal(t, 1, cache.sets)

	_, err = svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, data.settingsCalls, "second run should hit the cache")
	assert.Equal(t, 1, cache.sets)
}

func TestResolveOptionsDefaults(t *testing.T) {
	svc := newServiceFixture(fixtureSchoolData(), &stubTimetableStore{}, nil)

	options := svc.resolveOptions(dto.GenerationOptionsRequest{})
	assert.Equal(t, "greedy_annealing", options.Method)
	assert.Equal(t, 50, options.MaxIterations)
	assert.Equal(t, 95.0, options.QualityThreshold)
	assert.Equal(t, time.Second, options.TimeBudget)
}

func TestResolveOptionsHonoursExplicitZeroes(t *testing.T) {
	svc := newServiceFixture(fixtureSchoolData(), &stubTimetableStore{}, nil)

	zeroIterations := 0
	zeroThreshold := 0.0
	options := svc.resolveOptions(dto.GenerationOptionsRequest{
		MaxIterations:    &zeroIterations,
		QualityThreshold: &zeroThreshold,
		TimeBudgetMs:     250,
	})
	assert.Equal(t, 0, options.MaxIterations)
	assert.Equal(t, 0.0, options.QualityThreshold)
	assert.Equal(t, 250*time.Millisecond, options.TimeBudget)
}

func TestTimetableServiceListSaved(t *testing.T) {
	store := &stubTimetableStore{
		records: []models.GeneratedTimetable{{ID: "tt-1", Grade: 10, ClassSection: "A"}},
	}
	svc := newServiceFixture(fixtureSchoolData(), store, nil)

	resp, err := svc.ListSaved(context.Background(), dto.SavedTimetableQuery{})
	require.NoError(t, err)
	require.Len(t, resp.Timetables, 1)
	assert.Equal(t, "tt-1", resp.Timetables[0].ID)
}

func TestTimetableServiceListSavedEmptyIsNotNil(t *testing.T) {
	svc := newServiceFixture(fixtureSchoolData(), &stubTimetableStore{}, nil)

	resp, err := svc.ListSaved(context.Background(), dto.SavedTimetableQuery{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Timetables)
	assert.Empty(t, resp.Timetables)
}

func TestTimetableServiceListSavedFailure(t *testing.T) {
	store := &stubTimetableStore{listErr: errors.New("db down")}
	svc := newServiceFixture(fixtureSchoolData(), store, nil)

	_, err := svc.ListSaved(context.Background(), dto.SavedTimetableQuery{})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestTimetableServiceGetSaved(t *testing.T) {
	store := &stubTimetableStore{
		byID: map[string]*models.GeneratedTimetable{"tt-1": {ID: "tt-1", Grade: 10}},
	}
	svc := newServiceFixture(fixtureSchoolData(), store, nil)

	record, err := svc.GetSaved(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, "tt-1", record.ID)

	_, err = svc.GetSaved(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	_, err = svc.GetSaved(context.Background(), "")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
