package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SchoolDataRepository serves the read-only roster data the generation engine
// consumes: settings, teachers, subjects and classrooms.
type SchoolDataRepository struct {
	db *sqlx.DB
}

// NewSchoolDataRepository constructs the repository.
func NewSchoolDataRepository(db *sqlx.DB) *SchoolDataRepository {
	return &SchoolDataRepository{db: db}
}

// GetSettings loads the single school settings row.
func (r *SchoolDataRepository) GetSettings(ctx context.Context) (*models.SchoolSettings, error) {
	const query = `SELECT id, daily_periods, saturday_periods, classes_per_grade, updated_at FROM school_settings LIMIT 1`
	var settings models.SchoolSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("load school settings: %w", err)
	}
	return &settings, nil
}

// ListTeachers returns the teacher roster with subject and grade coverage.
// Subject and grade lists are JSON columns.
func (r *SchoolDataRepository) ListTeachers(ctx context.Context) ([]models.RosterTeacher, error) {
	const query = `SELECT id, full_name, subjects, grades FROM teachers WHERE active = TRUE ORDER BY full_name ASC`
	var rows []models.RosterTeacherRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	teachers := make([]models.RosterTeacher, 0, len(rows))
	for _, row := range rows {
		teacher := models.RosterTeacher{ID: row.ID, FullName: row.FullName}
		if err := json.Unmarshal(row.Subjects, &teacher.Subjects); err != nil {
			return nil, fmt.Errorf("decode teacher %s subjects: %w", row.ID, err)
		}
		if err := json.Unmarshal(row.Grades, &teacher.Grades); err != nil {
			return nil, fmt.Errorf("decode teacher %s grades: %w", row.ID, err)
		}
		teachers = append(teachers, teacher)
	}
	return teachers, nil
}

// ListSubjects returns the subject roster including weekly hour demand keyed
// by grade.
func (r *SchoolDataRepository) ListSubjects(ctx context.Context) ([]models.RosterSubject, error) {
	const query = `SELECT id, name, grades, weekly_hours, requires_special_classroom, classroom_type FROM subjects ORDER BY name ASC`
	var rows []models.RosterSubjectRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	subjects := make([]models.RosterSubject, 0, len(rows))
	for _, row := range rows {
		subject := models.RosterSubject{
			ID:                       row.ID,
			Name:                     row.Name,
			RequiresSpecialClassroom: row.RequiresSpecialClassroom,
			ClassroomType:            row.ClassroomType,
		}
		if err := json.Unmarshal(row.Grades, &subject.Grades); err != nil {
			return nil, fmt.Errorf("decode subject %s grades: %w", row.ID, err)
		}
		hours, err := decodeWeeklyHours(row.WeeklyHours)
		if err != nil {
			return nil, fmt.Errorf("decode subject %s weekly hours: %w", row.ID, err)
		}
		subject.WeeklyHours = hours
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// ListClassrooms returns the schedulable rooms.
func (r *SchoolDataRepository) ListClassrooms(ctx context.Context) ([]models.Classroom, error) {
	const query = `SELECT id, name, type, capacity FROM classrooms ORDER BY name ASC`
	var rows []models.ClassroomRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	classrooms := make([]models.Classroom, 0, len(rows))
	for _, row := range rows {
		classrooms = append(classrooms, models.Classroom{
			ID:       row.ID,
			Name:     row.Name,
			Type:     row.Type,
			Capacity: row.Capacity,
		})
	}
	return classrooms, nil
}

// decodeWeeklyHours converts the JSON object form {"10": 4} into an int-keyed
// map.
func decodeWeeklyHours(raw []byte) (map[int]int, error) {
	if len(raw) == 0 {
		return map[int]int{}, nil
	}
	var byGrade map[string]int
	if err := json.Unmarshal(raw, &byGrade); err != nil {
		return nil, err
	}
	hours := make(map[int]int, len(byGrade))
	for key, value := range byGrade {
		grade, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid grade key %q", key)
		}
		hours[grade] = value
	}
	return hours, nil
}
