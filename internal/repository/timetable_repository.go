package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableRepository persists completed generation runs.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create inserts one generated timetable record.
func (r *TimetableRepository) Create(ctx context.Context, record *models.GeneratedTimetable) error {
	if record == nil {
		return fmt.Errorf("timetable record is nil")
	}
	if record.Grade <= 0 || record.ClassSection == "" {
		return fmt.Errorf("grade and class_section are required")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if len(record.Meta) == 0 {
		record.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `
INSERT INTO generated_timetables (id, grade, class_section, timetable, statistics, meta, method, assignment_rate, total_slots, assigned_slots, created_at, updated_at)
VALUES (:id, :grade, :class_section, :timetable, :statistics, :meta, :method, :assignment_rate, :total_slots, :assigned_slots, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, record); err != nil {
		return fmt.Errorf("insert generated timetable: %w", err)
	}
	return nil
}

// List returns stored records matching the filter, newest first.
func (r *TimetableRepository) List(ctx context.Context, filter models.GeneratedTimetableFilter) ([]models.GeneratedTimetable, error) {
	base := "FROM generated_timetables WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Grade != nil {
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, *filter.Grade)
	}
	if filter.ClassSection != "" {
		conditions = append(conditions, fmt.Sprintf("class_section = $%d", len(args)+1))
		args = append(args, filter.ClassSection)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := fmt.Sprintf("SELECT id, grade, class_section, timetable, statistics, meta, method, assignment_rate, total_slots, assigned_slots, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d", base, limit)
	var records []models.GeneratedTimetable
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list generated timetables: %w", err)
	}
	return records, nil
}

// FindByID loads a single stored timetable.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.GeneratedTimetable, error) {
	const query = `SELECT id, grade, class_section, timetable, statistics, meta, method, assignment_rate, total_slots, assigned_slots, created_at, updated_at FROM generated_timetables WHERE id = $1`
	var record models.GeneratedTimetable
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}
