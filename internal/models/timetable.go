package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableSlot is a single cell of the weekly grid. Days and periods are
// zero-based; day 0 is Monday.
type TimetableSlot struct {
	Grade        int                   `json:"grade"`
	ClassSection string                `json:"class_section"`
	DayOfWeek    int                   `json:"day_of_week"`
	Period       int                   `json:"period"`
	SubjectID    *string               `json:"subject_id,omitempty"`
	TeacherID    *string               `json:"teacher_id,omitempty"`
	ClassroomID  *string               `json:"classroom_id,omitempty"`
	IsFixed      bool                  `json:"is_fixed"`
	Violations   []ConstraintViolation `json:"violations,omitempty"`
}

// Assigned reports whether the slot holds a subject.
func (s *TimetableSlot) Assigned() bool {
	return s != nil && s.SubjectID != nil
}

// Timetable is the 3-D grid indexed [day][period][classSlot]. A single-class
// request always has one class slot. Each generation run owns its grid
// exclusively.
type Timetable struct {
	Grade        int                  `json:"grade"`
	ClassSection string               `json:"class_section"`
	Days         int                  `json:"days"`
	Periods      int                  `json:"periods"`
	ClassSlots   int                  `json:"class_slots"`
	Grid         [][][]*TimetableSlot `json:"grid"`
}

// NewTimetable builds an empty grid for the given dimensions.
func NewTimetable(grade int, classSection string, days, periods, classSlots int) *Timetable {
	grid := make([][][]*TimetableSlot, days)
	for d := 0; d < days; d++ {
		grid[d] = make([][]*TimetableSlot, periods)
		for p := 0; p < periods; p++ {
			grid[d][p] = make([]*TimetableSlot, classSlots)
			for c := 0; c < classSlots; c++ {
				grid[d][p][c] = &TimetableSlot{
					Grade:        grade,
					ClassSection: classSection,
					DayOfWeek:    d,
					Period:       p,
				}
			}
		}
	}
	return &Timetable{
		Grade:        grade,
		ClassSection: classSection,
		Days:         days,
		Periods:      periods,
		ClassSlots:   classSlots,
		Grid:         grid,
	}
}

// At returns the slot at the given coordinates, or nil when out of range.
func (t *Timetable) At(day, period, classSlot int) *TimetableSlot {
	if t == nil || day < 0 || day >= t.Days || period < 0 || period >= t.Periods || classSlot < 0 || classSlot >= t.ClassSlots {
		return nil
	}
	return t.Grid[day][period][classSlot]
}

// Clone deep-copies the timetable so candidates can be mutated independently.
func (t *Timetable) Clone() *Timetable {
	if t == nil {
		return nil
	}
	clone := NewTimetable(t.Grade, t.ClassSection, t.Days, t.Periods, t.ClassSlots)
	t.ForEach(func(slot *TimetableSlot) {
		target := clone.Grid[slot.DayOfWeek][slot.Period][classSlotIndex(t, slot)]
		target.SubjectID = copyStringPtr(slot.SubjectID)
		target.TeacherID = copyStringPtr(slot.TeacherID)
		target.ClassroomID = copyStringPtr(slot.ClassroomID)
		target.IsFixed = slot.IsFixed
	})
	return clone
}

// ForEach visits every slot in day-major, then period, then class-slot order.
func (t *Timetable) ForEach(fn func(slot *TimetableSlot)) {
	if t == nil {
		return
	}
	for d := 0; d < t.Days; d++ {
		for p := 0; p < t.Periods; p++ {
			for c := 0; c < t.ClassSlots; c++ {
				fn(t.Grid[d][p][c])
			}
		}
	}
}

// TotalSlots returns the cell count of the grid.
func (t *Timetable) TotalSlots() int {
	if t == nil {
		return 0
	}
	return t.Days * t.Periods * t.ClassSlots
}

// AssignedCount returns how many cells hold a subject.
func (t *Timetable) AssignedCount() int {
	count := 0
	t.ForEach(func(slot *TimetableSlot) {
		if slot.Assigned() {
			count++
		}
	})
	return count
}

// SubjectLessonCount tallies assigned lessons per subject across the grid.
func (t *Timetable) SubjectLessonCount() map[string]int {
	counts := make(map[string]int)
	t.ForEach(func(slot *TimetableSlot) {
		if slot.Assigned() {
			counts[*slot.SubjectID]++
		}
	})
	return counts
}

func classSlotIndex(t *Timetable, slot *TimetableSlot) int {
	for c := 0; c < t.ClassSlots; c++ {
		if t.Grid[slot.DayOfWeek][slot.Period][c] == slot {
			return c
		}
	}
	return 0
}

func copyStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	value := *v
	return &value
}

// GeneratedTimetable is the persisted record for a completed generation run.
type GeneratedTimetable struct {
	ID             string         `db:"id" json:"id"`
	Grade          int            `db:"grade" json:"grade"`
	ClassSection   string         `db:"class_section" json:"class_section"`
	Timetable      types.JSONText `db:"timetable" json:"timetable"`
	Statistics     types.JSONText `db:"statistics" json:"statistics"`
	Meta           types.JSONText `db:"meta" json:"meta"`
	Method         string         `db:"method" json:"method"`
	AssignmentRate float64        `db:"assignment_rate" json:"assignment_rate"`
	TotalSlots     int            `db:"total_slots" json:"total_slots"`
	AssignedSlots  int            `db:"assigned_slots" json:"assigned_slots"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// GeneratedTimetableFilter narrows saved timetable listings.
type GeneratedTimetableFilter struct {
	Grade        *int
	ClassSection string
	Limit        int
}
