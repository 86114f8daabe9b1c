package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SchoolSettings holds the school-wide scheduling configuration.
type SchoolSettings struct {
	ID              string    `db:"id" json:"id"`
	DailyPeriods    int       `db:"daily_periods" json:"daily_periods"`
	SaturdayPeriods int       `db:"saturday_periods" json:"saturday_periods"`
	ClassesPerGrade int       `db:"classes_per_grade" json:"classes_per_grade"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolDays derives the week length: Saturday is only scheduled when the
// school configures periods for it.
func (s SchoolSettings) SchoolDays() int {
	if s.SaturdayPeriods > 0 {
		return 6
	}
	return 5
}

// RosterTeacher is a teacher as seen by the engine: which subjects they teach
// and which grades they cover.
type RosterTeacher struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Subjects []string `json:"subjects"`
	Grades   []int    `json:"grades"`
}

// TeachesSubject reports whether the teacher covers subject and grade.
func (t RosterTeacher) TeachesSubject(subjectID string, grade int) bool {
	subject := false
	for _, s := range t.Subjects {
		if s == subjectID {
			subject = true
			break
		}
	}
	if !subject {
		return false
	}
	for _, g := range t.Grades {
		if g == grade {
			return true
		}
	}
	return false
}

// RosterSubject is a subject with its weekly hour demand per grade.
type RosterSubject struct {
	ID                       string      `json:"id"`
	Name                     string      `json:"name"`
	Grades                   []int       `json:"grades"`
	WeeklyHours              map[int]int `json:"weekly_hours"`
	RequiresSpecialClassroom bool        `json:"requires_special_classroom"`
	ClassroomType            string      `json:"classroom_type,omitempty"`
}

// TaughtInGrade reports whether the subject is part of the grade's curriculum.
func (s RosterSubject) TaughtInGrade(grade int) bool {
	for _, g := range s.Grades {
		if g == grade {
			return true
		}
	}
	return false
}

// Classroom is a schedulable room.
type Classroom struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
}

// RosterTeacherRow is the sqlx row shape for teachers; subject and grade
// lists are stored as JSON columns.
type RosterTeacherRow struct {
	ID       string         `db:"id"`
	FullName string         `db:"full_name"`
	Subjects types.JSONText `db:"subjects"`
	Grades   types.JSONText `db:"grades"`
}

// RosterSubjectRow is the sqlx row shape for subjects.
type RosterSubjectRow struct {
	ID                       string         `db:"id"`
	Name                     string         `db:"name"`
	Grades                   types.JSONText `db:"grades"`
	WeeklyHours              types.JSONText `db:"weekly_hours"`
	RequiresSpecialClassroom bool           `db:"requires_special_classroom"`
	ClassroomType            string         `db:"classroom_type"`
}

// ClassroomRow is the sqlx row shape for classrooms.
type ClassroomRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Type     string `db:"type"`
	Capacity int    `db:"capacity"`
}
