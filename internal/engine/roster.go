// Package engine implements the timetable generation pipeline: greedy
// constraint-aware seeding, randomized local search and violation detection.
package engine

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Roster bundles the school data one generation run works against. It is
// loaded once per run and treated as read-only by the engine.
type Roster struct {
	Settings   models.SchoolSettings
	Teachers   []models.RosterTeacher
	Subjects   []models.RosterSubject
	Classrooms []models.Classroom
}

// RequiredLessons maps subject id to the weekly lesson count configured for
// the grade. Subjects without hours for the grade are skipped.
func (r *Roster) RequiredLessons(grade int) map[string]int {
	required := make(map[string]int)
	for _, subject := range r.Subjects {
		if !subject.TaughtInGrade(grade) {
			continue
		}
		if hours, ok := subject.WeeklyHours[grade]; ok && hours > 0 {
			required[subject.ID] = hours
		}
	}
	return required
}

// SelectTeacher returns the first roster teacher covering the subject and
// grade, or nil when nobody qualifies.
func (r *Roster) SelectTeacher(subjectID string, grade int) *models.RosterTeacher {
	for i := range r.Teachers {
		if r.Teachers[i].TeachesSubject(subjectID, grade) {
			return &r.Teachers[i]
		}
	}
	return nil
}

// SelectClassroom picks a room for the subject: the first room matching the
// subject's special-room type when one is required, otherwise the first room
// in the roster.
func (r *Roster) SelectClassroom(subjectID string) *models.Classroom {
	subject := r.subjectByID(subjectID)
	if subject != nil && subject.RequiresSpecialClassroom && subject.ClassroomType != "" {
		for i := range r.Classrooms {
			if r.Classrooms[i].Type == subject.ClassroomType {
				return &r.Classrooms[i]
			}
		}
	}
	if len(r.Classrooms) > 0 {
		return &r.Classrooms[0]
	}
	return nil
}

func (r *Roster) subjectByID(id string) *models.RosterSubject {
	for i := range r.Subjects {
		if r.Subjects[i].ID == id {
			return &r.Subjects[i]
		}
	}
	return nil
}

// sortedSubjectIDs fixes the enumeration order so repeated runs with the same
// inputs place lessons identically.
func sortedSubjectIDs(required map[string]int) []string {
	ids := make([]string, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
