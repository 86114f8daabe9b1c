package engine

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DetectViolations inspects a candidate timetable and reports every hard-rule
// breach. It is deterministic and never mutates the grid.
func DetectViolations(t *models.Timetable, required map[string]int) []models.ConstraintViolation {
	violations := make([]models.ConstraintViolation, 0)
	violations = append(violations, detectResourceConflicts(t)...)
	violations = append(violations, detectSubjectHours(t, required)...)
	return violations
}

// detectResourceConflicts groups assigned cells per (day, period) and flags
// teachers and classrooms booked more than once in the same column.
func detectResourceConflicts(t *models.Timetable) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	for d := 0; d < t.Days; d++ {
		for p := 0; p < t.Periods; p++ {
			teacherSeen := make(map[string]int)
			roomSeen := make(map[string]int)
			for c := 0; c < t.ClassSlots; c++ {
				slot := t.At(d, p, c)
				if !slot.Assigned() {
					continue
				}
				if slot.TeacherID != nil {
					teacherSeen[*slot.TeacherID]++
					if teacherSeen[*slot.TeacherID] == 2 {
						violations = append(violations, models.ConstraintViolation{
							Kind:         models.ViolationTeacherConflict,
							Severity:     models.SeverityCritical,
							Description:  fmt.Sprintf("teacher %s is booked more than once on day %d period %d", *slot.TeacherID, d, p),
							DayOfWeek:    d,
							Period:       p,
							ClassSlot:    c,
							ConstraintID: *slot.TeacherID,
							Suggestion:   "assign a different teacher or move one lesson to another period",
						})
					}
				}
				if slot.ClassroomID != nil {
					roomSeen[*slot.ClassroomID]++
					if roomSeen[*slot.ClassroomID] == 2 {
						violations = append(violations, models.ConstraintViolation{
							Kind:         models.ViolationClassroomConflict,
							Severity:     models.SeverityHigh,
							Description:  fmt.Sprintf("classroom %s is double-booked on day %d period %d", *slot.ClassroomID, d, p),
							DayOfWeek:    d,
							Period:       p,
							ClassSlot:    c,
							ConstraintID: *slot.ClassroomID,
							Suggestion:   "move one lesson to a free classroom",
						})
					}
				}
			}
		}
	}
	return violations
}

// detectSubjectHours compares required weekly lesson counts against what the
// grid actually holds. Under-assignment ranks high, over-assignment medium.
func detectSubjectHours(t *models.Timetable, required map[string]int) []models.ConstraintViolation {
	var violations []models.ConstraintViolation
	actual := t.SubjectLessonCount()

	subjects := make(map[string]struct{}, len(required)+len(actual))
	for id := range required {
		subjects[id] = struct{}{}
	}
	for id := range actual {
		subjects[id] = struct{}{}
	}
	ids := make([]string, 0, len(subjects))
	for id := range subjects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		want := required[id]
		got := actual[id]
		if want == got {
			continue
		}
		severity := models.SeverityMedium
		suggestion := "remove surplus lessons for this subject"
		if got < want {
			severity = models.SeverityHigh
			suggestion = "free up slots or add an eligible teacher for this subject"
		}
		violations = append(violations, models.ConstraintViolation{
			Kind:         models.ViolationSubjectHours,
			Severity:     severity,
			Description:  fmt.Sprintf("subject %s has %d of %d required weekly lessons", id, got, want),
			ConstraintID: id,
			Suggestion:   suggestion,
		})
	}
	return violations
}
