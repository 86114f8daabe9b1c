package engine

import "github.com/noah-isme/sma-timetable-api/internal/models"

const (
	baseSlotScore          = 100.0
	preferredSlotBonus     = 50.0
	teacherConflictPenalty = 100.0
	roomConflictPenalty    = 80.0
	sameDaySubjectPenalty  = 30.0
)

// SlotScorer rates an empty cell for placing a subject. Higher is better.
// Scores are not normalized across passes.
type SlotScorer struct {
	constraints *models.Constraints
}

// NewSlotScorer builds a scorer bound to the run's constraints.
func NewSlotScorer(constraints *models.Constraints) *SlotScorer {
	return &SlotScorer{constraints: constraints}
}

// Score rates placing subjectID at (day, period) given the teacher and
// classroom the assigner selected for it. The conflict checks scan the whole
// grid column for that (day, period).
func (s *SlotScorer) Score(t *models.Timetable, day, period int, subjectID string, teacherID, classroomID *string) float64 {
	score := baseSlotScore

	if s.isPreferred(subjectID, day, period) {
		score += preferredSlotBonus
	}
	if teacherID != nil && teacherOccupied(t, day, period, *teacherID) {
		score -= teacherConflictPenalty
	}
	if classroomID != nil && classroomOccupied(t, day, period, *classroomID) {
		score -= roomConflictPenalty
	}
	if subjectOnDay(t, day, subjectID) {
		score -= sameDaySubjectPenalty
	}
	return score
}

func (s *SlotScorer) isPreferred(subjectID string, day, period int) bool {
	if s.constraints == nil {
		return false
	}
	for _, pref := range s.constraints.PreferredSlots {
		if pref.SubjectID == subjectID && pref.DayOfWeek == day && pref.Period == period {
			return true
		}
	}
	return false
}

func teacherOccupied(t *models.Timetable, day, period int, teacherID string) bool {
	for c := 0; c < t.ClassSlots; c++ {
		slot := t.At(day, period, c)
		if slot.Assigned() && slot.TeacherID != nil && *slot.TeacherID == teacherID {
			return true
		}
	}
	return false
}

func classroomOccupied(t *models.Timetable, day, period int, classroomID string) bool {
	for c := 0; c < t.ClassSlots; c++ {
		slot := t.At(day, period, c)
		if slot.Assigned() && slot.ClassroomID != nil && *slot.ClassroomID == classroomID {
			return true
		}
	}
	return false
}

func subjectOnDay(t *models.Timetable, day int, subjectID string) bool {
	for p := 0; p < t.Periods; p++ {
		for c := 0; c < t.ClassSlots; c++ {
			slot := t.At(day, p, c)
			if slot.Assigned() && *slot.SubjectID == subjectID {
				return true
			}
		}
	}
	return false
}
