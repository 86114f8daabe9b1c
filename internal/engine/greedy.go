package engine

import (
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// GreedyAssigner seeds the grid by placing each subject's required lessons
// into the best-scoring open cell. Lessons that cannot be placed are dropped
// silently; they surface later as subject_hours violations.
type GreedyAssigner struct {
	roster      *Roster
	constraints *models.Constraints
	scorer      *SlotScorer
	logger      *zap.Logger
}

// NewGreedyAssigner wires the assigner.
func NewGreedyAssigner(roster *Roster, constraints *models.Constraints, logger *zap.Logger) *GreedyAssigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GreedyAssigner{
		roster:      roster,
		constraints: constraints,
		scorer:      NewSlotScorer(constraints),
		logger:      logger,
	}
}

// ApplyFixedSlots writes the input-supplied fixed assignments into the grid.
// A fixed slot whose teacher or classroom is omitted falls back to roster
// selection. Fixed cells are never touched again by the pipeline.
func (g *GreedyAssigner) ApplyFixedSlots(t *models.Timetable) {
	if g.constraints == nil {
		return
	}
	for _, fixed := range g.constraints.FixedSlots {
		slot := t.At(fixed.DayOfWeek, fixed.Period, 0)
		if slot == nil || slot.IsFixed {
			continue
		}
		subjectID := fixed.SubjectID
		slot.SubjectID = &subjectID
		slot.TeacherID = fixed.TeacherID
		slot.ClassroomID = fixed.ClassroomID
		if slot.TeacherID == nil {
			if teacher := g.roster.SelectTeacher(subjectID, t.Grade); teacher != nil {
				slot.TeacherID = &teacher.ID
			}
		}
		if slot.ClassroomID == nil {
			if room := g.roster.SelectClassroom(subjectID); room != nil {
				slot.ClassroomID = &room.ID
			}
		}
		slot.IsFixed = true
	}
}

// Assign places every subject's remaining lessons. Subjects are enumerated in
// sorted id order; candidate cells day-major, then period, then class slot,
// so ties always resolve to the first-encountered cell.
func (g *GreedyAssigner) Assign(t *models.Timetable, required map[string]int) *models.Timetable {
	placed := t.SubjectLessonCount()
	for _, subjectID := range sortedSubjectIDs(required) {
		subjectID := subjectID
		remaining := required[subjectID] - placed[subjectID]
		teacher := g.roster.SelectTeacher(subjectID, t.Grade)
		room := g.roster.SelectClassroom(subjectID)

		var teacherID, classroomID *string
		if teacher != nil {
			teacherID = &teacher.ID
		}
		if room != nil {
			classroomID = &room.ID
		}

		for lesson := 0; lesson < remaining; lesson++ {
			best := g.bestOpenSlot(t, subjectID, teacherID, classroomID)
			if best == nil {
				g.logger.Debug("no open slot for lesson",
					zap.String("subject_id", subjectID),
					zap.Int("remaining", remaining-lesson))
				break
			}
			best.SubjectID = &subjectID
			best.TeacherID = teacherID
			best.ClassroomID = classroomID
		}
	}
	return t
}

func (g *GreedyAssigner) bestOpenSlot(t *models.Timetable, subjectID string, teacherID, classroomID *string) *models.TimetableSlot {
	var best *models.TimetableSlot
	bestScore := 0.0
	for d := 0; d < t.Days; d++ {
		for p := 0; p < t.Periods; p++ {
			for c := 0; c < t.ClassSlots; c++ {
				slot := t.At(d, p, c)
				if slot.Assigned() || slot.IsFixed {
					continue
				}
				if teacherID != nil && g.teacherUnavailable(*teacherID, d, p) {
					continue
				}
				score := g.scorer.Score(t, d, p, subjectID, teacherID, classroomID)
				if best == nil || score > bestScore {
					best = slot
					bestScore = score
				}
			}
		}
	}
	return best
}

// teacherUnavailable honours the declared availability windows; such cells are
// excluded from enumeration rather than penalized.
func (g *GreedyAssigner) teacherUnavailable(teacherID string, day, period int) bool {
	if g.constraints == nil {
		return false
	}
	for _, entry := range g.constraints.TeacherAvailability {
		if entry.Unavailable && entry.TeacherID == teacherID && entry.DayOfWeek == day && entry.Period == period {
			return true
		}
	}
	return false
}
