package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// PreferredSlotRequest marks a slot the scorer should favour for a subject.
type PreferredSlotRequest struct {
	SubjectID string `json:"subjectId" validate:"required"`
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=5"`
	Period    int    `json:"period" validate:"min=0,max=15"`
}

// FixedSlotRequest pins a subject to a cell before generation starts.
type FixedSlotRequest struct {
	SubjectID   string  `json:"subjectId" validate:"required"`
	TeacherID   *string `json:"teacherId,omitempty"`
	ClassroomID *string `json:"classroomId,omitempty"`
	DayOfWeek   int     `json:"dayOfWeek" validate:"min=0,max=5"`
	Period      int     `json:"period" validate:"min=0,max=15"`
}

// TeacherAvailabilityRequest blocks a teacher from a specific cell.
type TeacherAvailabilityRequest struct {
	TeacherID   string `json:"teacherId" validate:"required"`
	DayOfWeek   int    `json:"dayOfWeek" validate:"min=0,max=5"`
	Period      int    `json:"period" validate:"min=0,max=15"`
	Unavailable bool   `json:"unavailable"`
}

// GenerationOptionsRequest tunes the engine for one run. Omitted fields fall
// back to configured defaults; explicit zeroes are honoured. The parallel flag
// is accepted for forward compatibility and currently a no-op.
type GenerationOptionsRequest struct {
	Method           string             `json:"method" validate:"omitempty,oneof=greedy_annealing"`
	MaxIterations    *int               `json:"maxIterations" validate:"omitempty,min=0,max=1000000"`
	TimeBudgetMs     int                `json:"timeBudgetMs" validate:"min=0"`
	QualityThreshold *float64           `json:"qualityThreshold" validate:"omitempty,min=0,max=100"`
	Parallel         bool               `json:"parallel"`
	Weights          map[string]float64 `json:"weights"`
}

// GenerateTimetableRequest asks for a weekly timetable for one grade+section.
type GenerateTimetableRequest struct {
	Grade               int                          `json:"grade" validate:"required,min=1,max=12"`
	ClassSection        string                       `json:"classSection" validate:"required"`
	MaxPeriodsPerDay    int                          `json:"maxPeriodsPerDay" validate:"omitempty,min=1,max=16"`
	AllowConsecutive    bool                         `json:"allowConsecutive"`
	PreferredSlots      []PreferredSlotRequest       `json:"preferredSlots" validate:"omitempty,dive"`
	FixedSlots          []FixedSlotRequest           `json:"fixedSlots" validate:"omitempty,dive"`
	TeacherAvailability []TeacherAvailabilityRequest `json:"teacherAvailability" validate:"omitempty,dive"`
	ClassroomPriority   map[string]int               `json:"classroomPriority"`
	Options             GenerationOptionsRequest     `json:"options"`
}

// Constraints converts the request payload into the engine's immutable input.
func (r GenerateTimetableRequest) Constraints() models.Constraints {
	constraints := models.Constraints{
		Grade:             r.Grade,
		ClassSection:      r.ClassSection,
		MaxPeriodsPerDay:  r.MaxPeriodsPerDay,
		AllowConsecutive:  r.AllowConsecutive,
		ClassroomPriority: r.ClassroomPriority,
	}
	for _, p := range r.PreferredSlots {
		constraints.PreferredSlots = append(constraints.PreferredSlots, models.PreferredSlot{
			SubjectID: p.SubjectID,
			DayOfWeek: p.DayOfWeek,
			Period:    p.Period,
		})
	}
	for _, f := range r.FixedSlots {
		constraints.FixedSlots = append(constraints.FixedSlots, models.FixedSlot{
			SubjectID:   f.SubjectID,
			TeacherID:   f.TeacherID,
			ClassroomID: f.ClassroomID,
			DayOfWeek:   f.DayOfWeek,
			Period:      f.Period,
		})
	}
	for _, a := range r.TeacherAvailability {
		constraints.TeacherAvailability = append(constraints.TeacherAvailability, models.TeacherAvailability{
			TeacherID:   a.TeacherID,
			DayOfWeek:   a.DayOfWeek,
			Period:      a.Period,
			Unavailable: a.Unavailable,
		})
	}
	return constraints
}

// SavedTimetableQuery filters the saved timetable listing.
type SavedTimetableQuery struct {
	Grade        *int   `form:"grade" json:"grade"`
	ClassSection string `form:"classSection" json:"classSection"`
	Limit        int    `form:"limit" json:"limit"`
}

// SavedTimetablesResponse wraps the stored records, newest first.
type SavedTimetablesResponse struct {
	Timetables []models.GeneratedTimetable `json:"timetables"`
}
