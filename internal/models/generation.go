package models

import "time"

// ViolationKind classifies detected rule breaches.
type ViolationKind string

const (
	ViolationTeacherConflict   ViolationKind = "teacher_conflict"
	ViolationClassroomConflict ViolationKind = "classroom_conflict"
	ViolationSubjectHours      ViolationKind = "subject_hours"
	ViolationResourceShortage  ViolationKind = "resource_shortage"
	ViolationTimeRestriction   ViolationKind = "time_restriction"
	ViolationWorkloadExceeded  ViolationKind = "workload_exceeded"
)

// ViolationSeverity ranks how badly a violation degrades the timetable.
type ViolationSeverity string

const (
	SeverityCritical ViolationSeverity = "critical"
	SeverityHigh     ViolationSeverity = "high"
	SeverityMedium   ViolationSeverity = "medium"
	SeverityLow      ViolationSeverity = "low"
)

// ConstraintViolation describes one rule breach found in a candidate grid.
type ConstraintViolation struct {
	Kind         ViolationKind     `json:"kind"`
	Severity     ViolationSeverity `json:"severity"`
	Description  string            `json:"description"`
	DayOfWeek    int               `json:"day_of_week"`
	Period       int               `json:"period"`
	ClassSlot    int               `json:"class_slot"`
	ConstraintID string            `json:"constraint_id,omitempty"`
	Suggestion   string            `json:"suggestion,omitempty"`
}

// PreferredSlot marks a (subject, day, period) the scorer should favour.
type PreferredSlot struct {
	SubjectID string `json:"subject_id" validate:"required"`
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=5"`
	Period    int    `json:"period" validate:"min=0"`
}

// FixedSlot pins a subject (optionally teacher and classroom) to a cell. Once
// applied it is never altered by the engine.
type FixedSlot struct {
	SubjectID   string  `json:"subject_id" validate:"required"`
	TeacherID   *string `json:"teacher_id,omitempty"`
	ClassroomID *string `json:"classroom_id,omitempty"`
	DayOfWeek   int     `json:"day_of_week" validate:"min=0,max=5"`
	Period      int     `json:"period" validate:"min=0"`
}

// TeacherAvailability lists the (day, period) cells a teacher cannot take.
type TeacherAvailability struct {
	TeacherID   string `json:"teacher_id" validate:"required"`
	DayOfWeek   int    `json:"day_of_week" validate:"min=0,max=5"`
	Period      int    `json:"period" validate:"min=0"`
	Unavailable bool   `json:"unavailable"`
}

// Constraints is the immutable declarative input of one generation run.
type Constraints struct {
	Grade               int                   `json:"grade" validate:"required,min=1,max=12"`
	ClassSection        string                `json:"class_section" validate:"required"`
	MaxPeriodsPerDay    int                   `json:"max_periods_per_day" validate:"omitempty,min=1,max=16"`
	AllowConsecutive    bool                  `json:"allow_consecutive"`
	PreferredSlots      []PreferredSlot       `json:"preferred_slots" validate:"omitempty,dive"`
	FixedSlots          []FixedSlot           `json:"fixed_slots" validate:"omitempty,dive"`
	TeacherAvailability []TeacherAvailability `json:"teacher_availability" validate:"omitempty,dive"`
	ClassroomPriority   map[string]int        `json:"classroom_priority"`
}

// GenerationOptions tunes one run of the engine. Parallel is accepted but is
// a documented no-op: the engine runs on a single goroutine.
type GenerationOptions struct {
	Method           string             `json:"method"`
	MaxIterations    int                `json:"max_iterations" validate:"min=0"`
	TimeBudget       time.Duration      `json:"time_budget"`
	QualityThreshold float64            `json:"quality_threshold" validate:"min=0,max=100"`
	Parallel         bool               `json:"parallel"`
	Weights          map[string]float64 `json:"weights"`
}

// GenerationState is the run-scoped mutable bookkeeping shared between the
// orchestrator and the optimizer. It has a single writer at a time and is
// discarded when the run ends.
type GenerationState struct {
	Iteration     int                   `json:"iteration"`
	BestScore     float64               `json:"best_score"`
	Violations    []ConstraintViolation `json:"violations,omitempty"`
	Backtracks    int                   `json:"backtracks"`
	StartedAt     time.Time             `json:"started_at"`
	LastUpdatedAt time.Time             `json:"last_updated_at"`
}

// Touch advances the last-update timestamp.
func (s *GenerationState) Touch() {
	s.LastUpdatedAt = time.Now().UTC()
}

// GenerationStatistics summarises a completed run.
type GenerationStatistics struct {
	TotalSlots      int           `json:"total_slots"`
	AssignedSlots   int           `json:"assigned_slots"`
	UnassignedSlots int           `json:"unassigned_slots"`
	ViolationCount  int           `json:"violation_count"`
	BacktrackCount  int           `json:"backtrack_count"`
	Elapsed         time.Duration `json:"elapsed"`
	AssignmentRate  float64       `json:"assignment_rate"`
	QualityScore    float64       `json:"quality_score"`
}

// GenerationResult is the public outcome of a generation request. Faults never
// propagate past the orchestrator; they are folded into a failure result.
type GenerationResult struct {
	Success     bool                  `json:"success"`
	Timetable   *Timetable            `json:"timetable,omitempty"`
	Statistics  *GenerationStatistics `json:"statistics,omitempty"`
	Violations  []ConstraintViolation `json:"violations,omitempty"`
	Message     string                `json:"message"`
	GeneratedAt time.Time             `json:"generated_at"`
	Method      string                `json:"method"`
}
