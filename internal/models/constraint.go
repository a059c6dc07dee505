package models

// Severity splits constraints into hard (infeasibility) and soft (preference).
type Severity string

const (
	SeverityHard Severity = "HARD"
	SeveritySoft Severity = "SOFT"
)

// ConstraintType enumerates the closed set of scheduling rules. Adding a type
// means extending this list and the evaluator's dispatch, checked at compile
// time rather than through runtime string branching.
type ConstraintType string

const (
	// Hard constraints.
	ConstraintTeacherDoubleBooked        ConstraintType = "TEACHER_DOUBLE_BOOKED"
	ConstraintRoomDoubleBooked           ConstraintType = "ROOM_DOUBLE_BOOKED"
	ConstraintRoomCapacityExceeded       ConstraintType = "ROOM_CAPACITY_EXCEEDED"
	ConstraintCertificationMismatch      ConstraintType = "CERTIFICATION_MISMATCH"
	ConstraintTeacherUnavailable         ConstraintType = "TEACHER_UNAVAILABLE"
	ConstraintRoomUnavailable            ConstraintType = "ROOM_UNAVAILABLE"
	ConstraintRoomTypeMismatch           ConstraintType = "ROOM_TYPE_MISMATCH"
	ConstraintConsecutivePeriodsViolated ConstraintType = "CONSECUTIVE_PERIODS_VIOLATED"

	// Soft constraints.
	ConstraintEnrollmentImbalance       ConstraintType = "ENROLLMENT_IMBALANCE_BETWEEN_SECTIONS"
	ConstraintTeacherRoomPreference     ConstraintType = "TEACHER_ROOM_PREFERENCE_UNMET"
	ConstraintTeacherWorkloadOverTarget ConstraintType = "TEACHER_WORKLOAD_OVER_TARGET"
	ConstraintMinimumEnrollmentUnmet    ConstraintType = "MINIMUM_ENROLLMENT_UNMET"
	ConstraintCoTeacherUnassigned       ConstraintType = "CO_TEACHER_UNASSIGNED"
	ConstraintPlanningPeriodMissing     ConstraintType = "PLANNING_PERIOD_MISSING"
)

// HardConstraintTypes lists every hard constraint in evaluation order.
var HardConstraintTypes = []ConstraintType{
	ConstraintTeacherDoubleBooked,
	ConstraintRoomDoubleBooked,
	ConstraintRoomCapacityExceeded,
	ConstraintCertificationMismatch,
	ConstraintTeacherUnavailable,
	ConstraintRoomUnavailable,
	ConstraintRoomTypeMismatch,
	ConstraintConsecutivePeriodsViolated,
}

// SoftConstraintTypes lists every soft constraint in evaluation order.
var SoftConstraintTypes = []ConstraintType{
	ConstraintEnrollmentImbalance,
	ConstraintTeacherRoomPreference,
	ConstraintTeacherWorkloadOverTarget,
	ConstraintMinimumEnrollmentUnmet,
	ConstraintCoTeacherUnassigned,
	ConstraintPlanningPeriodMissing,
}

const (
	defaultHardWeight = 1000
	defaultSoftWeight = 100
)

// Severity returns the category for the constraint type.
func (t ConstraintType) Severity() Severity {
	for _, hard := range HardConstraintTypes {
		if t == hard {
			return SeverityHard
		}
	}
	return SeveritySoft
}

// DefaultWeight returns the base penalty weight for the type.
func (t ConstraintType) DefaultWeight() float64 {
	if t.Severity() == SeverityHard {
		return defaultHardWeight
	}
	return defaultSoftWeight
}

// WeightSet maps constraint types to administrator-tuned weights. Missing
// entries fall back to the type default.
type WeightSet map[ConstraintType]float64

// Weight resolves the effective weight for a type.
func (w WeightSet) Weight(t ConstraintType) float64 {
	if w != nil {
		if v, ok := w[t]; ok {
			return v
		}
	}
	return t.DefaultWeight()
}

// Violation records one constraint breach against one planning unit.
type Violation struct {
	Type    ConstraintType `json:"type"`
	UnitID  string         `json:"unit_id"`
	Penalty float64        `json:"penalty"`
	Detail  string         `json:"detail,omitempty"`
}

// Fitness scores a schedule: hard violations dominate, soft penalty breaks
// ties. Lower is better on both axes.
type Fitness struct {
	HardCount int     `json:"hard_count"`
	SoftScore float64 `json:"soft_score"`
}

// Better reports whether f is strictly preferable to other under the
// lexicographic (hard, soft) ordering.
func (f Fitness) Better(other Fitness) bool {
	if f.HardCount != other.HardCount {
		return f.HardCount < other.HardCount
	}
	return f.SoftScore < other.SoftScore
}

// Feasible reports whether no hard constraints are violated.
func (f Fitness) Feasible() bool {
	return f.HardCount == 0
}
