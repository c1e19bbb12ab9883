package types

// Modality identifies which recognition channel produced a candidate.
type Modality string

const (
	ModalityPlate Modality = "PLATE"
	ModalityFace  Modality = "FACE"
)

// Decision is the engine's final categorical outcome for one attempt.
type Decision string

const (
	DecisionAllowResident    Decision = "ALLOW_RESIDENT"
	DecisionAllowVisit       Decision = "ALLOW_VISIT"
	DecisionDenyUnknown      Decision = "DENY_UNKNOWN"
	DecisionErrorRecognition Decision = "ERROR_RECOGNITION"
)

// Opened reports whether this decision commands the gate open.
func (d Decision) Opened() bool {
	return d == DecisionAllowResident || d == DecisionAllowVisit
}

// Direction tags an audit record with the camera's travel direction.
// It is never an input to the decision itself.
type Direction string

const (
	DirectionEntry       Direction = "ENTRY"
	DirectionExit        Direction = "EXIT"
	DirectionUnspecified Direction = ""
)

// ParseDirection maps a request-supplied direction string onto the known
// set. Anything unrecognized collapses to unspecified rather than failing:
// direction is audit metadata, not decision input.
func ParseDirection(s string) Direction {
	switch Direction(s) {
	case DirectionEntry, DirectionExit:
		return Direction(s)
	default:
		return DirectionUnspecified
	}
}
