package types

// CheckRequest carries one operator-triggered snapshot through an access
// check. Image holds the raw snapshot bytes exactly as uploaded.
type CheckRequest struct {
	Modality  Modality
	Image     []byte
	CameraID  string
	Direction Direction // optional override; empty means "map from camera"
	Operator  string    // resolved operator identity, for the audit trail
}

// CheckResult is what the caller gets back from one access check. It is a
// projection of the audit record the check produced.
type CheckResult struct {
	OK           bool      `json:"ok"`
	EventID      string    `json:"event_id"`
	Decision     Decision  `json:"decision"`
	Reason       string    `json:"reason"`
	Opened       bool      `json:"opened"`
	CameraID     string    `json:"camera_id"`
	Direction    Direction `json:"direction,omitempty"`
	RawID        string    `json:"raw_identifier,omitempty"`
	NormalizedID string    `json:"normalized_identifier,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
	VehicleID    *int64    `json:"matched_vehicle_id,omitempty"`
	VisitID      *int64    `json:"matched_visit_id,omitempty"`
	PersonID     *int64    `json:"matched_person_id,omitempty"`
	ServerTime   string    `json:"server_time"`
}

// EnrollResult is the response for a face enrollment request.
type EnrollResult struct {
	OK         bool     `json:"ok"`
	PersonID   int64    `json:"person_id"`
	ExternalID string   `json:"external_id"`
	FaceIDs    []string `json:"face_ids"`
}
