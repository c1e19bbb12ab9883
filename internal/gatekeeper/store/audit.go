package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

// AccessEventRecord captures one full access-check attempt for the audit
// log, successful or not. Payload keeps the exact upstream response (or
// the error detail) for forensic replay.
type AccessEventRecord struct {
	ID           string // uuid, assigned by the engine
	CreatedAt    time.Time
	CameraID     string
	Direction    types.Direction
	Modality     types.Modality
	RawID        string
	NormalizedID string
	Score        *float64 // nil on recognition error
	Decision     types.Decision
	Reason       string
	Opened       bool
	VehicleID    *int64
	VisitID      *int64
	PersonID     *int64
	Payload      json.RawMessage
	TriggeredBy  string
}

// EventFilter narrows ListEvents. Zero values mean "no constraint".
type EventFilter struct {
	From      *time.Time
	To        *time.Time
	CameraID  string
	Decisions []types.Decision
	Direction types.Direction
	Opened    *bool
	Plate     string // substring match on the normalized identifier
	MinScore  *float64
	Modality  types.Modality
	Limit     int
}

// AuditStore persists access decisions as an append-only audit log.
// There is deliberately no update or delete: a record, once written, is
// immutable for the life of the log.
type AuditStore interface {
	RecordEvent(ctx context.Context, rec AccessEventRecord) error

	// ListEvents returns matching records newest first.
	ListEvents(ctx context.Context, f EventFilter) ([]AccessEventRecord, error)
}
