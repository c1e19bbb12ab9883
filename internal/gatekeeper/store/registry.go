package store

import (
	"context"
	"time"
)

// Vehicle is one row of the resident vehicle registry.
type Vehicle struct {
	ID      int64
	Plate   string // stored normalized (uppercase, no whitespace)
	OwnerID int64
	Active  bool
}

// Visit approval and progress states. These gate which visits are
// eligible to open the gate; see VisitStore.FindOpenByPlate.
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalDenied   = "DENIED"
	ApprovalExpired  = "EXPIRED"

	VisitRegistered = "REGISTERED"
	VisitCheckedIn  = "CHECKED_IN"
	VisitCheckedOut = "CHECKED_OUT"
	VisitCancelled  = "CANCELLED"
	VisitDenied     = "DENIED"
)

// Visit is one row of the visit registry.
type Visit struct {
	ID                int64
	VehiclePlate      string
	ApprovalStatus    string
	VisitStatus       string
	ApprovalExpiresAt *time.Time // nil = no expiry
	CreatedAt         time.Time
}

// Person is one row of the person/face directory.
type Person struct {
	ID         int64
	FullName   string
	EnrolledAt *time.Time // nil until a face has been indexed
	RevokedAt  *time.Time
}

// Enrolled reports whether this person is an eligible face match.
func (p Person) Enrolled() bool {
	return p.EnrolledAt != nil && p.RevokedAt == nil
}

// VehicleStore reads the resident vehicle registry. Lookups hit current
// state on every call: a revoked vehicle must stop matching immediately,
// so implementations must not cache across requests.
type VehicleStore interface {
	// FindActiveByPlate returns the active vehicle with the given
	// normalized plate (case-insensitive exact match), or nil.
	FindActiveByPlate(ctx context.Context, plate string) (*Vehicle, error)
}

// VisitStore reads the visit registry.
type VisitStore interface {
	// FindOpenByPlate returns the most recently created visit for the
	// given normalized plate (case-insensitive exact match) that is
	// APPROVED, still in an open state (REGISTERED or CHECKED_IN), and
	// not expired at now. Returns nil when no visit qualifies.
	FindOpenByPlate(ctx context.Context, plate string, now time.Time) (*Visit, error)
}

// PersonStore reads and enrolls the person/face directory.
type PersonStore interface {
	// FindEnrolled returns the person with the given id if they are
	// enrolled and not revoked, or nil.
	FindEnrolled(ctx context.Context, personID int64) (*Person, error)

	// MarkEnrolled records that a face has been indexed for the person.
	// The one registry write in the subsystem; used by enrollment, never
	// by the decision engine.
	MarkEnrolled(ctx context.Context, personID int64, t time.Time) error
}
