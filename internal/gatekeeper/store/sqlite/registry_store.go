package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/smartcondominio/gatekeeper/internal/db"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
)

// VehicleStore reads the vehicle registry. Pure reads, no writer: vehicle
// administration happens outside this subsystem.
type VehicleStore struct {
	db *sql.DB
}

func NewVehicleStore(db *sql.DB) *VehicleStore {
	return &VehicleStore{db: db}
}

func (s *VehicleStore) FindActiveByPlate(ctx context.Context, plate string) (*store.Vehicle, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return nil, nil
	}

	var v store.Vehicle
	var active int
	err := s.db.QueryRowContext(ctx, `
SELECT id, plate, owner_id, active
FROM vehicles
WHERE plate = ? COLLATE NOCASE AND active = 1;
`, plate).Scan(&v.ID, &v.Plate, &v.OwnerID, &active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindActiveByPlate query: %w", err)
	}
	v.Active = active == 1
	return &v, nil
}

// VisitStore reads the visit registry.
type VisitStore struct {
	db *sql.DB
}

func NewVisitStore(db *sql.DB) *VisitStore {
	return &VisitStore{db: db}
}

func (s *VisitStore) FindOpenByPlate(ctx context.Context, plate string, now time.Time) (*store.Visit, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return nil, nil
	}
	nowMs := now.UTC().UnixMilli()

	var (
		v         store.Visit
		expiresMs sql.NullInt64
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, vehicle_plate, approval_status, visit_status, approval_expires_at_ms, created_at_ms
FROM visits
WHERE vehicle_plate = ? COLLATE NOCASE
  AND approval_status = ?
  AND visit_status IN (?, ?)
  AND (approval_expires_at_ms IS NULL OR approval_expires_at_ms >= ?)
ORDER BY created_at_ms DESC
LIMIT 1;
`, plate, store.ApprovalApproved, store.VisitRegistered, store.VisitCheckedIn, nowMs).
		Scan(&v.ID, &v.VehiclePlate, &v.ApprovalStatus, &v.VisitStatus, &expiresMs, &createdMs)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindOpenByPlate query: %w", err)
	}

	if expiresMs.Valid {
		t := time.UnixMilli(expiresMs.Int64).UTC()
		v.ApprovalExpiresAt = &t
	}
	v.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &v, nil
}

// PersonStore reads the person/face directory and records enrollment.
type PersonStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewPersonStore(db *sql.DB, writer *dbpkg.Worker) *PersonStore {
	return &PersonStore{db: db, writer: writer}
}

func (s *PersonStore) FindEnrolled(ctx context.Context, personID int64) (*store.Person, error) {
	var (
		p          store.Person
		enrolledMs sql.NullInt64
		revokedMs  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, full_name, enrolled_at_ms, revoked_at_ms
FROM persons
WHERE id = ?;
`, personID).Scan(&p.ID, &p.FullName, &enrolledMs, &revokedMs)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindEnrolled query: %w", err)
	}

	if enrolledMs.Valid {
		t := time.UnixMilli(enrolledMs.Int64).UTC()
		p.EnrolledAt = &t
	}
	if revokedMs.Valid {
		t := time.UnixMilli(revokedMs.Int64).UTC()
		p.RevokedAt = &t
	}
	if !p.Enrolled() {
		return nil, nil
	}
	return &p, nil
}

func (s *PersonStore) MarkEnrolled(ctx context.Context, personID int64, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE persons
SET enrolled_at_ms = COALESCE(enrolled_at_ms, ?),
    updated_at_ms  = ?
WHERE id = ?;
`, ms, ms, personID)
		if err != nil {
			return fmt.Errorf("MarkEnrolled update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("MarkEnrolled rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("MarkEnrolled: person %d not found", personID)
		}
		return nil
	})
}
