package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev loads a small fixture set for local development: one active
// vehicle, one approved open visit, and one enrolled person. Idempotent;
// never run in prod.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC()
	nowMs := now.UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO vehicles(id, plate, owner_id, active, created_at_ms, updated_at_ms)
VALUES (1, 'ABC123', 31, 1, ?, ?);`, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed vehicles: %w", err)
	}

	// Approved visit valid for the next 24h.
	expiresMs := now.Add(24 * time.Hour).UnixMilli()
	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO visits(id, vehicle_plate, approval_status, visit_status, approval_expires_at_ms, created_at_ms)
VALUES (1, 'XYZ789', 'APPROVED', 'REGISTERED', ?, ?);`, expiresMs, nowMs); err != nil {
		return fmt.Errorf("seed visits: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO persons(id, full_name, enrolled_at_ms, created_at_ms, updated_at_ms)
VALUES (42, 'Dev Resident', ?, ?, ?);`, nowMs, nowMs, nowMs); err != nil {
		return fmt.Errorf("seed persons: %w", err)
	}

	return nil
}
