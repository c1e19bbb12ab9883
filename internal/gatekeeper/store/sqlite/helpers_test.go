package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/smartcondominio/gatekeeper/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database.  The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool
	// (important because sql.DB may close/reopen the underlying conn).
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	// Apply the same migrations as production.
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// ── Registry seeding helpers ─────────────────────────────────────────────────

func seedVehicle(t *testing.T, conn *sql.DB, id int64, plate string, ownerID int64, active bool) {
	t.Helper()
	nowMs := time.Now().UTC().UnixMilli()
	a := 0
	if active {
		a = 1
	}
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO vehicles(id, plate, owner_id, active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?);`, id, plate, ownerID, a, nowMs, nowMs)
	if err != nil {
		t.Fatalf("seedVehicle(%s): %v", plate, err)
	}
}

func seedVisit(t *testing.T, conn *sql.DB, id int64, plate, approval, status string, expiresAt *time.Time, createdAt time.Time) {
	t.Helper()
	var expiresMs any
	if expiresAt != nil {
		expiresMs = expiresAt.UTC().UnixMilli()
	}
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO visits(id, vehicle_plate, approval_status, visit_status, approval_expires_at_ms, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?);`, id, plate, approval, status, expiresMs, createdAt.UTC().UnixMilli())
	if err != nil {
		t.Fatalf("seedVisit(%s): %v", plate, err)
	}
}

func seedPerson(t *testing.T, conn *sql.DB, id int64, name string, enrolledAt, revokedAt *time.Time) {
	t.Helper()
	nowMs := time.Now().UTC().UnixMilli()
	var enrolledMs, revokedMs any
	if enrolledAt != nil {
		enrolledMs = enrolledAt.UTC().UnixMilli()
	}
	if revokedAt != nil {
		revokedMs = revokedAt.UTC().UnixMilli()
	}
	_, err := conn.ExecContext(context.Background(), `
INSERT INTO persons(id, full_name, enrolled_at_ms, revoked_at_ms, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?);`, id, name, enrolledMs, revokedMs, nowMs, nowMs)
	if err != nil {
		t.Fatalf("seedPerson(%d): %v", id, err)
	}
}
