package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
	sqlitestore "github.com/smartcondominio/gatekeeper/internal/gatekeeper/store/sqlite"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

func testEvent(decision types.Decision, opened bool, createdAt time.Time) store.AccessEventRecord {
	return store.AccessEventRecord{
		ID:           uuid.NewString(),
		CreatedAt:    createdAt,
		CameraID:     "cam-entry-1",
		Direction:    types.DirectionEntry,
		Modality:     types.ModalityPlate,
		RawID:        "abc 123",
		NormalizedID: "ABC123",
		Decision:     decision,
		Reason:       "test event",
		Opened:       opened,
		TriggeredBy:  "camera",
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// RecordEvent
// ═══════════════════════════════════════════════════════════════════════════

func TestAuditStore_RecordEvent_RoundTrip(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	// The entity reference is a real foreign key; the vehicle must exist.
	seedVehicle(t, conn, 7, "ABC123", 31, true)

	createdAt := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	score := 0.91
	vehicleID := int64(7)

	rec := testEvent(types.DecisionAllowResident, true, createdAt)
	rec.Score = &score
	rec.VehicleID = &vehicleID
	rec.Payload = []byte(`{"results":[{"plate":"abc123","score":0.91}]}`)

	if err := as.RecordEvent(ctx, rec); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	got, err := as.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}

	e := got[0]
	if e.ID != rec.ID {
		t.Errorf("id: got %q, want %q", e.ID, rec.ID)
	}
	if !e.CreatedAt.Equal(createdAt) {
		t.Errorf("created_at: got %v, want %v", e.CreatedAt, createdAt)
	}
	if e.CameraID != "cam-entry-1" || e.Direction != types.DirectionEntry {
		t.Errorf("camera/direction: got %q/%q", e.CameraID, e.Direction)
	}
	if e.Modality != types.ModalityPlate || e.RawID != "abc 123" || e.NormalizedID != "ABC123" {
		t.Errorf("identifier fields: %+v", e)
	}
	if e.Score == nil || *e.Score != score {
		t.Errorf("score: got %v, want %v", e.Score, score)
	}
	if e.Decision != types.DecisionAllowResident || !e.Opened {
		t.Errorf("decision/opened: got %q/%v", e.Decision, e.Opened)
	}
	if e.VehicleID == nil || *e.VehicleID != vehicleID {
		t.Errorf("vehicle_id: got %v", e.VehicleID)
	}
	if e.VisitID != nil || e.PersonID != nil {
		t.Errorf("expected nil visit/person refs, got %v/%v", e.VisitID, e.PersonID)
	}
	if string(e.Payload) != string(rec.Payload) {
		t.Errorf("payload: got %s", e.Payload)
	}
	if e.TriggeredBy != "camera" {
		t.Errorf("triggered_by: got %q", e.TriggeredBy)
	}
}

func TestAuditStore_RecordEvent_NullableDefaults(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	rec := testEvent(types.DecisionDenyUnknown, false, time.Now().UTC())
	// No score, no entity refs, no payload.
	if err := as.RecordEvent(ctx, rec); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	got, err := as.ListEvents(ctx, store.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	e := got[0]
	if e.Score != nil {
		t.Errorf("expected nil score, got %v", *e.Score)
	}
	if e.VehicleID != nil || e.VisitID != nil || e.PersonID != nil {
		t.Errorf("expected nil refs, got %v/%v/%v", e.VehicleID, e.VisitID, e.PersonID)
	}
	if string(e.Payload) != "{}" {
		t.Errorf("expected empty-object payload default, got %s", e.Payload)
	}
}

func TestAuditStore_RecordEvent_UnknownEntityRejected(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))

	rec := testEvent(types.DecisionAllowResident, true, time.Now().UTC())
	missing := int64(999)
	rec.VehicleID = &missing

	if err := as.RecordEvent(context.Background(), rec); err == nil {
		t.Fatal("expected a reference to a missing vehicle to be rejected")
	}
}

func TestAuditStore_RecordEvent_DuplicateIDRejected(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	rec := testEvent(types.DecisionDenyUnknown, false, time.Now().UTC())
	if err := as.RecordEvent(ctx, rec); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := as.RecordEvent(ctx, rec); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ListEvents
// ═══════════════════════════════════════════════════════════════════════════

func seedEvents(t *testing.T, as *sqlitestore.AuditStore) (allow, deny, face store.AccessEventRecord) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

	allow = testEvent(types.DecisionAllowResident, true, base)
	allowScore := 0.91
	allow.Score = &allowScore

	deny = testEvent(types.DecisionDenyUnknown, false, base.Add(time.Hour))
	deny.CameraID = "cam-exit-1"
	deny.Direction = types.DirectionExit
	deny.RawID = "qqq 000"
	deny.NormalizedID = "QQQ000"
	denyScore := 0.60
	deny.Score = &denyScore

	face = testEvent(types.DecisionAllowResident, true, base.Add(2*time.Hour))
	face.Modality = types.ModalityFace
	face.RawID = "resident:42"
	face.NormalizedID = "42"
	faceScore := 0.88
	face.Score = &faceScore

	for _, rec := range []store.AccessEventRecord{allow, deny, face} {
		if err := as.RecordEvent(ctx, rec); err != nil {
			t.Fatalf("seedEvents: %v", err)
		}
	}
	return allow, deny, face
}

func TestAuditStore_ListEvents_NewestFirst(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	allow, deny, face := seedEvents(t, as)

	got, err := as.ListEvents(context.Background(), store.EventFilter{})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].ID != face.ID || got[1].ID != deny.ID || got[2].ID != allow.ID {
		t.Errorf("expected newest-first ordering, got %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestAuditStore_ListEvents_TimeWindow(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	_, deny, _ := seedEvents(t, as)

	from := time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)
	to := time.Date(2026, 2, 15, 11, 30, 0, 0, time.UTC)
	got, err := as.ListEvents(context.Background(), store.EventFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != deny.ID {
		t.Errorf("expected only the mid-window event, got %d events", len(got))
	}
}

func TestAuditStore_ListEvents_ByCamera(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	_, deny, _ := seedEvents(t, as)

	got, err := as.ListEvents(context.Background(), store.EventFilter{CameraID: "CAM-EXIT-1"})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != deny.ID {
		t.Errorf("expected case-insensitive camera match, got %d events", len(got))
	}
}

func TestAuditStore_ListEvents_ByDecision(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	_, deny, _ := seedEvents(t, as)

	got, err := as.ListEvents(context.Background(), store.EventFilter{
		Decisions: []types.Decision{types.DecisionDenyUnknown, types.DecisionErrorRecognition},
	})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != deny.ID {
		t.Errorf("expected only the deny event, got %d events", len(got))
	}
}

func TestAuditStore_ListEvents_ByOpened(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	_, deny, _ := seedEvents(t, as)

	closed := false
	got, err := as.ListEvents(context.Background(), store.EventFilter{Opened: &closed})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != deny.ID {
		t.Errorf("expected only the closed-gate event, got %d events", len(got))
	}
}

func TestAuditStore_ListEvents_ByPlateSubstring(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	_, deny, _ := seedEvents(t, as)

	// Filter input is normalized before matching.
	got, err := as.ListEvents(context.Background(), store.EventFilter{Plate: "qq q0"})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != deny.ID {
		t.Errorf("expected substring plate match, got %d events", len(got))
	}
}

func TestAuditStore_ListEvents_ByMinScoreAndModality(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	_, _, face := seedEvents(t, as)

	min := 0.85
	got, err := as.ListEvents(context.Background(), store.EventFilter{
		MinScore: &min,
		Modality: types.ModalityFace,
	})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != face.ID {
		t.Errorf("expected only the face event, got %d events", len(got))
	}
}

func TestAuditStore_ListEvents_Limit(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))
	_, _, face := seedEvents(t, as)

	got, err := as.ListEvents(context.Background(), store.EventFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 || got[0].ID != face.ID {
		t.Errorf("expected the single newest event, got %d events", len(got))
	}
}
