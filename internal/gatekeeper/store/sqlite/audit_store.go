package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/smartcondominio/gatekeeper/internal/db"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

// AuditStore persists access events. Writes go through the single-writer
// worker; there is no UPDATE or DELETE statement anywhere in this file,
// so the table is append-only by construction.
type AuditStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAuditStore(db *sql.DB, writer *dbpkg.Worker) *AuditStore {
	return &AuditStore{db: db, writer: writer}
}

func (s *AuditStore) RecordEvent(ctx context.Context, rec store.AccessEventRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	createdMs := rec.CreatedAt.UTC().UnixMilli()

	var score any
	if rec.Score != nil {
		score = *rec.Score
	}

	var opened int
	if rec.Opened {
		opened = 1
	}

	payload := string(rec.Payload)
	if payload == "" {
		payload = "{}"
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  id, created_at_ms, camera_id, direction, modality,
  raw_id, normalized_id, score, decision, reason, opened,
  vehicle_id, visit_id, person_id, payload, triggered_by
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, createdMs, rec.CameraID, string(rec.Direction), string(rec.Modality),
			rec.RawID, rec.NormalizedID, score, string(rec.Decision), rec.Reason, opened,
			nullableID(rec.VehicleID), nullableID(rec.VisitID), nullableID(rec.PersonID),
			payload, rec.TriggeredBy,
		); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}

func (s *AuditStore) ListEvents(ctx context.Context, f store.EventFilter) ([]store.AccessEventRecord, error) {
	var (
		where []string
		args  []any
	)

	if f.From != nil {
		where = append(where, "created_at_ms >= ?")
		args = append(args, f.From.UTC().UnixMilli())
	}
	if f.To != nil {
		where = append(where, "created_at_ms <= ?")
		args = append(args, f.To.UTC().UnixMilli())
	}
	if f.CameraID != "" {
		where = append(where, "camera_id = ? COLLATE NOCASE")
		args = append(args, f.CameraID)
	}
	if len(f.Decisions) > 0 {
		ph := make([]string, len(f.Decisions))
		for i, d := range f.Decisions {
			ph[i] = "?"
			args = append(args, string(d))
		}
		where = append(where, "decision IN ("+strings.Join(ph, ", ")+")")
	}
	if f.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, string(f.Direction))
	}
	if f.Opened != nil {
		v := 0
		if *f.Opened {
			v = 1
		}
		where = append(where, "opened = ?")
		args = append(args, v)
	}
	if f.Plate != "" {
		norm := strings.ToUpper(strings.ReplaceAll(f.Plate, " ", ""))
		where = append(where, "normalized_id LIKE ?")
		args = append(args, "%"+norm+"%")
	}
	if f.MinScore != nil {
		where = append(where, "score >= ?")
		args = append(args, *f.MinScore)
	}
	if f.Modality != "" {
		where = append(where, "modality = ?")
		args = append(args, string(f.Modality))
	}

	q := `
SELECT id, created_at_ms, camera_id, direction, modality,
       raw_id, normalized_id, score, decision, reason, opened,
       vehicle_id, visit_id, person_id, payload, triggered_by
FROM access_events`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY created_at_ms DESC"
	if f.Limit > 0 {
		q += "\nLIMIT ?"
		args = append(args, f.Limit)
	}
	q += ";"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListEvents query: %w", err)
	}
	defer rows.Close()

	var out []store.AccessEventRecord
	for rows.Next() {
		var (
			rec       store.AccessEventRecord
			createdMs int64
			direction string
			modality  string
			decision  string
			score     sql.NullFloat64
			opened    int
			vehicleID sql.NullInt64
			visitID   sql.NullInt64
			personID  sql.NullInt64
			payload   string
		)
		if err := rows.Scan(
			&rec.ID, &createdMs, &rec.CameraID, &direction, &modality,
			&rec.RawID, &rec.NormalizedID, &score, &decision, &rec.Reason, &opened,
			&vehicleID, &visitID, &personID, &payload, &rec.TriggeredBy,
		); err != nil {
			return nil, fmt.Errorf("ListEvents scan: %w", err)
		}

		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		rec.Direction = types.Direction(direction)
		rec.Modality = types.Modality(modality)
		rec.Decision = types.Decision(decision)
		if score.Valid {
			v := score.Float64
			rec.Score = &v
		}
		rec.Opened = opened == 1
		if vehicleID.Valid {
			v := vehicleID.Int64
			rec.VehicleID = &v
		}
		if visitID.Valid {
			v := visitID.Int64
			rec.VisitID = &v
		}
		if personID.Valid {
			v := personID.Int64
			rec.PersonID = &v
		}
		rec.Payload = []byte(payload)

		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEvents rows: %w", err)
	}
	return out, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
