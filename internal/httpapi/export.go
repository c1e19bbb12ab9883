package httpapi

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"
)

// handleExportCSV streams the audit log as CSV with the same filters as
// the list endpoint.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_filter", err.Error())
		return
	}

	events, err := s.audit.ListEvents(r.Context(), f)
	if err != nil {
		s.logger.Errorw("export access events failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="access_events.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"id", "created_at", "camera_id", "direction", "modality",
		"raw_identifier", "normalized_identifier", "score",
		"decision", "opened", "reason",
		"vehicle_id", "visit_id", "person_id", "triggered_by",
	})

	for _, e := range events {
		score := ""
		if e.Score != nil {
			score = strconv.FormatFloat(*e.Score, 'f', -1, 64)
		}
		_ = cw.Write([]string{
			e.ID,
			e.CreatedAt.Format(time.RFC3339),
			e.CameraID,
			string(e.Direction),
			string(e.Modality),
			e.RawID,
			e.NormalizedID,
			score,
			string(e.Decision),
			strconv.FormatBool(e.Opened),
			e.Reason,
			formatID(e.VehicleID),
			formatID(e.VisitID),
			formatID(e.PersonID),
			e.TriggeredBy,
		})
	}
	cw.Flush()
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
