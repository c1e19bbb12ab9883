package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/service"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

// maxUpload caps snapshot upload size. Gate camera JPEG frames run well
// under 8 MiB.
const maxUpload = 8 << 20

type Dependencies struct {
	Logger            *zap.SugaredLogger
	Addr              string
	AccessService     *service.AccessService
	EnrollmentService *service.EnrollmentService
	AuditStore        store.AuditStore
	OperatorTokens    map[string]string // token -> operator; empty disables auth
}

type Server struct {
	httpServer *http.Server
	logger     *zap.SugaredLogger
	mux        *http.ServeMux
	access     *service.AccessService
	enrollment *service.EnrollmentService
	audit      store.AuditStore
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:     d.Logger,
		mux:        mux,
		access:     d.AccessService,
		enrollment: d.EnrollmentService,
		audit:      d.AuditStore,
	}

	mux.HandleFunc("POST /v1/snapshot_check", s.handleCheck(types.ModalityPlate))
	mux.HandleFunc("POST /v1/face_check", s.handleCheck(types.ModalityFace))
	mux.HandleFunc("POST /v1/faces", s.handleEnrollFace)
	mux.HandleFunc("GET /v1/access_events", s.handleListEvents)
	mux.HandleFunc("GET /v1/access_events/export", s.handleExportCSV)

	handler := operatorAuthMiddleware(d.OperatorTokens, mux)
	handler = loggingMiddleware(d.Logger, handler)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleCheck serves both modalities: multipart form with an "image" file,
// optional camera_id and direction fields.
func (s *Server) handleCheck(modality types.Modality) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image, err := readImageField(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_image", err.Error())
			return
		}

		req := types.CheckRequest{
			Modality:  modality,
			Image:     image,
			CameraID:  strings.TrimSpace(r.FormValue("camera_id")),
			Direction: types.ParseDirection(strings.ToUpper(strings.TrimSpace(r.FormValue("direction")))),
			Operator:  operatorFrom(r.Context()),
		}

		res, err := s.access.Check(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrMissingImage):
				writeError(w, http.StatusBadRequest, "missing_image", err.Error())
			case errors.Is(err, service.ErrModalityConfigured):
				writeError(w, http.StatusServiceUnavailable, "not_configured", err.Error())
			default:
				s.logger.Errorw("access check failed", "err", err)
				writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			}
			return
		}

		// A recognition transport failure is audited but surfaced as a
		// bad gateway so the operator UI can offer a retry.
		status := http.StatusOK
		if res.Decision == types.DecisionErrorRecognition {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, res)
	}
}

func (s *Server) handleEnrollFace(w http.ResponseWriter, r *http.Request) {
	if s.enrollment == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "face enrollment is not configured")
		return
	}

	image, err := readImageField(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_image", err.Error())
		return
	}

	personID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("person_id")), 10, 64)
	if err != nil || personID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_person_id", "person_id must be a positive integer")
		return
	}

	res, err := s.enrollment.EnrollFace(r.Context(), personID, image)
	if err != nil {
		if errors.Is(err, service.ErrNoFaceIndexed) {
			writeError(w, http.StatusUnprocessableEntity, "no_face", err.Error())
			return
		}
		s.logger.Errorw("face enrollment failed", "person_id", personID, "err", err)
		writeError(w, http.StatusBadGateway, "enrollment_failed", "face could not be enrolled")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_filter", err.Error())
		return
	}

	events, err := s.audit.ListEvents(r.Context(), f)
	if err != nil {
		s.logger.Errorw("list access events failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventToJSON(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out, "count": len(out)})
}

// filterFromQuery maps list/export query parameters onto an EventFilter.
// Unparseable values are rejected rather than silently ignored.
func filterFromQuery(r *http.Request) (store.EventFilter, error) {
	q := r.URL.Query()
	var f store.EventFilter

	if v := q.Get("from"); v != "" {
		t, err := parseDay(v)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDay(v)
		if err != nil {
			return f, err
		}
		// Inclusive day range: extend to the end of the day.
		end := t.Add(24*time.Hour - time.Millisecond)
		f.To = &end
	}
	f.CameraID = q.Get("camera_id")
	if v := q.Get("decision"); v != "" {
		f.Decisions = append(f.Decisions, types.Decision(strings.ToUpper(v)))
	}
	if v := q.Get("decisions"); v != "" {
		for _, d := range strings.Split(v, ",") {
			d = strings.ToUpper(strings.TrimSpace(d))
			if d != "" {
				f.Decisions = append(f.Decisions, types.Decision(d))
			}
		}
	}
	f.Direction = types.ParseDirection(strings.ToUpper(q.Get("direction")))
	if v := q.Get("opened"); v != "" {
		switch v {
		case "true", "1":
			b := true
			f.Opened = &b
		case "false", "0":
			b := false
			f.Opened = &b
		default:
			return f, errors.New("opened must be true|false")
		}
	}
	f.Plate = q.Get("plate")
	if v := q.Get("min_score"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, errors.New("min_score must be a number")
		}
		f.MinScore = &m
	}
	if v := q.Get("modality"); v != "" {
		f.Modality = types.Modality(strings.ToUpper(v))
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

func parseDay(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, errors.New("dates must be YYYY-MM-DD")
	}
	return t.UTC(), nil
}

// eventJSON is the wire form of an audit record.
type eventJSON struct {
	ID           string          `json:"id"`
	CreatedAt    string          `json:"created_at"`
	CameraID     string          `json:"camera_id"`
	Direction    string          `json:"direction,omitempty"`
	Modality     string          `json:"modality"`
	RawID        string          `json:"raw_identifier,omitempty"`
	NormalizedID string          `json:"normalized_identifier,omitempty"`
	Score        *float64        `json:"score,omitempty"`
	Decision     string          `json:"decision"`
	Reason       string          `json:"reason"`
	Opened       bool            `json:"opened"`
	VehicleID    *int64          `json:"vehicle_id,omitempty"`
	VisitID      *int64          `json:"visit_id,omitempty"`
	PersonID     *int64          `json:"person_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	TriggeredBy  string          `json:"triggered_by,omitempty"`
}

func eventToJSON(e store.AccessEventRecord) eventJSON {
	return eventJSON{
		ID:           e.ID,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339Nano),
		CameraID:     e.CameraID,
		Direction:    string(e.Direction),
		Modality:     string(e.Modality),
		RawID:        e.RawID,
		NormalizedID: e.NormalizedID,
		Score:        e.Score,
		Decision:     string(e.Decision),
		Reason:       e.Reason,
		Opened:       e.Opened,
		VehicleID:    e.VehicleID,
		VisitID:      e.VisitID,
		PersonID:     e.PersonID,
		Payload:      e.Payload,
		TriggeredBy:  e.TriggeredBy,
	}
}

// readImageField pulls the "image" file out of a multipart form.
func readImageField(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, errors.New("body must be multipart/form-data with an image file")
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, errors.New("image file field is required")
	}
	defer file.Close()

	b, err := io.ReadAll(io.LimitReader(file, maxUpload))
	if err != nil {
		return nil, errors.New("image could not be read")
	}
	if len(b) == 0 {
		return nil, errors.New("image file is empty")
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"error": code, "detail": detail})
}
