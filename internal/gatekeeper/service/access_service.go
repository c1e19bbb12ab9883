package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/recognition"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

var (
	ErrMissingImage       = errors.New("image is required")
	ErrUnknownModality    = errors.New("unknown recognition modality")
	ErrModalityConfigured = errors.New("recognition modality not configured")
)

// DecisionPolicy holds the configurable knobs of the decision engine.
type DecisionPolicy struct {
	// FaceAllowThreshold is the minimum face similarity (0-1 scale) to
	// allow entry. Comparison is >=: a candidate exactly at the
	// threshold passes.
	FaceAllowThreshold float64
}

// CameraInfo supplies per-camera audit metadata.
type CameraInfo struct {
	Direction types.Direction
	Region    string // plate region hint forwarded to the gateway
}

// CameraResolver maps a camera id to its metadata. Cameras not in the map
// resolve to the zero CameraInfo (unspecified direction, no region hint).
type CameraResolver interface {
	Camera(cameraID string) CameraInfo
}

// StaticCameras is a fixed CameraResolver backed by a map.
type StaticCameras map[string]CameraInfo

func (m StaticCameras) Camera(cameraID string) CameraInfo { return m[cameraID] }

// AccessService is the decision engine: one Check per snapshot, stateless
// across checks. The decision is a pure function of the recognition
// candidate and the registry state; time enters only through the
// visit-expiry comparison.
type AccessService struct {
	gateways map[types.Modality]recognition.Gateway
	authz    *AuthorizationReader
	audit    store.AuditStore
	gate     GateSink
	cameras  CameraResolver
	policy   DecisionPolicy
	log      *zap.SugaredLogger
}

type AccessServiceDeps struct {
	PlateGateway  recognition.Gateway // nil disables PLATE checks
	FaceGateway   recognition.Gateway // nil disables FACE checks
	Authorization *AuthorizationReader
	Audit         store.AuditStore
	Gate          GateSink
	Cameras       CameraResolver
	Policy        DecisionPolicy
	Logger        *zap.SugaredLogger
}

func NewAccessService(d AccessServiceDeps) *AccessService {
	gateways := make(map[types.Modality]recognition.Gateway, 2)
	if d.PlateGateway != nil {
		gateways[types.ModalityPlate] = d.PlateGateway
	}
	if d.FaceGateway != nil {
		gateways[types.ModalityFace] = d.FaceGateway
	}
	return &AccessService{
		gateways: gateways,
		authz:    d.Authorization,
		audit:    d.Audit,
		gate:     d.Gate,
		cameras:  d.Cameras,
		policy:   d.Policy,
		log:      d.Logger,
	}
}

// Check runs one full access check: recognize, authorize, decide, audit,
// and command the gate. Exactly one audit record is written per call that
// reaches the recognition step, including recognition failures. The audit
// write is synchronous and survives cancellation of the caller's context.
func (s *AccessService) Check(ctx context.Context, req types.CheckRequest) (types.CheckResult, error) {
	now := time.Now().UTC()

	if len(req.Image) == 0 {
		return types.CheckResult{}, ErrMissingImage
	}
	if req.Modality != types.ModalityPlate && req.Modality != types.ModalityFace {
		return types.CheckResult{}, ErrUnknownModality
	}
	gw, ok := s.gateways[req.Modality]
	if !ok {
		return types.CheckResult{}, fmt.Errorf("%w: %s", ErrModalityConfigured, req.Modality)
	}

	camera := s.cameras.Camera(req.CameraID)
	direction := req.Direction
	if direction == types.DirectionUnspecified {
		direction = camera.Direction
	}

	rec := store.AccessEventRecord{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		CameraID:    req.CameraID,
		Direction:   direction,
		Modality:    req.Modality,
		TriggeredBy: req.Operator,
	}

	cand, rerr := gw.Recognize(ctx, req.Image, recognition.Hints{
		CameraID: req.CameraID,
		Region:   camera.Region,
	})

	var match AuthorizationMatch
	switch {
	case rerr == nil:
		rec.RawID = cand.RawID
		rec.NormalizedID = cand.NormalizedID
		score := cand.Confidence
		rec.Score = &score
		rec.Payload = cand.Payload

		var err error
		match, err = s.authorize(ctx, req.Modality, cand, now)
		if err != nil {
			return types.CheckResult{}, err
		}
		rec.Decision, rec.Reason = s.decide(req.Modality, cand, match)

	case errors.Is(rerr, recognition.ErrNoCandidate):
		// Successful call, nothing usable: a deny, not an error. The
		// candidate may still carry a raw identifier (a blank or
		// unparseable plate); keep it and its score in the record.
		rec.RawID = cand.RawID
		rec.NormalizedID = cand.NormalizedID
		if cand.RawID != "" {
			score := cand.Confidence
			rec.Score = &score
		}
		rec.Payload = cand.Payload
		rec.Decision = types.DecisionDenyUnknown
		rec.Reason = "no reliable identifier"

	default:
		rec.Decision = types.DecisionErrorRecognition
		rec.Reason = fmt.Sprintf("recognition error: %v", rerr)
		rec.Payload = errorPayload(rerr)
		s.log.Warnw("recognition failed",
			"modality", req.Modality, "camera_id", req.CameraID, "err", rerr)
	}

	rec.Opened = rec.Decision.Opened()
	if rec.Opened {
		switch match.Kind {
		case MatchVehicle:
			rec.VehicleID = &match.Vehicle.ID
		case MatchVisit:
			rec.VisitID = &match.Visit.ID
		case MatchResident:
			rec.PersonID = &match.Person.ID
		}
	}

	// Audit every attempt. The write is detached from the caller's
	// cancellation: an aborted HTTP request after the external call must
	// not skip the record. A failed write fails the whole check.
	if err := s.audit.RecordEvent(context.WithoutCancel(ctx), rec); err != nil {
		return types.CheckResult{}, fmt.Errorf("record access event: %w", err)
	}

	if rec.Opened {
		if err := s.gate.Open(context.WithoutCancel(ctx), req.CameraID); err != nil {
			// The decision stands and is already audited; a sink
			// failure is an operational problem, not a deny.
			s.log.Errorw("gate open failed", "camera_id", req.CameraID, "err", err)
		}
	}

	return resultFromRecord(rec, rerr != nil && !errors.Is(rerr, recognition.ErrNoCandidate)), nil
}

// authorize looks the candidate up in the registries for its modality.
// FACE candidates below the allow threshold skip the lookup entirely: a
// weak match must not leak directory information into the decision.
func (s *AccessService) authorize(ctx context.Context, m types.Modality, cand recognition.Candidate, now time.Time) (AuthorizationMatch, error) {
	switch m {
	case types.ModalityPlate:
		return s.authz.MatchPlate(ctx, cand.NormalizedID, now)
	case types.ModalityFace:
		if cand.Confidence < s.policy.FaceAllowThreshold {
			return AuthorizationMatch{Kind: MatchNone}, nil
		}
		return s.authz.MatchPerson(ctx, cand.NormalizedID)
	default:
		return AuthorizationMatch{Kind: MatchNone}, nil
	}
}

// decide maps a candidate plus its authorization match to the decision
// and reason. Pure: same inputs, same outputs.
func (s *AccessService) decide(m types.Modality, cand recognition.Candidate, match AuthorizationMatch) (types.Decision, string) {
	switch m {
	case types.ModalityPlate:
		switch match.Kind {
		case MatchVehicle:
			return types.DecisionAllowResident,
				fmt.Sprintf("registered vehicle owner=%d", match.Vehicle.OwnerID)
		case MatchVisit:
			return types.DecisionAllowVisit,
				fmt.Sprintf("approved visit id=%d", match.Visit.ID)
		default:
			return types.DecisionDenyUnknown, "no vehicle or visit match"
		}

	case types.ModalityFace:
		if cand.Confidence < s.policy.FaceAllowThreshold {
			return types.DecisionDenyUnknown, "below similarity threshold"
		}
		if match.Kind == MatchResident {
			return types.DecisionAllowResident,
				fmt.Sprintf("face match person=%d", match.Person.ID)
		}
		return types.DecisionDenyUnknown, "no enrolled person match"
	}

	return types.DecisionDenyUnknown, "no reliable identifier"
}

func resultFromRecord(rec store.AccessEventRecord, recognitionFailed bool) types.CheckResult {
	return types.CheckResult{
		OK:           !recognitionFailed,
		EventID:      rec.ID,
		Decision:     rec.Decision,
		Reason:       rec.Reason,
		Opened:       rec.Opened,
		CameraID:     rec.CameraID,
		Direction:    rec.Direction,
		RawID:        rec.RawID,
		NormalizedID: rec.NormalizedID,
		Confidence:   rec.Score,
		VehicleID:    rec.VehicleID,
		VisitID:      rec.VisitID,
		PersonID:     rec.PersonID,
		ServerTime:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func errorPayload(err error) json.RawMessage {
	b, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return json.RawMessage(`{"error":"recognition failure"}`)
	}
	return b
}
