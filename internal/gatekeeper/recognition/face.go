package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekogtypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"go.uber.org/zap"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

// rekognitionAPI is the slice of the Rekognition client the face gateway
// uses. Narrowed for test fakes.
type rekognitionAPI interface {
	SearchFacesByImage(ctx context.Context, in *rekognition.SearchFacesByImageInput, opts ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error)
	IndexFaces(ctx context.Context, in *rekognition.IndexFacesInput, opts ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error)
}

// faceMatch is the normalized view of one Rekognition match, kept in the
// audit payload alongside the decision.
type faceMatch struct {
	FaceID     string  `json:"face_id"`
	ExternalID string  `json:"external_image_id"`
	Similarity float64 `json:"similarity"` // percent, as reported upstream
}

// FaceClient searches a pre-provisioned Rekognition face collection. The
// collection is created once at provisioning time; Recognize assumes it
// exists and maps a missing collection to a transport error like any other
// service failure.
type FaceClient struct {
	api          rekognitionAPI
	collectionID string
	serviceFloor float32 // Rekognition-side FaceMatchThreshold, percent
	maxFaces     int32
	timeout      time.Duration
	log          *zap.SugaredLogger
}

// FaceClientConfig holds the construction parameters for NewFaceClient.
type FaceClientConfig struct {
	CollectionID string
	ServiceFloor float64       // percent; defaults to 80
	MaxFaces     int           // defaults to 5
	Timeout      time.Duration // per-call deadline; defaults to 12s
}

func NewFaceClient(api *rekognition.Client, cfg FaceClientConfig, log *zap.SugaredLogger) *FaceClient {
	return newFaceClient(api, cfg, log)
}

func newFaceClient(api rekognitionAPI, cfg FaceClientConfig, log *zap.SugaredLogger) *FaceClient {
	floor := cfg.ServiceFloor
	if floor <= 0 {
		floor = 80
	}
	maxFaces := cfg.MaxFaces
	if maxFaces <= 0 {
		maxFaces = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &FaceClient{
		api:          api,
		collectionID: cfg.CollectionID,
		serviceFloor: float32(floor),
		maxFaces:     int32(maxFaces),
		timeout:      timeout,
		log:          log,
	}
}

func (c *FaceClient) Recognize(ctx context.Context, image []byte, hints Hints) (Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.api.SearchFacesByImage(ctx, &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(c.collectionID),
		Image:              &rekogtypes.Image{Bytes: image},
		FaceMatchThreshold: aws.Float32(c.serviceFloor),
		MaxFaces:           aws.Int32(c.maxFaces),
		QualityFilter:      rekogtypes.QualityFilterAuto,
	})
	if err != nil {
		return Candidate{}, &TransportError{Service: "rekognition", Err: err}
	}

	matches := make([]faceMatch, 0, len(out.FaceMatches))
	for _, m := range out.FaceMatches {
		fm := faceMatch{}
		if m.Similarity != nil {
			fm.Similarity = float64(*m.Similarity)
		}
		if m.Face != nil {
			fm.FaceID = aws.ToString(m.Face.FaceId)
			fm.ExternalID = aws.ToString(m.Face.ExternalImageId)
		}
		matches = append(matches, fm)
	}

	payload, err := json.Marshal(map[string]any{"matches": matches})
	if err != nil {
		return Candidate{}, &TransportError{Service: "rekognition", Err: err}
	}

	cand := Candidate{
		Modality: types.ModalityFace,
		Payload:  payload,
	}

	if len(matches) == 0 {
		return cand, ErrNoCandidate
	}

	best := matches[0]
	cand.RawID = best.ExternalID
	// Upstream similarity is 0-100; the decision vocabulary is 0-1.
	cand.Confidence = best.Similarity / 100.0
	if id, ok := personIDFromExternalID(best.ExternalID); ok {
		cand.NormalizedID = fmt.Sprintf("%d", id)
	}

	c.log.Debugw("face matched",
		"external_id", best.ExternalID, "similarity", best.Similarity, "camera_id", hints.CameraID)
	return cand, nil
}

// IndexFace enrolls a face image in the collection under the given
// external id and returns the created face ids. Used by the enrollment
// flow, never by the decision engine.
func (c *FaceClient) IndexFace(ctx context.Context, image []byte, externalID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.api.IndexFaces(ctx, &rekognition.IndexFacesInput{
		CollectionId:    aws.String(c.collectionID),
		Image:           &rekogtypes.Image{Bytes: image},
		ExternalImageId: aws.String(externalID),
		QualityFilter:   rekogtypes.QualityFilterAuto,
	})
	if err != nil {
		return nil, &TransportError{Service: "rekognition", Err: err}
	}

	ids := make([]string, 0, len(out.FaceRecords))
	for _, fr := range out.FaceRecords {
		if fr.Face != nil {
			ids = append(ids, aws.ToString(fr.Face.FaceId))
		}
	}
	return ids, nil
}
