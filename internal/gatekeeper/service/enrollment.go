package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

var ErrNoFaceIndexed = errors.New("no face could be indexed")

// FaceIndexer is the slice of the face gateway enrollment needs.
type FaceIndexer interface {
	IndexFace(ctx context.Context, image []byte, externalID string) ([]string, error)
}

// EnrollmentService registers faces in the external collection and marks
// the person enrolled in the directory. This is the one registry write in
// the subsystem; the decision engine itself never writes registries.
type EnrollmentService struct {
	indexer FaceIndexer
	persons store.PersonStore
	log     *zap.SugaredLogger
}

func NewEnrollmentService(indexer FaceIndexer, persons store.PersonStore, log *zap.SugaredLogger) *EnrollmentService {
	return &EnrollmentService{indexer: indexer, persons: persons, log: log}
}

// EnrollFace indexes the face image under "resident:<id>" and records the
// enrollment. The external index and the directory flag are written in
// that order; if the directory write fails the indexed face is orphaned
// upstream but harmless: FindEnrolled still reports the person as not
// enrolled.
func (s *EnrollmentService) EnrollFace(ctx context.Context, personID int64, image []byte) (types.EnrollResult, error) {
	if len(image) == 0 {
		return types.EnrollResult{}, ErrMissingImage
	}

	externalID := fmt.Sprintf("resident:%d", personID)

	faceIDs, err := s.indexer.IndexFace(ctx, image, externalID)
	if err != nil {
		return types.EnrollResult{}, err
	}
	if len(faceIDs) == 0 {
		return types.EnrollResult{}, ErrNoFaceIndexed
	}

	if err := s.persons.MarkEnrolled(ctx, personID, time.Now().UTC()); err != nil {
		return types.EnrollResult{}, err
	}

	s.log.Infow("face enrolled", "person_id", personID, "faces", len(faceIDs))

	return types.EnrollResult{
		OK:         true,
		PersonID:   personID,
		ExternalID: externalID,
		FaceIDs:    faceIDs,
	}, nil
}
