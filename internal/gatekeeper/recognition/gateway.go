package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

// ErrNoCandidate means the external service completed successfully but
// produced no usable result. This is NOT a failure: the caller must treat
// it as an unknown identity, never as a service error.
var ErrNoCandidate = errors.New("no recognition candidate")

// TransportError wraps a failed call to an external recognition service
// (network error, timeout, non-success status). Distinct from
// ErrNoCandidate so the decision engine can map it to ERROR_RECOGNITION
// instead of a deny.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Candidate is one normalized recognition result.
//
// Payload holds the exact upstream response body so the audit log can keep
// it for forensic replay. On an ErrNoCandidate return the identifier and
// confidence fields are zero but Payload is still populated.
type Candidate struct {
	Modality     types.Modality
	RawID        string
	NormalizedID string
	Confidence   float64 // always on a 0-1 scale
	Payload      json.RawMessage
}

// Hints carries optional per-request context for the external service.
type Hints struct {
	CameraID string
	Region   string // plate region/country hint, e.g. "bo"
}

// Gateway adapts one external recognition service. Implementations make
// exactly one external call per Recognize and never touch the audit log;
// auditing stays with the decision engine so failures are recorded too.
type Gateway interface {
	Recognize(ctx context.Context, image []byte, hints Hints) (Candidate, error)
}

// NormalizePlate canonicalizes a plate string: uppercase, all whitespace
// stripped. Registry lookups and audit records only ever see this form.
func NormalizePlate(plate string) string {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	return strings.Join(strings.Fields(plate), "")
}

// personIDFromExternalID recovers the numeric person id embedded in an
// external face id. Enrollment writes ids like "resident:31"; some older
// entries are a bare "31". The first digit run wins.
func personIDFromExternalID(externalID string) (int64, bool) {
	start := -1
	for i, r := range externalID {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return parseDigits(externalID[start:i])
		}
	}
	if start >= 0 {
		return parseDigits(externalID[start:])
	}
	return 0, false
}

func parseDigits(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
