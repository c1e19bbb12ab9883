package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
)

// AuditStore is an in-memory append-only log of access decisions.
// It is intended for use in tests and dev environments.
type AuditStore struct {
	mu     sync.Mutex
	events []store.AccessEventRecord
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) RecordEvent(_ context.Context, rec store.AccessEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

func (s *AuditStore) ListEvents(_ context.Context, f store.EventFilter) ([]store.AccessEventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.AccessEventRecord, 0, len(s.events))
	// Newest first: events are appended in order, so walk backwards.
	for i := len(s.events) - 1; i >= 0; i-- {
		rec := s.events[i]
		if !matches(rec, f) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Events returns a copy of all recorded events in insertion order.
// Test-only helper.
func (s *AuditStore) Events() []store.AccessEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessEventRecord, len(s.events))
	copy(out, s.events)
	return out
}

func matches(rec store.AccessEventRecord, f store.EventFilter) bool {
	if f.From != nil && rec.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && rec.CreatedAt.After(*f.To) {
		return false
	}
	if f.CameraID != "" && !strings.EqualFold(rec.CameraID, f.CameraID) {
		return false
	}
	if len(f.Decisions) > 0 {
		found := false
		for _, d := range f.Decisions {
			if rec.Decision == d {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Direction != "" && rec.Direction != f.Direction {
		return false
	}
	if f.Opened != nil && rec.Opened != *f.Opened {
		return false
	}
	if f.Plate != "" && !strings.Contains(rec.NormalizedID, strings.ToUpper(strings.ReplaceAll(f.Plate, " ", ""))) {
		return false
	}
	if f.MinScore != nil && (rec.Score == nil || *rec.Score < *f.MinScore) {
		return false
	}
	if f.Modality != "" && rec.Modality != f.Modality {
		return false
	}
	return true
}
