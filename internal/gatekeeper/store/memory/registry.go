package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
)

// VehicleStore is an in-memory vehicle registry for tests and dev.
type VehicleStore struct {
	mu       sync.RWMutex
	vehicles []store.Vehicle
}

func NewVehicleStore() *VehicleStore {
	return &VehicleStore{}
}

// Put adds or replaces a vehicle by id. Test/dev helper.
func (s *VehicleStore) Put(v store.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.vehicles {
		if s.vehicles[i].ID == v.ID {
			s.vehicles[i] = v
			return
		}
	}
	s.vehicles = append(s.vehicles, v)
}

func (s *VehicleStore) FindActiveByPlate(_ context.Context, plate string) (*store.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.vehicles {
		v := s.vehicles[i]
		if v.Active && strings.EqualFold(v.Plate, plate) {
			out := v
			return &out, nil
		}
	}
	return nil, nil
}

// VisitStore is an in-memory visit registry for tests and dev.
type VisitStore struct {
	mu     sync.RWMutex
	visits []store.Visit
}

func NewVisitStore() *VisitStore {
	return &VisitStore{}
}

// Put adds or replaces a visit by id. Test/dev helper.
func (s *VisitStore) Put(v store.Visit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.visits {
		if s.visits[i].ID == v.ID {
			s.visits[i] = v
			return
		}
	}
	s.visits = append(s.visits, v)
}

func (s *VisitStore) FindOpenByPlate(_ context.Context, plate string, now time.Time) (*store.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *store.Visit
	for i := range s.visits {
		v := s.visits[i]
		if !strings.EqualFold(v.VehiclePlate, plate) {
			continue
		}
		if v.ApprovalStatus != store.ApprovalApproved {
			continue
		}
		if v.VisitStatus != store.VisitRegistered && v.VisitStatus != store.VisitCheckedIn {
			continue
		}
		if v.ApprovalExpiresAt != nil && v.ApprovalExpiresAt.Before(now) {
			continue
		}
		if best == nil || v.CreatedAt.After(best.CreatedAt) {
			out := v
			best = &out
		}
	}
	return best, nil
}

// PersonStore is an in-memory person/face directory for tests and dev.
type PersonStore struct {
	mu      sync.RWMutex
	persons map[int64]store.Person
}

func NewPersonStore() *PersonStore {
	return &PersonStore{persons: make(map[int64]store.Person)}
}

// Put adds or replaces a person. Test/dev helper.
func (s *PersonStore) Put(p store.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons[p.ID] = p
}

func (s *PersonStore) FindEnrolled(_ context.Context, personID int64) (*store.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[personID]
	if !ok || !p.Enrolled() {
		return nil, nil
	}
	out := p
	return &out, nil
}

func (s *PersonStore) MarkEnrolled(_ context.Context, personID int64, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[personID]
	if !ok {
		p = store.Person{ID: personID}
	}
	p.EnrolledAt = &t
	s.persons[personID] = p
	return nil
}
