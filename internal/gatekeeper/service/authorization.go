package service

import (
	"context"
	"strconv"
	"time"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/store"
)

// MatchKind says which registry, if any, produced the authorization match.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchVehicle
	MatchVisit
	MatchResident
)

// AuthorizationMatch is the single best match for one candidate. At most
// one of Vehicle/Visit/Person is set, consistent with Kind.
type AuthorizationMatch struct {
	Kind    MatchKind
	Vehicle *store.Vehicle
	Visit   *store.Visit
	Person  *store.Person
}

// AuthorizationReader answers "is this identity authorized right now"
// against the live registries. Every lookup is a fresh read: a vehicle
// deactivated a moment ago must stop matching on the very next check.
type AuthorizationReader struct {
	vehicles store.VehicleStore
	visits   store.VisitStore
	persons  store.PersonStore
}

func NewAuthorizationReader(v store.VehicleStore, vi store.VisitStore, p store.PersonStore) *AuthorizationReader {
	return &AuthorizationReader{vehicles: v, visits: vi, persons: p}
}

// MatchPlate checks a normalized plate against the vehicle registry first,
// then the visit registry. The order is a hard contract: a plate that is
// both a registered vehicle and an approved visit reports as the vehicle,
// and audit semantics downstream depend on that.
func (r *AuthorizationReader) MatchPlate(ctx context.Context, plate string, now time.Time) (AuthorizationMatch, error) {
	veh, err := r.vehicles.FindActiveByPlate(ctx, plate)
	if err != nil {
		return AuthorizationMatch{}, err
	}
	if veh != nil {
		return AuthorizationMatch{Kind: MatchVehicle, Vehicle: veh}, nil
	}

	visit, err := r.visits.FindOpenByPlate(ctx, plate, now)
	if err != nil {
		return AuthorizationMatch{}, err
	}
	if visit != nil {
		return AuthorizationMatch{Kind: MatchVisit, Visit: visit}, nil
	}

	return AuthorizationMatch{Kind: MatchNone}, nil
}

// MatchPerson checks the numeric person id recovered from an external face
// id against the person directory.
func (r *AuthorizationReader) MatchPerson(ctx context.Context, normalizedID string) (AuthorizationMatch, error) {
	personID, err := strconv.ParseInt(normalizedID, 10, 64)
	if err != nil {
		return AuthorizationMatch{Kind: MatchNone}, nil
	}

	p, err := r.persons.FindEnrolled(ctx, personID)
	if err != nil {
		return AuthorizationMatch{}, err
	}
	if p != nil {
		return AuthorizationMatch{Kind: MatchResident, Person: p}, nil
	}
	return AuthorizationMatch{Kind: MatchNone}, nil
}
