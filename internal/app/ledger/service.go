package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
	clockport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/clock"
	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/kvstore"
	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/resolver"
)

// Service owns the trip collection. Every mutation is mirrored to the store
// right after it is applied in memory; a failed mirror write is logged and the
// in-memory state is kept.
//
// It is safe for concurrent use.
type Service struct {
	store    kvstore.Store
	resolver resolver.Resolver
	home     domain.HomeRule
	clk      clockport.Clock
	log      *zap.Logger

	mu    sync.Mutex
	trips []domain.Trip

	// pending is set while a submission is waiting on the resolver.
	pending atomic.Bool

	newTripID func() domain.TripID
}

func NewService(store kvstore.Store, res resolver.Resolver, home domain.HomeRule, clk clockport.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		resolver: res,
		home:     home,
		clk:      clk,
		log:      log,
		trips:    []domain.Trip{},
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.Must(uuid.NewV7()).String())
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

// Trips returns a copy of the full collection in insertion order.
func (s *Service) Trips() []domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Trip(nil), s.trips...)
}

// SubmitTrip resolves the route for a new trip and records it.
//
// Only one submission may be resolving at a time; a concurrent call fails with
// SUBMISSION_PENDING and leaves the ledger untouched.
func (s *Service) SubmitTrip(ctx context.Context, in SubmitTripInput) (domain.Trip, error) {
	date := in.Date
	if date.IsZero() {
		date = domain.DateOf(s.clk.Now())
	}
	date, err := domain.ParseDate(string(date))
	if err != nil {
		return domain.Trip{}, validationError("date", "must be YYYY-MM-DD")
	}
	destination := domain.NormalizeDestination(in.Destination)
	if destination == "" {
		return domain.Trip{}, validationError("destination", "must be non-empty")
	}
	if err := checkCount(in.Count); err != nil {
		return domain.Trip{}, err
	}

	if !s.pending.CompareAndSwap(false, true) {
		return domain.Trip{}, submissionPendingError()
	}
	defer s.pending.Store(false)

	req := resolver.Request{
		Origin:      s.home.OriginFor(date),
		Destination: destination,
		Preferences: resolver.DefaultPreferences(),
	}
	route, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		s.log.Warn("route resolution failed",
			zap.String("destination", destination),
			zap.String("date", date.String()),
			zap.Error(err))
		return domain.Trip{}, resolutionFailedError(destination, err)
	}
	return s.AddTrip(ctx, date, destination, in.Count, route)
}

// AddTrip records a trip for an already-resolved route.
//
// A route with a negative or non-finite distance is treated as a failed
// resolution. Nothing is mutated when AddTrip returns an error.
func (s *Service) AddTrip(ctx context.Context, date domain.Date, destination string, count int, route resolver.Route) (domain.Trip, error) {
	date, err := domain.ParseDate(string(date))
	if err != nil {
		return domain.Trip{}, validationError("date", "must be YYYY-MM-DD")
	}
	destination = domain.NormalizeDestination(destination)
	if destination == "" {
		return domain.Trip{}, validationError("destination", "must be non-empty")
	}
	if err := checkCount(count); err != nil {
		return domain.Trip{}, err
	}
	if route.OneWayMiles < 0 || route.OneWayMiles > domain.MaxOneWayMiles || math.IsNaN(route.OneWayMiles) {
		return domain.Trip{}, resolutionFailedError(destination, resolver.ErrResolutionFailed)
	}

	oneWay := domain.MilesFromFloat(route.OneWayMiles)
	t := domain.Trip{
		Date:           date,
		Destination:    destination,
		OneWayMiles:    oneWay,
		RoundTripMiles: domain.RoundTripFor(oneWay),
		HasTolls:       route.HasTolls,
	}.WithCount(count)

	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.newTripID()
	if s.indexOf(t.ID) >= 0 {
		return domain.Trip{}, tripIDConflictError(t.ID)
	}
	s.trips = append(s.trips, t)
	s.persistLocked(ctx)
	return t, nil
}

// UpdateTrip replaces a trip's date and count and recomputes its total.
// Destination, distances and the toll flag are kept.
func (s *Service) UpdateTrip(ctx context.Context, id domain.TripID, date domain.Date, count int) (domain.Trip, error) {
	date, err := domain.ParseDate(string(date))
	if err != nil {
		return domain.Trip{}, validationError("date", "must be YYYY-MM-DD")
	}
	return s.update(ctx, id, count, func(t *domain.Trip) { t.Date = date })
}

// UpdateCount replaces a trip's count and recomputes its total.
func (s *Service) UpdateCount(ctx context.Context, id domain.TripID, count int) (domain.Trip, error) {
	return s.update(ctx, id, count, nil)
}

func (s *Service) update(ctx context.Context, id domain.TripID, count int, apply func(*domain.Trip)) (domain.Trip, error) {
	if err := checkCount(count); err != nil {
		return domain.Trip{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Trip{}, notFoundError(id)
	}
	t := s.trips[i].WithCount(count)
	if apply != nil {
		apply(&t)
	}
	s.trips[i] = t
	s.persistLocked(ctx)
	return t, nil
}

// DeleteTrip removes a trip. Deleting an unknown id is a no-op.
func (s *Service) DeleteTrip(ctx context.Context, id domain.TripID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.trips = append(s.trips[:i:i], s.trips[i+1:]...)
	s.persistLocked(ctx)
}

// Get returns a single trip by id.
func (s *Service) Get(id domain.TripID) (domain.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Trip{}, notFoundError(id)
	}
	return s.trips[i], nil
}

func checkCount(count int) *Error {
	if count < 1 || count > domain.MaxCount {
		return validationError("count", fmt.Sprintf("must be between 1 and %d", domain.MaxCount))
	}
	return nil
}

func (s *Service) indexOf(id domain.TripID) int {
	for i := range s.trips {
		if s.trips[i].ID == id {
			return i
		}
	}
	return -1
}
