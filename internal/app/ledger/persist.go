package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
)

// StorageKey is the fixed store key holding the JSON-encoded collection.
const StorageKey = "trips"

// Load replaces the in-memory collection with the stored one.
//
// A missing entry yields an empty ledger. A read failure or a corrupt entry is
// logged and also yields an empty ledger; the service keeps working in memory.
// It returns the number of trips loaded.
func (s *Service) Load(ctx context.Context) int {
	trips := []domain.Trip{}

	raw, ok, err := s.store.Get(ctx, StorageKey)
	switch {
	case err != nil:
		s.log.Error("load trips: store read failed; starting empty", zap.Error(err))
	case !ok:
		s.log.Debug("load trips: no stored trips")
	default:
		decoded, err := DecodeTrips(raw)
		if err != nil {
			s.log.Error("load trips: stored value is corrupt; starting empty", zap.Error(err))
			break
		}
		trips = s.sanitize(decoded)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips = trips
	return len(trips)
}

// sanitize drops records that break ledger invariants and recomputes totals.
func (s *Service) sanitize(in []domain.Trip) []domain.Trip {
	out := make([]domain.Trip, 0, len(in))
	seen := make(map[domain.TripID]struct{}, len(in))
	for _, t := range in {
		if reason := invalidStoredTrip(t); reason != "" {
			s.log.Warn("load trips: dropping invalid record",
				zap.String("id", string(t.ID)),
				zap.String("reason", reason))
			continue
		}
		if _, dup := seen[t.ID]; dup {
			s.log.Warn("load trips: dropping duplicate id", zap.String("id", string(t.ID)))
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t.WithCount(t.Count))
	}
	return out
}

// invalidStoredTrip names the first ledger rule t breaks, or returns "".
func invalidStoredTrip(t domain.Trip) string {
	maxRoundTrip := domain.RoundTripFor(domain.MilesFromFloat(domain.MaxOneWayMiles))
	switch {
	case t.ID == "":
		return "empty id"
	case t.Count < 1 || t.Count > domain.MaxCount:
		return "count out of range"
	case t.OneWayMiles < 0 || t.RoundTripMiles < 0 || t.RoundTripMiles > maxRoundTrip:
		return "miles out of range"
	}
	if d, err := domain.ParseDate(string(t.Date)); err != nil || d != t.Date {
		return "malformed date"
	}
	return ""
}

// persistLocked mirrors the collection to the store. Callers hold s.mu.
func (s *Service) persistLocked(ctx context.Context) {
	raw, err := EncodeTrips(s.trips)
	if err != nil {
		s.log.Error("persist trips: encode failed", zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, StorageKey, raw); err != nil {
		s.log.Error("persist trips: store write failed; continuing in memory",
			zap.Int("trips", len(s.trips)),
			zap.Error(err))
	}
}

// EncodeTrips serializes a collection in the stored format.
func EncodeTrips(trips []domain.Trip) ([]byte, error) {
	if trips == nil {
		trips = []domain.Trip{}
	}
	return json.Marshal(trips)
}

// DecodeTrips parses a stored collection.
func DecodeTrips(raw []byte) ([]domain.Trip, error) {
	var trips []domain.Trip
	if err := json.Unmarshal(raw, &trips); err != nil {
		return nil, fmt.Errorf("decode trips: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, nil
}
