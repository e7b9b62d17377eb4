package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	memclock "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/memory/clock"
	memkvstore "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/memory/kvstore"
	memresolver "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/memory/resolver"
	"github.com/Overland-East-Bay/mileage-tracker/internal/app/ledger"
	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/resolver"
)

var home = domain.HomeRule{OldAddress: "1 Old Rd", NewAddress: "2 New Ave", Cutoff: "2024-06-01"}

func newTestService(t *testing.T) (*ledger.Service, *memkvstore.Store, *memresolver.Resolver) {
	t.Helper()
	store := memkvstore.NewStore()
	res := memresolver.New()
	clk := memclock.NewManualClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	svc := ledger.NewService(store, res, home, clk, nil)
	n := 0
	svc.SetNewTripIDForTest(func() domain.TripID {
		n++
		return domain.TripID(fmt.Sprintf("t%d", n))
	})
	return svc, store, res
}

func storedTrips(t *testing.T, store *memkvstore.Store) []domain.Trip {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), ledger.StorageKey)
	if err != nil || !ok {
		t.Fatalf("store.Get ok=%v err=%v", ok, err)
	}
	trips, err := ledger.DecodeTrips(raw)
	if err != nil {
		t.Fatalf("DecodeTrips: %v", err)
	}
	return trips
}

func TestService_AddTrip_ComputesMileage(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	got, err := svc.AddTrip(context.Background(), "2024-01-10", "123 Main St", 2, resolver.Route{OneWayMiles: 10.0})
	if err != nil {
		t.Fatalf("AddTrip: %v", err)
	}
	if got.ID != "t1" || got.RoundTripMiles.String() != "20.0" || got.TotalMiles.String() != "40.0" || got.HasTolls {
		t.Fatalf("trip=%+v", got)
	}

	if diff := cmp.Diff([]domain.Trip{got}, storedTrips(t, store)); diff != "" {
		t.Fatalf("stored trips mismatch (-want +got):\n%s", diff)
	}
}

func TestService_AddTrip_RoundTripIsTwiceRoundedOneWay(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	got, err := svc.AddTrip(context.Background(), "2024-01-10", "Airport", 3, resolver.Route{OneWayMiles: 10.26, HasTolls: true})
	if err != nil {
		t.Fatalf("AddTrip: %v", err)
	}
	if got.OneWayMiles.String() != "10.3" || got.RoundTripMiles.String() != "20.6" || got.TotalMiles.String() != "61.8" {
		t.Fatalf("trip=%+v", got)
	}
	if !got.HasTolls {
		t.Fatalf("expected HasTolls")
	}
}

func TestService_AddTrip_RejectsInvalidInputWithoutMutation(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		date  domain.Date
		dest  string
		count int
		route resolver.Route
		code  string
	}{
		{"zero count", "2024-01-10", "A", 0, resolver.Route{OneWayMiles: 1}, ledger.CodeValidation},
		{"bad date", "01/10/2024", "A", 1, resolver.Route{OneWayMiles: 1}, ledger.CodeValidation},
		{"blank destination", "2024-01-10", "   ", 1, resolver.Route{OneWayMiles: 1}, ledger.CodeValidation},
		{"negative distance", "2024-01-10", "A", 1, resolver.Route{OneWayMiles: -1}, ledger.CodeResolutionFailed},
	}
	for _, tc := range cases {
		_, err := svc.AddTrip(ctx, tc.date, tc.dest, tc.count, tc.route)
		if !ledger.HasCode(err, tc.code) {
			t.Fatalf("%s: err=%v, want code %s", tc.name, err, tc.code)
		}
	}
	if n := len(svc.Trips()); n != 0 {
		t.Fatalf("len(trips)=%d, want 0", n)
	}
	if _, ok, _ := store.Get(ctx, ledger.StorageKey); ok {
		t.Fatalf("expected nothing persisted")
	}
}

func TestService_UpdateTrip_RecomputesTotalAndKeepsRoute(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	orig, _ := svc.AddTrip(ctx, "2024-01-10", "123 Main St", 2, resolver.Route{OneWayMiles: 10.0, HasTolls: true})

	got, err := svc.UpdateTrip(ctx, orig.ID, "2024-02-01", 5)
	if err != nil {
		t.Fatalf("UpdateTrip: %v", err)
	}
	want := orig
	want.Date = "2024-02-01"
	want.Count = 5
	want.TotalMiles = domain.MilesFromFloat(100)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("UpdateTrip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]domain.Trip{want}, storedTrips(t, store)); diff != "" {
		t.Fatalf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestService_UpdateCount_KeepsDate(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	orig, _ := svc.AddTrip(ctx, "2024-01-10", "Gym", 1, resolver.Route{OneWayMiles: 2.5})

	got, err := svc.UpdateCount(ctx, orig.ID, 4)
	if err != nil {
		t.Fatalf("UpdateCount: %v", err)
	}
	if got.Date != "2024-01-10" || got.Count != 4 || got.TotalMiles.String() != "20.0" {
		t.Fatalf("trip=%+v", got)
	}
	if got.TotalMiles != got.RoundTripMiles.Times(got.Count) {
		t.Fatalf("total drifted: %+v", got)
	}
}

func TestService_Update_NotFoundAndInvalidCount(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()
	orig, _ := svc.AddTrip(ctx, "2024-01-10", "Gym", 1, resolver.Route{OneWayMiles: 2.5})

	_, err := svc.UpdateTrip(ctx, "missing", "2024-01-11", 1)
	var ae *ledger.Error
	if !errors.As(err, &ae) || ae.Status != 404 || ae.Code != ledger.CodeTripNotFound {
		t.Fatalf("err=%v", err)
	}
	if _, err := svc.UpdateCount(ctx, "missing", 2); !ledger.HasCode(err, ledger.CodeTripNotFound) {
		t.Fatalf("UpdateCount err=%v", err)
	}
	if _, err := svc.UpdateCount(ctx, orig.ID, 0); !ledger.HasCode(err, ledger.CodeValidation) {
		t.Fatalf("UpdateCount(0) err=%v", err)
	}
	got, _ := svc.Get(orig.ID)
	if got.Count != 1 {
		t.Fatalf("count=%d, want 1", got.Count)
	}
}

func TestService_DeleteTrip(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	ctx := context.Background()
	a, _ := svc.AddTrip(ctx, "2024-01-10", "A", 1, resolver.Route{OneWayMiles: 1})
	b, _ := svc.AddTrip(ctx, "2024-01-11", "B", 1, resolver.Route{OneWayMiles: 2})
	c, _ := svc.AddTrip(ctx, "2024-01-12", "C", 1, resolver.Route{OneWayMiles: 3})

	svc.DeleteTrip(ctx, b.ID)
	svc.DeleteTrip(ctx, "missing")

	for _, tr := range svc.FilterByDateRange("0001-01-01", "9999-12-31") {
		if tr.ID == b.ID {
			t.Fatalf("deleted trip %s still listed", b.ID)
		}
	}
	want := []domain.Trip{a, c}
	if diff := cmp.Diff(want, svc.Trips()); diff != "" {
		t.Fatalf("trips mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, storedTrips(t, store)); diff != "" {
		t.Fatalf("stored mismatch (-want +got):\n%s", diff)
	}
}

func TestService_LoadRoundTrip(t *testing.T) {
	t.Parallel()

	svc, store, res := newTestService(t)
	ctx := context.Background()
	_, _ = svc.AddTrip(ctx, "2024-01-10", "123 Main St", 2, resolver.Route{OneWayMiles: 10.0})
	_, _ = svc.AddTrip(ctx, "2024-01-05", "Lake, Tahoe", 1, resolver.Route{OneWayMiles: 187.43, HasTolls: true})
	b, _ := svc.AddTrip(ctx, "2024-01-07", "Office", 1, resolver.Route{OneWayMiles: 4})
	_, _ = svc.UpdateCount(ctx, b.ID, 9)

	reloaded := ledger.NewService(store, res, home, memclock.NewManualClock(time.Unix(0, 0)), nil)
	if n := reloaded.Load(ctx); n != 3 {
		t.Fatalf("Load()=%d, want 3", n)
	}
	if diff := cmp.Diff(svc.Trips(), reloaded.Trips()); diff != "" {
		t.Fatalf("reloaded mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Load_MissingAndCorrupt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memkvstore.NewStore()
	svc := ledger.NewService(store, memresolver.New(), home, memclock.NewManualClock(time.Unix(0, 0)), nil)

	if n := svc.Load(ctx); n != 0 {
		t.Fatalf("Load(missing)=%d", n)
	}

	_ = store.Put(ctx, ledger.StorageKey, []byte(`{not json`))
	if n := svc.Load(ctx); n != 0 || len(svc.Trips()) != 0 {
		t.Fatalf("Load(corrupt)=%d trips=%v", n, svc.Trips())
	}
}

func TestService_Load_SanitizesStoredRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memkvstore.NewStore()
	_ = store.Put(ctx, ledger.StorageKey, []byte(`[
		{"id":1704873600000,"date":"2024-01-10","destination":"A","oneWayMiles":"10.0","roundTripMiles":"20.0","count":2,"totalMiles":"999.0","hasTolls":false},
		{"id":1704873600000,"date":"2024-01-11","destination":"dup","oneWayMiles":"1.0","roundTripMiles":"2.0","count":1,"totalMiles":"2.0","hasTolls":false},
		{"id":"x","date":"2024-01-12","destination":"zero","oneWayMiles":"1.0","roundTripMiles":"2.0","count":0,"totalMiles":"0.0","hasTolls":false},
		{"id":"d","date":"2024-1-5","destination":"loose date","oneWayMiles":"1.0","roundTripMiles":"2.0","count":1,"totalMiles":"2.0","hasTolls":false},
		{"id":"n","date":"2024-01-13","destination":"negative","oneWayMiles":"1.0","roundTripMiles":"-2.0","count":1,"totalMiles":"-2.0","hasTolls":false},
		{"id":"c","date":"2024-01-14","destination":"huge count","oneWayMiles":"1.0","roundTripMiles":"2.0","count":1152921504606846976,"totalMiles":"0.0","hasTolls":false}
	]`))
	svc := ledger.NewService(store, memresolver.New(), home, memclock.NewManualClock(time.Unix(0, 0)), nil)
	if n := svc.Load(ctx); n != 1 {
		t.Fatalf("Load()=%d, want 1", n)
	}
	got := svc.Trips()[0]
	if got.ID != "1704873600000" || got.TotalMiles.String() != "40.0" {
		t.Fatalf("trip=%+v", got)
	}
}

type failingStore struct{ *memkvstore.Store }

func (f *failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestService_PersistFailureKeepsMutation(t *testing.T) {
	t.Parallel()

	store := &failingStore{Store: memkvstore.NewStore()}
	svc := ledger.NewService(store, memresolver.New(), home, memclock.NewManualClock(time.Unix(0, 0)), nil)

	tr, err := svc.AddTrip(context.Background(), "2024-01-10", "A", 1, resolver.Route{OneWayMiles: 3})
	if err != nil {
		t.Fatalf("AddTrip: %v", err)
	}
	if got := svc.Trips(); len(got) != 1 || got[0].ID != tr.ID {
		t.Fatalf("trips=%v", got)
	}
}

func TestService_SubmitTrip_UsesHomeRuleForTripDate(t *testing.T) {
	t.Parallel()

	svc, _, res := newTestService(t)
	res.Set("Beach", resolver.Route{OneWayMiles: 12.34, HasTolls: true})
	ctx := context.Background()

	if _, err := svc.SubmitTrip(ctx, ledger.SubmitTripInput{Date: "2024-05-31", Destination: " Beach ", Count: 1}); err != nil {
		t.Fatalf("SubmitTrip: %v", err)
	}
	got, err := svc.SubmitTrip(ctx, ledger.SubmitTripInput{Date: "2024-06-01", Destination: "beach", Count: 2})
	if err != nil {
		t.Fatalf("SubmitTrip: %v", err)
	}
	if got.RoundTripMiles.String() != "24.6" || got.TotalMiles.String() != "49.2" || !got.HasTolls {
		t.Fatalf("trip=%+v", got)
	}

	calls := res.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls=%d", len(calls))
	}
	if calls[0].Origin != "1 Old Rd" || calls[1].Origin != "2 New Ave" {
		t.Fatalf("origins=%q,%q", calls[0].Origin, calls[1].Origin)
	}
	if calls[0].Destination != "Beach" || calls[0].Preferences != resolver.DefaultPreferences() {
		t.Fatalf("request=%+v", calls[0])
	}
}

func TestService_SubmitTrip_DefaultsDateToToday(t *testing.T) {
	t.Parallel()

	svc, _, res := newTestService(t)
	res.SetDefault(resolver.Route{OneWayMiles: 1})
	got, err := svc.SubmitTrip(context.Background(), ledger.SubmitTripInput{Destination: "Store", Count: 1})
	if err != nil {
		t.Fatalf("SubmitTrip: %v", err)
	}
	if got.Date != "2024-03-15" {
		t.Fatalf("date=%s, want 2024-03-15", got.Date)
	}
}

func TestService_SubmitTrip_DefaultDateFollowsClock(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC))
	res := memresolver.New()
	res.SetDefault(resolver.Route{OneWayMiles: 1})
	svc := ledger.NewService(memkvstore.NewStore(), res, home, clk, nil)
	ctx := context.Background()

	submit := func() domain.Date {
		t.Helper()
		got, err := svc.SubmitTrip(ctx, ledger.SubmitTripInput{Destination: "Store", Count: 1})
		if err != nil {
			t.Fatalf("SubmitTrip: %v", err)
		}
		return got.Date
	}

	if d := submit(); d != "2024-03-15" {
		t.Fatalf("date=%s, want 2024-03-15", d)
	}
	clk.Advance(time.Hour)
	if d := submit(); d != "2024-03-16" {
		t.Fatalf("date after midnight=%s, want 2024-03-16", d)
	}
	clk.Set(time.Date(2024, 12, 31, 8, 0, 0, 0, time.UTC))
	if d := submit(); d != "2024-12-31" {
		t.Fatalf("date=%s, want 2024-12-31", d)
	}
}

func TestService_RejectsMileageThatCannotBeTotaled(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddTrip(ctx, "2024-01-10", "A", 1<<61, resolver.Route{OneWayMiles: 10}); !ledger.HasCode(err, ledger.CodeValidation) {
		t.Fatalf("AddTrip(count 1<<61) err=%v", err)
	}
	if _, err := svc.AddTrip(ctx, "2024-01-10", "A", domain.MaxCount+1, resolver.Route{OneWayMiles: 10}); !ledger.HasCode(err, ledger.CodeValidation) {
		t.Fatalf("AddTrip(count MaxCount+1) err=%v", err)
	}
	if _, err := svc.AddTrip(ctx, "2024-01-10", "A", 1, resolver.Route{OneWayMiles: 1e30}); !ledger.HasCode(err, ledger.CodeResolutionFailed) {
		t.Fatalf("AddTrip(1e30 miles) err=%v", err)
	}
	if len(svc.Trips()) != 0 {
		t.Fatalf("trips=%v", svc.Trips())
	}
	if _, ok, _ := store.Get(ctx, ledger.StorageKey); ok {
		t.Fatalf("expected nothing persisted")
	}

	orig, err := svc.AddTrip(ctx, "2024-01-10", "A", domain.MaxCount, resolver.Route{OneWayMiles: domain.MaxOneWayMiles})
	if err != nil {
		t.Fatalf("AddTrip(at bounds): %v", err)
	}
	if orig.TotalMiles.String() != "200000000000.0" {
		t.Fatalf("total=%s", orig.TotalMiles)
	}

	if _, err := svc.UpdateCount(ctx, orig.ID, 1<<60); !ledger.HasCode(err, ledger.CodeValidation) {
		t.Fatalf("UpdateCount(1<<60) err=%v", err)
	}
	if _, err := svc.UpdateTrip(ctx, orig.ID, "2024-01-11", 1<<60); !ledger.HasCode(err, ledger.CodeValidation) {
		t.Fatalf("UpdateTrip(1<<60) err=%v", err)
	}
	got, err := svc.Get(orig.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(orig, got); diff != "" {
		t.Fatalf("trip changed (-want +got):\n%s", diff)
	}

	if _, err := svc.SubmitTrip(ctx, ledger.SubmitTripInput{Date: "2024-01-10", Destination: "A", Count: 1 << 61}); !ledger.HasCode(err, ledger.CodeValidation) {
		t.Fatalf("SubmitTrip(count 1<<61) err=%v", err)
	}
}

func TestService_TripIDConflict(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	svc.SetNewTripIDForTest(func() domain.TripID { return "same" })
	ctx := context.Background()

	if _, err := svc.AddTrip(ctx, "2024-01-10", "A", 1, resolver.Route{OneWayMiles: 1}); err != nil {
		t.Fatalf("AddTrip: %v", err)
	}
	_, err := svc.AddTrip(ctx, "2024-01-11", "B", 1, resolver.Route{OneWayMiles: 1})
	var ae *ledger.Error
	if !errors.As(err, &ae) || ae.Status != 409 || ae.Code != ledger.CodeTripIDConflict {
		t.Fatalf("err=%v", err)
	}
	if len(svc.Trips()) != 1 {
		t.Fatalf("trips=%v", svc.Trips())
	}
}

func TestService_SubmitTrip_ResolutionFailure(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t)
	_, err := svc.SubmitTrip(context.Background(), ledger.SubmitTripInput{Date: "2024-01-10", Destination: "Nowhere", Count: 1})
	var ae *ledger.Error
	if !errors.As(err, &ae) || ae.Code != ledger.CodeResolutionFailed {
		t.Fatalf("err=%v", err)
	}
	if !errors.Is(err, resolver.ErrResolutionFailed) {
		t.Fatalf("expected wrapped ErrResolutionFailed, got %v", err)
	}
	if len(svc.Trips()) != 0 {
		t.Fatalf("expected no trips")
	}
	if _, ok, _ := store.Get(context.Background(), ledger.StorageKey); ok {
		t.Fatalf("expected nothing persisted")
	}
}

type blockingResolver struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingResolver) Resolve(ctx context.Context, _ resolver.Request) (resolver.Route, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return resolver.Route{OneWayMiles: 5}, nil
	case <-ctx.Done():
		return resolver.Route{}, ctx.Err()
	}
}

func TestService_SubmitTrip_RejectsOverlappingSubmission(t *testing.T) {
	t.Parallel()

	res := &blockingResolver{started: make(chan struct{}), release: make(chan struct{})}
	svc := ledger.NewService(memkvstore.NewStore(), res, home, memclock.NewManualClock(time.Unix(0, 0)), nil)
	ctx := context.Background()

	type result struct {
		trip domain.Trip
		err  error
	}
	done := make(chan result, 1)
	go func() {
		tr, err := svc.SubmitTrip(ctx, ledger.SubmitTripInput{Date: "2024-01-10", Destination: "First", Count: 1})
		done <- result{tr, err}
	}()
	<-res.started

	_, err := svc.SubmitTrip(ctx, ledger.SubmitTripInput{Date: "2024-01-10", Destination: "Second", Count: 1})
	var ae *ledger.Error
	if !errors.As(err, &ae) || ae.Status != 409 || ae.Code != ledger.CodeSubmissionPending {
		t.Fatalf("err=%v", err)
	}

	close(res.release)
	r := <-done
	if r.err != nil {
		t.Fatalf("first submission: %v", r.err)
	}
	if got := svc.Trips(); len(got) != 1 || got[0].Destination != "First" {
		t.Fatalf("trips=%v", got)
	}
}
