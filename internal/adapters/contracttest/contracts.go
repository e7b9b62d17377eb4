package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	idempotencyport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/idempotency"
	kvstoreport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/kvstore"
)

type CleanupFunc = func()

type KVStoreFactory func(t *testing.T) (kvstoreport.Store, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// RunKVStore checks the behavior every kvstore adapter must share: missing
// keys report ok=false, values round-trip byte for byte, Put overwrites, and
// keys outside the allowed alphabet are rejected.
func RunKVStore(t *testing.T, newStore KVStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, ok, err := store.Get(ctx, "trips"); err != nil || ok {
		t.Fatalf("Get(missing): ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	first := []byte(`[{"id":"a","destination":"Café \"Bleu\""}]`)
	if err := store.Put(ctx, "trips", first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, "trips")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != string(first) {
		t.Fatalf("Get()=%q, want %q", got, first)
	}

	// Overwrite semantics.
	second := []byte(`[]`)
	if err := store.Put(ctx, "trips", second); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, "trips")
	if err != nil || !ok || string(got) != "[]" {
		t.Fatalf("expected overwritten value, got ok=%v err=%v value=%q", ok, err, got)
	}

	// Keys are independent.
	if err := store.Put(ctx, "trips.backup", first); err != nil {
		t.Fatalf("Put second key: %v", err)
	}
	got, _, _ = store.Get(ctx, "trips")
	if string(got) != "[]" {
		t.Fatalf("writing another key changed trips: %q", got)
	}

	// Empty values are stored, not treated as missing.
	if err := store.Put(ctx, "empty", []byte{}); err != nil {
		t.Fatalf("Put empty: %v", err)
	}
	if got, ok, err := store.Get(ctx, "empty"); err != nil || !ok || len(got) != 0 {
		t.Fatalf("Get(empty): value=%q ok=%v err=%v", got, ok, err)
	}

	for _, bad := range []string{"", ".", "..", "a/b", "../x", "with space"} {
		if err := store.Put(ctx, bad, first); !errors.Is(err, kvstoreport.ErrInvalidKey) {
			t.Fatalf("Put(%q) err=%v, want ErrInvalidKey", bad, err)
		}
		if _, _, err := store.Get(ctx, bad); !errors.Is(err, kvstoreport.ErrInvalidKey) {
			t.Fatalf("Get(%q) err=%v, want ErrInvalidKey", bad, err)
		}
	}
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Method:   "POST",
		Route:    "/trips",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get(missing): ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different body hash is a different record.
	resp := fp
	resp.BodyHash = "hash-def"
	if _, ok, err := store.Get(ctx, resp); err != nil || ok {
		t.Fatalf("Get(response fp) before Put: ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, resp, idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"trip":{}}`),
		CreatedAt:   time.Unix(124, 0).UTC(),
	}); err != nil {
		t.Fatalf("Put response: %v", err)
	}
	got, ok, err = store.Get(ctx, resp)
	if err != nil || !ok || got.StatusCode != 201 {
		t.Fatalf("Get(response fp): rec=%+v ok=%v err=%v", got, ok, err)
	}
}
