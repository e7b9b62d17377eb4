package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/idempotency"
)

func TestStore_PutThenGet_CopiesBody(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Method:   "POST",
		Route:    "/trips",
		BodyHash: "abc123",
	}
	body := []byte(`{"trip":{"id":"t1"}}`)
	rec := idempotency.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        body,
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	body[0] = 'X'

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != 201 || got.ContentType != rec.ContentType || string(got.Body) != `{"trip":{"id":"t1"}}` {
		t.Fatalf("Get()=%+v", got)
	}

	other := fp
	other.BodyHash = "def456"
	if _, ok, _ := s.Get(context.Background(), other); ok {
		t.Fatalf("Get(other body hash) ok=true, want false")
	}
}
