package idempotency

import (
	"testing"

	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/gormdb"
	idempotencyport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/idempotency"
)

func TestContract_SQLiteIdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		db, err := gormdb.Open(gormdb.DialectSQLite, ":memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return NewStore(db), func() { _ = gormdb.Close(db) }
	})
}
