package kvstore

import (
	"testing"

	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/gormdb"
	kvstoreport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/kvstore"
)

func TestContract_SQLiteKVStore(t *testing.T) {
	contracttest.RunKVStore(t, func(t *testing.T) (kvstoreport.Store, func()) {
		t.Helper()
		db, err := gormdb.Open(gormdb.DialectSQLite, ":memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return NewStore(db), func() { _ = gormdb.Close(db) }
	})
}
