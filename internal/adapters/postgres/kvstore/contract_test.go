package kvstore

import (
	"testing"

	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/postgres/testutil"
	kvstoreport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/kvstore"
)

func TestContract_PostgresKVStore(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunKVStore(t, func(t *testing.T) (kvstoreport.Store, func()) {
		t.Helper()
		return NewStore(pool), nil
	})
}
