// Package backend turns a Config into the concrete stores, resolver and ledger
// shared by the API server and the CLI.
package backend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	filekvstore "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/file/kvstore"
	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/googlemaps"
	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/gormdb"
	gormidempotency "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/gormdb/idempotency"
	gormkvstore "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/gormdb/kvstore"
	memidempotency "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/memory/idempotency"
	memkvstore "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/memory/kvstore"
	memresolver "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/memory/resolver"
	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/postgres/idempotency"
	pgkvstore "github.com/Overland-East-Bay/mileage-tracker/internal/adapters/postgres/kvstore"
	"github.com/Overland-East-Bay/mileage-tracker/internal/app/ledger"
	idempotencyport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/idempotency"
	kvstoreport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/kvstore"
	resolverport "github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/resolver"
	platformclock "github.com/Overland-East-Bay/mileage-tracker/internal/platform/clock"
	"github.com/Overland-East-Bay/mileage-tracker/internal/platform/config"
)

// Stores bundles the persistence adapters for one backend.
type Stores struct {
	KV          kvstoreport.Store
	Idempotency idempotencyport.Store
	// Close releases connections. It is never nil.
	Close func()
}

// OpenStores opens the storage backend named in cfg.
func OpenStores(ctx context.Context, cfg config.Config) (Stores, error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return Stores{KV: memkvstore.NewStore(), Idempotency: memidempotency.NewStore(), Close: noop}, nil

	case config.BackendFile:
		return Stores{KV: filekvstore.NewStore(cfg.Storage.DataDir), Idempotency: memidempotency.NewStore(), Close: noop}, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL, postgres.PoolOptions{ConnectTimeout: 5 * time.Second})
		if err != nil {
			return Stores{}, fmt.Errorf("invalid postgres config: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			if pe, ok := postgres.AsPgError(err); ok {
				return Stores{}, fmt.Errorf("postgres schema (sqlstate %s): %w", pe.Code, err)
			}
			return Stores{}, err
		}
		return Stores{KV: pgkvstore.NewStore(pool), Idempotency: pgidempotency.NewStore(pool), Close: pool.Close}, nil

	case config.BackendSQLite, config.BackendMySQL:
		db, err := gormdb.Open(cfg.Storage.Backend, cfg.Storage.DatabaseURL)
		if err != nil {
			return Stores{}, err
		}
		return Stores{
			KV:          gormkvstore.NewStore(db),
			Idempotency: gormidempotency.NewStore(db),
			Close:       func() { _ = gormdb.Close(db) },
		}, nil
	}
	return Stores{}, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
}

// NewResolver builds the distance resolver named in cfg.
func NewResolver(cfg config.Config) (resolverport.Resolver, error) {
	switch cfg.Resolver.Kind {
	case config.ResolverGoogle:
		return googlemaps.New(googlemaps.Config{
			APIKey:  cfg.Resolver.GoogleAPIKey,
			Timeout: cfg.Resolver.Timeout,
		})
	case config.ResolverStatic:
		return memresolver.NewStatic(cfg.Resolver.StaticMiles), nil
	}
	return nil, fmt.Errorf("unsupported resolver %q", cfg.Resolver.Kind)
}

// Ledger is a loaded ledger service with the stores behind it.
type Ledger struct {
	Service *ledger.Service
	Stores  Stores
}

// OpenLedger opens storage, builds the resolver and loads the persisted trips.
func OpenLedger(ctx context.Context, cfg config.Config, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	res, err := NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc := ledger.NewService(stores.KV, res, cfg.HomeRule(), platformclock.NewSystemClock(loc), log)
	n := svc.Load(ctx)
	log.Info("ledger loaded",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("resolver", cfg.Resolver.Kind),
		zap.Int("trips", n))
	return &Ledger{Service: svc, Stores: stores}, nil
}

func (l *Ledger) Close() {
	if l != nil && l.Stores.Close != nil {
		l.Stores.Close()
	}
}
