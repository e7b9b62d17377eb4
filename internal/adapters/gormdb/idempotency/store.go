package idempotency

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/gormdb"
	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/idempotency"
)

// Store is a GORM implementation of idempotency.Store.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.db == nil {
		return idempotency.Record{}, false, errors.New("nil gorm db")
	}
	var row gormdb.IdempotencyRecord
	err := s.db.WithContext(ctx).
		Where("idempotency_key = ? AND method = ? AND route = ? AND body_hash = ?",
			string(fp.Key), fp.Method, fp.Route, fp.BodyHash).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	return idempotency.Record{
		StatusCode:  row.StatusCode,
		ContentType: row.ContentType,
		Body:        row.Body,
		CreatedAt:   row.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.db == nil {
		return errors.New("nil gorm db")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := gormdb.IdempotencyRecord{
		Key:         string(fp.Key),
		Method:      fp.Method,
		Route:       fp.Route,
		BodyHash:    fp.BodyHash,
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        append([]byte{}, rec.Body...),
		CreatedAt:   createdAt.UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "idempotency_key"},
			{Name: "method"},
			{Name: "route"},
			{Name: "body_hash"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"status_code", "content_type", "body", "created_at"}),
	}).Create(&row).Error
}
