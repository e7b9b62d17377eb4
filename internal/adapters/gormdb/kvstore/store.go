package kvstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/gormdb"
	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/kvstore"
)

// Store is a GORM implementation of kvstore.Store. The database must already
// be migrated (gormdb.Open does this).
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, errors.New("nil gorm db")
	}
	if !kvstore.ValidKey(key) {
		return nil, false, kvstore.ErrInvalidKey
	}
	var e gormdb.KVEntry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).Take(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if e.Value == nil {
		e.Value = []byte{}
	}
	return e.Value, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if s.db == nil {
		return errors.New("nil gorm db")
	}
	if !kvstore.ValidKey(key) {
		return kvstore.ErrInvalidKey
	}
	e := gormdb.KVEntry{
		Key:       key,
		Value:     append([]byte{}, value...),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}
