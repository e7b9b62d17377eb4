// Package gormdb opens SQL databases through GORM for the sqlite and mysql
// storage backends.
package gormdb

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// KVEntry is one row of the key-value table.
type KVEntry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;size:191"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (KVEntry) TableName() string { return "kv_entries" }

// IdempotencyRecord is one stored response for an idempotent request.
type IdempotencyRecord struct {
	Key         string    `gorm:"column:idempotency_key;primaryKey;size:191"`
	Method      string    `gorm:"column:method;primaryKey;size:16"`
	Route       string    `gorm:"column:route;primaryKey;size:191"`
	BodyHash    string    `gorm:"column:body_hash;primaryKey;size:64"`
	StatusCode  int       `gorm:"column:status_code;not null"`
	ContentType string    `gorm:"column:content_type;size:128;not null"`
	Body        []byte    `gorm:"column:body;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (IdempotencyRecord) TableName() string { return "idempotency_keys" }

// Open connects using the named dialect and migrates the tables the gormdb
// adapters use.
//
// For sqlite, dsn is a file path or ":memory:". For mysql it is a
// go-sql-driver DSN such as "user:pass@tcp(host:3306)/mileage?parseTime=true".
func Open(dialect, dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("gormdb: %s dsn is required", dialect)
	}

	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	case DialectMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("gormdb: unsupported dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gormdb: open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// Every connection to ":memory:" is a separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("gormdb: sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the adapter tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&KVEntry{}, &IdempotencyRecord{}); err != nil {
		return fmt.Errorf("gormdb: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
