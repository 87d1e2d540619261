package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// sqlPageSize bounds how many rows Iterate holds in memory at once.
const sqlPageSize = 512

type kvRow struct {
	Key   []byte `gorm:"column:k;primaryKey"`
	Value []byte `gorm:"column:v;not null"`
}

func (kvRow) TableName() string { return "ledger_kv" }

// SQLDB stores the ledger in a single key/value table through gorm. It backs
// onto SQLite for single-node setups and Postgres when the operator already
// runs one.
type SQLDB struct {
	db *gorm.DB
}

// OpenSQL connects to dsn and creates the key/value table if needed.
// postgres:// and postgresql:// URLs select Postgres; anything else is taken
// as a SQLite path or URI.
func OpenSQL(dsn string) (*SQLDB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("storage: empty sql dsn")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("storage: open sql: %w", err)
	}
	return NewSQLDB(db)
}

// NewSQLDB wraps an existing gorm handle.
func NewSQLDB(db *gorm.DB) (*SQLDB, error) {
	if err := db.AutoMigrate(&kvRow{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &SQLDB{db: db}, nil
}

func (s *SQLDB) Get(key []byte) ([]byte, error) {
	var row kvRow
	err := s.db.Where("k = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Value, nil
}

func (s *SQLDB) Has(key []byte) (bool, error) {
	var n int64
	err := s.db.Model(&kvRow{}).Where("k = ?", key).Count(&n).Error
	return n > 0, err
}

func (s *SQLDB) Put(key, value []byte) error {
	return upsert(s.db, key, value)
}

func (s *SQLDB) Delete(key []byte) error {
	return s.db.Where("k = ?", key).Delete(&kvRow{}).Error
}

// Write applies the batch inside one SQL transaction.
func (s *SQLDB) Write(batch *Batch) error {
	if batch.empty() {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, m := range batch.muts {
			var err error
			if m.remove {
				err = tx.Where("k = ?", m.key).Delete(&kvRow{}).Error
			} else {
				err = upsert(tx, m.key, m.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Iterate pages through the table by key so fn may write to the database
// while iterating.
func (s *SQLDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	upper := prefixEnd(prefix)
	var after []byte
	for {
		q := s.db.Model(&kvRow{}).Order("k ASC").Limit(sqlPageSize)
		if after != nil {
			q = q.Where("k > ?", after)
		} else if len(prefix) > 0 {
			q = q.Where("k >= ?", prefix)
		}
		if upper != nil {
			q = q.Where("k < ?", upper)
		}
		var page []kvRow
		if err := q.Find(&page).Error; err != nil {
			return err
		}
		for _, row := range page {
			if !fn(row.Key, row.Value) {
				return nil
			}
		}
		if len(page) < sqlPageSize {
			return nil
		}
		after = page[len(page)-1].Key
	}
}

func (s *SQLDB) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func upsert(db *gorm.DB, key, value []byte) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		DoUpdates: clause.AssignmentColumns([]string{"v"}),
	}).Create(&kvRow{Key: clone(key), Value: append([]byte{}, value...)}).Error
}

// prefixEnd returns the smallest key greater than every key sharing prefix,
// or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
