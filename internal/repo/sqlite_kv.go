package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
)

// SQLiteKV stores values in the kv_entries table.
//
// Set is an upsert on the primary key, so each write replaces the whole
// value atomically; there is no compare-and-swap.
type SQLiteKV struct {
	DB *gorm.DB
}

// NewSQLiteKV wraps an opened (and migrated) GORM handle.
func NewSQLiteKV(db *gorm.DB) *SQLiteKV { return &SQLiteKV{DB: db} }

// Get implements KV.
func (s *SQLiteKV) Get(ctx context.Context, key string) (string, error) {
	var e domain.KVEntry
	err := s.DB.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

// Set implements KV.
func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	e := &domain.KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(e).Error
}

var _ KV = (*SQLiteKV)(nil)
