// Package domain defines the value types of the annual inspection tracker
// (calendar dates, per-chat plate records, the persisted state document) and
// the GORM model backing the SQLite key/value store.
package domain

import "time"

// KVEntry is a single row of the key/value table used by the SQLite store
// backend. The whole GlobalState document lives in one row under a fixed key.
//
// Fields:
//   - Key: storage key (primary key).
//   - Value: opaque payload, the JSON state document in practice.
//   - UpdatedAt: last write time, managed by GORM.
type KVEntry struct {
	Key       string    `gorm:"type:varchar(255);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for KVEntry.
func (KVEntry) TableName() string { return "kv_entries" }
