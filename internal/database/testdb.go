package database

import (
	"fmt"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var memoryDBSeq atomic.Int64

// OpenMemory returns a migrated, isolated in-memory sqlite database.
// Used by integration tests across packages and by `cmd/seed -dry-run`.
func OpenMemory() (*gorm.DB, error) {
	name := fmt.Sprintf("file:yatube_mem_%d?mode=memory&cache=shared&_foreign_keys=on", memoryDBSeq.Add(1))
	db, err := Open(sqlite.Open(name))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
