package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// schema lists every table owned by this package, in migration order.
var schema = []interface{}{
	&Run{},
	&SlotRecord{},
	&Event{},
}

// DB is the gorm handle shared by the repository.
type DB struct {
	*gorm.DB
}

// NewDatabase opens the SQLite store at path, creating it when missing, and
// brings the schema up to date. ":memory:" gives a store that lives as long as
// the returned DB.
func NewDatabase(path string) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	// One connection: SQLite has a single writer, and each connection to
	// ":memory:" is a separate database.
	pool.SetMaxOpenConns(1)
	pool.SetMaxIdleConns(1)

	if err := gdb.AutoMigrate(schema...); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &DB{DB: gdb}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	pool, err := db.DB.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}
