package shared

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const memoryDSN = ":memory:"

// NewDatabase opens a connection to a SQLite database at the specified path.
//
// The path can be ":memory:" for an in-memory database; the pool is then pinned to a single
// connection, since every new sqlite3 connection would otherwise see an empty database.
func NewDatabase(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == memoryDSN {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// ConfigureDatabase applies the pool settings from [DatabaseConfig]. Zero values leave the driver defaults in place.
func ConfigureDatabase(db *sql.DB, conf DatabaseConfig) {
	if conf.Path == memoryDSN {
		return
	}
	if conf.MaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.MaxOpenConns)
	}
	if conf.MaxIdleConns > 0 {
		db.SetMaxIdleConns(conf.MaxIdleConns)
	}
}
