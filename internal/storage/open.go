// Package storage persists collections, histograms and transaction events in
// DuckDB or SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite3"
)

// openDB opens path with driver. An empty path or ":memory:" opens a
// private in-memory database.
func openDB(ctx context.Context, driver, path string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverDuckDB:
		if path == ":memory:" {
			path = ""
		}
		var connector *duckdb.Connector
		connector, err = duckdb.NewConnector(path, nil)
		if err != nil {
			return nil, fmt.Errorf("open duckdb %q: %w", path, err)
		}
		db = sql.OpenDB(connector)

	case DriverSQLite:
		db, err = sql.Open(DriverSQLite, sqliteDSN(path))
		if err != nil {
			return nil, fmt.Errorf("open sqlite %q: %w", path, err)
		}
		// One connection serializes writers and keeps an in-memory
		// database alive for the lifetime of the pool.
		db.SetMaxOpenConns(1)

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// sqliteDSN adds a busy timeout so that a report reading the file while a
// collection writes to it waits instead of failing.
func sqliteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	if strings.Contains(path, "_busy_timeout") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + url.Values{"_busy_timeout": {"5000"}}.Encode()
}
