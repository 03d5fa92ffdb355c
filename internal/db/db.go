// Package db opens the SQL connection pool and applies schema migrations.
//
// Two drivers are supported through database/sql:
//   - "sqlite" (modernc.org/sqlite, pure Go, the default)
//   - "pgx"    (github.com/jackc/pgx/v5/stdlib, for Postgres deployments)
//
// Queries in the repository layer use $N placeholders, which both drivers
// accept, so the same SQL runs against either backend.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Open connects to the database and applies pending migrations.
//
// dsn examples:
//   - "data/estate.db"   → file-based SQLite (directory created if missing)
//   - ":memory:"         → in-memory SQLite, used by tests
//   - "postgres://u:p@localhost/estate?sslmode=disable" with driver "pgx"
func Open(driver, dsn string) (*sqlx.DB, error) {
	conn, err := connect(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := Migrate(conn.DB, driver); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

func connect(driver, dsn string) (*sqlx.DB, error) {
	isSQLite := driver == "sqlite"
	inMemory := isSQLite && strings.Contains(dsn, ":memory:")

	if isSQLite && !inMemory {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("db: creating data directory: %w", err)
		}
	}

	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: connecting (%s): %w", driver, err)
	}

	if isSQLite {
		// SQLite allows one writer at a time, and every connection to
		// ":memory:" would otherwise see its own empty database. A single
		// connection also keeps the per-connection PRAGMAs below in effect.
		conn.SetMaxOpenConns(1)

		pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
		if !inMemory {
			pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
		}
		for _, p := range pragmas {
			if _, err := conn.Exec(p); err != nil {
				conn.Close()
				return nil, fmt.Errorf("db: %s: %w", p, err)
			}
		}
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	return conn, nil
}
