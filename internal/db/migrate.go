package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package globals
var gooseMu sync.Mutex

// dialectMap maps database/sql driver names to goose dialects.
var dialectMap = map[string]string{
	"sqlite": "sqlite3",
	"pgx":    "postgres",
}

func setupGoose(driver string) error {
	dialect, ok := dialectMap[driver]
	if !ok {
		return fmt.Errorf("db: no migration dialect for driver %q", driver)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("db: setting goose dialect: %w", err)
	}

	dir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("db: opening embedded migrations: %w", err)
	}
	goose.SetBaseFS(dir)
	goose.SetLogger(goose.NopLogger())
	return nil
}

// Migrate applies every pending migration.
func Migrate(conn *sql.DB, driver string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := setupGoose(driver); err != nil {
		return err
	}
	if err := goose.Up(conn, "."); err != nil {
		return fmt.Errorf("db: running migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(conn *sql.DB, driver string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := setupGoose(driver); err != nil {
		return err
	}
	if err := goose.Down(conn, "."); err != nil {
		return fmt.Errorf("db: rolling back migration: %w", err)
	}
	return nil
}
