// Package sqlstore implements the repository interfaces on top of sqlx.
//
// The same SQL runs on SQLite (modernc.org/sqlite) and Postgres (pgx):
// queries are written with ? placeholders and passed through Rebind, which
// rewrites them to $N for Postgres and leaves them alone for SQLite.
//
// The DB type owns the pool. Each table gets its own small store type,
// reached through an accessor:
//
//	store, _ := sqlstore.Open("sqlite", ":memory:")
//	store.Listings().Create(ctx, listing)
//	store.Users().GetUserByID(ctx, id)
package sqlstore

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sakif/estate-portal/internal/db"
)

// DB wraps the sqlx connection pool.
type DB struct {
	conn *sqlx.DB
}

// New wraps an already-migrated connection.
func New(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// Open connects, migrates and wraps in one step.
func Open(driver, dsn string) (*DB, error) {
	conn, err := db.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping checks the pool can still reach the database.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *DB) Listings() *ListingStore {
	return &ListingStore{conn: d.conn}
}

func (d *DB) Users() *UserStore {
	return &UserStore{conn: d.conn}
}

func (d *DB) Identities() *IdentityStore {
	return &IdentityStore{conn: d.conn}
}

// isUniqueViolation recognises a UNIQUE constraint failure from either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nullIfEmpty maps "" to SQL NULL so optional UNIQUE columns don't collide.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
