package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"
	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
)

var _ repository.ListingRepository = (*ListingStore)(nil)

const listingColumns = `id, title, description, price, bedrooms, bathrooms, total_package,
	status, location, img, author_id, created_at, updated_at`

// ListingStore persists rows of the listings table.
type ListingStore struct {
	conn *sqlx.DB
}

// Create inserts a listing. ID, timestamps and a missing status are filled in
// on the caller's struct.
func (s *ListingStore) Create(ctx context.Context, listing *model.Listing) error {
	if listing.ID == "" {
		listing.ID = xid.New().String()
	}
	if listing.Status == "" {
		listing.Status = model.StatusAvailable
	}
	if listing.Img == nil {
		listing.Img = model.ImagePaths{}
	}

	// UTC also strips the monotonic reading, so the stored text round-trips.
	now := time.Now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	_, err := s.conn.NamedExecContext(ctx,
		`INSERT INTO listings (`+listingColumns+`)
		 VALUES (:id, :title, :description, :price, :bedrooms, :bathrooms, :total_package,
		         :status, :location, :img, :author_id, :created_at, :updated_at)`,
		listing,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("listing", listing.ID)
		}
		return fmt.Errorf("sqlstore: creating listing: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound when no row matches.
func (s *ListingStore) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	var listing model.Listing
	err := s.conn.GetContext(ctx, &listing,
		s.conn.Rebind(`SELECT `+listingColumns+` FROM listings WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("listing", id)
		}
		return nil, fmt.Errorf("sqlstore: getting listing %s: %w", id, err)
	}
	return &listing, nil
}

// List returns listings newest first. An empty table yields an empty,
// non-nil slice.
func (s *ListingStore) List(ctx context.Context, opts repository.ListOptions) ([]model.Listing, error) {
	var (
		where []string
		args  []any
	)
	if opts.AuthorID != "" {
		where = append(where, "author_id = ?")
		args = append(args, opts.AuthorID)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			// Neither dialect shares a spelling for "no limit" next to OFFSET.
			limit = math.MaxInt32
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, opts.Offset)
	}

	listings := []model.Listing{}
	if err := s.conn.SelectContext(ctx, &listings, s.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlstore: listing listings: %w", err)
	}
	return listings, nil
}

// Update overwrites every mutable column of the row and bumps updated_at.
func (s *ListingStore) Update(ctx context.Context, listing *model.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	if listing.Img == nil {
		listing.Img = model.ImagePaths{}
	}

	result, err := s.conn.NamedExecContext(ctx,
		`UPDATE listings SET
			title = :title, description = :description, price = :price,
			bedrooms = :bedrooms, bathrooms = :bathrooms, total_package = :total_package,
			status = :status, location = :location, img = :img, updated_at = :updated_at
		 WHERE id = :id`,
		listing,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating listing %s: %w", listing.ID, err)
	}
	return requireOneRow(result, "listing", listing.ID)
}

func (s *ListingStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, s.conn.Rebind(`DELETE FROM listings WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting listing %s: %w", id, err)
	}
	return requireOneRow(result, "listing", id)
}

// requireOneRow turns "zero rows affected" into a NotFound error.
func requireOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: rows affected for %s %s: %w", resource, id, err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
