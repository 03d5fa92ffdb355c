package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, name, email, phone, img, role, created_at, updated_at`

// UserStore persists profile rows.
type UserStore struct {
	conn *sqlx.DB
}

// Create inserts a profile. The ID must already be set to the owning
// identity's ID; the foreign key rejects orphans.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		return apperror.ValidationFailed("id", "profile id is required")
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.conn.NamedExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (:id, :name, :email, :phone, :img, :role, :created_at, :updated_at)`,
		user,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.ID)
		}
		return fmt.Errorf("sqlstore: creating user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByID returns apperror.ErrNotFound when no profile exists.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.conn.GetContext(ctx, &user,
		s.conn.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", id, err)
	}
	return &user, nil
}

// List returns every profile, newest first.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := s.conn.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing users: %w", err)
	}
	return users, nil
}

// Update writes name, email, phone, avatar and role.
func (s *UserStore) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := s.conn.NamedExecContext(ctx,
		`UPDATE users SET name = :name, email = :email, phone = :phone, img = :img,
			role = :role, updated_at = :updated_at
		 WHERE id = :id`,
		user,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating user %s: %w", user.ID, err)
	}
	return requireOneRow(result, "user", user.ID)
}
