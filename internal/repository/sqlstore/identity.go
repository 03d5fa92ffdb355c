package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"
	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
)

var _ repository.IdentityRepository = (*IdentityStore)(nil)

// email is nullable (GitHub accounts may hide it); NULLs come back as "".
const identityColumns = `id, COALESCE(email, '') AS email, password_hash, github_id, created_at`

// IdentityStore persists authentication principals.
type IdentityStore struct {
	conn *sqlx.DB
}

// Create inserts an identity and assigns its ID. A reused email or GitHub ID
// is reported as apperror.ErrConflict.
func (s *IdentityStore) Create(ctx context.Context, identity *model.Identity) error {
	identity.ID = xid.New().String()
	identity.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		s.conn.Rebind(`INSERT INTO identities (id, email, password_hash, github_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		identity.ID,
		nullIfEmpty(identity.Email),
		identity.PasswordHash,
		identity.GitHubID,
		identity.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			key := identity.Email
			if key == "" && identity.GitHubID != nil {
				key = "github:" + strconv.FormatInt(*identity.GitHubID, 10)
			}
			return apperror.Conflict("identity", key)
		}
		return fmt.Errorf("sqlstore: creating identity: %w", err)
	}
	return nil
}

func (s *IdentityStore) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return s.getOne(ctx, "email", email, `email = ?`, email)
}

func (s *IdentityStore) GetByGitHubID(ctx context.Context, githubID int64) (*model.Identity, error) {
	return s.getOne(ctx, "github id", strconv.FormatInt(githubID, 10), `github_id = ?`, githubID)
}

// Delete removes the identity; the profile row goes with it (ON DELETE CASCADE).
func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, s.conn.Rebind(`DELETE FROM identities WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting identity %s: %w", id, err)
	}
	return requireOneRow(result, "identity", id)
}

func (s *IdentityStore) getOne(ctx context.Context, label, key, cond string, arg any) (*model.Identity, error) {
	var identity model.Identity
	err := s.conn.GetContext(ctx, &identity,
		s.conn.Rebind(`SELECT `+identityColumns+` FROM identities WHERE `+cond), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("identity", key)
		}
		return nil, fmt.Errorf("sqlstore: getting identity by %s: %w", label, err)
	}
	return &identity, nil
}
