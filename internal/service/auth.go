// Package service holds the business rules between the HTTP handlers and the
// backend client (repositories, token service, bucket):
//
//	Handler (HTTP) → Service (rules, authorization, cleanup) → Repository / Bucket
//
// Services never touch http.Request or cookies. Errors they return are either
// *apperror.AppError kinds, which handlers map to a status code, or wrapped
// backend failures, which become a generic 500.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/auth"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
	"github.com/sakif/estate-portal/internal/validation"
)

// AuthService registers and signs in accounts.
type AuthService struct {
	identities repository.IdentityRepository
	users      repository.UserRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	logger     *slog.Logger
}

func NewAuthService(
	identities repository.IdentityRepository,
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		users:      users,
		tokens:     tokens,
		passwords:  passwords,
		logger:     logger,
	}
}

// AuthResult bundles the profile and a freshly signed token so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

var errBadCredentials = apperror.Unauthorized("invalid email or password")

// Register creates an identity and its profile row, then signs the new
// account in. If the profile insert fails the identity is deleted again so
// the email can be reused.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	if err := validation.ValidateName(name); err != nil {
		return nil, apperror.ValidationFailed("name", err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperror.ValidationFailed("email", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, apperror.ValidationFailed("phone", err.Error())
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	identity := &model.Identity{Email: email, PasswordHash: hash}
	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists",
				Field:   "email",
			}
		}
		return nil, fmt.Errorf("service/auth: creating identity for %s: %w", email, err)
	}

	user := &model.User{
		ID:    identity.ID,
		Name:  name,
		Email: email,
		Phone: optional(phone),
		Role:  model.RoleUser,
	}
	if err := s.createProfile(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// SignIn checks an email/password pair. Unknown emails, OAuth-only accounts
// and wrong passwords all produce the same 401 so accounts can't be probed.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up identity: %w", err)
	}
	if identity.PasswordHash == "" {
		return nil, errBadCredentials
	}

	if err := s.passwords.Verify(identity.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user, err := s.users.GetUserByID(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: loading profile %s: %w", identity.ID, err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the account linked to a GitHub user,
// creating identity and profile on first login.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	identity, err := s.identities.GetByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
		user, err := s.users.GetUserByID(ctx, identity.ID)
		if err != nil {
			return nil, fmt.Errorf("service/auth: loading profile %s: %w", identity.ID, err)
		}
		s.logger.Info("user authenticated via GitHub", slog.String("userID", user.ID))
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up GitHub identity %d: %w", gh.ID, err)
	}

	githubID := gh.ID
	email := normalizeEmail(gh.Email)
	identity = &model.Identity{Email: email, GitHubID: &githubID}
	err = s.identities.Create(ctx, identity)
	if errors.Is(err, apperror.ErrConflict) && email != "" {
		// The email already belongs to a password account. Link nothing
		// implicitly; the GitHub identity is created without an email.
		identity = &model.Identity{GitHubID: &githubID}
		err = s.identities.Create(ctx, identity)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub identity %d: %w", gh.ID, err)
	}

	user := &model.User{
		ID:    identity.ID,
		Name:  gh.DisplayName(),
		Email: email,
		Role:  model.RoleUser,
	}
	if err := s.createProfile(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("account registered via GitHub", slog.String("userID", user.ID), slog.String("login", gh.Login))
	return s.issue(user)
}

// ValidateToken returns the identity ID a token was issued for.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	id, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return id, nil
}

// GetUserByID is the profile lookup the session store uses.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// createProfile inserts the profile row and rolls the identity back on failure.
func (s *AuthService) createProfile(ctx context.Context, user *model.User) error {
	err := s.users.Create(ctx, user)
	if err == nil {
		return nil
	}

	if delErr := s.identities.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
		s.logger.Error("failed to roll back identity after profile insert failed",
			slog.String("identityID", user.ID),
			slog.Any("error", delErr),
		)
	}
	return fmt.Errorf("service/auth: creating profile %s: %w", user.ID, err)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// optional maps "" to nil for nullable columns.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
