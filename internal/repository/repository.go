// Package repository declares the persistence contracts the service layer
// depends on. The concrete implementation lives in repository/sqlstore; tests
// substitute hand-written fakes.
package repository

import (
	"context"

	"github.com/sakif/estate-portal/internal/model"
)

// ListOptions narrows and pages a listing query. Zero values mean "no filter"
// and, for Limit, "no limit".
type ListOptions struct {
	AuthorID string
	Status   model.ListingStatus
	Limit    int
	Offset   int
}

type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	List(ctx context.Context, opts ListOptions) ([]model.Listing, error)
	Update(ctx context.Context, listing *model.Listing) error
	Delete(ctx context.Context, id string) error
}

// UserRepository stores profile rows. A profile shares its ID with the
// identity that owns it.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
}

// IdentityRepository stores authentication principals.
type IdentityRepository interface {
	Create(ctx context.Context, identity *model.Identity) error
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.Identity, error)
	Delete(ctx context.Context, id string) error
}
