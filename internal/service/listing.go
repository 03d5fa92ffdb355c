package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
	"github.com/sakif/estate-portal/internal/storage"
)

// ImageUpload is one file the handler has already validated.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CreateListingInput is every field a new listing can be created with.
// The author always comes from the session, never from the body.
type CreateListingInput struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Price        float64             `json:"price"`
	Bedrooms     int                 `json:"bedrooms"`
	Bathrooms    int                 `json:"bathrooms"`
	TotalPackage float64             `json:"total_package"`
	Status       model.ListingStatus `json:"status"`
	Location     string              `json:"location"`
	Images       []ImageUpload       `json:"-"`
}

// UpdateListingInput is a partial update; nil fields are left alone.
type UpdateListingInput struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Price        *float64             `json:"price"`
	Bedrooms     *int                 `json:"bedrooms"`
	Bathrooms    *int                 `json:"bathrooms"`
	TotalPackage *float64             `json:"total_package"`
	Status       *model.ListingStatus `json:"status"`
	Location     *string              `json:"location"`
}

// ListingService owns the listing lifecycle, including the images in the
// bucket that belong to each row.
type ListingService struct {
	listings repository.ListingRepository
	bucket   storage.Bucket
	logger   *slog.Logger
}

func NewListingService(listings repository.ListingRepository, bucket storage.Bucket, logger *slog.Logger) *ListingService {
	return &ListingService{listings: listings, bucket: bucket, logger: logger}
}

// List returns listings newest first.
func (s *ListingService) List(ctx context.Context, opts repository.ListOptions) ([]model.Listing, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, apperror.ValidationFailed("limit", "limit and offset must not be negative")
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, apperror.ValidationFailed("status", fmt.Sprintf("unknown status %q", opts.Status))
	}

	listings, err := s.listings.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/listing: listing: %w", err)
	}
	return listings, nil
}

func (s *ListingService) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/listing: getting %s: %w", id, err)
	}
	return listing, nil
}

// TruncateImages keeps at most model.MaxListingImages entries. Extra images
// are dropped silently.
func TruncateImages[T any](images []T) []T {
	if len(images) > model.MaxListingImages {
		return images[:model.MaxListingImages]
	}
	return images
}

// CanMutate reports whether actor may edit or delete listing: its author,
// or any admin.
func CanMutate(actor *model.User, listing *model.Listing) bool {
	if actor == nil || listing == nil {
		return false
	}
	return actor.IsAdmin() || actor.ID == listing.AuthorID
}

// CanMutate is the method form of CanMutate, for handlers and templates.
func (s *ListingService) CanMutate(actor *model.User, listing *model.Listing) bool {
	return CanMutate(actor, listing)
}

// Create uploads the (truncated) images and then inserts the row. If any
// upload or the insert fails, every image uploaded so far is removed.
func (s *ListingService) Create(ctx context.Context, actor *model.User, in CreateListingInput) (*model.Listing, error) {
	if actor == nil {
		return nil, apperror.Unauthorized("sign in to create a listing")
	}

	listing := &model.Listing{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Price:        in.Price,
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		TotalPackage: in.TotalPackage,
		Status:       in.Status,
		Location:     strings.TrimSpace(in.Location),
		AuthorID:     actor.ID,
	}
	if listing.Status == "" {
		listing.Status = model.StatusAvailable
	}
	if err := validateListing(listing); err != nil {
		return nil, err
	}

	images := TruncateImages(in.Images)
	uploaded := make([]string, 0, len(images))
	for _, img := range images {
		path := storage.ObjectName(storage.FolderImages, img.Filename)
		if err := s.bucket.Upload(ctx, path, img.Body, img.ContentType); err != nil {
			s.removeBlobs(ctx, uploaded, "listing create aborted")
			return nil, fmt.Errorf("service/listing: uploading image: %w", err)
		}
		uploaded = append(uploaded, path)
	}
	listing.Img = uploaded

	if err := s.listings.Create(ctx, listing); err != nil {
		s.removeBlobs(ctx, uploaded, "listing insert failed")
		return nil, fmt.Errorf("service/listing: creating: %w", err)
	}

	s.logger.Info("listing created",
		slog.String("listingID", listing.ID),
		slog.String("authorID", actor.ID),
		slog.Int("images", len(uploaded)),
	)
	return listing, nil
}

// Update applies a partial update after checking the actor may mutate the
// listing.
func (s *ListingService) Update(ctx context.Context, actor *model.User, id string, in UpdateListingInput) (*model.Listing, error) {
	listing, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		listing.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		listing.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		listing.Price = *in.Price
	}
	if in.Bedrooms != nil {
		listing.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		listing.Bathrooms = *in.Bathrooms
	}
	if in.TotalPackage != nil {
		listing.TotalPackage = *in.TotalPackage
	}
	if in.Status != nil {
		listing.Status = *in.Status
	}
	if in.Location != nil {
		listing.Location = strings.TrimSpace(*in.Location)
	}
	if err := validateListing(listing); err != nil {
		return nil, err
	}

	if err := s.listings.Update(ctx, listing); err != nil {
		return nil, fmt.Errorf("service/listing: updating %s: %w", id, err)
	}
	return listing, nil
}

// Delete removes the row and then its images. The bucket is only called
// when the listing has images, and a failed removal is logged rather than
// failing a delete that already happened.
func (s *ListingService) Delete(ctx context.Context, actor *model.User, id string) error {
	listing, err := s.authorize(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.listings.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/listing: deleting %s: %w", id, err)
	}

	if len(listing.Img) > 0 {
		s.removeBlobs(ctx, listing.Img, "listing deleted")
	}

	s.logger.Info("listing deleted", slog.String("listingID", id), slog.String("actorID", actor.ID))
	return nil
}

func (s *ListingService) authorize(ctx context.Context, actor *model.User, id string) (*model.Listing, error) {
	if actor == nil {
		return nil, apperror.Unauthorized("sign in to modify listings")
	}
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/listing: getting %s: %w", id, err)
	}
	if !CanMutate(actor, listing) {
		return nil, apperror.Forbidden("only the listing's author or an admin may modify it")
	}
	return listing, nil
}

// removeBlobs is best-effort; failures leave orphans that are logged.
func (s *ListingService) removeBlobs(ctx context.Context, paths []string, reason string) {
	if len(paths) == 0 {
		return
	}
	if err := s.bucket.Remove(context.WithoutCancel(ctx), paths); err != nil {
		s.logger.Error("failed to remove listing images",
			slog.String("reason", reason),
			slog.Any("paths", paths),
			slog.Any("error", err),
		)
	}
}

func validateListing(l *model.Listing) error {
	switch {
	case l.Title == "":
		return apperror.ValidationFailed("title", "title is required")
	case len(l.Title) > 200:
		return apperror.ValidationFailed("title", "title must be 200 characters or less")
	case math.IsNaN(l.Price) || l.Price < 0:
		return apperror.ValidationFailed("price", "price must not be negative")
	case math.IsNaN(l.TotalPackage) || l.TotalPackage < 0:
		return apperror.ValidationFailed("total_package", "total package must not be negative")
	case l.Bedrooms < 0:
		return apperror.ValidationFailed("bedrooms", "bedrooms must not be negative")
	case l.Bathrooms < 0:
		return apperror.ValidationFailed("bathrooms", "bathrooms must not be negative")
	case !l.Status.Valid():
		return apperror.ValidationFailed("status", fmt.Sprintf("status must be one of available, rented, sold (got %q)", l.Status))
	}
	return nil
}
