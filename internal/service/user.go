package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
	"github.com/sakif/estate-portal/internal/storage"
	"github.com/sakif/estate-portal/internal/validation"
)

// UpdateProfileInput changes the caller's own profile. Nil fields are kept;
// an empty phone clears it.
type UpdateProfileInput struct {
	Name   *string      `json:"name"`
	Phone  *string      `json:"phone"`
	Avatar *ImageUpload `json:"-"`
}

type UserService struct {
	users  repository.UserRepository
	bucket storage.Bucket
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, bucket storage.Bucket, logger *slog.Logger) *UserService {
	return &UserService{users: users, bucket: bucket, logger: logger}
}

// List returns every profile, newest first.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing: %w", err)
	}
	return users, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: getting %s: %w", id, err)
	}
	return user, nil
}

// UpdateProfile edits the actor's own row. A new avatar is uploaded first;
// the old avatar is removed only after the row points at the new one, and
// the new one is removed if the row update fails.
func (s *UserService) UpdateProfile(ctx context.Context, actor *model.User, in UpdateProfileInput) (*model.User, error) {
	if actor == nil {
		return nil, apperror.Unauthorized("sign in to edit your profile")
	}

	user, err := s.users.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading %s: %w", actor.ID, err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateName(name); err != nil {
			return nil, apperror.ValidationFailed("name", err.Error())
		}
		user.Name = name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if err := validation.ValidatePhone(phone); err != nil {
			return nil, apperror.ValidationFailed("phone", err.Error())
		}
		user.Phone = optional(phone)
	}

	var oldAvatar, newAvatar string
	if in.Avatar != nil {
		newAvatar = storage.ObjectName(storage.FolderAvatars, in.Avatar.Filename)
		if err := s.bucket.Upload(ctx, newAvatar, in.Avatar.Body, in.Avatar.ContentType); err != nil {
			return nil, fmt.Errorf("service/user: uploading avatar: %w", err)
		}
		if user.Img != nil {
			oldAvatar = *user.Img
		}
		user.Img = &newAvatar
	}

	if err := s.users.Update(ctx, user); err != nil {
		if newAvatar != "" {
			s.removeAvatar(ctx, newAvatar, "profile update failed")
		}
		return nil, fmt.Errorf("service/user: updating %s: %w", user.ID, err)
	}

	if oldAvatar != "" {
		s.removeAvatar(ctx, oldAvatar, "avatar replaced")
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID), slog.Bool("avatar", newAvatar != ""))
	return user, nil
}

func (s *UserService) removeAvatar(ctx context.Context, path, reason string) {
	if err := s.bucket.Remove(context.WithoutCancel(ctx), []string{path}); err != nil {
		s.logger.Error("failed to remove avatar",
			slog.String("reason", reason),
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
}
