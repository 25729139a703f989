package service

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/storage"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// ImageUpload describes a multipart image payload.
type ImageUpload struct {
	Filename    string
	ContentType string
	Reader      io.Reader
	Size        int64
}

// UpdateProfileInput carries the self-service profile changes.
type UpdateProfileInput struct {
	Name        string
	Email       string
	Bio         string
	Image       *ImageUpload
	RemoveImage bool
}

// UserService handles self-service profile operations.
type UserService struct {
	accounts repository.AccountRepository
	images   storage.ImageStore
	logger   *zap.Logger
}

// NewUserService builds the service.
func NewUserService(accounts repository.AccountRepository, images storage.ImageStore, logger *zap.Logger) *UserService {
	return &UserService{accounts: accounts, images: images, logger: logger}
}

// GetProfile loads the caller's account.
func (s *UserService) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("User not found")
		}
		return nil, err
	}
	return account, nil
}

// UpdateProfile applies name/email/bio changes and handles the image
// upload or removal. Empty fields keep their current values.
func (s *UserService) UpdateProfile(ctx context.Context, accountID string, input UpdateProfileInput) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("User not found")
		}
		return nil, err
	}

	if input.Name != "" {
		account.Name = input.Name
	}
	if input.Email != "" {
		account.Email = input.Email
	}
	if input.Bio != "" {
		account.Bio = input.Bio
	}

	switch {
	case input.Image != nil:
		if s.images == nil {
			return nil, apperrors.NewInternalError(errors.New("image store not configured"))
		}
		url, err := s.images.Upload(ctx, input.Image.Filename, input.Image.ContentType, input.Image.Reader, input.Image.Size)
		if err != nil {
			return nil, err
		}
		if old := account.ProfileImage; old != "" {
			if err := s.images.Remove(ctx, old); err != nil {
				s.logger.Warn("failed to remove replaced profile image", zap.String("url", old), zap.Error(err))
			}
		}
		account.ProfileImage = url
	case input.RemoveImage && account.ProfileImage != "":
		if s.images != nil {
			if err := s.images.Remove(ctx, account.ProfileImage); err != nil {
				s.logger.Warn("failed to remove profile image", zap.String("url", account.ProfileImage), zap.Error(err))
			}
		}
		account.ProfileImage = ""
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail("User already exists")
		}
		return nil, err
	}
	return account, nil
}
