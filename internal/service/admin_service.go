package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/persistence"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

const (
	dashboardCountKey = "dashboard:total_users"
	dashboardCacheTTL = 30 * time.Second
)

// RosterPage is one page of the admin user listing.
type RosterPage struct {
	Accounts []*domain.Account
	Page     int
	Pages    int
	Total    int
}

// CreateAccountInput carries admin-initiated account creation fields.
type CreateAccountInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Bio      string
}

// UpdateAccountInput carries admin edits; nil fields are untouched.
type UpdateAccountInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
	Bio      *string
}

// AdminService manages the user roster on behalf of administrators.
type AdminService struct {
	accounts   repository.AccountRepository
	redis      *persistence.Redis
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// NewAdminService builds the service.
func NewAdminService(accounts repository.AccountRepository, redis *persistence.Redis, dispatcher events.Dispatcher, logger *zap.Logger, bcryptCost int) *AdminService {
	return &AdminService{
		accounts:   accounts,
		redis:      redis,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// ListUsers returns the roster page; admins and soft-deleted accounts
// never appear.
func (s *AdminService) ListUsers(ctx context.Context, search string, page, pageSize int) (*RosterPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 5
	}

	accounts, total, err := s.accounts.List(ctx, repository.ListFilter{
		Search:   search,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}

	pages := (total + pageSize - 1) / pageSize
	return &RosterPage{Accounts: accounts, Page: page, Pages: pages, Total: total}, nil
}

// GetUser loads a single account by id.
func (s *AdminService) GetUser(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("User not found")
		}
		return nil, err
	}
	return account, nil
}

// CreateUser provisions an account on behalf of an administrator.
func (s *AdminService) CreateUser(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if _, err := s.accounts.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewDuplicateEmail("User with this email already exists")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if !role.Valid() {
		role = domain.RoleUser
	}

	account := &domain.Account{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		Bio:          input.Bio,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail("User with this email already exists")
		}
		return nil, err
	}

	s.invalidateDashboard(ctx)
	return account, nil
}

// UpdateUser applies the provided fields; a password field is re-hashed,
// plaintext is never stored.
func (s *AdminService) UpdateUser(ctx context.Context, id string, input UpdateAccountInput) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("User not found")
		}
		return nil, err
	}

	if input.Name != nil {
		account.Name = *input.Name
	}
	if input.Email != nil {
		account.Email = *input.Email
	}
	if input.Bio != nil {
		account.Bio = *input.Bio
	}
	if input.Role != nil && input.Role.Valid() {
		account.Role = *input.Role
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = hash
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail("User with this email already exists")
		}
		return nil, err
	}
	return account, nil
}

// DeleteUser soft-deletes the account; the row stays in storage and the
// email keeps blocking re-registration.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("User not found")
		}
		return err
	}

	if err := s.accounts.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.invalidateDashboard(ctx)
	s.publish(ctx, events.EventAccountDeleted, account, nil)
	return nil
}

// ToggleBlock flips the block flag and reports the new state.
func (s *AdminService) ToggleBlock(ctx context.Context, id string) (bool, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperrors.NewNotFound("User not found")
		}
		return false, err
	}

	blocked := !account.IsBlocked
	if err := s.accounts.SetBlocked(ctx, id, blocked); err != nil {
		return false, err
	}

	eventType := events.EventAccountUnblocked
	if blocked {
		eventType = events.EventAccountBlocked
	}
	s.publish(ctx, eventType, account, events.AccountBlockedPayload{Blocked: blocked})
	return blocked, nil
}

// DashboardTotal returns the count of non-deleted accounts, cached in
// redis for a short window to keep the dashboard cheap.
func (s *AdminService) DashboardTotal(ctx context.Context) (int, error) {
	if s.redis != nil && s.redis.Client != nil {
		if cached, err := s.redis.Client.Get(ctx, dashboardCountKey).Result(); err == nil {
			if total, convErr := strconv.Atoi(cached); convErr == nil {
				return total, nil
			}
		}
	}

	total, err := s.accounts.CountActive(ctx)
	if err != nil {
		return 0, err
	}

	if s.redis != nil && s.redis.Client != nil {
		if err := s.redis.Client.Set(ctx, dashboardCountKey, strconv.Itoa(total), dashboardCacheTTL).Err(); err != nil {
			s.logger.Debug("dashboard cache write failed", zap.Error(err))
		}
	}
	return total, nil
}

func (s *AdminService) invalidateDashboard(ctx context.Context) {
	if s.redis == nil || s.redis.Client == nil {
		return
	}
	if err := s.redis.Client.Del(ctx, dashboardCountKey).Err(); err != nil {
		s.logger.Debug("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *AdminService) publish(ctx context.Context, eventType events.EventType, account *domain.Account, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: account.ID,
		Actor:     events.Actor{Role: domain.RoleAdmin, AccountID: account.ID},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
