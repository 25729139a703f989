package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// TokenPair carries the freshly minted session tokens. The refresh
// token travels to the client only as an httpOnly cookie; the access
// token goes in the response body.
type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// AuthService coordinates registration, login and silent renewal for
// both audiences.
type AuthService struct {
	accounts   repository.AccountRepository
	userCodec  *auth.TokenCodec
	adminCodec *auth.TokenCodec
	dispatcher events.Dispatcher
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, accounts repository.AccountRepository, dispatcher events.Dispatcher) *AuthService {
	return &AuthService{
		accounts:   accounts,
		userCodec:  auth.NewTokenCodec(auth.AudienceUser, cfg.Auth),
		adminCodec: auth.NewTokenCodec(auth.AudienceAdmin, cfg.Auth),
		dispatcher: dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Codec exposes the token codec for the given audience, used by the
// route gates and cookie handling.
func (s *AuthService) Codec(audience auth.Audience) *auth.TokenCodec {
	if audience == auth.AudienceAdmin {
		return s.adminCodec
	}
	return s.userCodec
}

// Register creates a new end-user account and issues a session.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.Account, TokenPair, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, TokenPair{}, apperrors.NewDuplicateEmail("User already exists")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, TokenPair{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, TokenPair{}, err
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, TokenPair{}, apperrors.NewDuplicateEmail("User already exists")
		}
		return nil, TokenPair{}, err
	}

	pair, err := s.issueSession(account, s.userCodec)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.publish(ctx, events.EventAccountRegistered, account, events.AccountRegisteredPayload{
		Email: account.Email,
		Role:  account.Role,
	})
	return account, pair, nil
}

// Login authenticates an end-user.
//
// Unknown email and wrong password produce the identical opaque
// failure; deleted is checked before blocked, matching the upstream
// login order.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Account, TokenPair, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, TokenPair{}, apperrors.NewInvalidCredentials("Invalid credentials")
		}
		return nil, TokenPair{}, err
	}

	if account.IsDeleted {
		return nil, TokenPair{}, apperrors.NewAccountDeleted("Your account has been deleted")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, TokenPair{}, apperrors.NewInvalidCredentials("Invalid credentials")
	}
	if account.IsBlocked {
		return nil, TokenPair{}, apperrors.NewAccountBlocked("Your account has been blocked by admin")
	}

	pair, err := s.issueSession(account, s.userCodec)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return account, pair, nil
}

// AdminLogin authenticates an administrator for the admin audience.
// Unknown email, wrong password and non-admin role all collapse into
// the same opaque failure.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*domain.Account, TokenPair, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, TokenPair{}, apperrors.NewInvalidCredentials("Invalid admin credentials")
		}
		return nil, TokenPair{}, err
	}

	if account.Role != domain.RoleAdmin {
		return nil, TokenPair{}, apperrors.NewInvalidCredentials("Invalid admin credentials")
	}
	if account.IsDeleted {
		return nil, TokenPair{}, apperrors.NewAccountDeleted("Your account has been deleted")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, TokenPair{}, apperrors.NewInvalidCredentials("Invalid admin credentials")
	}
	if account.IsBlocked {
		return nil, TokenPair{}, apperrors.NewAccountBlocked("Your account has been blocked by admin")
	}

	pair, err := s.issueSession(account, s.adminCodec)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return account, pair, nil
}

// Refresh validates a refresh token for the audience, re-checks the
// account status and mints a fresh access token. The refresh token is
// never rotated; the caller keeps presenting the same cookie until it
// expires or is cleared by logout.
func (s *AuthService) Refresh(ctx context.Context, tokenStr string, audience auth.Audience) (*domain.Account, TokenPair, error) {
	codec := s.Codec(audience)

	claims, err := codec.VerifyRefreshToken(tokenStr)
	if err != nil {
		if audience == auth.AudienceAdmin {
			return nil, TokenPair{}, apperrors.NewForbidden("Invalid admin refresh token")
		}
		return nil, TokenPair{}, apperrors.NewForbidden("Invalid refresh token")
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if audience == auth.AudienceAdmin {
				return nil, TokenPair{}, apperrors.NewNotFound("Admin not found")
			}
			return nil, TokenPair{}, apperrors.NewNotFound("User not found")
		}
		return nil, TokenPair{}, err
	}

	// Role is re-derived from the account record; a refresh token whose
	// subject drifted away from admin no longer opens the admin audience.
	if audience == auth.AudienceAdmin && account.Role != domain.RoleAdmin {
		return nil, TokenPair{}, apperrors.NewNotFound("Admin not found")
	}

	if account.IsBlocked {
		return nil, TokenPair{}, apperrors.NewAccountBlocked("Your account has been blocked")
	}
	if account.IsDeleted {
		return nil, TokenPair{}, apperrors.NewAccountDeleted("Your account has been deleted")
	}

	accessToken, expiresAt, err := codec.IssueAccessToken(account)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return account, TokenPair{AccessToken: accessToken, AccessExpiresAt: expiresAt}, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("User not found")
		}
		return err
	}

	if err := auth.ComparePassword(account.PasswordHash, oldPassword); err != nil {
		return apperrors.NewValidationError("old password incorrect", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return s.accounts.Update(ctx, account)
}

func (s *AuthService) issueSession(account *domain.Account, codec *auth.TokenCodec) (TokenPair, error) {
	accessToken, expiresAt, err := codec.IssueAccessToken(account)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, _, err := codec.IssueRefreshToken(account)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:     accessToken,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refreshToken,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, account *domain.Account, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: account.ID,
		Actor:     events.Actor{Role: account.Role, AccountID: account.ID},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
