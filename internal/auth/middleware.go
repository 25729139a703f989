package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

const accountKey = "auth_account"

// Gate validates bearer access tokens for one audience and loads the
// account behind them before any protected handler runs.
//
// Blocked/deleted flags are re-checked on every request, so a block
// applied mid-session takes effect on the very next call even though
// the access token itself is still signature-valid.
type Gate struct {
	codec    *TokenCodec
	accounts repository.AccountRepository
}

// NewGate constructs the authorization gate.
func NewGate(codec *TokenCodec, accounts repository.AccountRepository) *Gate {
	return &Gate{codec: codec, accounts: accounts}
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("No token provided")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("No token provided")
	}

	// Expired and malformed tokens get the same response; the client
	// reacts identically to both by attempting a silent refresh.
	claims, err := g.codec.VerifyAccessToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("Invalid or expired token")
	}

	account, err := g.accounts.GetByID(c.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("User not found")
		}
		return apperrors.MapError(err)
	}

	if account.IsBlocked {
		return apperrors.NewAccountBlocked("Your account has been blocked")
	}
	if account.IsDeleted {
		return apperrors.NewAccountDeleted("Your account has been deleted")
	}

	c.Locals(accountKey, account)
	return c.Next()
}

// RequireAdmin rejects callers whose current account role is not admin.
// The role is read from the freshly loaded account, never from a claim.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, ok := AccountFromContext(c)
		if !ok || account.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("Not authorized as admin")
		}
		return c.Next()
	}
}

// AccountFromContext retrieves the authenticated account.
func AccountFromContext(c *fiber.Ctx) (*domain.Account, bool) {
	val := c.Locals(accountKey)
	if val == nil {
		return nil, false
	}
	account, ok := val.(*domain.Account)
	return account, ok
}
