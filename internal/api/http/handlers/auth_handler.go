package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// AuthHandler exposes the user-audience session endpoints.
type AuthHandler struct {
	auth          *service.AuthService
	secureCookies bool
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: authService, secureCookies: secureCookies}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	account, pair, err := h.auth.Register(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return c.Status(http.StatusCreated).JSON(dto.NewSessionResponse(account, pair.AccessToken))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	account, pair, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(dto.NewSessionResponse(account, pair.AccessToken))
}

// Refresh handles POST /auth/refresh. It is reachable without any
// access token; the refresh cookie alone re-establishes the session.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(auth.UserRefreshCookie)
	if token == "" {
		return apperrors.NewUnauthorized("No refresh token")
	}

	account, pair, err := h.auth.Refresh(c.Context(), token, auth.AudienceUser)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSessionResponse(account, pair.AccessToken))
}

// Logout handles POST /auth/logout by clearing the refresh cookie.
// Access tokens are stateless and simply age out.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(auth.ClearRefreshCookie(auth.AudienceUser, h.secureCookies))
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string) {
	codec := h.auth.Codec(auth.AudienceUser)
	c.Cookie(auth.NewRefreshCookie(auth.AudienceUser, token, codec.RefreshTTL(), h.secureCookies))
}
