package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// AdminHandler exposes the admin-audience session endpoints and the
// roster management API.
type AdminHandler struct {
	auth          *service.AuthService
	admin         *service.AdminService
	secureCookies bool
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(authService *service.AuthService, adminService *service.AdminService, secureCookies bool) *AdminHandler {
	return &AdminHandler{auth: authService, admin: adminService, secureCookies: secureCookies}
}

// Login handles POST /admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	account, pair, err := h.auth.AdminLogin(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	codec := h.auth.Codec(auth.AudienceAdmin)
	c.Cookie(auth.NewRefreshCookie(auth.AudienceAdmin, pair.RefreshToken, codec.RefreshTTL(), h.secureCookies))
	return c.JSON(dto.NewSessionResponse(account, pair.AccessToken))
}

// Refresh handles POST /admin/refresh against the admin refresh cookie.
func (h *AdminHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(auth.AdminRefreshCookie)
	if token == "" {
		return apperrors.NewUnauthorized("No admin refresh token")
	}

	account, pair, err := h.auth.Refresh(c.Context(), token, auth.AudienceAdmin)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSessionResponse(account, pair.AccessToken))
}

// Logout handles POST /admin/logout by clearing the admin refresh cookie.
func (h *AdminHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(auth.ClearRefreshCookie(auth.AudienceAdmin, h.secureCookies))
	return c.JSON(fiber.Map{"message": "Admin logged out successfully"})
}

// Dashboard handles GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	total, err := h.admin.DashboardTotal(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"totalUsers": total})
}

// ListUsers handles GET /admin/users with search and pagination.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "5"))

	roster, err := h.admin.ListUsers(c.Context(), c.Query("search"), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewRosterResponse(roster.Accounts, roster.Page, roster.Pages, roster.Total))
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	account, err := h.admin.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAccountResponse(account))
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	account, err := h.admin.CreateUser(c.Context(), service.CreateAccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		Bio:      req.Bio,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewAccountResponse(account))
}

// UpdateUser handles PUT /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	input := service.UpdateAccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Bio:      req.Bio,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	account, err := h.admin.UpdateUser(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAccountResponse(account))
}

// DeleteUser handles DELETE /admin/users/:id (soft delete).
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.admin.DeleteUser(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// ToggleBlock handles PATCH /admin/users/:id/toggle-block.
func (h *AdminHandler) ToggleBlock(c *fiber.Ctx) error {
	blocked, err := h.admin.ToggleBlock(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	state := "unblocked"
	if blocked {
		state = "blocked"
	}
	return c.JSON(fiber.Map{
		"message":   fmt.Sprintf("User %s successfully", state),
		"isBlocked": blocked,
	})
}
