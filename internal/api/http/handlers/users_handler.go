package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// UsersHandler exposes self-service profile endpoints.
type UsersHandler struct {
	users *service.UserService
	auth  *service.AuthService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(userService *service.UserService, authService *service.AuthService) *UsersHandler {
	return &UsersHandler{users: userService, auth: authService}
}

// GetProfile handles GET /users/profile.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("No token provided")
	}
	return c.JSON(dto.NewAccountResponse(account))
}

// UpdateProfile handles PUT /users/profile. The body is multipart so
// the profile image can ride along with the text fields.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	caller, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("No token provided")
	}

	req := dto.ProfileUpdateRequest{
		Name:  c.FormValue("name"),
		Email: c.FormValue("email"),
		Bio:   c.FormValue("bio"),
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	input := service.UpdateProfileInput{
		Name:        req.Name,
		Email:       req.Email,
		Bio:         req.Bio,
		RemoveImage: c.FormValue("removeImage") != "",
	}

	if fileHeader, err := c.FormFile("profileImage"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return apperrors.NewValidationError("unreadable profile image", nil)
		}
		defer file.Close()
		input.Image = &service.ImageUpload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Reader:      file,
			Size:        fileHeader.Size,
		}
	}

	account, err := h.users.UpdateProfile(c.Context(), caller.ID, input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAccountResponse(account))
}

// ChangePassword handles PUT /users/change-password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	caller, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("No token provided")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	if err := h.auth.ChangePassword(c.Context(), caller.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password updated successfully"})
}
