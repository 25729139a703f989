package dto

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/user-service/internal/domain"
)

var nameRule = validation.Match(regexp.MustCompile(`^[a-zA-Z\s]+$`)).Error("must contain only alphabets")

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs field-level validation rules.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, nameRule),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
	)
}

// LoginRequest payload for login, shared by both audiences.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs field-level validation rules.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// ChangePasswordRequest payload for the self-service password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Validate runs field-level validation rules.
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 128).Error("password must be at least 6 characters")),
	)
}

// AccountResponse is the account shape returned by auth and profile
// endpoints. The password hash is never part of it.
type AccountResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ProfileImage string `json:"profileImage"`
	Bio          string `json:"bio,omitempty"`
	IsBlocked    bool   `json:"isBlocked"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// SessionResponse is an account plus a freshly minted access token.
type SessionResponse struct {
	AccountResponse
	AccessToken string `json:"accessToken"`
}

// NewAccountResponse maps a domain account to its public shape.
func NewAccountResponse(account *domain.Account) AccountResponse {
	createdAt := ""
	if !account.CreatedAt.IsZero() {
		createdAt = account.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return AccountResponse{
		ID:           account.ID,
		Name:         account.Name,
		Email:        account.Email,
		Role:         string(account.Role),
		ProfileImage: account.ProfileImage,
		Bio:          account.Bio,
		IsBlocked:    account.IsBlocked,
		CreatedAt:    createdAt,
	}
}

// NewSessionResponse maps an account and access token to the session shape.
func NewSessionResponse(account *domain.Account, accessToken string) SessionResponse {
	return SessionResponse{
		AccountResponse: NewAccountResponse(account),
		AccessToken:     accessToken,
	}
}
