package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ProfileUpdateRequest carries the text fields of the multipart profile
// update; the image itself is handled separately.
type ProfileUpdateRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
	Bio   string `json:"bio" form:"bio"`
}

// Validate runs field-level validation rules.
func (r ProfileUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, nameRule),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}
