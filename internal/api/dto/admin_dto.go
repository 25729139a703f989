package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/user-service/internal/domain"
)

// CreateUserRequest is the admin payload for provisioning an account.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Bio      string `json:"bio"`
}

// Validate runs field-level validation rules.
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, nameRule),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
		validation.Field(&r.Role, validation.In(string(domain.RoleUser), string(domain.RoleAdmin))),
	)
}

// UpdateUserRequest is the admin payload for editing an account.
// Omitted fields keep their current values.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Bio      *string `json:"bio"`
}

// Validate runs field-level validation rules.
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, optionalRule(nameRule)),
		validation.Field(&r.Email, optionalRule(is.Email)),
		validation.Field(&r.Password, optionalRule(validation.Length(6, 128))),
		validation.Field(&r.Role, optionalRule(validation.In(string(domain.RoleUser), string(domain.RoleAdmin)))),
	)
}

// optionalRule applies rules only when an optional string field is
// present and non-empty.
func optionalRule(rules ...validation.Rule) validation.Rule {
	return validation.By(func(value interface{}) error {
		var s string
		switch v := value.(type) {
		case *string:
			if v == nil {
				return nil
			}
			s = *v
		case string:
			s = v
		default:
			return nil
		}
		if s == "" {
			return nil
		}
		return validation.Validate(s, rules...)
	})
}

// RosterResponse is one page of the admin user listing.
type RosterResponse struct {
	Users []AccountResponse `json:"users"`
	Page  int               `json:"page"`
	Pages int               `json:"pages"`
	Total int               `json:"total"`
}

// NewRosterResponse maps accounts to the listing shape.
func NewRosterResponse(accounts []*domain.Account, page, pages, total int) RosterResponse {
	users := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, NewAccountResponse(account))
	}
	return RosterResponse{Users: users, Page: page, Pages: pages, Total: total}
}
