package domain

import "time"

// Role distinguishes end-users from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account is the domain model for a registered account.
//
// IsBlocked and IsDeleted gate authentication: only an account with
// both flags clear may obtain new tokens, and both flags are re-checked
// on every authenticated request, not just at login.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsBlocked    bool
	IsDeleted    bool
	ProfileImage string
	Bio          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAuthenticate reports whether the account may obtain new tokens.
func (a *Account) CanAuthenticate() bool {
	return !a.IsBlocked && !a.IsDeleted
}
