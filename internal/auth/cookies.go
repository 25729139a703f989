package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Cookie names per audience; distinct so a browser can hold user and
// admin sessions simultaneously without collision.
const (
	UserRefreshCookie  = "refreshToken"
	AdminRefreshCookie = "adminRefreshToken"
)

// RefreshCookieName returns the cookie name for the audience.
func RefreshCookieName(audience Audience) string {
	if audience == AudienceAdmin {
		return AdminRefreshCookie
	}
	return UserRefreshCookie
}

// NewRefreshCookie builds the httpOnly refresh cookie for the audience.
func NewRefreshCookie(audience Audience, token string, ttl time.Duration, secure bool) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     RefreshCookieName(audience),
		Value:    token,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	}
}

// ClearRefreshCookie builds an expired cookie that removes the refresh
// token for the audience.
func ClearRefreshCookie(audience Audience, secure bool) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     RefreshCookieName(audience),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	}
}
