package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
)

// Audience identifies which session context a token belongs to.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

var (
	// ErrInvalidToken covers bad signatures and malformed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for structurally valid but expired tokens.
	ErrTokenExpired = errors.New("token expired")
)

// TokenCodec issues and verifies the JWT pair for one audience.
//
// Access and refresh tokens carry only the account id as subject; role
// and status are always re-read from the store, never trusted from a
// claim.
type TokenCodec struct {
	audience      Audience
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenCodec builds a codec for the given audience from config.
func NewTokenCodec(audience Audience, cfg config.AuthConfig) *TokenCodec {
	accessSecret := cfg.UserAccessSecret
	refreshSecret := cfg.UserRefreshSecret
	if audience == AudienceAdmin {
		accessSecret = cfg.AdminAccessSecret
		refreshSecret = cfg.AdminRefreshSecret
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &TokenCodec{
		audience:      audience,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Audience returns the audience this codec signs for.
func (c *TokenCodec) Audience() Audience {
	return c.audience
}

// RefreshTTL returns the refresh token lifetime, used for cookie max age.
func (c *TokenCodec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// IssueAccessToken signs a short-lived access token for the account.
func (c *TokenCodec) IssueAccessToken(account *domain.Account) (string, time.Time, error) {
	return c.sign(account.ID, c.accessSecret, c.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the account.
func (c *TokenCodec) IssueRefreshToken(account *domain.Account) (string, time.Time, error) {
	return c.sign(account.ID, c.refreshSecret, c.refreshTTL)
}

// VerifyAccessToken validates an access token and returns its claims.
func (c *TokenCodec) VerifyAccessToken(tokenStr string) (*jwt.RegisteredClaims, error) {
	return verify(tokenStr, c.accessSecret)
}

// VerifyRefreshToken validates a refresh token and returns its claims.
func (c *TokenCodec) VerifyRefreshToken(tokenStr string) (*jwt.RegisteredClaims, error) {
	return verify(tokenStr, c.refreshSecret)
}

func (c *TokenCodec) sign(subjectID string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   subjectID,
		Audience:  jwt.ClaimStrings{string(c.audience)},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func verify(tokenStr string, secret []byte) (*jwt.RegisteredClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
