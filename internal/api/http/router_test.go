package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/service"
)

type memRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[string]*domain.Account)}
}

func (m *memRepo) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(account.Email)
	for _, existing := range m.accounts {
		if existing.Email == email {
			return repository.ErrDuplicateEmail
		}
	}
	account.ID = uuid.NewString()
	account.Email = email
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	clone := *account
	m.accounts[account.ID] = &clone
	return nil
}

func (m *memRepo) Update(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *account
	clone.Email = strings.ToLower(clone.Email)
	m.accounts[account.ID] = &clone
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *account
	return &clone, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, account := range m.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memRepo) List(_ context.Context, filter repository.ListFilter) ([]*domain.Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]*domain.Account, 0)
	search := strings.ToLower(filter.Search)
	for _, account := range m.accounts {
		if account.Role == domain.RoleAdmin || account.IsDeleted {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(account.Name), search) &&
			!strings.Contains(account.Email, search) {
			continue
		}
		clone := *account
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, len(matched), nil
}

func (m *memRepo) SetBlocked(_ context.Context, id string, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.IsBlocked = blocked
	return nil
}

func (m *memRepo) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.IsDeleted = true
	return nil
}

func (m *memRepo) CountActive(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, account := range m.accounts {
		if !account.IsDeleted {
			count++
		}
	}
	return count, nil
}

func newTestApp(t *testing.T) (*fiber.App, *memRepo, *service.AuthService) {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			UserAccessSecret:   "user-access",
			UserRefreshSecret:  "user-refresh",
			AdminAccessSecret:  "admin-access",
			AdminRefreshSecret: "admin-refresh",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
			BcryptCost:         4,
		},
	}

	repo := newMemRepo()
	logger := zap.NewNop()
	authService := service.NewAuthService(cfg, repo, nil)
	userService := service.NewUserService(repo, nil, logger)
	adminService := service.NewAdminService(repo, nil, nil, logger, 4)

	app := fiber.New()
	RegisterMiddlewares(app, logger, nil, 0, false)
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("user-service-test", "test", nil, nil, nil),
		Auth:      handlers.NewAuthHandler(authService, false),
		Users:     handlers.NewUsersHandler(userService, authService),
		Admin:     handlers.NewAdminHandler(authService, adminService, false),
		UserGate:  auth.NewGate(authService.Codec(auth.AudienceUser), repo),
		AdminGate: auth.NewGate(authService.Codec(auth.AudienceAdmin), repo),
	})
	return app, repo, authService
}

func jsonRequest(method, path string, body any) *nethttp.Request {
	var reader io.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *nethttp.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func refreshCookie(resp *nethttp.Response, name string) *nethttp.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestRegisterThenRefreshScenario(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/auth/register", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "secret1",
	}))
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, "ana@x.com", body["email"])
	assert.NotEmpty(t, body["accessToken"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "passwordHash")

	cookie := refreshCookie(resp, auth.UserRefreshCookie)
	require.NotNil(t, cookie, "register must set the refresh cookie")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, nethttp.SameSiteStrictMode, cookie.SameSite)

	req := jsonRequest(nethttp.MethodPost, "/auth/refresh", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	refreshed := decodeBody(t, resp)
	assert.Equal(t, body["id"], refreshed["id"])
	assert.Equal(t, body["email"], refreshed["email"])
	assert.NotEmpty(t, refreshed["accessToken"])

	// Same cookie keeps working; it is never rotated.
	req = jsonRequest(nethttp.MethodPost, "/auth/refresh", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestRefreshWithoutCookie(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/auth/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No refresh token", decodeBody(t, resp)["message"])
}

func TestRegisterValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/auth/register", map[string]string{
		"name": "Ana1", "email": "not-an-email", "password": "short",
	}))
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "email")
}

func TestBlockTakesEffectMidSession(t *testing.T) {
	app, repo, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/auth/register", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "secret1",
	}))
	require.NoError(t, err)
	body := decodeBody(t, resp)
	token := body["accessToken"].(string)
	accountID := body["id"].(string)

	req := jsonRequest(nethttp.MethodGet, "/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	// Block the account; the still-unexpired token must stop working
	// on the very next request.
	require.NoError(t, repo.SetBlocked(context.Background(), accountID, true))

	req = jsonRequest(nethttp.MethodGet, "/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Your account has been blocked", decodeBody(t, resp)["message"])
}

func TestGateRejectsMissingAndMalformedTokens(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodGet, "/users/profile", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No token provided", decodeBody(t, resp)["message"])

	req := jsonRequest(nethttp.MethodGet, "/users/profile", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, resp)["message"])
}

func TestUserTokenCannotOpenAdminRoutes(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/auth/register", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "secret1",
	}))
	require.NoError(t, err)
	token := decodeBody(t, resp)["accessToken"].(string)

	// Signed with the user audience secret: fails the admin gate outright.
	req := jsonRequest(nethttp.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestAdminBlockAndLoginScenario(t *testing.T) {
	app, repo, _ := newTestApp(t)

	admin := &domain.Account{Name: "Root", Email: "root@x.com", Role: domain.RoleAdmin}
	hash, err := auth.HashPassword("rootpass", 4)
	require.NoError(t, err)
	admin.PasswordHash = hash
	require.NoError(t, repo.Create(context.Background(), admin))

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/admin/login", map[string]string{
		"email": "root@x.com", "password": "rootpass",
	}))
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	adminToken := decodeBody(t, resp)["accessToken"].(string)
	require.NotNil(t, refreshCookie(resp, auth.AdminRefreshCookie))

	// Admin creates Bob.
	req := jsonRequest(nethttp.MethodPost, "/admin/users", map[string]string{
		"name": "Bob", "email": "bob@x.com", "password": "pw12345",
	})
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	bobID := decodeBody(t, resp)["id"].(string)

	// Admin blocks Bob.
	req = jsonRequest(nethttp.MethodPatch, "/admin/users/"+bobID+"/toggle-block", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	toggled := decodeBody(t, resp)
	assert.Equal(t, true, toggled["isBlocked"])
	assert.Equal(t, "User blocked successfully", toggled["message"])

	// Bob can no longer log in.
	resp, err = app.Test(jsonRequest(nethttp.MethodPost, "/auth/login", map[string]string{
		"email": "bob@x.com", "password": "pw12345",
	}))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Your account has been blocked by admin", decodeBody(t, resp)["message"])
}

func TestSoftDeletedUserVanishesFromRosterAndLogin(t *testing.T) {
	app, repo, _ := newTestApp(t)

	admin := &domain.Account{Name: "Root", Email: "root@x.com", Role: domain.RoleAdmin}
	hash, err := auth.HashPassword("rootpass", 4)
	require.NoError(t, err)
	admin.PasswordHash = hash
	require.NoError(t, repo.Create(context.Background(), admin))

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/admin/login", map[string]string{
		"email": "root@x.com", "password": "rootpass",
	}))
	require.NoError(t, err)
	adminToken := decodeBody(t, resp)["accessToken"].(string)

	user := &domain.Account{Name: "Ana", Email: "ana@x.com", Role: domain.RoleUser, PasswordHash: hash}
	require.NoError(t, repo.Create(context.Background(), user))

	req := jsonRequest(nethttp.MethodDelete, "/admin/users/"+user.ID, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	req = jsonRequest(nethttp.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	roster := decodeBody(t, resp)
	assert.Empty(t, roster["users"])

	resp, err = app.Test(jsonRequest(nethttp.MethodPost, "/auth/login", map[string]string{
		"email": "ana@x.com", "password": "rootpass",
	}))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Your account has been deleted", decodeBody(t, resp)["message"])
}

func TestAdminRefreshRejectsUserCookie(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/auth/register", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "secret1",
	}))
	require.NoError(t, err)
	userCookie := refreshCookie(resp, auth.UserRefreshCookie)
	require.NotNil(t, userCookie)

	// Present the user refresh token under the admin cookie name.
	req := jsonRequest(nethttp.MethodPost, "/admin/refresh", nil)
	req.AddCookie(&nethttp.Cookie{Name: auth.AdminRefreshCookie, Value: userCookie.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Invalid admin refresh token", decodeBody(t, resp)["message"])
}

func TestLogoutClearsRefreshCookie(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/auth/logout", nil))
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "Logged out successfully", decodeBody(t, resp)["message"])

	cookie := refreshCookie(resp, auth.UserRefreshCookie)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()))
}

func TestChangePasswordFlow(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest(nethttp.MethodPost, "/auth/register", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "secret1",
	}))
	require.NoError(t, err)
	token := decodeBody(t, resp)["accessToken"].(string)

	req := jsonRequest(nethttp.MethodPut, "/users/change-password", map[string]string{
		"oldPassword": "wrong", "newPassword": "newsecret",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "old password incorrect", decodeBody(t, resp)["message"])

	req = jsonRequest(nethttp.MethodPut, "/users/change-password", map[string]string{
		"oldPassword": "secret1", "newPassword": "newsecret",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(nethttp.MethodPost, "/auth/login", map[string]string{
		"email": "ana@x.com", "password": "newsecret",
	}))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}
