package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Users     *handlers.UsersHandler
	Admin     *handlers.AdminHandler
	UserGate  *auth.Gate
	AdminGate *auth.Gate
}

// RegisterRoutes wires HTTP routes.
//
// The refresh endpoints sit outside the gates on purpose: they are how
// a page reload re-establishes a session before any access token exists.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/stats", cfg.Health.Stats)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)

	users := app.Group("/users", cfg.UserGate.Handle)
	users.Get("/profile", cfg.Users.GetProfile)
	users.Put("/profile", cfg.Users.UpdateProfile)
	users.Put("/change-password", cfg.Users.ChangePassword)

	admin := app.Group("/admin")
	admin.Post("/login", cfg.Admin.Login)
	admin.Post("/refresh", cfg.Admin.Refresh)
	admin.Post("/logout", cfg.Admin.Logout)

	protected := admin.Group("", cfg.AdminGate.Handle, auth.RequireAdmin())
	protected.Get("/dashboard", cfg.Admin.Dashboard)
	protected.Get("/users", cfg.Admin.ListUsers)
	protected.Post("/users", cfg.Admin.CreateUser)
	protected.Get("/users/:id", cfg.Admin.GetUser)
	protected.Put("/users/:id", cfg.Admin.UpdateUser)
	protected.Delete("/users/:id", cfg.Admin.DeleteUser)
	protected.Patch("/users/:id/toggle-block", cfg.Admin.ToggleBlock)
}
