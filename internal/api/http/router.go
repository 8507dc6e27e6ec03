package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fleetops/ops-dashboard/internal/api/http/handlers"
	"github.com/fleetops/ops-dashboard/internal/auth"
	"github.com/fleetops/ops-dashboard/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protectedAuth.Post("/password/change", cfg.Auth.ChangePassword)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/reports/revenue", auth.RequireRole(domain.RoleAdmin, domain.RoleExecutive), cfg.Reports.Revenue)
	api.Get("/operations/fleet", auth.RequireRole(domain.RoleAdmin, domain.RoleOperations), cfg.Reports.Fleet)
	api.Get("/admin/users", auth.RequireRole(domain.RoleAdmin), cfg.Reports.Users)
}
