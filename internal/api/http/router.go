package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedx-service/internal/api/http/handlers"
	"github.com/spec-kit/feedx-service/internal/auth"
	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/storage"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Issues         *handlers.IssuesHandler
	Faculty        *handlers.FacultyHandler
	Uploads        *handlers.UploadsHandler
	AuthMiddleware *auth.AuthMiddleware
	// UploadsDir is served at /uploads when non-empty.
	UploadsDir string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	if cfg.UploadsDir != "" {
		app.Static(storage.LocalPrefix, cfg.UploadsDir)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	if cfg.Uploads != nil {
		app.Post("/api/upload", cfg.AuthMiddleware.Handle, cfg.Uploads.Upload)
	}

	issues := app.Group("/issues", cfg.AuthMiddleware.Handle)
	issues.Post("/", auth.RequireRole(domain.RoleStudent), cfg.Issues.Submit)
	issues.Get("/", cfg.Issues.ListActive)
	issues.Get("/resolved", cfg.Issues.ListResolved)
	issues.Get("/:id", cfg.Issues.Get)
	issues.Get("/:id/escalation", cfg.Issues.Escalation)
	issues.Post("/:id/escalate", auth.RequireRole(domain.RoleStudent), cfg.Issues.Escalate)

	faculty := app.Group("/faculty", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	faculty.Get("/issues", cfg.Faculty.ListIssues)
	faculty.Post("/issues/:id/respond", cfg.Faculty.Respond)
}
