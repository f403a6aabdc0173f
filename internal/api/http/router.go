package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campaign-support/internal/api/http/handlers"
	"github.com/spec-kit/campaign-support/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	Uploads        *handlers.UploadsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/candidates/register", cfg.Auth.RegisterCandidate)
	authGroup.Post("/candidates/login", cfg.Auth.LoginCandidate)
	authGroup.Post("/admin/login", cfg.Auth.LoginAdmin)

	candidate := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireCandidate())
	candidate.Post("/", cfg.Tickets.CreateTicket)
	candidate.Get("/", cfg.Tickets.ListTickets)
	candidate.Get("/:id", cfg.Tickets.GetTicket)
	candidate.Post("/:id/messages", cfg.Tickets.AddMessage)
	candidate.Post("/:id/read", cfg.Tickets.MarkRead)

	admin := app.Group("/admin/tickets", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/", cfg.AdminTickets.ListTickets)
	admin.Get("/:id", cfg.AdminTickets.GetTicket)
	admin.Post("/:id/messages", cfg.AdminTickets.AddMessage)
	admin.Post("/:id/close", cfg.AdminTickets.CloseTicket)

	uploads := app.Group("/uploads", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	uploads.Post("/", cfg.Uploads.Upload)
}
