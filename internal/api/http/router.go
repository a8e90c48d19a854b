package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Incidents      *handlers.IncidentsHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
	Gate           *auth.Gate
	Metrics        http.Handler
}

// RegisterRoutes wires HTTP routes. Acknowledge and resolve are authorized by
// the incident service itself, so they only require authentication here.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	authn := cfg.AuthMiddleware.Handle
	require := func(action auth.Action) fiber.Handler {
		return auth.RequireAction(cfg.Gate, action)
	}

	api := app.Group("/api")
	api.Post("/submit", cfg.Incidents.Submit)
	api.Post("/submit_internal", authn, require(auth.ActionSubmitInternal), cfg.Incidents.Submit)

	api.Get("/incidents/sla-monitor", authn, require(auth.ActionViewSLAReport), cfg.SLA.Monitor)
	api.Get("/incidents", authn, require(auth.ActionListIncidents), cfg.Incidents.List)
	api.Get("/incidents/:id", authn, require(auth.ActionViewIncident), cfg.Incidents.Get)
	api.Post("/incidents/:id/acknowledge", authn, cfg.Incidents.Acknowledge)
	api.Post("/incidents/:id/resolve", authn, cfg.Incidents.Resolve)

	app.Get("/admin-dashboard", authn, require(auth.ActionViewAdminDashboard), cfg.Incidents.Dashboard)
}
