package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-kit/lead-router/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Leads        *handlers.LeadsHandler
	Interactions *handlers.InteractionsHandler
	Operators    *handlers.OperatorsHandler
	Sources      *handlers.SourcesHandler
	Stats        *handlers.StatsHandler
	// IngestLimiter guards lead ingestion when set.
	IngestLimiter *IPRateLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Stats.Metrics)

	ingest := func(h fiber.Handler) []fiber.Handler {
		if cfg.IngestLimiter == nil {
			return []fiber.Handler{h}
		}
		return []fiber.Handler{cfg.IngestLimiter.Handle, h}
	}

	app.Post("/leads/resolve", ingest(cfg.Leads.Resolve)...)

	interactions := app.Group("/interactions")
	interactions.Post("/", ingest(cfg.Interactions.Register)...)
	interactions.Post("/record", ingest(cfg.Interactions.Record)...)
	interactions.Post("/:id/close", cfg.Interactions.Close)

	operators := app.Group("/operators")
	operators.Post("/", cfg.Operators.Create)
	operators.Get("/", cfg.Operators.List)
	operators.Get("/:id", cfg.Operators.Get)
	operators.Patch("/:id", cfg.Operators.Update)

	sources := app.Group("/sources")
	sources.Post("/", cfg.Sources.Create)
	sources.Get("/", cfg.Sources.List)
	sources.Post("/:id/config", cfg.Sources.Configure)
	sources.Get("/:id/config", cfg.Sources.Links)
	sources.Get("/:id/assign", cfg.Sources.Assign)

	app.Get("/stats", cfg.Stats.Stats)
}
