// Package api provides the operator HTTP API of the hearth supervisor.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hearth-labs/hearth/internal/api/handler"
	"github.com/hearth-labs/hearth/internal/api/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string

	// Metrics records HTTP server metrics. Optional.
	Metrics *middleware.Metrics

	Supervisor handler.Supervisor
	Monitor    handler.Monitor

	// Endpoints reports breaker state on /v1/ops/status. Optional.
	Endpoints handler.EndpointReporter

	// Tokens verifies operator tokens. Without it the admin routes are not
	// mounted.
	Tokens middleware.TokenVerifier

	// RequireTLS rejects requests forwarded over plain http.
	RequireTLS bool

	// AdminRateLimit overrides the per-operator admin limit.
	// Default: middleware.AdminRateLimit
	AdminRateLimit *middleware.RateLimitConfig
}

// NewRouter creates the chi router with every API route configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "hearth-supervisor"
	}
	adminLimit := middleware.AdminRateLimit
	if cfg.AdminRateLimit != nil {
		adminLimit = *cfg.AdminRateLimit
	}

	// Order matters: the request ID and span must exist before logging.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	ops := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Supervisor, cfg.Monitor, cfg.Endpoints)
	queries := handler.NewMetricsHandler(cfg.Monitor, cfg.Logger)
	components := handler.NewComponentsHandler(cfg.Supervisor)
	admin := handler.NewAdminHandler(cfg.Supervisor, cfg.Monitor, cfg.Logger)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", ops.HealthCheck)
			r.Get("/ready", ops.ReadinessCheck)
			r.Get("/status", ops.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.QueryRateLimit))

			r.Route("/metrics", func(r chi.Router) {
				r.Get("/current", queries.Current)
				r.Get("/average", queries.Average)
				r.Get("/trends", queries.Trends)
				r.Get("/export", queries.Export)
			})
			r.Get("/health", queries.Health)
			r.Get("/alerts", queries.Alerts)
			r.Get("/components", components.List)
			r.Get("/components/{name}", components.Get)
		})

		if cfg.Tokens == nil {
			cfg.Logger.Warn().Msg("no operator token verifier configured, admin routes disabled")
			return
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.OperatorAuth(cfg.Tokens))
			r.Use(middleware.RateLimitByOperator(adminLimit))
			r.Use(middleware.RequireJSON)

			r.Post("/components/{name}/recover", admin.Recover)
			r.Put("/maintenance", admin.SetMaintenance)
			r.Get("/thresholds", admin.GetThresholds)
			r.Patch("/thresholds", admin.PatchThresholds)
			r.Get("/configuration", admin.GetConfiguration)
			r.Patch("/configuration", admin.PatchConfiguration)
		})
	})

	return r
}
