// Package api provides the HTTP API for the WHO air quality dashboard.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/api/handler"
	"github.com/breatheroute/whoair/internal/api/middleware"
	"github.com/breatheroute/whoair/internal/api/response"
	"github.com/breatheroute/whoair/internal/plot"
	"github.com/breatheroute/whoair/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	Service  *airquality.Service
	Renderer *plot.Renderer

	// Upstreams and Database feed the ops endpoints. Both optional.
	Upstreams *resilience.Registry
	Database  handler.Pinger

	RequireTLS  bool
	CacheMaxAge time.Duration
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "whoair-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a load balancer
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Service:   cfg.Service,
		Upstreams: cfg.Upstreams,
		Database:  cfg.Database,
	})
	dashboardHandler := handler.NewDashboardHandler(cfg.Service, cfg.Renderer)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 120 req/min
	renderRateLimit := middleware.RateLimitByIP(middleware.RenderRateLimit)     // 30 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Use(middleware.CacheControl(cfg.CacheMaxAge))

			r.Get("/options", dashboardHandler.GetOptions)
			r.Get("/records", dashboardHandler.ListRecords)
			r.Get("/trend", dashboardHandler.GetTrend)
			r.Get("/country-trend", dashboardHandler.GetCountryTrend)
			r.Get("/summary", dashboardHandler.GetSummary)

			// Rendering is CPU bound
			r.Group(func(r chi.Router) {
				r.Use(renderRateLimit)
				r.Get("/trend.png", dashboardHandler.TrendImage(plot.FormatPNG))
				r.Get("/trend.svg", dashboardHandler.TrendImage(plot.FormatSVG))
				r.Get("/country-trend.png", dashboardHandler.CountryTrendImage(plot.FormatPNG))
				r.Get("/country-trend.svg", dashboardHandler.CountryTrendImage(plot.FormatSVG))
			})
		})
	})

	return r
}
