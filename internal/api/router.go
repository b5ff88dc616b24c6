package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/extgov-platform/extgov/internal/database"
	mw "github.com/extgov-platform/extgov/internal/middleware"
	inats "github.com/extgov-platform/extgov/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Admin token exchange
	Token http.HandlerFunc

	// Host-facing surfaces
	ListProviderExtensions http.HandlerFunc
	CheckDisable           http.HandlerFunc
	CheckOverride          http.HandlerFunc
	ListCommands           http.HandlerFunc

	// Admin surfaces
	ProvisionStatus  http.HandlerFunc
	ProvisionRefresh http.HandlerFunc
	ListAuditLogs    http.HandlerFunc

	// Auth middleware for admin routes
	AuthMiddleware func(http.Handler) http.Handler

	// Provision runner state for the readiness probe ("active", "degraded", ...)
	ProvisionState func() string
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	TokenRateLimiter   func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks DB, NATS, provisioning state. A degraded
	// runner does not fail readiness: enforcement keeps working on the
	// last-known-good snapshot.
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":    "healthy",
			"database":  "healthy",
			"nats":      "healthy",
			"provision": "healthy",
		}

		status := http.StatusOK

		if pool != nil {
			if err := database.HealthCheck(r.Context(), pool); err != nil {
				health["database"] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		} else {
			health["database"] = "not configured"
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		if h.ProvisionState != nil {
			health["provision"] = h.ProvisionState()
		} else {
			health["provision"] = "disabled"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Admin token exchange (public) — rate-limited
		r.Group(func(r chi.Router) {
			if cfg.TokenRateLimiter != nil {
				r.Use(cfg.TokenRateLimiter)
			}
			r.Post("/auth/token", h.Token)
		})

		// Host-facing surfaces: the browser calls these on latency-sensitive
		// paths, so they carry no auth round-trip and never block.
		r.Get("/provider/extensions", h.ListProviderExtensions)
		r.Post("/checkpoints/disable", h.CheckDisable)
		r.Post("/checkpoints/override", h.CheckOverride)
		r.Get("/commands", h.ListCommands)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Route("/provision", func(r chi.Router) {
				r.Get("/status", h.ProvisionStatus)
				r.Post("/refresh", h.ProvisionRefresh)
			})

			r.Get("/audit", h.ListAuditLogs)
		})
	})

	return r
}
