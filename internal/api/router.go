// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/planvault/planvault/internal/backup"
	"github.com/planvault/planvault/internal/config"
	"github.com/planvault/planvault/internal/middleware"
	"github.com/planvault/planvault/internal/store"
	ws "github.com/planvault/planvault/internal/websocket"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler *Handler
	config  *config.Config
}

// NewRouter creates a router with the given dependencies.
func NewRouter(st *store.Store, backups *backup.Manager, hub *ws.Hub, cfg *config.Config) *Router {
	return &Router{
		handler: NewHandler(st, backups, hub, cfg),
		config:  cfg,
	}
}

// Handler returns the underlying handler, mainly for tests.
func (router *Router) Handler() *Handler {
	return router.handler
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order. CORS is global so
	// OPTIONS preflight requests are handled everywhere.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(middleware.RequestLogger)

	// Health probes get a permissive rate limit so monitoring can poll
	// frequently without tripping the API limit.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, router.config.Server.RateLimitWindow))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/data", router.handler.GetData)
		r.Get("/modules", router.handler.ListModules)
		r.Get("/modules/{name}", router.handler.GetModule)
		r.Put("/modules/{name}", router.handler.UpdateModule)
		r.Post("/modules/bulk", router.handler.BulkUpdate)

		r.Post("/reset", router.handler.Reset)
		r.Get("/backups", router.handler.ListBackups)
		r.Post("/backups/restore", router.handler.RestoreBackup)

		r.Get("/ws", router.handler.WebSocket)
	})

	// Prometheus scrape endpoint, outside the API envelope and rate limits.
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit returns the API rate limiting middleware, or a no-op when
// disabled.
func (router *Router) rateLimit() func(http.Handler) http.Handler {
	if router.config.Server.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		router.config.Server.RateLimitRequests,
		router.config.Server.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
