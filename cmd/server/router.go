package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vipplay/contentgen/internal/api"
	"github.com/vipplay/contentgen/internal/api/middleware"
	"github.com/vipplay/contentgen/internal/api/shared"
	"github.com/vipplay/contentgen/internal/config"
)

type routerDeps struct {
	cfg      *config.Config
	auth     *middleware.AuthMiddleware
	jobs     *api.JobHandler
	groups   *api.ModelGroupHandler
	backends *api.BackendHandler
	config   *api.ConfigHandler
	registry *prometheus.Registry
	db       *sql.DB
}

// buildRouter assembles the HTTP routing tree.
func buildRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := deps.db.PingContext(req.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		shared.RespondWithJSON(w, req, code, map[string]string{"status": status})
	})

	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.auth.Authenticate)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", deps.jobs.Submit)
			r.Get("/", deps.jobs.List)
			r.Get("/{id}", deps.jobs.Get)
			r.Post("/{id}/cancel", deps.jobs.Cancel)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.auth.RequireSuperadmin)

			r.Route("/model-groups", func(r chi.Router) {
				r.Post("/", deps.groups.Create)
				r.Get("/", deps.groups.List)
				r.Get("/{id}", deps.groups.Get)
				r.Patch("/{id}", deps.groups.Update)
				r.Delete("/{id}", deps.groups.Delete)
			})

			r.Route("/backends", func(r chi.Router) {
				r.Get("/", deps.backends.List)
				r.Post("/test", deps.backends.Test)
				r.Post("/pull", deps.backends.Pull)
			})

			r.Route("/config", func(r chi.Router) {
				r.Get("/export", deps.config.Export)
				r.Post("/import", deps.config.Import)
			})
		})
	})

	return r
}
