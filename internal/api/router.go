package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Decision/internal/broker"
	"github.com/MikeSquared-Agency/Decision/internal/config"
	"github.com/MikeSquared-Agency/Decision/internal/store"
)

func NewRouter(s store.Store, b *broker.Broker, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimitPerMinute))

	analysis := NewAnalysisHandler(b, cfg)
	problems := NewProblemsHandler(s, b, cfg)
	admin := NewAdminHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/methods", analysis.Methods)
		r.Post("/validate", analysis.Validate)
		r.Post("/analyze", analysis.Analyze)
		r.Post("/sensitivity", analysis.Sensitivity)

		r.Post("/problems", problems.Create)
		r.Get("/problems", problems.List)
		r.Get("/problems/{id}", problems.Get)
		r.Post("/problems/{id}/runs", problems.CreateRun)
		r.Get("/problems/{id}/runs", problems.ListRuns)
		r.Get("/runs/{id}", problems.GetRun)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Delete("/problems/{id}", problems.Delete)
			r.Get("/stats", admin.Stats)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
