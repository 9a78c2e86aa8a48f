package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/metrics"
)

// NewRouter mounts every route of the API on a chi router
func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(metrics.Middleware)

	r.Get("/health", HealthCheck)
	r.Post("/events", h.LogEvent)
	r.Get("/sessions/{store_id}", h.RecentSessions)

	r.Route("/insights/{store_id}", func(r chi.Router) {
		r.Get("/", h.SectionInsights)
		r.Get("/actionable", h.ActionableInsights)
	})

	r.Route("/recommendations", func(r chi.Router) {
		r.Post("/items", h.RecommendItems)
		r.Get("/sections/{section}", h.RecommendSections)
	})

	r.Route("/debug", func(r chi.Router) {
		r.Get("/stats", h.DebugStats)
		r.Get("/connection", h.DebugConnection)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
