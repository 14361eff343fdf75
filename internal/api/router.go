// Package api exposes the recommendation service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter wires every route. Recommendation routes are bounded by
// RequestTimeout.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RecoveryMiddleware)
	r.Use(AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         86400,
	}))

	r.Get("/api/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(Deadline(cfg.RequestTimeout))
		}
		r.Get("/api/recommendations", h.Recommendations)
		r.Post("/api/recommendations", h.Recommendations)
		r.Get("/api/youtube/official-songs", h.Recommendations)
		r.Get("/api/music", h.Recommendations)
		r.Post("/api/recommendations/stream", h.Stream)
	})

	r.Post("/api/sessions", h.CreateSession)
	r.Delete("/api/sessions/{id}", h.ResetSession)

	return r
}
