// internal/api/router.go

// Package api exposes the discovery engine and reports over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/libranexus/discovery/internal/authz"
)

// Config holds router middleware settings.
type Config struct {
	CORSOrigins []string
	// RateLimit is the number of requests per client IP per RateWindow. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// NewRouter wires h behind the middleware stack. A nil authorizer allows all requests.
func NewRouter(h *Handler, a *authz.Authorizer, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, cfg.RateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					respondError(w, r, http.StatusTooManyRequests, CodeTooManyRequests, "rate limit exceeded", nil)
				}),
			))
		}
		r.Use(instrument)
		r.Use(authorize(a))

		r.Route("/search", func(r chi.Router) {
			r.Post("/advanced", h.HandleAdvancedSearch)
			r.Get("/suggestions", h.HandleSuggestions)
			r.Get("/text", h.HandleTextSearch)
			r.Get("/popular", h.HandlePopular)
			r.Get("/recommendations/{memberID}", h.HandleRecommendations)
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/categories", h.HandleCategories)
			r.Get("/authors", h.HandleAuthors)
			r.Get("/{bookID}", h.HandleGetBook)
			r.Get("/{bookID}/availability", h.HandleAvailability)
		})

		r.Get("/analytics", h.HandleAnalytics)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/popular-books", h.HandlePopularReport)
			r.Get("/borrowing", h.HandleBorrowingReport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
