package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/beaconalert/beacon/internal/api/handler"
	"github.com/beaconalert/beacon/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and
// routes. db may be nil when no database is configured.
func NewRouter(svc handler.Notifier, db handler.Pinger, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)

	// CORS: browser clients call the notify endpoints directly.
	c := corslib.New(corslib.Options{
		AllowedOrigins:       cfg.CORSAllowOrigins,
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:       []string{"authorization", "x-client-info", "apikey", "content-type"},
		ExposedHeaders:       []string{"X-Process-Time", "X-Request-Id"},
		AllowCredentials:     false,
		OptionsSuccessStatus: http.StatusOK,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(svc, db, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/capabilities", h.HealthCheckCapabilities)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	// Edge-function compatible paths used by existing clients
	r.Route("/functions/v1", func(r chi.Router) {
		r.Post("/notify-contacts", h.NotifyContacts)
		r.Post("/notify-responders", h.NotifyResponders)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/notify/contacts", h.NotifyContacts)
		r.Post("/notify/responders", h.NotifyResponders)
	})

	return r
}
