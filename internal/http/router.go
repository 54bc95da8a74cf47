package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/humon/server/internal/http/handlers"
	"github.com/humon/server/internal/metrics"
	"github.com/humon/server/internal/middleware"
)

// Deps are the collaborators the router wires together.
type Deps struct {
	Log           *slog.Logger
	Metrics       *metrics.Metrics
	Authenticator middleware.Authenticator
	IssueLimiter  *middleware.RateLimiter

	Users  *handlers.UserHandler
	Events *handlers.EventHandler
	Health *handlers.HealthHandler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(d.Metrics.Middleware)

	r.Get("/health", d.Health.ServeHTTP)
	r.Method("GET", "/metrics", d.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Credential issuance is guarded by the app secret, not an auth token.
		r.With(middleware.RateLimit(d.IssueLimiter, middleware.IPKey)).
			Post("/users", d.Users.HandleIssue)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authorize(d.Authenticator))

			r.Get("/users/me", d.Users.HandleMe)
			r.Post("/users/me/token", d.Users.HandleRotateToken)

			r.Post("/events", d.Events.HandleCreate)
			r.Get("/events/nearests", d.Events.HandleNearest)
			r.Get("/events/{id}", d.Events.HandleShow)
			r.Patch("/events/{id}", d.Events.HandleUpdate)

			r.Post("/attendances", d.Events.HandleAttend)
		})
	})

	return r
}
