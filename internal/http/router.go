package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig lists the handlers mounted by NewRouter. Nil handlers leave
// their routes unmounted.
type RouterConfig struct {
	Users    *UserHandler
	Listings *ListingHandler
	Requests *RequestHandler
	Swaps    *SwapHandler
	Schedule *ScheduleHandler
	Events   *EventStreamHandler

	Identity IdentityVerifier
	Metrics  http.Handler
	Health   func(ctx context.Context) error
	Logger   *slog.Logger

	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(cfg.Logger))
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/health", healthHandler(cfg.Health, cfg.Logger))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireIdentity(cfg.Identity, cfg.Logger))

		if h := cfg.Users; h != nil {
			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.Me)
				r.Post("/", h.Register)
				r.Put("/", h.UpdateMe)
				r.Put("/presence", h.SetPresence)
			})
			r.Get("/users", h.Browse)
			r.Route("/users/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Post("/connection", h.Connect)
				r.Delete("/connection", h.Disconnect)
			})
		}

		if h := cfg.Listings; h != nil {
			r.Get("/listings", h.Browse)
			r.Post("/listings", h.Advertise)
			r.Delete("/listings/{id}", h.Withdraw)
		}

		if h := cfg.Requests; h != nil {
			r.Route("/requests", func(r chi.Router) {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/stats", h.Stats)
				r.Post("/{id}/accept", h.Accept)
				r.Post("/{id}/reject", h.Reject)
			})
		}

		if h := cfg.Swaps; h != nil {
			r.Route("/swaps", func(r chi.Router) {
				r.Get("/", h.List)
				r.Get("/stats", h.Stats)
				r.Get("/{id}", h.Get)
				r.Post("/{id}/sessions", h.RecordSession)
				r.Post("/{id}/complete", h.Complete)
				r.Post("/{id}/cancel", h.Cancel)
			})
		}

		if h := cfg.Schedule; h != nil {
			r.Route("/schedule", func(r chi.Router) {
				r.Get("/", h.Day)
				r.Post("/", h.Create)
				r.Post("/series", h.CreateSeries)
				r.Get("/upcoming", h.Upcoming)
				r.Get("/history", h.History)
				r.Post("/{id}/complete", h.Complete)
				r.Post("/{id}/cancel", h.Cancel)
			})
		}

		if h := cfg.Events; h != nil {
			r.Get("/events/ws", h.Stream)
		}
	})

	return r
}

func healthHandler(check func(ctx context.Context) error, logger *slog.Logger) http.HandlerFunc {
	responder := newResponder(logger)
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}
