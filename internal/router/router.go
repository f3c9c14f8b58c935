package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/republik/appshell/internal/handlers"
	"github.com/republik/appshell/internal/middleware"
)

// New returns the local debug API.
func New(h *handlers.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.LocalOnly)

	r.Route("/debug", func(r chi.Router) {
		r.Get("/state", h.HandleState)
		r.Get("/queue", h.HandleQueue)
		r.Get("/history", h.HandleHistory)
		r.Post("/pending-url", h.HandlePendingURL)
	})

	return r
}
