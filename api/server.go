/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions. The
  wiring layer between URLs and handlers.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique ID per request for tracing
  4. CORS:       cross-origin requests for the frontend
  5. Identity:   bearer-token identity on /api routes (health excluded)

ROUTES:
  POST   /api/reservations                                   book a seat
  DELETE /api/reservations                                   cancel today's reservation
  GET    /api/workspaces/{workspaceID}/spaces/{spaceID}/status  seat map for today
  GET    /api/workspaces/{workspaceID}/logs                  audit trail (admin)
  GET    /healthz                                            liveness probe
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, jwtSecret string, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(Identity(jwtSecret))

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.Book)
			r.Delete("/", h.Cancel)
		})

		r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
			r.Get("/spaces/{spaceID}/status", h.SeatStatus)
			r.Get("/logs", h.Logs)
		})
	})

	return r
}

// Health responds 200 for liveness checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
