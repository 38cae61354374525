package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// PendingCounter reports outbox backlog for the health endpoint.
type PendingCounter interface {
	GetPendingCount(ctx context.Context) (int64, error)
}

// NewRouter wires the HTTP surface. relay may be nil when the process
// runs without the outbox relay.
func NewRouter(h *Handlers, relay PendingCounter) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		health := map[string]interface{}{"status": "ok"}
		status := http.StatusOK

		if relay != nil {
			pending, err := relay.GetPendingCount(req.Context())
			if err != nil {
				health["status"] = "error"
				health["message"] = "outbox unreachable"
				status = http.StatusServiceUnavailable
			} else {
				health["outbox"] = map[string]interface{}{"pending": pending}
				if pending > 1000 {
					health["status"] = "warning"
					health["message"] = "high number of pending outbox events"
				}
			}
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.CreateItem)
			r.Get("/", h.ListItems)
			r.Get("/{itemID}", h.GetItem)
			r.Delete("/{itemID}", h.DeleteItem)
			r.Get("/{itemID}/history", h.GetHistory)
			r.Post("/{itemID}/refresh", h.RefreshItem)
		})
		r.Post("/scrape/preview", h.Preview)
	})

	return r
}
