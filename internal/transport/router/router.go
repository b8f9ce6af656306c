package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/mitchellrust/Hubletix-sub002/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/hero-events", h.IngestEvent)
		r.Post("/hero-events/sync", h.ProcessEventSync)
		r.Get("/results/{tenantID}/{imageID}", h.GetResult)
		r.Delete("/results/{tenantID}/{imageID}", h.DeleteResult)
		r.Get("/dlq", h.ListDLQ)
		r.Post("/dlq/{id}/retry", h.RetryDLQ)
		r.Delete("/dlq/{id}", h.DeleteDLQ)
	})

	return r
}
