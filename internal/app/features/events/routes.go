// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/events. Creating is admin-only; editing and deleting
// are checked per event (creator or admin).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.Authenticate)

	r.Get("/", sm.Handle(h.List))
	r.Post("/", sm.HandleAdmin(h.Create))
	r.Post("/mark-viewed", sm.Handle(h.MarkViewed))
	r.Get("/my-events", sm.Handle(h.MyEvents))

	r.Get("/{id}", sm.Handle(h.Get))
	r.Put("/{id}", sm.Handle(h.Update))
	r.Delete("/{id}", sm.Handle(h.Delete))
	r.Post("/{id}/rsvp", sm.Handle(h.RSVP))
	return r
}
