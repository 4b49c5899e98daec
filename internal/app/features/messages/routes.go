// internal/app/features/messages/routes.go
package messages

import (
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/messages. Posting and deleting are admin-only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.Authenticate)

	r.Get("/", sm.Handle(h.List))
	r.Post("/", sm.HandleAdmin(h.Create))
	r.Get("/active", sm.Handle(h.Active))
	r.Get("/recent", sm.Handle(h.Recent))
	r.Get("/unviewed", sm.Handle(h.Unviewed))
	r.Post("/mark-viewed", sm.Handle(h.MarkAllViewed))

	r.Post("/{id}/dismiss", sm.Handle(h.Dismiss))
	r.Delete("/{id}", sm.HandleAdmin(h.Delete))
	return r
}
