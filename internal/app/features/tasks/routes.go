// internal/app/features/tasks/routes.go
package tasks

import (
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/tasks. Reads and completion need a session; every
// other mutation is admin-only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.Authenticate)

	r.Get("/", sm.Handle(h.List))
	r.Post("/", sm.HandleAdmin(h.Create))
	r.Get("/mine", sm.Handle(h.Mine))
	r.Post("/reorder", sm.HandleAdmin(h.Reorder))

	r.Get("/{id}", sm.Handle(h.Get))
	r.Put("/{id}", sm.HandleAdmin(h.Update))
	r.Delete("/{id}", sm.HandleAdmin(h.Delete))
	r.Post("/{id}/complete", sm.Handle(h.Complete))
	r.Post("/{id}/verify", sm.HandleAdmin(h.Verify))
	return r
}
