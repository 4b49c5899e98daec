// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/users. Every route requires a session; account
// administration and snapshot capture are admin-only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.Authenticate)

	r.Get("/", sm.Handle(h.List))
	r.Post("/", sm.HandleAdmin(h.Create))

	r.Get("/leaderboard", sm.Handle(h.Leaderboard))
	r.Get("/leaderboard/snapshots", sm.Handle(h.ListSnapshots))
	r.Post("/leaderboard/snapshots", sm.HandleAdmin(h.TakeSnapshot))

	r.Put("/me", sm.Handle(h.UpdateMe))
	r.Post("/me/avatar", sm.Handle(h.UploadAvatar))

	r.Get("/{userId}", sm.Handle(h.Get))
	r.Put("/{userId}", sm.HandleAdmin(h.Update))
	r.Delete("/{userId}", sm.HandleAdmin(h.Delete))
	return r
}
