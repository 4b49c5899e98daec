// internal/app/features/login/routes.go
package login

import (
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /api/auth. Register, login and logout are public; me
// requires a session.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.With(sm.Authenticate).Get("/me", sm.Handle(h.Me))
	return r
}
