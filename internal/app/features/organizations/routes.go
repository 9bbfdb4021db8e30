// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts organization creation under the base path
// (typically "/organizations" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/new", h.ServeNew)
		pr.Post("/", h.HandleCreate)
	})

	return r
}
