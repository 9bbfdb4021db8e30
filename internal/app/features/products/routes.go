// internal/app/features/products/routes.go
package products

import (
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the products screen (typically at "/dashboard/products").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/new", h.ServeNew)
		pr.Post("/", h.HandleCreate)

		pr.Get("/{id}/edit", h.ServeEdit)
		pr.Post("/{id}", h.HandleUpdate)

		// Two-phase delete: GET confirms, POST deletes.
		pr.Get("/{id}/delete", h.ServeDeleteConfirm)
		pr.Post("/{id}/delete", h.HandleDelete)
	})

	return r
}
