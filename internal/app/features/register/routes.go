// internal/app/features/register/routes.go
package register

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeRegister)
	r.Post("/", h.HandlePersonalPost)
	r.Post("/organization", h.HandleOrganizationPost)
	r.Get("/suggest-code", h.ServeSuggestCode)
	return r
}
