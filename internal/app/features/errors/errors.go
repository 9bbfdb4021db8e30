// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/stockconsole/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

// pageData is the view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Status  int
	Message string
}

// Handler serves the standalone error pages.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Forbidden renders the access denied page.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	RenderForbidden(w, r, "", "")
}

// Unauthorized renders the sign in required page.
// GET /unauthorized
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	RenderUnauthorized(w, r, "")
}

// NotFound is the router's fallback.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusNotFound, "Página no encontrada", "La página que buscas no existe.", "/")
}

func render(w http.ResponseWriter, r *http.Request, status int, title, msg, backDefault string) {
	data := pageData{
		BaseVM:  viewdata.NewBaseVM(r, title, backDefault),
		Status:  status,
		Message: msg,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Render(w, r, "error_page", data)
}
