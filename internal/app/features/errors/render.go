// internal/app/features/errors/render.go
package errors

import (
	"net/http"
)

const (
	msgForbidden    = "No tienes permiso para ver esta página."
	msgUnauthorized = "Inicia sesión para continuar."
	msgNotFound     = "El recurso que buscas no existe."
)

// RenderUnauthorized shows the sign in required page. An empty backURL
// points at /login.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request, backURL string) {
	if backURL == "" {
		backURL = "/login"
	}
	render(w, r, http.StatusUnauthorized, "Inicio de sesión requerido", msgUnauthorized, backURL)
}

// RenderForbidden shows the access denied page with msg, or a default.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if msg == "" {
		msg = msgForbidden
	}
	if backURL == "" {
		backURL = "/"
	}
	render(w, r, http.StatusForbidden, "Acceso denegado", msg, backURL)
}

// RenderNotFound shows the not found page with msg, or a default.
func RenderNotFound(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if msg == "" {
		msg = msgNotFound
	}
	if backURL == "" {
		backURL = "/"
	}
	render(w, r, http.StatusNotFound, "No encontrado", msg, backURL)
}
