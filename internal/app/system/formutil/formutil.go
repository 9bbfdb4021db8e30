// Package formutil holds what a re-rendered form needs besides its own
// fields: the layout data, a form-level error and per-field messages.
//
//	type loginData struct {
//		formutil.Base
//		Email string
//	}
//
//	data := loginData{Email: email}
//	formutil.SetBase(&data.Base, r, "Iniciar sesión", "/")
//	data.Fields = result.Map()
//	templates.Render(w, r, "login", data)
package formutil

import (
	"net/http"

	"github.com/dalemusser/stockconsole/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stockconsole/internal/app/system/viewdata"
)

// Base is embedded in form view models.
type Base struct {
	viewdata.BaseVM
	Error  string
	Fields map[string]string
}

// SetBase fills the layout fields of b from r.
func SetBase(b *Base, r *http.Request, title, backDefault string) {
	b.BaseVM = viewdata.NewBaseVM(r, title, backDefault)
}

// SetError sets the form-level message. Markup is stripped because the
// text may come from the backend.
func (b *Base) SetError(msg string) {
	b.Error = htmlsanitize.PlainText(msg)
}

// FieldError returns the message for one field, or "".
func (b Base) FieldError(name string) string {
	return b.Fields[name]
}

// HasFieldErrors reports whether any field failed validation.
func (b Base) HasFieldErrors() bool {
	return len(b.Fields) > 0
}
