// internal/app/features/organizations/handler.go
package organizations

import (
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/stockconsole/internal/app/features/errors"
	organizationstore "github.com/dalemusser/stockconsole/internal/app/store/organizations"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/formutil"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/inputval"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const (
	MsgNameRequired = "El nombre es requerido"
	MsgCodeRequired = "El código es requerido"
	MsgCreated      = "Organización creada"

	minName = 2
	minCode = 2
)

// Handler creates organizations for the signed-in user.
type Handler struct {
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{SessionMgr: sessionMgr, ErrLog: errLog, Log: logger}
}

type newData struct {
	formutil.Base
	Name string
	Code string
}

// ServeNew renders the "Nueva organización" form.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	var data newData
	formutil.SetBase(&data.Base, r, "Nueva organización", "/dashboard")
	templates.Render(w, r, "organization_new", data)
}

// HandleCreate validates the form and creates the organization. A blank
// code is derived from the name.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Datos de formulario inválidos.", "/dashboard")
		return
	}
	s, ok := auth.CurrentSession(r)
	if !ok || !s.SignedIn {
		auth.RedirectToLogin(w, r)
		return
	}

	data := newData{
		Name: strings.TrimSpace(r.FormValue("name")),
		Code: strings.ToUpper(strings.TrimSpace(r.FormValue("code"))),
	}
	if data.Code == "" {
		data.Code = organizationstore.SuggestCode(data.Name)
	}

	var v inputval.Result
	if v.Required("name", data.Name, MsgNameRequired) {
		v.MinLen("name", data.Name, minName, MsgNameRequired)
	}
	if v.Required("code", data.Code, MsgCodeRequired) {
		v.MinLen("code", data.Code, minCode, MsgCodeRequired)
	}
	if v.HasErrors() {
		formutil.SetBase(&data.Base, r, "Nueva organización", "/dashboard")
		data.Fields = v.Map()
		templates.Render(w, r, "organization_new", data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create organization")
	defer cancel()

	org, err := organizationstore.New(s.Gateway).Create(ctx, data.Name, data.Code)
	if errors.Is(err, gateway.ErrSessionExpired) {
		h.SessionMgr.Expire(w, r)
		return
	}
	if err != nil {
		h.Log.Info("create organization failed", zap.String("code", data.Code), zap.Error(err))
		formutil.SetBase(&data.Base, r, "Nueva organización", "/dashboard")
		data.SetError(organizationstore.CreateMessage(err))
		templates.Render(w, r, "organization_new", data)
		return
	}

	h.Log.Info("organization created", zap.Int64("id", org.ID), zap.String("code", org.Code))
	h.SessionMgr.AddFlash(w, r, MsgCreated+": "+org.Name)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
