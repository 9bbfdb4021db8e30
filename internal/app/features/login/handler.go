// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/stockconsole/internal/app/features/errors"
	accountstore "github.com/dalemusser/stockconsole/internal/app/store/accounts"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/formutil"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/inputval"
	"github.com/dalemusser/stockconsole/internal/app/system/ratelimit"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"github.com/dalemusser/stockconsole/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
)

// Field messages.
const (
	MsgEmailRequired    = "El email es requerido"
	MsgEmailInvalid     = "Ingresa un email válido"
	MsgPasswordRequired = "La contraseña es requerida"
)

type Handler struct {
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger

	// Guard throttles sign-in and reset attempts; nil disables throttling.
	Guard *ratelimit.Guard
}

func NewHandler(sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	formutil.Base
	Email     string
	ReturnURL string
}

type forgotFormData struct {
	formutil.Base
	Email string
}

func validateLogin(email, password string) *inputval.Result {
	res := &inputval.Result{}
	if res.Required("email", email, MsgEmailRequired) {
		res.Email("email", email, MsgEmailInvalid)
	}
	res.Required("password", password, MsgPasswordRequired)
	return res
}

func validateEmail(email string) *inputval.Result {
	res := &inputval.Result{}
	if res.Required("email", email, MsgEmailRequired) {
		res.Email("email", email, MsgEmailInvalid)
	}
	return res
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	ret := query.Get(r, "return")
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/dashboard"), http.StatusSeeOther)
		return
	}
	data := loginFormData{ReturnURL: ret}
	formutil.SetBase(&data.Base, r, "Iniciar sesión", "/")
	data.BaseVM = viewdata.WithFlashes(data.BaseVM, h.SessionMgr, w, r)
	templates.Render(w, r, "login", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Datos de formulario inválidos.", "/login")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	ret := strings.TrimSpace(r.FormValue("return"))

	data := loginFormData{Email: email, ReturnURL: ret}
	formutil.SetBase(&data.Base, r, "Iniciar sesión", "/")

	if res := validateLogin(email, password); res.HasErrors() {
		data.Fields = res.Map()
		templates.Render(w, r, "login", data)
		return
	}

	if ok, msg := h.Guard.Check(r, email); !ok {
		h.Log.Warn("login throttled", zap.String("email", email), zap.String("ip", ratelimit.ClientIP(r)))
		data.SetError(msg)
		w.WriteHeader(http.StatusTooManyRequests)
		templates.Render(w, r, "login", data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	// Authenticate on a scratch session; the console session is only
	// created once the backend accepted the credentials.
	gw := h.SessionMgr.Anonymous()
	profile, err := accountstore.New(gw).Login(ctx, email, password)
	if err != nil {
		h.Log.Info("login failed",
			zap.String("email", email),
			zap.Int("status", gateway.StatusOf(err)),
			zap.Error(err))
		data.SetError(accountstore.LoginMessage(err))
		templates.Render(w, r, "login", data)
		return
	}

	if _, err := h.SessionMgr.BeginWith(w, r, gw.Session()); err != nil {
		h.Log.Error("create console session failed", zap.Error(err), zap.String("email", email))
		data.SetError(accountstore.MsgGenericFailure)
		templates.Render(w, r, "login", data)
		return
	}

	h.Guard.Forgive(email)
	h.Log.Info("login succeeded", zap.Int64("user_id", profile.ID), zap.String("email", email))
	http.Redirect(w, r, urlutil.SafeReturn(ret, "", "/dashboard"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET/POST /login/forgot-password                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeForgot(w http.ResponseWriter, r *http.Request) {
	var data forgotFormData
	formutil.SetBase(&data.Base, r, "¿Olvidaste tu contraseña?", "/login")
	templates.Render(w, r, "login_forgot", data)
}

func (h *Handler) HandleForgotPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Datos de formulario inválidos.", "/login/forgot-password")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	data := forgotFormData{Email: email}
	formutil.SetBase(&data.Base, r, "¿Olvidaste tu contraseña?", "/login")

	if res := validateEmail(email); res.HasErrors() {
		data.Fields = res.Map()
		templates.Render(w, r, "login_forgot", data)
		return
	}

	if ok, msg := h.Guard.Check(r, email); !ok {
		data.SetError(msg)
		w.WriteHeader(http.StatusTooManyRequests)
		templates.Render(w, r, "login_forgot", data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "forgot password")
	defer cancel()

	if err := accountstore.New(h.SessionMgr.Anonymous()).ForgotPassword(ctx, email); err != nil {
		h.Log.Info("forgot password failed", zap.String("email", email), zap.Error(err))
		data.SetError(gateway.MessageOf(err, accountstore.MsgGenericFailure))
		templates.Render(w, r, "login_forgot", data)
		return
	}

	h.SessionMgr.AddFlash(w, r, accountstore.MsgResetCodeEmailed)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
