// internal/app/features/register/handler.go
package register

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/stockconsole/internal/app/features/errors"
	accountstore "github.com/dalemusser/stockconsole/internal/app/store/accounts"
	organizationstore "github.com/dalemusser/stockconsole/internal/app/store/organizations"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/formutil"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/inputval"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Field messages.
const (
	MsgNameRequired     = "El nombre es requerido"
	MsgEmailRequired    = "El email es requerido"
	MsgEmailInvalid     = "Email inválido"
	MsgBirthdayRequired = "La fecha es requerida"
	MsgPasswordShort    = "Mínimo 6 caracteres"
	MsgPasswordMismatch = "Las contraseñas no coinciden"
	MsgCodeRequired     = "El código es requerido"
)

const (
	minFullName = 3
	minPassword = 6
	minOrgName  = 2
	minOrgCode  = 2

	dateLayout = "2006-01-02"
	// isoLayout matches what a browser's Date.toISOString produces.
	isoLayout = "2006-01-02T15:04:05.000Z"
)

type Handler struct {
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{SessionMgr: sessionMgr, ErrLog: errLog, Log: logger}
}

// personal is step one: the administrator's own data.
type personal struct {
	FullName             string
	Email                string
	Phone                string
	Gender               int
	Birthday             string // yyyy-mm-dd as the date input sends it
	Password             string
	ConfirmationPassword string
}

// organization is step two.
type organization struct {
	Name string
	Code string
}

type stepOneData struct {
	formutil.Base
	personal
	Genders []genderOption
}

type stepTwoData struct {
	formutil.Base
	personal
	Org organization
}

type genderOption struct {
	Value    int
	Label    string
	Selected bool
}

func genderOptions(selected int) []genderOption {
	return []genderOption{
		{Value: 0, Label: "Masculino", Selected: selected == 0},
		{Value: 1, Label: "Femenino", Selected: selected == 1},
	}
}

func readPersonal(r *http.Request) personal {
	gender, _ := strconv.Atoi(r.FormValue("gender"))
	if gender != 1 {
		gender = 0
	}
	return personal{
		FullName:             strings.TrimSpace(r.FormValue("fullName")),
		Email:                strings.TrimSpace(r.FormValue("email")),
		Phone:                strings.TrimSpace(r.FormValue("phone")),
		Gender:               gender,
		Birthday:             strings.TrimSpace(r.FormValue("birthday")),
		Password:             r.FormValue("password"),
		ConfirmationPassword: r.FormValue("confirmationPassword"),
	}
}

func readOrganization(r *http.Request) organization {
	return organization{
		Name: strings.TrimSpace(r.FormValue("orgName")),
		Code: strings.ToUpper(strings.TrimSpace(r.FormValue("orgCode"))),
	}
}

func validatePersonal(p personal) *inputval.Result {
	res := &inputval.Result{}
	res.MinLen("fullName", p.FullName, minFullName, MsgNameRequired)
	if res.Required("email", p.Email, MsgEmailRequired) {
		res.Email("email", p.Email, MsgEmailInvalid)
	}
	if _, err := time.Parse(dateLayout, p.Birthday); err != nil {
		res.Required("birthday", "", MsgBirthdayRequired)
	}
	res.MinLen("password", p.Password, minPassword, MsgPasswordShort)
	res.Match("confirmationPassword", p.ConfirmationPassword, p.Password, MsgPasswordMismatch)
	return res
}

func validateOrganization(o organization) *inputval.Result {
	res := &inputval.Result{}
	res.MinLen("orgName", o.Name, minOrgName, MsgNameRequired)
	res.MinLen("orgCode", o.Code, minOrgCode, MsgCodeRequired)
	return res
}

// birthdayISO converts the date input value to the timestamp the backend
// expects. Callers have already validated the value.
func birthdayISO(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return ""
	}
	return t.UTC().Format(isoLayout)
}

func (h *Handler) renderStepOne(w http.ResponseWriter, r *http.Request, p personal, res *inputval.Result) {
	data := stepOneData{personal: p, Genders: genderOptions(p.Gender)}
	// Passwords are never echoed back into the page.
	data.Password, data.ConfirmationPassword = "", ""
	formutil.SetBase(&data.Base, r, "Crea tu cuenta", "/login")
	if res != nil {
		data.Fields = res.Map()
		if _, mismatch := data.Fields["confirmationPassword"]; mismatch {
			data.SetError(MsgPasswordMismatch + ".")
		}
	}
	templates.Render(w, r, "register_personal", data)
}

func (h *Handler) renderStepTwo(w http.ResponseWriter, r *http.Request, p personal, o organization, res *inputval.Result, errMsg string) {
	data := stepTwoData{personal: p, Org: o}
	formutil.SetBase(&data.Base, r, "Tu organización", "/register")
	if res != nil {
		data.Fields = res.Map()
	}
	if errMsg != "" {
		data.SetError(errMsg)
	}
	templates.Render(w, r, "register_organization", data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET/POST /register – step one                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderStepOne(w, r, personal{}, nil)
}

// HandlePersonalPost validates step one and shows step two.
func (h *Handler) HandlePersonalPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Datos de formulario inválidos.", "/register")
		return
	}
	p := readPersonal(r)
	if res := validatePersonal(p); res.HasErrors() {
		h.renderStepOne(w, r, p, res)
		return
	}
	h.renderStepTwo(w, r, p, organization{}, nil, "")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /register/organization – step two                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleOrganizationPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Datos de formulario inválidos.", "/register")
		return
	}

	p := readPersonal(r)
	if r.FormValue("back") != "" {
		h.renderStepOne(w, r, p, nil)
		return
	}
	// Step one travels in hidden fields, so it is checked again.
	if res := validatePersonal(p); res.HasErrors() {
		h.renderStepOne(w, r, p, res)
		return
	}

	o := readOrganization(r)
	if o.Code == "" {
		o.Code = organizationstore.SuggestCode(o.Name)
	}
	if res := validateOrganization(o); res.HasErrors() {
		h.renderStepTwo(w, r, p, o, res, "")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "register with organization")
	defer cancel()

	gw := h.SessionMgr.Anonymous()
	profile, err := accountstore.New(gw).RegisterWithOrganization(ctx, accountstore.RegisterWithOrganizationRequest{
		OrganizationName:     o.Name,
		OrganizationCode:     o.Code,
		FullName:             p.FullName,
		Email:                p.Email,
		Password:             p.Password,
		ConfirmationPassword: p.ConfirmationPassword,
		Birthday:             birthdayISO(p.Birthday),
		Gender:               p.Gender,
		Phone:                p.Phone,
	})
	if err != nil {
		h.Log.Info("registration failed",
			zap.String("email", p.Email),
			zap.Int("status", gateway.StatusOf(err)),
			zap.Error(err))
		h.renderStepTwo(w, r, p, o, nil, accountstore.RegisterMessage(err))
		return
	}

	if _, err := h.SessionMgr.BeginWith(w, r, gw.Session()); err != nil {
		h.Log.Error("create console session failed", zap.Error(err), zap.String("email", p.Email))
		h.renderStepTwo(w, r, p, o, nil, accountstore.MsgGenericFailure)
		return
	}

	h.Log.Info("registered with organization",
		zap.Int64("user_id", profile.ID),
		zap.String("organization_code", o.Code))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// ServeSuggestCode answers GET /register/suggest-code?name= with the code
// the organization step would pick, for the page script to prefill.
func (h *Handler) ServeSuggestCode(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(organizationstore.SuggestCode(r.URL.Query().Get("name"))))
}
