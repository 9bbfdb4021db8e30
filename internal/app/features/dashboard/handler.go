// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const expiryLayout = "02/01/2006 15:04"

type Handler struct {
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		SessionMgr: sessionMgr,
		Log:        logger,
	}
}

type dashboardData struct {
	viewdata.BaseVM

	FullName     string
	Email        string
	Organization string
	TokenExpiry  string // empty when the token carries no exp claim
	TokenExpired bool
}

// ServeDashboard greets the signed-in user from the cached profile. No
// backend call is made; the token expiry is read from the stored JWT.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.CurrentSession(r)
	if !ok || !s.SignedIn {
		auth.RedirectToLogin(w, r)
		return
	}

	data := dashboardData{
		BaseVM:       viewdata.WithFlashes(viewdata.NewBaseVM(r, "Dashboard", "/"), h.SessionMgr, w, r),
		FullName:     s.Profile.DisplayName(),
		Email:        s.Profile.Email,
		Organization: s.Profile.OrganizationName(),
	}

	token, _, err := s.Store.Get(r.Context(), sessionstore.AccessToken)
	if err != nil {
		h.Log.Warn("dashboard: read access token", zap.String("sid", s.ID), zap.Error(err))
	}
	if exp, ok := gateway.ExpiresAt(token); ok {
		data.TokenExpiry = exp.Local().Format(expiryLayout)
		data.TokenExpired = time.Now().After(exp)
	}

	templates.Render(w, r, "dashboard", data)
}
