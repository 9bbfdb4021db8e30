// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	accountstore "github.com/dalemusser/stockconsole/internal/app/store/accounts"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
	}
}

// ServeLogout handles GET and POST /logout. The backend is not told; the
// credential and profile cache are dropped and the console session ends.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if s, ok := auth.CurrentSession(r); ok {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "logout")
		defer cancel()
		if err := accountstore.New(s.Gateway).Logout(ctx); err != nil {
			// End below still deletes the server-side state.
			h.Log.Warn("logout: clear session keys", zap.String("sid", s.ID), zap.Error(err))
		}
	}

	if err := h.SessionMgr.End(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation.
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
