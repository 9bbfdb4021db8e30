// internal/app/features/home/handler.go
package home

import (
	"net/http"

	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Handler serves the landing page.
type Handler struct {
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{SessionMgr: sessionMgr, Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	vm := viewdata.NewBaseVM(r, "Inventario", "/")
	data := struct {
		viewdata.BaseVM
	}{
		BaseVM: viewdata.WithFlashes(vm, h.SessionMgr, w, r),
	}

	templates.Render(w, r, "home", data)
}
