// internal/app/features/products/handler.go
package products

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/stockconsole/internal/app/features/errors"
	categorystore "github.com/dalemusser/stockconsole/internal/app/store/categories"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	basePath = "/dashboard/products"

	MsgCreated     = "Producto creado"
	MsgUpdated     = "Producto actualizado"
	MsgDeleted     = "Producto eliminado"
	MsgLoadFailed  = "No se pudieron cargar los productos."
	MsgNotFound    = "El producto no existe o ya fue eliminado."
	MsgInvalidForm = "Datos de formulario inválidos."
)

// Handler serves the products screen. Each console session drives its own
// resource controller; the backend stays the source of truth.
type Handler struct {
	SessionMgr  *auth.SessionManager
	Controllers *Controllers
	Categories  *categorystore.Cache
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(sm *auth.SessionManager, controllers *Controllers, categories *categorystore.Cache, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		SessionMgr:  sm,
		Controllers: controllers,
		Categories:  categories,
		ErrLog:      errLog,
		Log:         logger,
	}
}

// session returns the signed-in session, or sends the browser to login.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	s, ok := auth.CurrentSession(r)
	if !ok || !s.SignedIn {
		auth.RedirectToLogin(w, r)
		return nil, false
	}
	return s, true
}

// expired ends the console session when err says the backend no longer
// accepts its credential. It reports whether the response was written.
func (h *Handler) expired(w http.ResponseWriter, r *http.Request, s *auth.Session, err error) bool {
	if !errors.Is(err, gateway.ErrSessionExpired) {
		return false
	}
	h.Log.Info("session expired; signing out", zap.String("sid", s.ID))
	h.Controllers.Drop(s.ID)
	h.SessionMgr.Expire(w, r)
	return true
}

// find returns product id from the controller's current page, reloading
// that page once when it is not there.
func (h *Handler) find(ctx context.Context, ctl *controller, id int64) (models.Product, bool, error) {
	if p, ok := lookup(ctl.Snapshot().Items, id); ok {
		return p, true, nil
	}
	if err := ctl.Reload(ctx); err != nil {
		return models.Product{}, false, err
	}
	p, ok := lookup(ctl.Snapshot().Items, id)
	return p, ok, nil
}

func lookup(items []models.Product, id int64) (models.Product, bool) {
	for _, p := range items {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func (h *Handler) categories(ctx context.Context, s *auth.Session) []categorystore.Option {
	return h.Categories.Options(ctx, s.Profile.TenantKey(s.ID), categorystore.New(s.Gateway))
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func listURL(page, size int) string {
	return fmt.Sprintf("%s?page=%d&perPage=%d", basePath, page, size)
}
