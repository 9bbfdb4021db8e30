// internal/app/features/products/delete.go
package products

import (
	"net/http"

	uierrors "github.com/dalemusser/stockconsole/internal/app/features/errors"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"github.com/dalemusser/stockconsole/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// ServeDeleteConfirm asks before deleting. When the product is on the
// page already shown no backend call is made.
func (h *Handler) ServeDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := productID(r)
	if !ok {
		uierrors.RenderNotFound(w, r, MsgNotFound, basePath)
		return
	}
	ctl := h.Controllers.For(s)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "find product")
	defer cancel()

	p, found, err := h.find(ctx, ctl, id)
	if h.expired(w, r, s, err) {
		return
	}
	if !found {
		uierrors.RenderNotFound(w, r, MsgNotFound, basePath)
		return
	}
	ctl.RequestDelete(p)
	h.renderConfirm(w, r, ctl)
}

// HandleDelete deletes the product awaiting confirmation. A failure keeps
// the confirmation open with an error.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := productID(r)
	if !ok {
		uierrors.RenderNotFound(w, r, MsgNotFound, basePath)
		return
	}
	ctl := h.Controllers.For(s)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete product")
	defer cancel()

	// The confirmation may belong to another tab or a restarted console.
	if t := ctl.Snapshot().ConfirmTarget; t == nil || t.ID != id {
		p, found, err := h.find(ctx, ctl, id)
		if h.expired(w, r, s, err) {
			return
		}
		if !found {
			uierrors.RenderNotFound(w, r, MsgNotFound, basePath)
			return
		}
		ctl.RequestDelete(p)
	}

	err := ctl.ConfirmDelete(ctx)
	if h.expired(w, r, s, err) {
		return
	}
	if err != nil {
		h.Log.Info("delete product failed", zap.String("sid", s.ID), zap.Int64("id", id), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
		h.renderConfirm(w, r, ctl)
		return
	}

	h.SessionMgr.AddFlash(w, r, MsgDeleted)
	http.Redirect(w, r, listURL(ctl.Page(), ctl.PageSize()), http.StatusSeeOther)
}

func (h *Handler) renderConfirm(w http.ResponseWriter, r *http.Request, ctl *controller) {
	v := ctl.Snapshot()
	data := deleteData{
		BaseVM:    viewdata.NewBaseVM(r, "Eliminar producto", basePath),
		Error:     v.DeleteError,
		CancelURL: listURL(v.Page, v.PageSize),
	}
	if t := v.ConfirmTarget; t != nil {
		data.ID, data.Code, data.Name = t.ID, t.Code, t.Name
	}
	templates.Render(w, r, "product_delete", data)
}

