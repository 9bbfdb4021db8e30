// internal/app/features/products/form.go
package products

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/stockconsole/internal/app/features/errors"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/formutil"
	"github.com/dalemusser/stockconsole/internal/app/system/resource"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// readDraft collects the product form. An unchecked checkbox is absent.
func readDraft(r *http.Request) models.ProductDraft {
	return models.ProductDraft{
		Code:        strings.TrimSpace(r.FormValue("code")),
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		CategoryID:  strings.TrimSpace(r.FormValue("categoryId")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Cost:        strings.TrimSpace(r.FormValue("cost")),
		ImageURL:    strings.TrimSpace(r.FormValue("imageUrl")),
		IsAvailable: r.FormValue("isAvailable") != "",
	}
}

// renderForm shows the controller's open form with its draft and errors.
func (h *Handler) renderForm(ctx context.Context, w http.ResponseWriter, r *http.Request, s *auth.Session, ctl *controller) {
	v := ctl.Snapshot()

	data := formData{
		Editing:   v.FormMode == resource.FormEdit,
		Action:    basePath,
		CancelURL: listURL(v.Page, v.PageSize),
		Draft:     v.Draft,
	}
	title := "Nuevo producto"
	if data.Editing && v.Editing != nil {
		title = "Editar producto"
		data.ID = v.Editing.ID
		data.Action = basePath + "/" + strconv.FormatInt(v.Editing.ID, 10)
	}
	formutil.SetBase(&data.Base, r, title, data.CancelURL)
	data.Categories = selectable(h.categories(ctx, s), v.Draft.CategoryID)

	fields := map[string]string{}
	for k, msg := range v.Errors {
		if k == resource.SubmitKey {
			data.SetError(msg)
			continue
		}
		fields[k] = msg
	}
	data.Fields = fields

	templates.Render(w, r, "product_form", data)
}

// ServeNew opens the create form.
func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctl := h.Controllers.For(s)
	ctl.OpenCreate()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "product form")
	defer cancel()
	h.renderForm(ctx, w, r, s, ctl)
}

// HandleCreate submits a new product. The list shows page 1 afterwards.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, MsgInvalidForm, basePath)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctl := h.Controllers.For(s)
	ctl.OpenCreate()
	ctl.SetDraft(readDraft(r))

	h.submit(w, r, s, ctl, MsgCreated)
}

// ServeEdit opens the edit form for one product.
func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "edit product")
	defer cancel()

	p, found, err := h.find(ctx, ctl, id)
	if h.expired(w, r, s, err) {
		return
	}
	if !found {
		uierrors.RenderNotFound(w, r, MsgNotFound, basePath)
		return
	}
	ctl.OpenEdit(p)
	h.renderForm(ctx, w, r, s, ctl)
}

// HandleUpdate submits the edits of one product. The list stays on the
// current page afterwards.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, MsgInvalidForm, basePath)
		return
	}
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
	p, found, err := h.find(ctx, ctl, id)
	cancel()
	if h.expired(w, r, s, err) {
		return
	}
	if !found {
		uierrors.RenderNotFound(w, r, MsgNotFound, basePath)
		return
	}
	ctl.OpenEdit(p)
	ctl.SetDraft(readDraft(r))

	h.submit(w, r, s, ctl, MsgUpdated)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, s *auth.Session, ctl *controller, flash string) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "save product")
	defer cancel()

	err := ctl.Submit(ctx)
	switch {
	case h.expired(w, r, s, err):
		return
	case errors.Is(err, resource.ErrInvalid):
		h.renderForm(ctx, w, r, s, ctl)
		return
	case err != nil:
		h.Log.Info("save product failed", zap.String("sid", s.ID), zap.Error(err))
		h.renderForm(ctx, w, r, s, ctl)
		return
	}

	h.SessionMgr.AddFlash(w, r, flash)
	http.Redirect(w, r, listURL(ctl.Page(), ctl.PageSize()), http.StatusSeeOther)
}
