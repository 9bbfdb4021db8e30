// internal/app/features/products/list.go
package products

import (
	"net/http"

	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/paging"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"github.com/dalemusser/stockconsole/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
)

// ServeList renders one page of products.
//
// Without a page parameter the session's current page is shown. A page
// size that differs from the current one returns to page 1. Arriving here
// closes any open form or pending deletion.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctl := h.Controllers.For(s)
	ctl.CloseForm()
	ctl.CancelDelete()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list products")
	defer cancel()

	size := paging.ParsePageSize(r, ctl.PageSize())
	var err error
	switch {
	case query.Get(r, "page") == "" && size != ctl.PageSize():
		err = ctl.SetPageSize(ctx, size)
	case query.Get(r, "page") == "":
		err = ctl.SetPage(ctx, ctl.Page())
	default:
		err = ctl.Load(ctx, paging.ParsePage(r), size, "desc")
	}
	if h.expired(w, r, s, err) {
		return
	}

	names := map[string]string{}
	for _, o := range h.categories(ctx, s) {
		names[o.Value] = o.Label
	}

	v := ctl.Snapshot()
	data := listData{
		BaseVM:    viewdata.WithFlashes(viewdata.NewBaseVM(r, "Productos", "/dashboard"), h.SessionMgr, w, r),
		Rows:      make([]productRow, 0, len(v.Items)),
		Empty:     v.Empty,
		Page:      v.Page,
		PageSize:  v.PageSize,
		PageSizes: paging.PageSizes,
		Pages:     v.Pages,
		Range:     v.Range,
		HasMeta:   v.Envelope.HasMeta,
	}
	if err != nil {
		data.LoadError = gateway.MessageOf(err, MsgLoadFailed)
	}
	for _, p := range v.Items {
		data.Rows = append(data.Rows, rowOf(p, names))
	}
	if v.Envelope.HasMeta {
		data.Page = v.Envelope.CurrentPage
		data.TotalCount = v.Envelope.TotalCount
		data.HasPrev = v.Envelope.HasPreviousPage
		data.HasNext = v.Envelope.HasNextPage
		data.PrevPage = v.Envelope.CurrentPage - 1
		data.NextPage = v.Envelope.CurrentPage + 1
	}

	templates.Render(w, r, "products_list", data)
}
