// internal/app/features/products/types.go
package products

import (
	"strconv"

	categorystore "github.com/dalemusser/stockconsole/internal/app/store/categories"
	"github.com/dalemusser/stockconsole/internal/app/system/formutil"
	"github.com/dalemusser/stockconsole/internal/app/system/paging"
	"github.com/dalemusser/stockconsole/internal/app/system/viewdata"
	"github.com/dalemusser/stockconsole/internal/domain/models"
)

const (
	labelAvailable   = "Activo"
	labelUnavailable = "Inactivo"
)

type productRow struct {
	ID          int64
	Code        string
	Name        string
	Category    string
	Price       string
	Cost        string
	ImageURL    string
	IsAvailable bool
	Status      string
}

type listData struct {
	viewdata.BaseVM

	Rows      []productRow
	Empty     bool
	LoadError string

	Page       int
	PageSize   int
	PageSizes  []int
	Pages      []int
	Range      paging.Range
	TotalCount int
	HasMeta    bool
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
}

type categoryOption struct {
	categorystore.Option
	Selected bool
}

type formData struct {
	formutil.Base

	Editing    bool
	ID         int64
	Action     string
	CancelURL  string
	Draft      models.ProductDraft
	Categories []categoryOption
}

type deleteData struct {
	viewdata.BaseVM

	ID        int64
	Code      string
	Name      string
	Error     string
	CancelURL string
}

func rowOf(p models.Product, categoryNames map[string]string) productRow {
	row := productRow{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Price:       money(p.Price),
		Cost:        money(p.Cost),
		ImageURL:    p.ImageURL,
		IsAvailable: p.IsAvailable,
		Status:      availability(p.IsAvailable),
	}
	if p.CategoryID != nil {
		row.Category = categoryNames[strconv.FormatInt(*p.CategoryID, 10)]
	}
	return row
}

func availability(ok bool) string {
	if ok {
		return labelAvailable
	}
	return labelUnavailable
}

func money(f float64) string {
	return "$" + strconv.FormatFloat(f, 'f', 2, 64)
}

func selectable(opts []categorystore.Option, selected string) []categoryOption {
	out := make([]categoryOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, categoryOption{Option: o, Selected: o.Value == selected})
	}
	return out
}
