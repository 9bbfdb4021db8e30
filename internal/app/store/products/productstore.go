// internal/app/store/products/productstore.go
package productstore

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/stockconsole/internal/app/system/envelope"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/paging"
	"github.com/dalemusser/stockconsole/internal/app/system/resource"
	"github.com/dalemusser/stockconsole/internal/domain/models"
)

const basePath = "/product"

// Validation messages shown next to the form fields.
const (
	MsgCodeRequired = "El código es requerido"
	MsgNameRequired = "El nombre es requerido"
	MsgPriceInvalid = "Precio inválido"
	MsgCostInvalid  = "Costo inválido"

	MsgCategoryInvalid = "Categoría inválida"
)

// ErrInvalidDraft is returned by ToPayload for a draft that fails Validate.
var ErrInvalidDraft = errors.New("product draft is invalid")

// Store talks to the backend's /product endpoints.
type Store struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) *Store {
	return &Store{gw: gw}
}

// List fetches one page. sortOrder defaults to "desc".
func (s *Store) List(ctx context.Context, page, perPage int, sortOrder string) (envelope.Envelope[models.Product], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = paging.DefaultPageSize
	}
	if sortOrder == "" {
		sortOrder = "desc"
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	q.Set("sortOrder", sortOrder)

	resp, err := s.gw.Dispatch(ctx, gateway.Request{Method: http.MethodGet, Path: basePath, Query: q})
	if err != nil {
		return envelope.Envelope[models.Product]{}, err
	}
	env, err := envelope.Normalize[models.Product](resp.Body, perPage)
	if err != nil {
		return envelope.Envelope[models.Product]{}, err
	}
	if env.HasMeta {
		env = env.Fix()
	}
	return env, nil
}

// Create posts a new product and returns the backend's copy. A 2xx with
// an empty body yields a zero Product.
func (s *Store) Create(ctx context.Context, p models.ProductPayload) (models.Product, error) {
	resp, err := s.gw.Dispatch(ctx, gateway.Request{Method: http.MethodPost, Path: basePath, Body: p})
	if err != nil {
		return models.Product{}, err
	}
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return models.Product{}, nil
	}
	return envelope.Entity[models.Product](resp.Body)
}

// Update replaces product id.
func (s *Store) Update(ctx context.Context, id int64, p models.ProductPayload) error {
	_, err := s.gw.Dispatch(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   basePath,
		Query:  idQuery(id),
		Body:   p,
	})
	return err
}

// Delete removes product id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.gw.Dispatch(ctx, gateway.Request{Method: http.MethodDelete, Path: basePath, Query: idQuery(id)})
	return err
}

func idQuery(id int64) url.Values {
	return url.Values{"id": {strconv.FormatInt(id, 10)}}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Drafts                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Validate checks a draft. An empty result means the draft can be sent.
func Validate(d models.ProductDraft) resource.FieldErrors {
	fe := resource.FieldErrors{}
	if strings.TrimSpace(d.Code) == "" {
		fe["code"] = MsgCodeRequired
	}
	if strings.TrimSpace(d.Name) == "" {
		fe["name"] = MsgNameRequired
	}
	if _, ok := parseAmount(d.Price); !ok {
		fe["price"] = MsgPriceInvalid
	}
	if _, ok := parseAmount(d.Cost); !ok {
		fe["cost"] = MsgCostInvalid
	}
	if _, ok := parseCategory(d.CategoryID); !ok {
		fe["categoryId"] = MsgCategoryInvalid
	}
	return fe
}

// ToPayload converts a valid draft to the wire body. An empty category
// becomes null.
func ToPayload(d models.ProductDraft) (models.ProductPayload, error) {
	if Validate(d).HasErrors() {
		return models.ProductPayload{}, ErrInvalidDraft
	}
	price, _ := parseAmount(d.Price)
	cost, _ := parseAmount(d.Cost)

	category, _ := parseCategory(d.CategoryID)

	return models.ProductPayload{
		Code:        strings.TrimSpace(d.Code),
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		CategoryID:  category,
		Price:       price,
		Cost:        cost,
		ImageURL:    strings.TrimSpace(d.ImageURL),
		IsAvailable: d.IsAvailable,
	}, nil
}

// DraftOf copies a product's editable fields into a draft.
func DraftOf(p models.Product) models.ProductDraft {
	d := models.ProductDraft{
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Price:       strconv.FormatFloat(p.Price, 'f', -1, 64),
		Cost:        strconv.FormatFloat(p.Cost, 'f', -1, 64),
		ImageURL:    p.ImageURL,
		IsAvailable: p.IsAvailable,
	}
	if p.CategoryID != nil {
		d.CategoryID = strconv.FormatInt(*p.CategoryID, 10)
	}
	return d
}

// Blank is the draft a new product form starts from.
func Blank() models.ProductDraft {
	return models.ProductDraft{Price: "0", Cost: "0", IsAvailable: true}
}

// parseCategory reads an optional positive category id. Blank means none.
func parseCategory(s string) (*int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

// parseAmount reads a non-negative decimal. Blank input counts as zero.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}
