// internal/app/store/categories/categorystore.go
package categorystore

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/stockconsole/internal/app/system/envelope"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/domain/models"
)

const (
	basePath       = "/product-category"
	defaultPerPage = 100
)

// Store reads the backend's product categories.
type Store struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway) *Store {
	return &Store{gw: gw}
}

// List fetches one page of categories. page and perPage default to 1 and 100.
func (s *Store) List(ctx context.Context, page, perPage int) (envelope.Envelope[models.ProductCategory], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))

	resp, err := s.gw.Dispatch(ctx, gateway.Request{Method: http.MethodGet, Path: basePath, Query: q})
	if err != nil {
		return envelope.Envelope[models.ProductCategory]{}, err
	}
	return envelope.Normalize[models.ProductCategory](resp.Body, perPage)
}
