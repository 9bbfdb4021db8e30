package productstore

import (
	"context"

	"github.com/dalemusser/stockconsole/internal/app/system/envelope"
	"github.com/dalemusser/stockconsole/internal/app/system/resource"
	"github.com/dalemusser/stockconsole/internal/domain/models"
)

var _ resource.Adapter[models.Product, models.ProductDraft] = Adapter{}

// Adapter binds a Store to a resource.Controller.
type Adapter struct {
	Store *Store
}

func (a Adapter) List(ctx context.Context, page, size int, sort string) (envelope.Envelope[models.Product], error) {
	return a.Store.List(ctx, page, size, sort)
}

func (a Adapter) Create(ctx context.Context, d models.ProductDraft) error {
	p, err := ToPayload(d)
	if err != nil {
		return err
	}
	_, err = a.Store.Create(ctx, p)
	return err
}

func (a Adapter) Update(ctx context.Context, e models.Product, d models.ProductDraft) error {
	p, err := ToPayload(d)
	if err != nil {
		return err
	}
	return a.Store.Update(ctx, e.ID, p)
}

func (a Adapter) Delete(ctx context.Context, e models.Product) error {
	return a.Store.Delete(ctx, e.ID)
}

func (Adapter) Blank() models.ProductDraft { return Blank() }
func (Adapter) DraftOf(p models.Product) models.ProductDraft { return DraftOf(p) }
func (Adapter) Validate(d models.ProductDraft) resource.FieldErrors { return Validate(d) }
