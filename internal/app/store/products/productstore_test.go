package productstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	productstore "github.com/dalemusser/stockconsole/internal/app/store/products"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/resource"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/dalemusser/stockconsole/internal/testutil"
)

const email = "ana@example.com"

func setup(t *testing.T, seed int) (*testutil.Backend, *productstore.Store) {
	t.Helper()
	b := testutil.NewBackend(t)
	b.AddUser(email, "secret1", models.UserProfile{FullName: "Ana"})
	b.SeedProducts(seed)
	return b, productstore.New(b.Gateway(b.SignedIn(t, email)))
}

func TestStore_List(t *testing.T) {
	_, store := setup(t, 12)

	env, err := store.List(context.Background(), 2, 5, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(env.Items) != 5 {
		t.Fatalf("items: got %d, want 5", len(env.Items))
	}
	if env.TotalPages != 3 || env.TotalCount != 12 || env.CurrentPage != 2 {
		t.Errorf("meta: got page %d/%d count %d", env.CurrentPage, env.TotalPages, env.TotalCount)
	}
	if !env.HasPreviousPage || !env.HasNextPage {
		t.Error("expected both navigation flags on a middle page")
	}
	if env.Items[0].ID <= env.Items[1].ID {
		t.Error("expected descending order by default")
	}
}

func TestStore_List_Shapes(t *testing.T) {
	for _, shape := range []string{"paged", "pascal", "bare", "data", "items"} {
		t.Run(shape, func(t *testing.T) {
			b, store := setup(t, 3)
			b.SetListShape(shape)

			env, err := store.List(context.Background(), 1, 10, "desc")
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(env.Items) != 3 {
				t.Errorf("items: got %d, want 3", len(env.Items))
			}
			if env.CurrentPage != 1 {
				t.Errorf("currentPage: got %d, want 1", env.CurrentPage)
			}
			if env.HasNextPage {
				t.Error("single page should have no next page")
			}
		})
	}
}

func TestStore_List_CountWithoutTotalPages(t *testing.T) {
	b, store := setup(t, 42)
	b.SetListShape("count")

	env, err := store.List(context.Background(), 1, 10, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if env.TotalPages != 5 {
		t.Errorf("totalPages: got %d, want 5", env.TotalPages)
	}
	if !env.HasNextPage || env.HasPreviousPage {
		t.Errorf("flags: next=%v prev=%v, want next only", env.HasNextPage, env.HasPreviousPage)
	}
}

func TestStore_List_SendsQuery(t *testing.T) {
	b, store := setup(t, 1)
	if _, err := store.List(context.Background(), 3, 25, "asc"); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	rec, ok := b.LastRequest(http.MethodGet, "/product")
	if !ok {
		t.Fatal("no list request recorded")
	}
	for k, want := range map[string]string{"page": "3", "perPage": "25", "sortOrder": "asc"} {
		if got := rec.Params().Get(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestAdapter_CreatePayloadRoundTrip(t *testing.T) {
	b, store := setup(t, 0)
	a := productstore.Adapter{Store: store}

	d := models.ProductDraft{Code: "A1", Name: "Widget", Price: "10.50", Cost: "5.00"}
	if err := a.Create(context.Background(), d); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rec, ok := b.LastRequest(http.MethodPost, "/product")
	if !ok {
		t.Fatal("no create request recorded")
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if v, present := body["categoryId"]; !present || v != nil {
		t.Errorf("categoryId: got %v (present=%v), want null", v, present)
	}
	if body["precio"] != 10.5 {
		t.Errorf("precio: got %v, want 10.5", body["precio"])
	}
	if body["costo"] != 5.0 {
		t.Errorf("costo: got %v, want 5", body["costo"])
	}
	if body["code"] != "A1" || body["name"] != "Widget" {
		t.Errorf("code/name: got %v/%v", body["code"], body["name"])
	}

	products := b.Products()
	if len(products) != 1 || products[0].Price != 10.5 {
		t.Errorf("backend products: %+v", products)
	}
}

func TestStore_CreateReturnsEntity(t *testing.T) {
	_, store := setup(t, 0)
	cat := int64(4)
	p, err := store.Create(context.Background(), models.ProductPayload{Code: "B2", Name: "Bolt", CategoryID: &cat, Price: 1.25})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.ID == 0 || p.Code != "B2" {
		t.Errorf("created: got %+v", p)
	}
	if p.CategoryID == nil || *p.CategoryID != 4 {
		t.Errorf("categoryId: got %v, want 4", p.CategoryID)
	}
}

func TestStore_UpdateAndDelete(t *testing.T) {
	b, store := setup(t, 2)
	ctx := context.Background()
	target := b.Products()[0]

	err := store.Update(ctx, target.ID, models.ProductPayload{Code: target.Code, Name: "Renamed", Price: 3})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	rec, _ := b.LastRequest(http.MethodPut, "/product")
	if rec.Params().Get("id") == "" {
		t.Error("expected id query parameter on update")
	}
	if got := b.Products()[0].Name; got != "Renamed" {
		t.Errorf("name after update: got %q", got)
	}

	if err := store.Delete(ctx, target.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n := len(b.Products()); n != 1 {
		t.Errorf("products after delete: got %d, want 1", n)
	}
}

func TestStore_DeleteFailureCarriesMessage(t *testing.T) {
	b, store := setup(t, 1)
	b.FailNext(http.MethodDelete, "/product", http.StatusConflict, "Producto en uso")

	err := store.Delete(context.Background(), b.Products()[0].ID)
	var re *gateway.RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if re.Status != http.StatusConflict || re.Message != "Producto en uso" {
		t.Errorf("got %d %q", re.Status, re.Message)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		draft models.ProductDraft
		want  resource.FieldErrors
	}{
		{"valid", models.ProductDraft{Code: "A", Name: "B", Price: "1", Cost: "0.5"}, resource.FieldErrors{}},
		{"blank amounts are zero", models.ProductDraft{Code: "A", Name: "B"}, resource.FieldErrors{}},
		{"missing code and name", models.ProductDraft{Code: " ", Name: ""}, resource.FieldErrors{
			"code": productstore.MsgCodeRequired,
			"name": productstore.MsgNameRequired,
		}},
		{"bad price", models.ProductDraft{Code: "A", Name: "B", Price: "abc"}, resource.FieldErrors{"price": productstore.MsgPriceInvalid}},
		{"negative cost", models.ProductDraft{Code: "A", Name: "B", Cost: "-1"}, resource.FieldErrors{"cost": productstore.MsgCostInvalid}},
		{"comma decimal", models.ProductDraft{Code: "A", Name: "B", Price: "1,5"}, resource.FieldErrors{"price": productstore.MsgPriceInvalid}},
		{"non-numeric category", models.ProductDraft{Code: "A", Name: "B", CategoryID: "abc"}, resource.FieldErrors{"categoryId": productstore.MsgCategoryInvalid}},
		{"numeric category", models.ProductDraft{Code: "A", Name: "B", CategoryID: " 4 "}, resource.FieldErrors{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := productstore.Validate(tt.draft)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s: got %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestToPayload(t *testing.T) {
	p, err := productstore.ToPayload(models.ProductDraft{Code: " A1 ", Name: "W", CategoryID: "9", Price: "2", IsAvailable: true})
	if err != nil {
		t.Fatalf("ToPayload failed: %v", err)
	}
	if p.Code != "A1" || p.CategoryID == nil || *p.CategoryID != 9 || p.Price != 2 || !p.IsAvailable {
		t.Errorf("payload: %+v", p)
	}

	if _, err := productstore.ToPayload(models.ProductDraft{}); !errors.Is(err, productstore.ErrInvalidDraft) {
		t.Errorf("expected ErrInvalidDraft, got %v", err)
	}
	if _, err := productstore.ToPayload(models.ProductDraft{Code: "A", Name: "B", CategoryID: "x"}); !errors.Is(err, productstore.ErrInvalidDraft) {
		t.Errorf("expected ErrInvalidDraft for bad category, got %v", err)
	}
}

func TestDraftOf(t *testing.T) {
	cat := int64(3)
	d := productstore.DraftOf(models.Product{Code: "C", Name: "N", CategoryID: &cat, Price: 10.5, Cost: 5})
	if d.Price != "10.5" || d.Cost != "5" || d.CategoryID != "3" {
		t.Errorf("draft: %+v", d)
	}
	if !productstore.Blank().IsAvailable {
		t.Error("new products start available")
	}
}
