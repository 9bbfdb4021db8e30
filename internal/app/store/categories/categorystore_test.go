package categorystore_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	categorystore "github.com/dalemusser/stockconsole/internal/app/store/categories"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/dalemusser/stockconsole/internal/testutil"
	"go.uber.org/zap"
)

const email = "ana@example.com"

func setup(t *testing.T) (*testutil.Backend, *categorystore.Store) {
	t.Helper()
	b := testutil.NewBackend(t)
	b.AddUser(email, "secret1", models.UserProfile{FullName: "Ana"})
	b.SeedCategories("Herramientas", "Pinturas")
	return b, categorystore.New(b.Gateway(b.SignedIn(t, email)))
}

func TestStore_List(t *testing.T) {
	b, store := setup(t)

	env, err := store.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(env.Items) != 2 || env.Items[0].Name != "Herramientas" {
		t.Errorf("items: %+v", env.Items)
	}
	rec, _ := b.LastRequest(http.MethodGet, "/product-category")
	if rec.Params().Get("page") != "1" || rec.Params().Get("perPage") != "100" {
		t.Errorf("query: got %q", rec.Query)
	}
}

func TestCache_HitsBackendOnce(t *testing.T) {
	b, store := setup(t)
	cache, err := categorystore.NewCache(time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	defer cache.Close()
	ctx := context.Background()

	first := cache.Options(ctx, "org:1", store)
	second := cache.Options(ctx, "org:1", store)

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("options: got %d and %d, want 2", len(first), len(second))
	}
	if first[1].Label != "Pinturas" || first[1].Value == "" {
		t.Errorf("option: %+v", first[1])
	}
	if n := b.Calls(http.MethodGet, "/product-category"); n != 1 {
		t.Errorf("backend calls: got %d, want 1", n)
	}

	cache.Invalidate("org:1")
	cache.Options(ctx, "org:1", store)
	if n := b.Calls(http.MethodGet, "/product-category"); n != 2 {
		t.Errorf("backend calls after invalidate: got %d, want 2", n)
	}
}

func TestCache_FailureIsEmptyAndNotCached(t *testing.T) {
	b, store := setup(t)
	cache, err := categorystore.NewCache(time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	defer cache.Close()
	ctx := context.Background()

	b.FailNext(http.MethodGet, "/product-category", http.StatusInternalServerError, "boom")
	if opts := cache.Options(ctx, "org:2", store); len(opts) != 0 {
		t.Errorf("expected empty selector on failure, got %d", len(opts))
	}
	if opts := cache.Options(ctx, "org:2", store); len(opts) != 2 {
		t.Errorf("expected retry to load 2 options, got %d", len(opts))
	}
}
