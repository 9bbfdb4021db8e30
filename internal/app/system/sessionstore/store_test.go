package sessionstore_test

import (
	"context"
	"testing"

	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/domain/models"
)

func TestMemory_SetGetClear(t *testing.T) {
	ctx := context.Background()
	s := sessionstore.NewMemory()

	if _, ok, _ := s.Get(ctx, sessionstore.AccessToken); ok {
		t.Fatal("expected empty store")
	}

	for _, k := range sessionstore.AllKeys {
		if err := s.Set(ctx, k, "v-"+string(k)); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 keys, got %d", s.Len())
	}

	if err := s.Clear(ctx, sessionstore.UserProfile); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := s.Get(ctx, sessionstore.UserProfile); ok {
		t.Error("expected profile cleared")
	}
	if v, ok, _ := s.Get(ctx, sessionstore.AccessToken); !ok || v != "v-token" {
		t.Errorf("expected access token kept, got %q ok=%v", v, ok)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected all keys cleared, got %d", s.Len())
	}
}

func TestSetCredential_KeepsRefreshWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := sessionstore.NewMemory()

	if err := sessionstore.SetCredential(ctx, s, models.Credential{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatal(err)
	}
	if err := sessionstore.SetCredential(ctx, s, models.Credential{AccessToken: "a2"}); err != nil {
		t.Fatal(err)
	}

	c, err := sessionstore.Credential(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if c.AccessToken != "a2" || c.RefreshToken != "r1" {
		t.Errorf("unexpected credential %+v", c)
	}
}

func TestProfile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := sessionstore.NewMemory()
	orgID := int64(7)

	in := models.UserProfile{ID: 3, FullName: "Ana Pérez", Email: "ana@example.com", OrganizationID: &orgID}
	if err := sessionstore.SaveProfile(ctx, s, in); err != nil {
		t.Fatal(err)
	}

	out, ok, err := sessionstore.LoadProfile(ctx, s)
	if err != nil || !ok {
		t.Fatalf("LoadProfile ok=%v err=%v", ok, err)
	}
	if out.FullName != in.FullName || out.TenantKey("sid") != "org:7" {
		t.Errorf("unexpected profile %+v", out)
	}
}

func TestLoadProfile_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s := sessionstore.NewMemory()
	_ = s.Set(ctx, sessionstore.UserProfile, "{not json")

	if _, ok, err := sessionstore.LoadProfile(ctx, s); ok || err != nil {
		t.Errorf("expected ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src := sessionstore.NewMemory()
	dst := sessionstore.NewMemory()
	_ = src.Set(ctx, sessionstore.AccessToken, "a")
	_ = src.Set(ctx, sessionstore.UserProfile, `{"fullName":"Ana"}`)
	_ = dst.Set(ctx, sessionstore.RefreshToken, "keep")

	if err := sessionstore.Copy(ctx, dst, src); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if v, _, _ := dst.Get(ctx, sessionstore.AccessToken); v != "a" {
		t.Errorf("access token: got %q", v)
	}
	if v, _, _ := dst.Get(ctx, sessionstore.RefreshToken); v != "keep" {
		t.Errorf("refresh token should be untouched, got %q", v)
	}
	if dst.Len() != 3 {
		t.Errorf("expected 3 keys, got %d", dst.Len())
	}
}
