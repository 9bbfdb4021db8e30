package sessions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/store/sessions"
	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/dalemusser/stockconsole/internal/testutil"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestScoped_SetGetClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sid := uuid.NewString()
	s := store.Scoped(sid)

	if _, ok, err := s.Get(ctx, sessionstore.AccessToken); err != nil || ok {
		t.Fatalf("empty session: ok=%v err=%v", ok, err)
	}

	cred := models.Credential{AccessToken: "a1", RefreshToken: "r1"}
	if err := sessionstore.SetCredential(ctx, s, cred); err != nil {
		t.Fatalf("SetCredential failed: %v", err)
	}
	if err := sessionstore.SaveProfile(ctx, s, models.UserProfile{FullName: "Ana"}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	got, err := sessionstore.Credential(ctx, s)
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if got != cred {
		t.Errorf("credential: got %+v, want %+v", got, cred)
	}
	p, ok, err := sessionstore.LoadProfile(ctx, s)
	if err != nil || !ok || p.FullName != "Ana" {
		t.Errorf("profile: %+v ok=%v err=%v", p, ok, err)
	}

	doc, err := store.GetByID(ctx, sid)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	for _, k := range sessionstore.AllKeys {
		if _, ok, _ := s.Get(ctx, k); ok {
			t.Errorf("key %s survived Clear", k)
		}
	}
}

func TestScoped_ClearSomeKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s := store.Scoped(uuid.NewString())
	_ = s.Set(ctx, sessionstore.AccessToken, "a")
	_ = s.Set(ctx, sessionstore.RefreshToken, "r")

	if err := s.Clear(ctx, sessionstore.AccessToken); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, sessionstore.AccessToken); ok {
		t.Error("access token should be cleared")
	}
	if v, ok, _ := s.Get(ctx, sessionstore.RefreshToken); !ok || v != "r" {
		t.Errorf("refresh token: got %q ok=%v", v, ok)
	}
}

func TestStore_IdleSessionsAreGone(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db, time.Minute)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sid := uuid.NewString()
	_ = store.Scoped(sid).Set(ctx, sessionstore.AccessToken, "a")

	_, err := db.Collection("console_sessions").UpdateOne(ctx,
		bson.M{"_id": sid},
		bson.M{"$set": bson.M{"updated_at": time.Now().UTC().Add(-2 * time.Minute)}})
	if err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	if _, err := store.GetByID(ctx, sid); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments for idle session, got %v", err)
	}
	if _, ok, _ := store.Scoped(sid).Get(ctx, sessionstore.AccessToken); ok {
		t.Error("idle session should read as empty")
	}

	if err := store.Touch(ctx, sid); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if _, err := store.GetByID(ctx, sid); err != nil {
		t.Errorf("touched session should be live: %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sid := uuid.NewString()
	_ = store.Scoped(sid).Set(ctx, sessionstore.AccessToken, "a")
	if err := store.Delete(ctx, sid); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, sid); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments after delete, got %v", err)
	}
}

func TestStore_EnsureIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db, 12*time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes should be idempotent: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestStore_PurgeIdleAndCountActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := sessions.New(db, time.Minute)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	live, idle := uuid.NewString(), uuid.NewString()
	_ = store.Scoped(live).Set(ctx, sessionstore.AccessToken, "a")
	_ = store.Scoped(idle).Set(ctx, sessionstore.AccessToken, "b")
	_, err := db.Collection("console_sessions").UpdateOne(ctx,
		bson.M{"_id": idle},
		bson.M{"$set": bson.M{"updated_at": time.Now().UTC().Add(-time.Hour)}})
	if err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	if n, err := store.CountActive(ctx); err != nil || n != 1 {
		t.Errorf("CountActive: got %d err=%v, want 1", n, err)
	}
	n, err := store.PurgeIdle(ctx)
	if err != nil {
		t.Fatalf("PurgeIdle failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one purged session, got %d", n)
	}
	if _, err := store.GetByID(ctx, live); err != nil {
		t.Errorf("live session must survive purge: %v", err)
	}
}
