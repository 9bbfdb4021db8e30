package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/dalemusser/stockconsole/internal/testutil"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) (*auth.SessionManager, *auth.MemoryBackend) {
	t.Helper()
	backend, err := auth.NewMemoryBackend(time.Hour)
	if err != nil {
		t.Fatalf("failed to create memory backend: %v", err)
	}
	t.Cleanup(backend.Close)

	sm, err := auth.NewSessionManager(auth.Config{
		SessionKey: "test-session-key-must-be-32-chars-long",
		Name:       "test-session",
		Backend:    backend,
		Gateways:   testutil.NewBackend(t).Factory(),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm, backend
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("protected content"))
	})
}

// beginSession runs Begin and returns the cookie it set.
func beginSession(t *testing.T, sm *auth.SessionManager) (*auth.Session, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	s, err := sm.Begin(rec, httptest.NewRequest("POST", "/login", nil))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	return s, cookies[0]
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	backend, _ := auth.NewMemoryBackend(0)
	defer backend.Close()
	_, err := auth.NewSessionManager(auth.Config{Backend: backend, Gateways: testutil.NewBackend(t).Factory()}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for empty session key")
	}
}

func TestRequireSignedIn_NoSession_RedirectsToLogin(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	handler := sm.LoadSession(sm.RequireSignedIn(okHandler()))

	req := httptest.NewRequest("GET", "/dashboard/products?page=2", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/login?return=") || !strings.Contains(location, "%2Fdashboard%2Fproducts") {
		t.Errorf("expected redirect to /login with return, got %q", location)
	}
}

func TestRequireSignedIn_NoSession_API_Returns401(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	handler := sm.LoadSession(sm.RequireSignedIn(okHandler()))

	req := httptest.NewRequest("GET", "/api/data", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireSignedIn_NoSession_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	handler := sm.LoadSession(sm.RequireSignedIn(okHandler()))

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login?return=") {
		t.Errorf("expected HX-Redirect to /login, got %q", hx)
	}
}

func TestBegin_SessionWithoutTokensIsNotSignedIn(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	began, cookie := beginSession(t, sm)

	var seen *auth.Session
	handler := sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CurrentSession(r)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen == nil || seen.ID != began.ID {
		t.Fatalf("expected session %q, got %+v", began.ID, seen)
	}
	if seen.SignedIn {
		t.Error("session without tokens should not be signed in")
	}
	if seen.Gateway == nil || seen.Gateway.Session() == nil {
		t.Error("expected a per-session gateway")
	}
}

func TestLoadSession_SignedIn(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	began, cookie := beginSession(t, sm)

	ctx := context.Background()
	_ = sessionstore.SetCredential(ctx, began.Store, models.Credential{AccessToken: "a", RefreshToken: "r"})
	_ = sessionstore.SaveProfile(ctx, began.Store, models.UserProfile{FullName: "Ana", Email: "ana@example.com"})

	var user models.UserProfile
	handler := sm.LoadSession(sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ = auth.CurrentUser(r)
		w.WriteHeader(http.StatusOK)
	})))
	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if user.FullName != "Ana" {
		t.Errorf("user: got %+v", user)
	}
}

func TestEnd_DropsStateAndExpiresCookie(t *testing.T) {
	sm, backend := newTestSessionManager(t)
	began, cookie := beginSession(t, sm)
	_ = began.Store.Set(context.Background(), sessionstore.AccessToken, "a")

	req := httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	if err := sm.End(rec, req); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
	if _, ok, _ := backend.Scoped(began.ID).Get(context.Background(), sessionstore.AccessToken); ok {
		t.Error("expected server-side state to be dropped")
	}
}

func TestBegin_ReplacesPreviousSession(t *testing.T) {
	sm, backend := newTestSessionManager(t)
	first, cookie := beginSession(t, sm)
	_ = first.Store.Set(context.Background(), sessionstore.AccessToken, "old")

	req := httptest.NewRequest("POST", "/login", nil)
	req.AddCookie(cookie)
	second, err := sm.Begin(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a new session id")
	}
	if _, ok, _ := backend.Scoped(first.ID).Get(context.Background(), sessionstore.AccessToken); ok {
		t.Error("previous session state should be discarded")
	}
}

func TestLoadSession_TamperedCookieIgnored(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	_, cookie := beginSession(t, sm)
	cookie.Value = cookie.Value[:len(cookie.Value)-4] + "AAAA"

	var found bool
	handler := sm.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentSession(r)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("tampered cookie should not resolve to a session")
	}
}

func TestFlashes_RoundTrip(t *testing.T) {
	sm, _ := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	sm.AddFlash(rec, httptest.NewRequest("POST", "/login/forgot-password", nil), "Código enviado")
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest("GET", "/login", nil)
	req.AddCookie(cookie)
	got := sm.Flashes(httptest.NewRecorder(), req)
	if len(got) != 1 || got[0] != "Código enviado" {
		t.Errorf("flashes: got %v", got)
	}
}

func TestCurrentUser_NoSession(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if _, ok := auth.CurrentUser(req); ok {
		t.Error("expected no user")
	}
	req = auth.WithSession(req, &auth.Session{ID: "x"})
	if _, ok := auth.CurrentUser(req); ok {
		t.Error("session that is not signed in has no user")
	}
}

func TestExpire_EndsSessionAndRedirects(t *testing.T) {
	sm, backend := newTestSessionManager(t)
	began, cookie := beginSession(t, sm)
	_ = began.Store.Set(context.Background(), sessionstore.AccessToken, "a")

	req := httptest.NewRequest("GET", "/dashboard/products", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	sm.Expire(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login") {
		t.Errorf("Location: got %q", loc)
	}
	if _, ok, _ := backend.Scoped(began.ID).Get(context.Background(), sessionstore.AccessToken); ok {
		t.Error("expected server-side state to be dropped")
	}
}

func TestBeginWith_SeedsSession(t *testing.T) {
	sm, backend := newTestSessionManager(t)
	ctx := context.Background()

	scratch := sessionstore.NewMemory()
	_ = sessionstore.SetCredential(ctx, scratch, models.Credential{AccessToken: "a", RefreshToken: "r"})
	_ = sessionstore.SaveProfile(ctx, scratch, models.UserProfile{FullName: "Ana"})

	s, err := sm.BeginWith(httptest.NewRecorder(), httptest.NewRequest("POST", "/login", nil), scratch)
	if err != nil {
		t.Fatalf("BeginWith failed: %v", err)
	}
	cred, err := sessionstore.Credential(ctx, backend.Scoped(s.ID))
	if err != nil || cred.AccessToken != "a" || cred.RefreshToken != "r" {
		t.Errorf("credential: got %+v err=%v", cred, err)
	}
}
