// internal/testutil/http.go
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"go.uber.org/zap"
)

// NewSessionManager returns a session manager whose gateways talk to b
// and whose sessions live in memory.
func NewSessionManager(t *testing.T, b *Backend) (*auth.SessionManager, *auth.MemoryBackend) {
	t.Helper()
	mem, err := auth.NewMemoryBackend(time.Hour)
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	t.Cleanup(mem.Close)

	sm, err := auth.NewSessionManager(auth.Config{
		SessionKey: "test-session-key-for-testing-only-0123",
		Name:       "test-session",
		Backend:    mem,
		Gateways:   b.Factory(),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return sm, mem
}

// SessionFor returns a signed-in console session for email, which must
// have been added with AddUser. The session id is stable per email.
func (b *Backend) SessionFor(t *testing.T, email string) *auth.Session {
	t.Helper()
	store := b.SignedIn(t, email)
	profile, _, err := sessionstore.LoadProfile(t.Context(), store)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	return &auth.Session{
		ID:       "test-" + strings.ToLower(email),
		Store:    store,
		Gateway:  b.Gateway(store),
		Profile:  profile,
		SignedIn: true,
	}
}

// AsSession returns r carrying s, as LoadSession would.
func AsSession(r *http.Request, s *auth.Session) *http.Request {
	return auth.WithSession(r, s)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirect checks for a redirect to the expected location.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound && r.Code != http.StatusMovedPermanently {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	if location := r.Header().Get("Location"); location != expectedLocation {
		t.Errorf("redirect location: got %q, want %q", location, expectedLocation)
	}
}

// AssertRedirectPrefix checks for a redirect whose location starts with prefix.
func (r *ResponseRecorder) AssertRedirectPrefix(t interface{ Errorf(string, ...any) }, prefix string) {
	if r.Code != http.StatusSeeOther && r.Code != http.StatusFound {
		t.Errorf("expected redirect status, got %d", r.Code)
	}
	if location := r.Header().Get("Location"); !strings.HasPrefix(location, prefix) {
		t.Errorf("redirect location: got %q, want prefix %q", location, prefix)
	}
}

// Cookie returns the named cookie set by the response, or nil.
func (r *ResponseRecorder) Cookie(name string) *http.Cookie {
	for _, c := range r.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
