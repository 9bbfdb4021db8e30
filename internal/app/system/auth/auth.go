// Package auth ties a browser to its console session.
//
// The cookie carries only a random session id. The Credential and the
// cached profile live server-side in a Backend, keyed by that id, and are
// reached through a per-session gateway.
package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "stockconsole-session"

	sidKey = "sid"
)

// Backend holds the server-side state of console sessions.
type Backend interface {
	Scoped(sid string) sessionstore.Store
	Delete(ctx context.Context, sid string) error
}

// Toucher is implemented by backends that expire idle sessions.
type Toucher interface {
	Touch(ctx context.Context, sid string) error
}

// Config configures a SessionManager.
type Config struct {
	SessionKey string
	Name       string
	Domain     string
	Secure     bool
	MaxAge     int // seconds; 0 keeps the gorilla default

	Backend  Backend
	Gateways *gateway.Factory
}

// SessionManager reads and writes the console session cookie.
type SessionManager struct {
	cookies  *sessions.CookieStore
	name     string
	backend  Backend
	gateways *gateway.Factory
	log      *zap.Logger
}

// NewSessionManager builds a manager. The cookie hash and encryption keys
// are derived from cfg.SessionKey.
func NewSessionManager(cfg Config, logger *zap.Logger) (*SessionManager, error) {
	if cfg.SessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if cfg.Backend == nil || cfg.Gateways == nil {
		return nil, errors.New("session manager needs a backend and a gateway factory")
	}
	if len(cfg.SessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(cfg.SessionKey)))
	}

	hashKey, err := deriveKey(cfg.SessionKey, "stockconsole cookie hash", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(cfg.SessionKey, "stockconsole cookie block", 32)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	opts := &sessions.Options{
		Domain:   cfg.Domain,
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 86400 * 30
	}
	// Secure cookies may travel cross-site; plain-http dev cookies stay Lax.
	if cfg.Secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	name := cfg.Name
	if name == "" {
		name = DefaultSessionName
	}

	logger.Info("session manager initialized",
		zap.String("name", name),
		zap.Bool("secure", cfg.Secure),
		zap.String("domain", cfg.Domain))

	return &SessionManager{
		cookies:  store,
		name:     name,
		backend:  cfg.Backend,
		gateways: cfg.Gateways,
		log:      logger,
	}, nil
}

func deriveKey(secret, info string, n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current session                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// Session is the console session of the current request.
type Session struct {
	ID       string
	Store    sessionstore.Store
	Gateway  *gateway.Gateway
	Profile  models.UserProfile
	SignedIn bool
}

type ctxKey string

const currentSessionKey ctxKey = "currentSession"

// CurrentSession returns the session injected by LoadSession.
func CurrentSession(r *http.Request) (*Session, bool) {
	s, ok := r.Context().Value(currentSessionKey).(*Session)
	return s, ok && s != nil
}

// CurrentUser returns the cached profile when the request is signed in.
func CurrentUser(r *http.Request) (models.UserProfile, bool) {
	s, ok := CurrentSession(r)
	if !ok || !s.SignedIn {
		return models.UserProfile{}, false
	}
	return s.Profile, true
}

// WithSession returns r carrying s. Handlers under test use it in place of
// LoadSession.
func WithSession(r *http.Request, s *Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentSessionKey, s))
}

// LoadSession injects the console session into the request context when
// the cookie names one. A session is signed in when it holds an access
// token and a cached profile.
func (m *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := m.sid(r)
		if sid == "" {
			next.ServeHTTP(w, r)
			return
		}

		s := m.open(sid)
		ctx := r.Context()
		token, hasToken, err := s.Store.Get(ctx, sessionstore.AccessToken)
		if err != nil {
			m.log.Warn("session read failed", zap.String("sid", sid), zap.Error(err))
		}
		if hasToken && token != "" {
			if p, ok, err := sessionstore.LoadProfile(ctx, s.Store); err == nil && ok {
				s.Profile = p
				s.SignedIn = true
			}
		}
		if s.SignedIn {
			if t, ok := m.backend.(Toucher); ok {
				if err := t.Touch(ctx, sid); err != nil {
					m.log.Debug("session touch failed", zap.Error(err))
				}
			}
		}
		next.ServeHTTP(w, WithSession(r, s))
	})
}

// RequireSignedIn ensures the request belongs to a signed-in session.
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		RedirectToLogin(w, r)
	})
}

// RedirectToLogin sends the browser to the login page, preserving the
// current URI as the return target.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(currentURI(r))

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Lifecycle                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// Begin starts a fresh console session and sets its cookie. Any previous
// session named by the cookie is discarded.
func (m *SessionManager) Begin(w http.ResponseWriter, r *http.Request) (*Session, error) {
	sess := m.cookieSession(r)
	if old, _ := sess.Values[sidKey].(string); old != "" {
		if err := m.backend.Delete(r.Context(), old); err != nil {
			m.log.Warn("discard previous session failed", zap.Error(err))
		}
	}

	sid := uuid.NewString()
	sess.Values[sidKey] = sid
	if err := sess.Save(r, w); err != nil {
		return nil, fmt.Errorf("save session cookie: %w", err)
	}
	return m.open(sid), nil
}

// BeginWith starts a fresh session seeded with the values held by src,
// usually the scratch store of an Anonymous gateway that just signed in.
func (m *SessionManager) BeginWith(w http.ResponseWriter, r *http.Request, src sessionstore.Store) (*Session, error) {
	s, err := m.Begin(w, r)
	if err != nil {
		return nil, err
	}
	if err := sessionstore.Copy(r.Context(), s.Store, src); err != nil {
		return nil, fmt.Errorf("seed session: %w", err)
	}
	return s, nil
}

// End discards the console session and expires its cookie.
func (m *SessionManager) End(w http.ResponseWriter, r *http.Request) error {
	sess := m.cookieSession(r)
	if sid, _ := sess.Values[sidKey].(string); sid != "" {
		if err := m.backend.Delete(r.Context(), sid); err != nil {
			m.log.Warn("delete session failed", zap.String("sid", sid), zap.Error(err))
		}
	}
	delete(sess.Values, sidKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Expire ends a session whose credential the backend no longer accepts
// and sends the browser to the login page.
func (m *SessionManager) Expire(w http.ResponseWriter, r *http.Request) {
	if err := m.End(w, r); err != nil {
		m.log.Warn("end expired session failed", zap.Error(err))
	}
	RedirectToLogin(w, r)
}

// Anonymous returns a gateway bound to a throwaway session, for calls that
// need no credential.
func (m *SessionManager) Anonymous() *gateway.Gateway {
	return m.gateways.For(sessionstore.NewMemory())
}

/*─────────────────────────────────────────────────────────────────────────────*
| Flashes                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// AddFlash queues a one-time message for the next page.
func (m *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, msg string) {
	sess := m.cookieSession(r)
	sess.AddFlash(msg)
	if err := sess.Save(r, w); err != nil {
		m.log.Warn("save flash failed", zap.Error(err))
	}
}

// Flashes pops the queued messages.
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) []string {
	sess := m.cookieSession(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		m.log.Warn("save session after flashes failed", zap.Error(err))
	}
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// helpers

func (m *SessionManager) open(sid string) *Session {
	store := m.backend.Scoped(sid)
	return &Session{ID: sid, Store: store, Gateway: m.gateways.For(store)}
}

func (m *SessionManager) sid(r *http.Request) string {
	sid, _ := m.cookieSession(r).Values[sidKey].(string)
	return sid
}

// cookieSession returns the gorilla session. A cookie that no longer
// decodes (rotated key, tampering) yields a new empty session.
func (m *SessionManager) cookieSession(r *http.Request) *sessions.Session {
	sess, err := m.cookies.Get(r, m.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Debug("discarding undecodable session cookie")
		} else {
			m.log.Warn("session cookie error", zap.Error(err))
		}
	}
	return sess
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
