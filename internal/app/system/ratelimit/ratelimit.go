// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Limiter counts attempts per key in fixed windows. Windows live in a
// ristretto cache with a TTL equal to the window length, so expired keys
// are evicted by the cache instead of a sweeper goroutine.
type Limiter struct {
	mu       sync.Mutex
	windows  *ristretto.Cache[string, *window]
	limit    int
	duration time.Duration
	now      func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New returns a limiter allowing limit attempts per duration for each key.
func New(limit int, duration time.Duration) (*Limiter, error) {
	if limit <= 0 || duration <= 0 {
		return nil, fmt.Errorf("ratelimit: invalid limit %d per %s", limit, duration)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *window]{
		NumCounters:        100_000,
		MaxCost:            10_000,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: build cache: %w", err)
	}
	return &Limiter{windows: c, limit: limit, duration: duration, now: time.Now}, nil
}

// Allow records an attempt for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows.Get(key)
	if !ok || now.After(w.expiresAt) {
		l.windows.SetWithTTL(key, &window{count: 1, expiresAt: now.Add(l.duration)}, 1, l.duration)
		l.windows.Wait()
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining reports how many attempts key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows.Get(key)
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows.Del(key)
	l.windows.Wait()
}

func (l *Limiter) Close() { l.windows.Close() }

// ClientIP returns the caller's address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Messages shown when an attempt is refused.
const (
	MsgTooManyFromAddress = "Demasiados intentos desde esta conexión. Espera un minuto e inténtalo de nuevo."
	MsgTooManyForAccount  = "Demasiados intentos para esta cuenta. Espera unos minutos e inténtalo de nuevo."
)

// Guard throttles credential forms (login, password reset) by client
// address and by email, so neither a single host nor a single account
// can be hammered.
type Guard struct {
	byAddress *Limiter
	byEmail   *Limiter
}

// GuardConfig sets the two windows. Zero values fall back to
// 10 attempts per minute per address and 5 per five minutes per email.
type GuardConfig struct {
	AddressLimit  int
	AddressWindow time.Duration
	EmailLimit    int
	EmailWindow   time.Duration
}

func NewGuard(cfg GuardConfig) (*Guard, error) {
	if cfg.AddressLimit <= 0 {
		cfg.AddressLimit = 10
	}
	if cfg.AddressWindow <= 0 {
		cfg.AddressWindow = time.Minute
	}
	if cfg.EmailLimit <= 0 {
		cfg.EmailLimit = 5
	}
	if cfg.EmailWindow <= 0 {
		cfg.EmailWindow = 5 * time.Minute
	}
	byAddress, err := New(cfg.AddressLimit, cfg.AddressWindow)
	if err != nil {
		return nil, err
	}
	byEmail, err := New(cfg.EmailLimit, cfg.EmailWindow)
	if err != nil {
		byAddress.Close()
		return nil, err
	}
	return &Guard{byAddress: byAddress, byEmail: byEmail}, nil
}

// Check records an attempt and returns a user-facing message when it
// must be refused. A nil Guard allows everything.
func (g *Guard) Check(r *http.Request, email string) (bool, string) {
	if g == nil {
		return true, ""
	}
	if !g.byAddress.Allow(ClientIP(r)) {
		return false, MsgTooManyFromAddress
	}
	if key := emailKey(email); key != "" && !g.byEmail.Allow(key) {
		return false, MsgTooManyForAccount
	}
	return true, ""
}

// Forgive clears the email window after a successful sign-in.
func (g *Guard) Forgive(email string) {
	if g == nil {
		return
	}
	if key := emailKey(email); key != "" {
		g.byEmail.Reset(key)
	}
}

func (g *Guard) Close() {
	if g == nil {
		return
	}
	g.byAddress.Close()
	g.byEmail.Close()
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
