package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/stockconsole/internal/app/system/sessionstore"
	"github.com/dgraph-io/ristretto/v2"
)

// MemoryBackend keeps console sessions in process memory. Sessions idle
// for longer than the idle TTL are dropped. State is lost on restart.
type MemoryBackend struct {
	mu      sync.Mutex
	cache   *ristretto.Cache[string, *sessionstore.Memory]
	idleTTL time.Duration
}

// NewMemoryBackend builds a backend whose sessions expire after idleTTL
// without a request. A zero idleTTL never expires them.
func NewMemoryBackend(idleTTL time.Duration) (*MemoryBackend, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *sessionstore.Memory]{
		NumCounters:        1e6,
		MaxCost:            1 << 17,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{cache: c, idleTTL: idleTTL}, nil
}

// Scoped returns the store for sid, creating it on first use.
func (b *MemoryBackend) Scoped(sid string) sessionstore.Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.cache.Get(sid); ok {
		return s
	}
	s := sessionstore.NewMemory()
	b.cache.SetWithTTL(sid, s, 1, b.idleTTL)
	b.cache.Wait()
	return s
}

// Touch restarts sid's idle window.
func (b *MemoryBackend) Touch(_ context.Context, sid string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.cache.Get(sid); ok {
		b.cache.SetWithTTL(sid, s, 1, b.idleTTL)
		b.cache.Wait()
	}
	return nil
}

// Delete drops sid.
func (b *MemoryBackend) Delete(_ context.Context, sid string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Del(sid)
	return nil
}

// Close releases the cache.
func (b *MemoryBackend) Close() {
	b.cache.Close()
}
