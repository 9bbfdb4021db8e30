// internal/app/features/products/controllers.go
package products

import (
	"sync"
	"time"

	productstore "github.com/dalemusser/stockconsole/internal/app/store/products"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/resource"
	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

type controller = resource.Controller[models.Product, models.ProductDraft]

// Controllers keeps one list controller per console session, so the page
// cursor, the open form and a pending deletion survive between requests.
// Entries idle for longer than the session idle TTL are evicted.
type Controllers struct {
	mu       sync.Mutex
	cache    *ristretto.Cache[string, *controller]
	idleTTL  time.Duration
	pageSize int
	log      *zap.Logger
}

// NewControllers builds the registry. pageSize is the initial page size of
// new controllers.
func NewControllers(idleTTL time.Duration, pageSize int, logger *zap.Logger) (*Controllers, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *controller]{
		NumCounters:        1e5,
		MaxCost:            1 << 14,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controllers{cache: c, idleTTL: idleTTL, pageSize: pageSize, log: logger}, nil
}

// For returns the controller of s, creating it on first use. The
// controller defers reloads: the redirect after a mutation loads the page.
func (cs *Controllers) For(s *auth.Session) *controller {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.cache.Get(s.ID); ok {
		cs.cache.SetWithTTL(s.ID, c, 1, cs.idleTTL)
		return c
	}
	c := resource.New[models.Product, models.ProductDraft](
		productstore.Adapter{Store: productstore.New(s.Gateway)},
		resource.Options{
			PageSize:    cs.pageSize,
			Logger:      cs.log.With(zap.String("sid", s.ID)),
			DeferReload: true,
		},
	)
	cs.cache.SetWithTTL(s.ID, c, 1, cs.idleTTL)
	cs.cache.Wait()
	return c
}

// Drop forgets the controller of sid.
func (cs *Controllers) Drop(sid string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.cache.Del(sid)
}

// Close releases the cache.
func (cs *Controllers) Close() {
	cs.cache.Close()
}
