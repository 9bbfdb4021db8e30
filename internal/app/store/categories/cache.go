package categorystore

import (
	"context"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// Option is one entry of the product form's category selector.
type Option struct {
	Value string
	Label string
	Color string
}

// Cache holds category options per tenant so the product form does not
// refetch them on every render.
type Cache struct {
	c   *ristretto.Cache[string, []Option]
	ttl time.Duration
	log *zap.Logger
}

// NewCache builds a cache whose entries live for ttl. A ttl of zero keeps
// entries until they are evicted.
func NewCache(ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []Option]{
		NumCounters:        1e4,
		MaxCost:            1 << 12,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{c: c, ttl: ttl, log: logger}, nil
}

// Options returns the selector entries for key, loading them through s on
// a miss. A failed load yields an empty selector and is not cached.
func (c *Cache) Options(ctx context.Context, key string, s *Store) []Option {
	if opts, ok := c.c.Get(key); ok {
		return opts
	}

	env, err := s.List(ctx, 1, defaultPerPage)
	if err != nil {
		c.log.Warn("category load failed; selector will be empty", zap.String("key", key), zap.Error(err))
		return []Option{}
	}

	opts := make([]Option, 0, len(env.Items))
	for _, cat := range env.Items {
		opts = append(opts, Option{
			Value: strconv.FormatInt(cat.ID, 10),
			Label: cat.Name,
			Color: cat.Color,
		})
	}
	c.c.SetWithTTL(key, opts, int64(len(opts))+1, c.ttl)
	c.c.Wait()
	return opts
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(key string) {
	c.c.Del(key)
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
