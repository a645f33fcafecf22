package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/hashicorp/golang-lru/v2"
)

// SpotSource is the storage the cache reads through to
type SpotSource interface {
	ListSpots(ctx context.Context) ([]models.Spot, error)
	GetSpot(ctx context.Context, id uint) (*models.Spot, error)
}

type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type spotEntry struct {
	spot      models.Spot
	expiresAt time.Time
}

// SpotCache keeps recently used spots in an LRU with a TTL so repeated
// lookups by ID skip the database. The full spot list is cached separately.
type SpotCache struct {
	source SpotSource
	lru    *lru.Cache[uint, *spotEntry]
	ttl    time.Duration
	clock  clock

	mu          sync.RWMutex
	spots       []models.Spot
	listExpires time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewSpotCache builds a cache over source sized by the store configuration
func NewSpotCache(source SpotSource, cfg *config.StoreConfig) (*SpotCache, error) {
	return newSpotCache(source, cfg.SpotCacheSize, cfg.GetSpotCacheTTL(), realClock{})
}

func newSpotCache(source SpotSource, size int, ttl time.Duration, c clock) (*SpotCache, error) {
	lruCache, err := lru.New[uint, *spotEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}
	return &SpotCache{source: source, lru: lruCache, ttl: ttl, clock: c}, nil
}

// GetSpot returns the cached spot or loads it from the source. Lookup errors,
// including not-found, are passed through and never cached.
func (c *SpotCache) GetSpot(ctx context.Context, id uint) (*models.Spot, error) {
	if entry, ok := c.lru.Get(id); ok {
		if c.clock.Now().Before(entry.expiresAt) {
			c.hits.Add(1)
			spot := entry.spot
			return &spot, nil
		}
		c.lru.Remove(id)
	}
	c.misses.Add(1)

	spot, err := c.source.GetSpot(ctx, id)
	if err != nil {
		return nil, err
	}
	c.add(*spot)
	return spot, nil
}

// ListSpots returns the cached spot list, reloading it once the TTL has passed
func (c *SpotCache) ListSpots(ctx context.Context) ([]models.Spot, error) {
	c.mu.RLock()
	if c.spots != nil && c.clock.Now().Before(c.listExpires) {
		spots := append([]models.Spot(nil), c.spots...)
		c.mu.RUnlock()
		c.hits.Add(1)
		return spots, nil
	}
	c.mu.RUnlock()
	c.misses.Add(1)

	spots, err := c.source.ListSpots(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.spots = append(make([]models.Spot, 0, len(spots)), spots...)
	c.listExpires = c.clock.Now().Add(c.ttl)
	c.mu.Unlock()

	for _, s := range spots {
		c.add(s)
	}
	return spots, nil
}

func (c *SpotCache) add(spot models.Spot) {
	c.lru.Add(spot.ID, &spotEntry{spot: spot, expiresAt: c.clock.Now().Add(c.ttl)})
}

// Stats returns hit and miss counts
func (c *SpotCache) Stats() map[string]uint64 {
	return map[string]uint64{
		"hits":   c.hits.Load(),
		"misses": c.misses.Load(),
	}
}
