package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/observability"
	"solana-vesting/internal/storage"
)

// DefaultPoolTTL is used when PoolCache is created with a zero TTL.
const DefaultPoolTTL = time.Hour

// PoolCache is a read-through cache of pool records keyed by address.
//
// Pools are immutable once created, so entries never need invalidation; the
// TTL only bounds memory. Redis failures fall back to the store.
type PoolCache struct {
	pools storage.PoolStore
	cache *Cache[domain.VestingPool]
	ttl   time.Duration
	log   *logrus.Entry
}

// NewPoolCache creates a PoolCache in front of pools.
func NewPoolCache(client redis.UniversalClient, pools storage.PoolStore, ttl time.Duration, log *logrus.Entry) *PoolCache {
	if ttl <= 0 {
		ttl = DefaultPoolTTL
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PoolCache{
		pools: pools,
		cache: New(Options[domain.VestingPool]{
			Client:  client,
			Encoder: MsgpackEncoder[domain.VestingPool](),
			Decoder: MsgpackDecoder[domain.VestingPool](),
			Prefix:  "pool",
		}),
		ttl: ttl,
		log: log.WithField("component", "pool_cache"),
	}
}

// GetPool returns the pool at address, loading it from the store on a miss.
// Returns storage.ErrNotFound if the pool does not exist.
func (c *PoolCache) GetPool(ctx context.Context, address string) (*domain.VestingPool, error) {
	pool, err := c.cache.GetEx(ctx, address, c.ttl)
	if err == nil {
		observability.RecordCacheLookup("pool", true)
		return &pool, nil
	}
	observability.RecordCacheLookup("pool", false)
	if !errors.Is(err, ErrNotFound) {
		c.log.WithError(err).WithField("pool", address).Warn("pool cache read failed")
	}

	loaded, err := c.pools.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, address, *loaded, c.ttl); err != nil {
		c.log.WithError(err).WithField("pool", address).Warn("pool cache write failed")
	}
	return loaded, nil
}

// GetPools resolves many addresses at once. Missing pools are absent from
// the result rather than an error.
func (c *PoolCache) GetPools(ctx context.Context, addresses []string) (map[string]*domain.VestingPool, error) {
	result := make(map[string]*domain.VestingPool, len(addresses))

	cached, err := c.cache.MGet(ctx, addresses...)
	if err != nil {
		c.log.WithError(err).Warn("pool cache batch read failed")
		cached = nil
	}

	misses := make(map[string]domain.VestingPool)
	for _, addr := range addresses {
		if p, ok := cached[addr]; ok {
			observability.RecordCacheLookup("pool", true)
			result[addr] = &p
			continue
		}
		observability.RecordCacheLookup("pool", false)

		p, err := c.pools.GetByAddress(ctx, addr)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result[addr] = p
		misses[addr] = *p
	}

	if err := c.cache.MSet(ctx, misses, c.ttl); err != nil {
		c.log.WithError(err).Warn("pool cache batch write failed")
	}
	return result, nil
}
