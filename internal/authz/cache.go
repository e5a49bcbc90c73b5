package authz

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL bounds how stale a resolved permission set may get without
// an explicit invalidation.
const DefaultCacheTTL = 5 * time.Minute

// Metrics receives authorization counters. Implementations must be safe for
// concurrent use; a nil Metrics disables reporting.
type Metrics interface {
	PermissionCacheHit()
	PermissionCacheMiss()
	AuthzDecision(allowed bool)
}

// Cache memoizes Resolver results per account with a TTL. Concurrent misses
// for the same account may each resolve once; resolution is idempotent so
// the only cost is a redundant read.
type Cache struct {
	resolver *Resolver
	store    *gocache.Cache
	ttl      time.Duration
	metrics  Metrics
}

// NewCache constructs a Cache around the resolver. A non-positive ttl falls
// back to DefaultCacheTTL.
func NewCache(resolver *Resolver, ttl time.Duration, metrics Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		resolver: resolver,
		store:    gocache.New(ttl, 2*ttl),
		ttl:      ttl,
		metrics:  metrics,
	}
}

// Get returns the cached permission set for the account, resolving and
// storing it on a miss or after expiry.
func (c *Cache) Get(ctx context.Context, accountID uuid.UUID) (PermissionSet, error) {
	key := accountID.String()
	if cached, ok := c.store.Get(key); ok {
		if c.metrics != nil {
			c.metrics.PermissionCacheHit()
		}
		return cached.(PermissionSet), nil
	}
	if c.metrics != nil {
		c.metrics.PermissionCacheMiss()
	}
	set, err := c.resolver.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	c.store.Set(key, set, c.ttl)
	return set, nil
}

// Invalidate drops the entry for one account, if present.
func (c *Cache) Invalidate(accountID uuid.UUID) {
	c.store.Delete(accountID.String())
}

// InvalidateAll drops every cached entry. Used after bulk role or catalog
// changes.
func (c *Cache) InvalidateAll() {
	c.store.Flush()
}

// TTL exposes the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
