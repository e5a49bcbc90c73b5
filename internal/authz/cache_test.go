package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	hits      int
	misses    int
	decisions map[bool]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{decisions: make(map[bool]int)}
}

func (m *countingMetrics) PermissionCacheHit()  { m.hits++ }
func (m *countingMetrics) PermissionCacheMiss() { m.misses++ }
func (m *countingMetrics) AuthzDecision(allowed bool) {
	m.decisions[allowed]++
}

func TestCacheMemoizesResolution(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindPreset, "shop-manager", []string{PermShopsView}, nil)
	metrics := newCountingMetrics()
	cache := NewCache(NewResolver(repo), time.Minute, metrics)

	first, err := cache.Get(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, first.Has(PermShopsView))

	second, err := cache.Get(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, second.Has(PermShopsView))

	require.Equal(t, 1, repo.refCalls)
	require.Equal(t, 1, metrics.misses)
	require.Equal(t, 1, metrics.hits)
}

func TestCacheServesStaleUntilInvalidated(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindBusiness, "front-desk", nil, []string{PermBookingsView})
	cache := NewCache(NewResolver(repo), time.Minute, nil)

	set, err := cache.Get(context.Background(), accountID)
	require.NoError(t, err)
	require.False(t, set.Has(PermBookingsManage))

	require.NoError(t, repo.GrantToAccount(context.Background(), accountID, PermBookingsManage))

	// Still the cached set.
	set, err = cache.Get(context.Background(), accountID)
	require.NoError(t, err)
	require.False(t, set.Has(PermBookingsManage))

	cache.Invalidate(accountID)

	set, err = cache.Get(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, set.Has(PermBookingsManage))
}

func TestCacheEntriesExpire(t *testing.T) {
	repo := newMemoryAuthzRepo()
	accountID := repo.addAccount(RoleKindPreset, "shop-manager", []string{PermShopsView}, nil)
	cache := NewCache(NewResolver(repo), 20*time.Millisecond, nil)

	_, err := cache.Get(context.Background(), accountID)
	require.NoError(t, err)
	require.Equal(t, 1, repo.refCalls)

	time.Sleep(40 * time.Millisecond)

	_, err = cache.Get(context.Background(), accountID)
	require.NoError(t, err)
	require.Equal(t, 2, repo.refCalls)
}

func TestCacheInvalidateAll(t *testing.T) {
	repo := newMemoryAuthzRepo()
	first := repo.addAccount(RoleKindPreset, "shop-manager", []string{PermShopsView}, nil)
	second := repo.addAccount(RoleKindPreset, "event-organizer", []string{PermEventsView}, nil)
	cache := NewCache(NewResolver(repo), time.Minute, nil)

	_, err := cache.Get(context.Background(), first)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), second)
	require.NoError(t, err)
	require.Equal(t, 2, repo.refCalls)

	cache.InvalidateAll()

	_, err = cache.Get(context.Background(), first)
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), second)
	require.NoError(t, err)
	require.Equal(t, 4, repo.refCalls)
}

func TestCacheDefaultTTL(t *testing.T) {
	cache := NewCache(NewResolver(newMemoryAuthzRepo()), 0, nil)
	require.Equal(t, DefaultCacheTTL, cache.TTL())
}
