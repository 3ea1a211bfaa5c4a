package plan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/plan"
)

type mapCache struct {
	mu      sync.Mutex
	plans   map[plan.Tier]plan.Plan
	getErr  error
	dropped []plan.Tier
}

func newMapCache() *mapCache {
	return &mapCache{plans: make(map[plan.Tier]plan.Plan)}
}

func (c *mapCache) Get(_ context.Context, name plan.Tier) (plan.Plan, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return plan.Plan{}, false, c.getErr
	}
	p, ok := c.plans[name]
	return p, ok, nil
}

func (c *mapCache) Set(_ context.Context, p plan.Plan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[p.Name] = p
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, names ...plan.Tier) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped = append(c.dropped, names...)
	for _, n := range names {
		delete(c.plans, n)
	}
	return nil
}

func seededCatalog(t *testing.T, opts ...plan.CatalogOption) *plan.Catalog {
	t.Helper()
	cat := plan.NewCatalog(plan.NewMemoryStore(), opts...)
	seeded, err := cat.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)
	return cat
}

func TestCatalog_GetPlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cat := seededCatalog(t)

	t.Run("case insensitive", func(t *testing.T) {
		t.Parallel()
		p, err := cat.GetPlan(ctx, "FREELANCER")
		require.NoError(t, err)
		assert.Equal(t, plan.TierFreelancer, p.Name)
	})

	t.Run("legacy alias", func(t *testing.T) {
		t.Parallel()
		p, err := cat.GetPlan(ctx, "kanbax")
		require.NoError(t, err)
		assert.Equal(t, plan.TierInternal, p.Name)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		_, err := cat.GetPlan(ctx, "platinum")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})
}

func TestCatalog_ListActivePlans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := plan.NewMemoryStore()
	retired := plan.DefaultPlans()[1]
	retired.Name = "legacy"
	retired.IsActive = false
	_, err := plan.Seed(ctx, store, append(plan.DefaultPlans(), retired)...)
	require.NoError(t, err)
	cat := plan.NewCatalog(store)

	t.Run("public listing never shows internal", func(t *testing.T) {
		t.Parallel()
		plans, err := cat.ListActivePlans(ctx, false)
		require.NoError(t, err)

		names := make([]plan.Tier, 0, len(plans))
		for _, p := range plans {
			names = append(names, p.Name)
		}
		assert.Equal(t, []plan.Tier{plan.TierFree, plan.TierFreelancer, plan.TierOrganisation, plan.TierEnterprise}, names)
	})

	t.Run("admin listing includes internal", func(t *testing.T) {
		t.Parallel()
		plans, err := cat.ListActivePlans(ctx, true)
		require.NoError(t, err)
		require.Len(t, plans, 5)
		assert.Equal(t, plan.TierInternal, plans[4].Name)
	})
}

func TestCatalog_Seed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := plan.NewMemoryStore()

	seeded, err := plan.Seed(ctx, store)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = plan.Seed(ctx, store)
	require.NoError(t, err)
	assert.False(t, seeded)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestCatalog_SuggestUpgrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cat := seededCatalog(t)

	tier, ok := cat.SuggestUpgrade(ctx, plan.TierFree, plan.ResourceBoards, 1)
	assert.True(t, ok)
	assert.Equal(t, plan.TierFreelancer, tier)

	tier, ok = cat.SuggestUpgrade(ctx, plan.TierFreelancer, plan.ResourceTeams, 1)
	assert.True(t, ok)
	assert.Equal(t, plan.TierOrganisation, tier)

	_, ok = cat.SuggestUpgrade(ctx, plan.TierEnterprise, plan.ResourceTeams, 10)
	assert.False(t, ok)
}

func TestCatalog_Cache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("read through", func(t *testing.T) {
		t.Parallel()
		cache := newMapCache()
		cat := seededCatalog(t, plan.WithCache(cache))
		assert.Len(t, cache.dropped, 5)

		_, err := cat.GetPlan(ctx, "organisation")
		require.NoError(t, err)

		cached, ok, err := cache.Get(ctx, plan.TierOrganisation)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(5), cached.MaxTeams)
	})

	t.Run("cache errors fall back to store", func(t *testing.T) {
		t.Parallel()
		cache := newMapCache()
		cache.getErr = errors.New("cache down")
		cat := seededCatalog(t, plan.WithCache(cache))

		p, err := cat.GetPlan(ctx, "free")
		require.NoError(t, err)
		assert.Equal(t, plan.TierFree, p.Name)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		t.Parallel()
		client := goredis.NewClient(&goredis.Options{
			Addr:        "127.0.0.1:1",
			MaxRetries:  -1,
			DialTimeout: 100 * time.Millisecond,
		})
		t.Cleanup(func() { _ = client.Close() })

		cat := plan.NewCatalog(plan.NewMemoryStore(plan.DefaultPlans()...), plan.WithCache(plan.NewRedisCache(client, time.Minute)))
		p, err := cat.GetPlan(ctx, "enterprise")
		require.NoError(t, err)
		assert.True(t, plan.IsUnlimited(p.MaxBoards))
	})
}
