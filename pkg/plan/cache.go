package plan

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through cache for single-plan lookups.
type Cache interface {
	Get(ctx context.Context, name Tier) (Plan, bool, error)
	Set(ctx context.Context, p Plan) error
	Invalidate(ctx context.Context, names ...Tier) error
}

// RedisCache stores plans as JSON under "<prefix><name>".
type RedisCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache returns a cache with the given TTL. A zero TTL keeps entries
// until invalidated.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if client == nil {
		panic("plan: nil redis client")
	}
	return &RedisCache{client: client, prefix: "kanbax:plan:", ttl: ttl}
}

func (c *RedisCache) key(name Tier) string {
	return c.prefix + string(name)
}

func (c *RedisCache) Get(ctx context.Context, name Tier) (Plan, bool, error) {
	raw, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Plan{}, false, nil
	}
	if err != nil {
		return Plan{}, false, err
	}
	var p cachedPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		return Plan{}, false, err
	}
	return p.plan(), true, nil
}

func (c *RedisCache) Set(ctx context.Context, p Plan) error {
	raw, err := json.Marshal(newCachedPlan(p))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(p.Name), raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, names ...Tier) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = c.key(n)
	}
	return c.client.Del(ctx, keys...).Err()
}

// cachedPlan keeps the provider price ids, which Plan hides from JSON.
type cachedPlan struct {
	Plan
	MonthlyPriceID string `json:"monthlyPriceId"`
	YearlyPriceID  string `json:"yearlyPriceId"`
}

func newCachedPlan(p Plan) cachedPlan {
	return cachedPlan{Plan: p, MonthlyPriceID: p.MonthlyPriceID, YearlyPriceID: p.YearlyPriceID}
}

func (c cachedPlan) plan() Plan {
	p := c.Plan
	p.MonthlyPriceID = c.MonthlyPriceID
	p.YearlyPriceID = c.YearlyPriceID
	return p
}
