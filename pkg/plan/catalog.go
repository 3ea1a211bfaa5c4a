package plan

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/kanbax/pkg/logger"
)

// Catalog answers plan lookups. Cache failures never fail a lookup; the
// store is consulted instead.
type Catalog struct {
	store Store
	cache Cache
	log   *slog.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCache puts a read-through cache in front of the store.
func WithCache(c Cache) CatalogOption {
	return func(cat *Catalog) { cat.cache = c }
}

// WithLogger sets the logger used for cache degradation warnings.
func WithLogger(l *slog.Logger) CatalogOption {
	return func(cat *Catalog) {
		if l != nil {
			cat.log = l
		}
	}
}

// NewCatalog returns a catalog over store. Panics on nil store.
func NewCatalog(store Store, opts ...CatalogOption) *Catalog {
	if store == nil {
		panic("plan: nil store")
	}
	c := &Catalog{store: store, log: logger.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPlan returns the plan named name (case-insensitive, legacy aliases
// accepted). Inactive plans are returned too; callers decide what to do.
func (c *Catalog) GetPlan(ctx context.Context, name string) (Plan, error) {
	tier := NormalizeTier(name)

	if c.cache != nil {
		p, ok, err := c.cache.Get(ctx, tier)
		switch {
		case err != nil:
			c.log.WarnContext(ctx, "plan cache read failed", logger.Tier(string(tier)), logger.Error(err))
		case ok:
			return p, nil
		}
	}

	p, err := c.store.Get(ctx, tier)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, errors.Join(ErrFailedToLoad, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, p); err != nil {
			c.log.WarnContext(ctx, "plan cache write failed", logger.Tier(string(tier)), logger.Error(err))
		}
	}
	return p, nil
}

// ListActivePlans returns active plans ordered for display. The internal
// tier is included only when includeInternal is set.
func (c *Catalog) ListActivePlans(ctx context.Context, includeInternal bool) ([]Plan, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	out := make([]Plan, 0, len(all))
	for _, p := range all {
		if !p.IsActive {
			continue
		}
		if p.Name == TierInternal && !includeInternal {
			continue
		}
		out = append(out, p)
	}
	sortPlans(out)
	return out, nil
}

// SuggestUpgrade returns the first public tier ranked above current whose
// cap for res admits one more item than count.
func (c *Catalog) SuggestUpgrade(ctx context.Context, current Tier, res Resource, count int64) (Tier, bool) {
	plans, err := c.ListActivePlans(ctx, false)
	if err != nil {
		c.log.WarnContext(ctx, "upgrade suggestion unavailable", logger.Error(err))
		return "", false
	}

	rank := -1
	for _, p := range plans {
		if p.Name == current {
			rank = p.SortOrder
		}
	}
	for _, p := range plans {
		if p.SortOrder <= rank || p.Name == current {
			continue
		}
		if limit, ok := p.Limit(res); ok && (IsUnlimited(limit) || limit > count) {
			return p.Name, true
		}
	}
	return "", false
}

// Seed seeds the underlying store and drops any cached entries for the
// seeded names.
func (c *Catalog) Seed(ctx context.Context, plans ...Plan) (bool, error) {
	if len(plans) == 0 {
		plans = DefaultPlans()
	}
	seeded, err := Seed(ctx, c.store, plans...)
	if err != nil || !seeded || c.cache == nil {
		return seeded, err
	}
	names := make([]Tier, len(plans))
	for i, p := range plans {
		names[i] = p.Name
	}
	if err := c.cache.Invalidate(ctx, names...); err != nil {
		c.log.WarnContext(ctx, "plan cache invalidation failed", logger.Error(err))
	}
	return true, nil
}
