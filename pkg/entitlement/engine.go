package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/kanbax/pkg/entity"
	"github.com/dmitrymomot/kanbax/pkg/logger"
	"github.com/dmitrymomot/kanbax/pkg/metrics"
	"github.com/dmitrymomot/kanbax/pkg/plan"
)

const (
	// DefaultCompanyTier applies to a company without a payment record.
	DefaultCompanyTier = plan.TierFree
	// DefaultPersonalTier applies to a user without a tier.
	DefaultPersonalTier = plan.TierFree
)

// Repository is the slice of the entity store the engine reads.
type Repository interface {
	entity.UserReader
	entity.CompanyReader
	entity.Counter
}

// PlanSource resolves tiers to plans. *plan.Catalog implements it.
type PlanSource interface {
	GetPlan(ctx context.Context, name string) (plan.Plan, error)
	SuggestUpgrade(ctx context.Context, current plan.Tier, res plan.Resource, count int64) (plan.Tier, bool)
}

// ExpiryHook is called when a scope's subscription is found past its
// expiry. expired is the tier that lapsed.
type ExpiryHook func(ctx context.Context, scope Scope, expired plan.Tier)

// ResourceUsage is the usage of one resource against its cap.
type ResourceUsage struct {
	Current   int64 `json:"current"`
	Limit     int64 `json:"limit"`
	Unlimited bool  `json:"unlimited"`
}

// Usage summarizes a scope's consumption for dashboards.
type Usage struct {
	Tier      plan.Tier                       `json:"tier"`
	Resources map[plan.Resource]ResourceUsage `json:"resources"`
}

// Engine answers limit and feature questions for a scope.
type Engine struct {
	repo     Repository
	plans    PlanSource
	counters CounterRegistry
	now      func() time.Time
	onExpiry ExpiryHook
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for degraded checks.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithCounters replaces the repository-backed counters. Resources missing
// from r fall back to the defaults.
func WithCounters(r CounterRegistry) Option {
	return func(e *Engine) {
		for res, fn := range r {
			e.counters.Register(res, fn)
		}
	}
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithExpiryHook registers fn to run when an elapsed subscription is seen.
func WithExpiryHook(fn ExpiryHook) Option {
	return func(e *Engine) {
		e.onExpiry = fn
	}
}

// NewEngine builds an Engine. Panics if repo or plans is nil.
func NewEngine(repo Repository, plans PlanSource, opts ...Option) *Engine {
	if repo == nil {
		panic("entitlement: repository cannot be nil")
	}
	if plans == nil {
		panic("entitlement: plan source cannot be nil")
	}
	e := &Engine{
		repo:     repo,
		plans:    plans,
		counters: DefaultCounters(repo),
		now:      time.Now,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tier resolves the effective tier of a scope. An elapsed subscription
// resolves to free.
func (e *Engine) Tier(ctx context.Context, scope Scope) (plan.Tier, error) {
	var (
		raw     string
		expires *time.Time
	)
	switch scope.Kind {
	case ScopeCompany:
		info, err := e.repo.GetPaymentInfo(ctx, scope.ID)
		switch {
		case errors.Is(err, entity.ErrNotFound):
			return DefaultCompanyTier, nil
		case err != nil:
			return "", err
		}
		raw, expires = info.SubscriptionTier, info.SubscriptionExpiresAt
	case ScopePersonal:
		u, err := e.repo.GetUser(ctx, scope.ID)
		if err != nil {
			return "", err
		}
		raw, expires = u.SubscriptionTier, u.SubscriptionExpiresAt
	default:
		return "", ErrInvalidScope
	}

	tier := plan.NormalizeTier(raw)
	if raw == "" {
		tier = DefaultPersonalTier
		if scope.Kind == ScopeCompany {
			tier = DefaultCompanyTier
		}
	}
	if tier != plan.TierFree && expires != nil && !expires.After(e.now()) {
		e.log.InfoContext(ctx, "subscription expired",
			logger.Scope(scope.String()),
			logger.Tier(string(tier)),
		)
		if e.onExpiry != nil {
			e.onExpiry(ctx, scope, tier)
		}
		return plan.TierFree, nil
	}
	return tier, nil
}

// ActivePlan returns the plan governing scope. A tier missing from the
// catalog resolves to the conservative fallback caps.
func (e *Engine) ActivePlan(ctx context.Context, scope Scope) (plan.Plan, error) {
	tier, err := e.Tier(ctx, scope)
	if err != nil {
		return plan.Plan{}, err
	}
	p, err := e.plans.GetPlan(ctx, string(tier))
	switch {
	case errors.Is(err, plan.ErrPlanNotFound):
		e.log.WarnContext(ctx, "plan missing from catalog, using fallback caps",
			logger.Scope(scope.String()),
			logger.Tier(string(tier)),
		)
		return plan.Fallback(tier), nil
	case err != nil:
		return plan.Plan{}, err
	}
	return p, nil
}

// Check returns nil when scope may create one more res, or a *LimitError
// when the cap is reached. Data errors are logged and allow the operation.
func (e *Engine) Check(ctx context.Context, scope Scope, res plan.Resource) error {
	p, err := e.ActivePlan(ctx, scope)
	if err != nil {
		e.failOpen(ctx, "limit", scope, res, err)
		return nil
	}

	limit, ok := p.Limit(res)
	if !ok {
		e.log.WarnContext(ctx, "limit check for unknown resource", logger.Resource(string(res)))
		return nil
	}
	if plan.IsUnlimited(limit) {
		return nil
	}

	count, err := e.count(ctx, scope, res)
	if err != nil {
		e.failOpen(ctx, "limit", scope, res, err)
		return nil
	}
	if count < limit {
		return nil
	}

	metrics.EntitlementDenials.WithLabelValues(string(res), string(p.Name)).Inc()
	denial := &LimitError{
		Resource:     res,
		CurrentCount: count,
		MaxCount:     limit,
		CurrentPlan:  p.Name,
	}
	if next, ok := e.plans.SuggestUpgrade(ctx, p.Name, res, count); ok {
		denial.SuggestedTier = next
	}
	return denial
}

// HasReachedLimit reports whether scope is at its cap for res.
func (e *Engine) HasReachedLimit(ctx context.Context, scope Scope, res plan.Resource) bool {
	return errors.Is(e.Check(ctx, scope, res), ErrLimitExceeded)
}

// HasFeature reports whether scope's plan enables f. Unknown features and
// data errors yield false.
func (e *Engine) HasFeature(ctx context.Context, scope Scope, f plan.Feature) bool {
	p, err := e.ActivePlan(ctx, scope)
	if err != nil {
		e.log.WarnContext(ctx, "feature check failed",
			logger.Scope(scope.String()),
			logger.Feature(string(f)),
			logger.Error(err),
		)
		metrics.EntitlementFailOpen.WithLabelValues("feature").Inc()
		return false
	}
	return p.Has(f)
}

// CanAssignTeamsOrOthers reports whether the user may name a team or
// another user as assignee. Free and freelancer tiers may not.
func (e *Engine) CanAssignTeamsOrOthers(ctx context.Context, userID int64) bool {
	tier, err := e.Tier(ctx, Personal(userID))
	if err != nil {
		e.log.WarnContext(ctx, "assignment gate check failed", logger.UserID(userID), logger.Error(err))
		metrics.EntitlementFailOpen.WithLabelValues("assign").Inc()
		return false
	}
	return tier != plan.TierFree && tier != plan.TierFreelancer
}

// Usage reports current usage and caps for every resource.
func (e *Engine) Usage(ctx context.Context, scope Scope) (Usage, error) {
	p, err := e.ActivePlan(ctx, scope)
	if err != nil {
		return Usage{}, err
	}
	out := Usage{Tier: p.Name, Resources: make(map[plan.Resource]ResourceUsage, len(plan.Resources))}
	for _, res := range plan.Resources {
		limit, _ := p.Limit(res)
		count, err := e.count(ctx, scope, res)
		if err != nil {
			return Usage{}, err
		}
		out.Resources[res] = ResourceUsage{Current: count, Limit: limit, Unlimited: plan.IsUnlimited(limit)}
	}
	return out, nil
}

func (e *Engine) count(ctx context.Context, scope Scope, res plan.Resource) (int64, error) {
	fn, ok := e.counters[res]
	if !ok {
		return 0, ErrNoCounterRegistered
	}
	return fn(ctx, scope)
}

func (e *Engine) failOpen(ctx context.Context, check string, scope Scope, res plan.Resource, err error) {
	e.log.WarnContext(ctx, "entitlement check failed open",
		logger.Scope(scope.String()),
		logger.Resource(string(res)),
		logger.Error(err),
	)
	metrics.EntitlementFailOpen.WithLabelValues(check).Inc()
}
