package subscription_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/audit"
	"github.com/dmitrymomot/kanbax/pkg/billing"
	"github.com/dmitrymomot/kanbax/pkg/entity"
	"github.com/dmitrymomot/kanbax/pkg/plan"
	"github.com/dmitrymomot/kanbax/svc/subscription"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubProvider struct {
	mu        sync.Mutex
	checkouts []billing.CheckoutRequest
	cancelled []string
	err       error
	cancelErr error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkouts = append(p.checkouts, req)
	if p.err != nil {
		return nil, p.err
	}
	return &billing.CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil
}

func (p *stubProvider) CancelSubscription(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, id)
	return p.cancelErr
}

// env holds one manager and its collaborators.
//
//	user 1: personal, free
//	user 2: admin of company 10
//	user 3: member of company 10
//	user 4: hyper admin
//	user 5: admin of company 11
type env struct {
	repo     *entity.MemoryStore
	store    *subscription.MemoryStore
	audit    *audit.MemoryStorage
	provider *stubProvider
	clock    *clock
	manager  *subscription.Manager
}

func uuidFor(n byte) uuid.UUID {
	return uuid.UUID{15: n}
}

func newEnv(t *testing.T, opts ...func(*env)) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		repo:     entity.NewMemoryStore(),
		store:    subscription.NewMemoryStore(),
		audit:    audit.NewMemoryStorage(),
		provider: &stubProvider{},
		clock:    &clock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, c := range []entity.Company{{ID: 10, Name: "Acme"}, {ID: 11, Name: "Globex"}} {
		_, err := e.repo.CreateCompany(ctx, c)
		require.NoError(t, err)
	}
	for _, u := range []entity.User{
		{ID: 1, Email: "solo@example.com", SubscriptionTier: "free"},
		{ID: 2, Email: "admin@acme.test", CompanyID: entity.Ptr(int64(10)), IsCompanyAdmin: true},
		{ID: 3, Email: "dev@acme.test", CompanyID: entity.Ptr(int64(10))},
		{ID: 4, Email: "root@kanbax.test", IsHyperAdmin: true},
		{ID: 5, Email: "admin@globex.test", CompanyID: entity.Ptr(int64(11)), IsCompanyAdmin: true},
	} {
		_, err := e.repo.CreateUser(ctx, u)
		require.NoError(t, err)
	}
	for _, opt := range opts {
		opt(e)
	}
	e.manager = e.build(e.store, e.repo)
	return e
}

func (e *env) build(store subscription.Store, users subscription.Users) *subscription.Manager {
	return subscription.NewManager(
		store,
		users,
		plan.NewCatalog(plan.NewMemoryStore(plan.DefaultPlans()...)),
		e.provider,
		audit.NewTrail(e.audit),
		subscription.WithClock(e.clock.Now),
		subscription.WithCheckoutURLs("https://app.test/ok", "https://app.test/cancel"),
	)
}

func (e *env) user(t *testing.T, id int64) entity.User {
	t.Helper()
	u, err := e.repo.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *env) entries(t *testing.T, companyID *int64) []audit.Entry {
	t.Helper()
	out, err := e.audit.Query(context.Background(), audit.Criteria{CompanyID: companyID})
	require.NoError(t, err)
	return out
}

func TestManager_SwitchSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("paid tier returns a checkout url", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		res, err := e.manager.SwitchSubscription(ctx, 1, "Freelancer", "YEARLY")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, res.RequiresPayment)
		require.NotNil(t, res.CheckoutURL)
		assert.Equal(t, "https://pay.example.com/cs_1", *res.CheckoutURL)

		require.Len(t, e.provider.checkouts, 1)
		req := e.provider.checkouts[0]
		assert.Equal(t, res.SubscriptionID.String(), req.Metadata[billing.MetadataSubscriptionID])
		assert.Equal(t, plan.CycleYearly, req.Price.Cycle)
		assert.Equal(t, int64(9000), req.Price.AmountCents)
		assert.Equal(t, "solo@example.com", req.CustomerEmail)

		sub, err := e.store.Get(ctx, res.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPending, sub.Status)
		assert.Equal(t, "cs_1", sub.ProviderSessionID)
		assert.Equal(t, "free", e.user(t, 1).SubscriptionTier, "tier waits for payment")
	})

	t.Run("provider failure falls back to direct update", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.provider.err = errors.New("checkout api down")

		res, err := e.manager.SwitchSubscription(ctx, 1, "freelancer", "")
		require.NoError(t, err)
		assert.Equal(t, subscription.SwitchResult{
			Success:        true,
			SubscriptionID: res.SubscriptionID,
			Tier:           plan.TierFreelancer,
		}, res)
		assert.Nil(t, res.CheckoutURL)

		u := e.user(t, 1)
		assert.Equal(t, "freelancer", u.SubscriptionTier)
		assert.Equal(t, "monthly", u.SubscriptionBillingCycle)
		require.NotNil(t, u.SubscriptionExpiresAt)
		assert.Equal(t, e.clock.Now().Add(30*24*time.Hour), *u.SubscriptionExpiresAt)

		rows, err := e.store.ListByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, rows, 1, "the pending row is promoted in place")
		assert.Equal(t, subscription.StatusActive, rows[0].Status)

		entries := e.entries(t, nil)
		require.Len(t, entries, 1)
		assert.Equal(t, audit.TierChanged{OldTier: "free", NewTier: "freelancer", BillingCycle: "monthly", Path: subscription.PathFallback}, entries[0].Details)
	})

	t.Run("unconfigured provider behind a guard", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		m := subscription.NewManager(e.store, e.repo,
			plan.NewCatalog(plan.NewMemoryStore(plan.DefaultPlans()...)),
			billing.NewGuard(billing.Disabled{}),
			audit.NewTrail(e.audit),
		)

		res, err := m.SwitchSubscription(ctx, 2, "organisation", "monthly")
		require.NoError(t, err)
		assert.False(t, res.RequiresPayment)
		assert.Equal(t, "organisation", e.user(t, 2).SubscriptionTier)

		info, err := e.repo.GetPaymentInfo(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "organisation", info.SubscriptionTier, "company admin carries the company")
	})

	t.Run("cancels the active provider subscription first", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.provider.cancelErr = errors.New("provider timeout")

		old, err := e.store.Create(ctx, subscription.Subscription{
			ID:                     uuidFor(1),
			UserID:                 1,
			Tier:                   plan.TierFreelancer,
			BillingCycle:           plan.CycleMonthly,
			Status:                 subscription.StatusActive,
			ProviderSubscriptionID: "sub_old",
		})
		require.NoError(t, err)

		res, err := e.manager.SwitchSubscription(ctx, 1, "freelancer", "yearly")
		require.NoError(t, err)
		assert.True(t, res.RequiresPayment, "a failed provider cancel does not block the switch")
		assert.Equal(t, []string{"sub_old"}, e.provider.cancelled)

		got, err := e.store.Get(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, got.Status)
		assert.NotNil(t, got.CancelledAt)

		var cancelled *audit.SubscriptionCancelled
		for _, entry := range e.entries(t, nil) {
			if d, ok := entry.Details.(audit.SubscriptionCancelled); ok {
				cancelled = &d
			}
		}
		require.NotNil(t, cancelled)
		assert.Equal(t, "sub_old", cancelled.ProviderSubscriptionID)
		assert.Equal(t, "provider timeout", cancelled.ProviderError)
	})

	t.Run("retry after an interrupted switch", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		_, err := e.store.Create(ctx, subscription.Subscription{
			ID:     uuidFor(2),
			UserID: 1,
			Tier:   plan.TierFreelancer,
			Status: subscription.StatusCancelled,
		})
		require.NoError(t, err)

		res, err := e.manager.SwitchSubscription(ctx, 1, "freelancer", "monthly")
		require.NoError(t, err)
		assert.True(t, res.RequiresPayment)
		assert.Empty(t, e.provider.cancelled)
		assert.Zero(t, e.audit.Len(), "nothing left to cancel")
	})

	t.Run("direct grant stays active until checkout completes", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		granted, err := e.manager.UpdateDatabaseOnly(ctx, 1, "freelancer", "monthly")
		require.NoError(t, err)

		res, err := e.manager.SwitchSubscription(ctx, 1, "freelancer", "yearly")
		require.NoError(t, err)
		require.True(t, res.RequiresPayment)
		assert.Empty(t, e.provider.cancelled, "no provider subscription to cancel")

		got, err := e.store.Get(ctx, granted.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, got.Status)
		n, err := e.store.CountActive(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, "monthly", e.user(t, 1).SubscriptionBillingCycle)

		require.NoError(t, e.manager.Activate(ctx, res.SubscriptionID, "sub_new"))

		got, err = e.store.Get(ctx, granted.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, got.Status, "superseded on activation")
		current, err := e.manager.Current(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, res.SubscriptionID, current.ID)
		assert.Equal(t, subscription.StatusActive, current.Status)
		assert.Equal(t, "yearly", e.user(t, 1).SubscriptionBillingCycle)
	})

	t.Run("abandoned checkout is cancelled by the next switch", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		first, err := e.manager.SwitchSubscription(ctx, 1, "freelancer", "monthly")
		require.NoError(t, err)

		_, err = e.manager.SwitchSubscription(ctx, 1, "freelancer", "yearly")
		require.NoError(t, err)

		got, err := e.store.Get(ctx, first.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, got.Status)
	})

	t.Run("free tier needs no checkout", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		_, err := e.manager.UpdateDatabaseOnly(ctx, 1, "freelancer", "monthly")
		require.NoError(t, err)

		res, err := e.manager.SwitchSubscription(ctx, 1, "FREE", "")
		require.NoError(t, err)
		assert.False(t, res.RequiresPayment)
		assert.Empty(t, e.provider.checkouts)

		u := e.user(t, 1)
		assert.Equal(t, "free", u.SubscriptionTier)
		assert.Nil(t, u.SubscriptionExpiresAt)

		n, err := e.store.CountActive(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("rejections", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		_, err := e.manager.SwitchSubscription(ctx, 1, "platinum", "monthly")
		assert.ErrorIs(t, err, subscription.ErrPlanNotFound)

		_, err = e.manager.SwitchSubscription(ctx, 1, "internal", "monthly")
		assert.ErrorIs(t, err, subscription.ErrPlanNotAvailable)

		_, err = e.manager.SwitchSubscription(ctx, 1, "organisation", "monthly")
		assert.ErrorIs(t, err, subscription.ErrCompanyRequired)

		_, err = e.manager.SwitchSubscription(ctx, 404, "freelancer", "monthly")
		assert.ErrorIs(t, err, subscription.ErrUserNotFound)

		assert.Empty(t, e.provider.checkouts)
	})
}

func TestManager_UpdateDatabaseOnlyIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	first, err := e.manager.UpdateDatabaseOnly(ctx, 1, "freelancer", "Yearly")
	require.NoError(t, err)
	second, err := e.manager.UpdateDatabaseOnly(ctx, 1, "freelancer", "yearly")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Greater(t, second.Version, first.Version)

	rows, err := e.store.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, subscription.StatusActive, rows[0].Status)
	assert.Equal(t, plan.CycleYearly, rows[0].BillingCycle)
	assert.Equal(t, 2, e.audit.Len(), "every call is audited")
}

type brokenStore struct {
	*subscription.MemoryStore
}

func (brokenStore) Create(context.Context, subscription.Subscription) (subscription.Subscription, error) {
	return subscription.Subscription{}, errors.New("disk full")
}

func (brokenStore) Update(context.Context, subscription.Subscription) (subscription.Subscription, error) {
	return subscription.Subscription{}, errors.New("disk full")
}

type readOnlyUsers struct {
	*entity.MemoryStore
}

func (readOnlyUsers) UpdateUserSubscription(context.Context, int64, string, string, *time.Time) error {
	return errors.New("read-only replica")
}

func TestManager_GuaranteedUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("strict path", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		require.NoError(t, e.manager.GuaranteedUpdate(ctx, 1, "freelancer", "monthly"))

		n, err := e.store.CountActive(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("row write failure falls back to tier fields", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		m := e.build(brokenStore{e.store}, e.repo)

		require.NoError(t, m.GuaranteedUpdate(ctx, 2, "organisation", "yearly"))
		assert.Equal(t, "organisation", e.user(t, 2).SubscriptionTier)
		assert.Equal(t, "yearly", e.user(t, 2).SubscriptionBillingCycle)

		entries := e.entries(t, entity.Ptr(int64(10)))
		require.Len(t, entries, 1)
		assert.Equal(t, subscription.PathGuaranteed, entries[0].Details.(audit.TierChanged).Path)
	})

	t.Run("both paths failing", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		m := e.build(brokenStore{e.store}, readOnlyUsers{e.repo})

		err := m.GuaranteedUpdate(ctx, 1, "freelancer", "monthly")
		assert.ErrorIs(t, err, subscription.ErrUpdateFailed)
		assert.Zero(t, e.audit.Len())
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		assert.ErrorIs(t, e.manager.GuaranteedUpdate(ctx, 1, "gold", "monthly"), subscription.ErrPlanNotFound)
	})
}

func TestManager_AdminSetTier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("company admin changes a member", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		_, err := e.manager.AdminSetTier(ctx, 2, 3, "organisation", "monthly")
		require.NoError(t, err)
		assert.Equal(t, "organisation", e.user(t, 3).SubscriptionTier)

		entries := e.entries(t, entity.Ptr(int64(10)))
		require.Len(t, entries, 1)
		assert.Equal(t, int64(2), *entries[0].ActorUserID)
		assert.Equal(t, int64(3), *entries[0].TargetUserID)
		assert.Equal(t, subscription.PathAdmin, entries[0].Details.(audit.TierChanged).Path)
	})

	t.Run("hyper admin grants internal", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		_, err := e.manager.AdminSetTier(ctx, 4, 1, "kanbax", "monthly")
		require.NoError(t, err)
		u := e.user(t, 1)
		assert.Equal(t, "internal", u.SubscriptionTier)
		assert.Nil(t, u.SubscriptionExpiresAt)
	})

	t.Run("unauthorized", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)

		_, err := e.manager.AdminSetTier(ctx, 5, 3, "organisation", "monthly")
		assert.ErrorIs(t, err, subscription.ErrUnauthorized, "admin of another company")

		_, err = e.manager.AdminSetTier(ctx, 3, 1, "freelancer", "monthly")
		assert.ErrorIs(t, err, subscription.ErrUnauthorized, "not an admin")

		_, err = e.manager.AdminSetTier(ctx, 2, 3, "internal", "monthly")
		assert.ErrorIs(t, err, subscription.ErrUnauthorized, "internal is reserved")

		assert.Zero(t, e.audit.Len())
	})
}

func TestManager_AdminSetCompanyTier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	require.NoError(t, e.manager.AdminSetCompanyTier(ctx, 2, 10, "enterprise", "yearly"))
	info, err := e.repo.GetPaymentInfo(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "enterprise", info.SubscriptionTier)
	assert.Equal(t, "yearly", info.BillingCycle)
	require.NotNil(t, info.SubscriptionExpiresAt)

	entries := e.entries(t, entity.Ptr(int64(10)))
	require.Len(t, entries, 1)
	assert.Equal(t, audit.TierChanged{OldTier: "free", NewTier: "enterprise", BillingCycle: "yearly", Path: subscription.PathAdmin}, entries[0].Details)

	assert.ErrorIs(t, e.manager.AdminSetCompanyTier(ctx, 3, 10, "free", "monthly"), subscription.ErrUnauthorized)
	assert.ErrorIs(t, e.manager.AdminSetCompanyTier(ctx, 5, 10, "free", "monthly"), subscription.ErrUnauthorized)
	assert.ErrorIs(t, e.manager.AdminSetCompanyTier(ctx, 4, 99, "free", "monthly"), subscription.ErrCompanyNotFound)
}

func TestManager_Expire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	sub, err := e.manager.UpdateDatabaseOnly(ctx, 1, "freelancer", "monthly")
	require.NoError(t, err)

	require.NoError(t, e.manager.Expire(ctx, 1))
	assert.Equal(t, "freelancer", e.user(t, 1).SubscriptionTier, "not yet due")

	e.clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, e.manager.Expire(ctx, 1))

	u := e.user(t, 1)
	assert.Equal(t, "free", u.SubscriptionTier)
	assert.Nil(t, u.SubscriptionExpiresAt)

	got, err := e.store.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, got.Status)

	entries := e.entries(t, nil)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.SubscriptionExpired{SubscriptionID: sub.ID.String(), Tier: "freelancer"}, entries[0].Details)
}

func TestManager_ExpireKeepsCompanyTier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.manager.UpdateDatabaseOnly(ctx, 2, "freelancer", "monthly")
	require.NoError(t, err)
	require.NoError(t, e.manager.AdminSetCompanyTier(ctx, 4, 10, "organisation", "yearly"))

	e.clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, e.manager.Expire(ctx, 2))

	assert.Equal(t, "free", e.user(t, 2).SubscriptionTier)
	info, err := e.repo.GetPaymentInfo(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "organisation", info.SubscriptionTier)
	assert.Equal(t, "yearly", info.BillingCycle)
	assert.NotNil(t, info.SubscriptionExpiresAt)
}

func TestManager_ExpireCompany(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	require.NoError(t, e.manager.AdminSetCompanyTier(ctx, 2, 10, "organisation", "monthly"))
	require.NoError(t, e.manager.ExpireCompany(ctx, 10))
	require.NoError(t, e.manager.ExpireCompany(ctx, 11), "no payment record")

	e.clock.Advance(40 * 24 * time.Hour)
	require.NoError(t, e.manager.ExpireCompany(ctx, 10))

	info, err := e.repo.GetPaymentInfo(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "free", info.SubscriptionTier)
	assert.Nil(t, info.SubscriptionExpiresAt)
}
