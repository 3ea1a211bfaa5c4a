package subscription

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/kanbax/pkg/audit"
	"github.com/dmitrymomot/kanbax/pkg/billing"
	"github.com/dmitrymomot/kanbax/pkg/entity"
	"github.com/dmitrymomot/kanbax/pkg/logger"
	"github.com/dmitrymomot/kanbax/pkg/metrics"
	"github.com/dmitrymomot/kanbax/pkg/plan"
)

// Write paths recorded on TierChanged audit entries.
const (
	PathCheckout   = "checkout"
	PathDirect     = "direct"
	PathFallback   = "fallback"
	PathGuaranteed = "guaranteed"
	PathAdmin      = "admin"
	PathProvider   = "provider"
)

// Users reads users and companies and writes their denormalized tier fields.
type Users interface {
	entity.UserReader
	entity.CompanyReader
	entity.SubscriptionWriter
}

// Plans resolves tier names. *plan.Catalog implements it.
type Plans interface {
	GetPlan(ctx context.Context, name string) (plan.Plan, error)
}

// Trail records audit entries without failing the caller. *audit.Trail
// implements it.
type Trail interface {
	Append(ctx context.Context, e audit.Entry)
}

// SwitchResult is what a subscription switch hands back to the route layer.
// CheckoutURL is nil when the change was applied without payment.
type SwitchResult struct {
	Success         bool      `json:"success"`
	CheckoutURL     *string   `json:"checkoutUrl"`
	RequiresPayment bool      `json:"requiresPayment"`
	SubscriptionID  uuid.UUID `json:"subscriptionId"`
	Tier            plan.Tier `json:"tier"`
}

// Manager runs subscription state changes.
//
// A tier change has layered write paths: checkout through the provider,
// the direct update when the provider cannot be reached, and the guaranteed
// update that falls back further to writing the user's tier fields alone.
// Every degradation is logged and counted.
type Manager struct {
	store    Store
	users    Users
	plans    Plans
	provider billing.Provider
	trail    Trail

	log        *slog.Logger
	now        func() time.Time
	newID      func() uuid.UUID
	successURL string
	cancelURL  string
	currency   string
	maxRetries int
}

// NewManager panics if any dependency is nil. Use billing.Disabled{} when no
// provider is configured.
func NewManager(store Store, users Users, plans Plans, provider billing.Provider, trail Trail, opts ...Option) *Manager {
	switch {
	case store == nil:
		panic("subscription: store is required")
	case users == nil:
		panic("subscription: users repository is required")
	case plans == nil:
		panic("subscription: plan source is required")
	case provider == nil:
		panic("subscription: billing provider is required")
	case trail == nil:
		panic("subscription: audit trail is required")
	}
	m := &Manager{
		store:      store,
		users:      users,
		plans:      plans,
		provider:   provider,
		trail:      trail,
		log:        logger.Discard(),
		now:        time.Now,
		newID:      uuid.New,
		currency:   "EUR",
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SwitchSubscription moves the user to tier. A provider-linked active
// subscription is cancelled first; a provider-side cancel failure is logged
// and does not stop the switch. An active row granted directly stays active
// while checkout is pending and is superseded when the new row activates.
// Paid tiers get a pending row and a checkout URL. When the provider is
// unavailable the tier is applied directly and the result says no payment
// is required.
func (m *Manager) SwitchSubscription(ctx context.Context, userID int64, tier, billingCycle string) (SwitchResult, error) {
	cycle := plan.NormalizeBillingCycle(billingCycle)

	u, err := m.user(ctx, userID)
	if err != nil {
		return SwitchResult{}, err
	}
	p, err := m.plan(ctx, tier)
	if err != nil {
		return SwitchResult{}, err
	}
	if !p.IsActive || p.Name == plan.TierInternal {
		return SwitchResult{}, ErrPlanNotAvailable
	}
	if p.RequiresCompany && u.CompanyID == nil {
		return SwitchResult{}, ErrCompanyRequired
	}

	if err := m.cancelOpen(ctx, u); err != nil {
		return SwitchResult{}, err
	}

	if p.IsFree() {
		sub, err := m.applyTier(ctx, u, p, cycle, u.ID, PathDirect)
		if err != nil {
			return SwitchResult{}, errors.Join(ErrUpdateFailed, err)
		}
		return SwitchResult{Success: true, SubscriptionID: sub.ID, Tier: p.Name}, nil
	}

	pending, err := m.store.Create(ctx, Subscription{
		ID:           m.newID(),
		UserID:       u.ID,
		CompanyID:    u.CompanyID,
		Tier:         p.Name,
		BillingCycle: cycle,
		Status:       StatusPending,
	})
	if err != nil {
		return SwitchResult{}, errors.Join(ErrUpdateFailed, err)
	}

	session, err := m.provider.CreateCheckoutSession(ctx, m.checkoutRequest(u, p, cycle, pending.ID))
	if err != nil {
		m.log.WarnContext(ctx, "checkout unavailable, applying tier directly",
			logger.UserID(u.ID),
			logger.Tier(string(p.Name)),
			logger.Provider(m.provider.Name()),
			logger.Error(err),
		)
		metrics.SubscriptionFallbacks.WithLabelValues("provider_unavailable").Inc()

		sub, ferr := m.applyTier(ctx, u, p, cycle, u.ID, PathFallback)
		if ferr != nil {
			return SwitchResult{}, errors.Join(ErrUpdateFailed, err, ferr)
		}
		return SwitchResult{Success: true, SubscriptionID: sub.ID, Tier: p.Name}, nil
	}

	if _, err := m.mutate(ctx, pending.ID, func(s *Subscription) error {
		s.ProviderSessionID = session.ID
		return nil
	}); err != nil {
		m.log.WarnContext(ctx, "checkout session id not recorded",
			logger.SubscriptionID(pending.ID),
			logger.Error(err),
		)
	}

	url := session.URL
	return SwitchResult{
		Success:         true,
		CheckoutURL:     &url,
		RequiresPayment: true,
		SubscriptionID:  pending.ID,
		Tier:            p.Name,
	}, nil
}

// UpdateDatabaseOnly applies tier without the provider. Repeating the call
// converges on the same single active row.
func (m *Manager) UpdateDatabaseOnly(ctx context.Context, userID int64, tier, billingCycle string) (Subscription, error) {
	cycle := plan.NormalizeBillingCycle(billingCycle)

	u, err := m.user(ctx, userID)
	if err != nil {
		return Subscription{}, err
	}
	p, err := m.plan(ctx, tier)
	if err != nil {
		return Subscription{}, err
	}
	sub, err := m.applyTier(ctx, u, p, cycle, u.ID, PathDirect)
	if err != nil {
		return Subscription{}, errors.Join(ErrUpdateFailed, err)
	}
	return sub, nil
}

// GuaranteedUpdate applies tier through the direct update and, when the
// subscription row cannot be written, falls back to writing the user's and
// company's tier fields alone. It fails only when both paths fail.
func (m *Manager) GuaranteedUpdate(ctx context.Context, userID int64, tier, billingCycle string) error {
	cycle := plan.NormalizeBillingCycle(billingCycle)

	u, err := m.user(ctx, userID)
	if err != nil {
		return err
	}
	p, err := m.plan(ctx, tier)
	if err != nil {
		return err
	}

	_, err = m.applyTier(ctx, u, p, cycle, u.ID, PathGuaranteed)
	if err == nil {
		return nil
	}
	m.log.WarnContext(ctx, "subscription row update failed, writing tier fields directly",
		logger.UserID(u.ID),
		logger.Tier(string(p.Name)),
		logger.Error(err),
	)
	metrics.SubscriptionFallbacks.WithLabelValues("row_write_failed").Inc()

	if werr := m.writeTierFields(ctx, u, p.Name, cycle, plan.ExpiresAt(p.Name, cycle, m.now().UTC())); werr != nil {
		return errors.Join(ErrUpdateFailed, err, werr)
	}
	m.auditTierChange(ctx, u.ID, u, p.Name, cycle, PathGuaranteed)
	return nil
}

// AdminSetTier applies tier to userID on behalf of adminID. Hyper admins may
// change anyone; company admins only members of their company. The internal
// tier is reserved to hyper admins.
func (m *Manager) AdminSetTier(ctx context.Context, adminID, userID int64, tier, billingCycle string) (Subscription, error) {
	cycle := plan.NormalizeBillingCycle(billingCycle)

	admin, err := m.user(ctx, adminID)
	if err != nil {
		return Subscription{}, err
	}
	target, err := m.user(ctx, userID)
	if err != nil {
		return Subscription{}, err
	}
	if !administers(admin, target.CompanyID) {
		return Subscription{}, ErrUnauthorized
	}
	p, err := m.adminPlan(ctx, admin, tier)
	if err != nil {
		return Subscription{}, err
	}

	sub, err := m.applyTier(ctx, target, p, cycle, admin.ID, PathAdmin)
	if err != nil {
		return Subscription{}, errors.Join(ErrUpdateFailed, err)
	}
	return sub, nil
}

// AdminSetCompanyTier sets the tier on a company's payment record.
func (m *Manager) AdminSetCompanyTier(ctx context.Context, adminID, companyID int64, tier, billingCycle string) error {
	cycle := plan.NormalizeBillingCycle(billingCycle)

	admin, err := m.user(ctx, adminID)
	if err != nil {
		return err
	}
	if !administers(admin, &companyID) {
		return ErrUnauthorized
	}
	if _, err := m.users.GetCompany(ctx, companyID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return ErrCompanyNotFound
		}
		return err
	}
	p, err := m.adminPlan(ctx, admin, tier)
	if err != nil {
		return err
	}

	old := plan.TierFree
	info, err := m.users.GetPaymentInfo(ctx, companyID)
	switch {
	case err == nil:
		old = plan.NormalizeTier(info.SubscriptionTier)
	case !errors.Is(err, entity.ErrNotFound):
		return err
	}

	now := m.now().UTC()
	if err := m.users.UpsertPaymentInfo(ctx, entity.PaymentInfo{
		CompanyID:             companyID,
		SubscriptionTier:      string(p.Name),
		BillingCycle:          string(cycle),
		SubscriptionExpiresAt: plan.ExpiresAt(p.Name, cycle, now),
		UpdatedAt:             now,
	}); err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}

	m.trail.Append(ctx, audit.Entry{
		ActorUserID: &admin.ID,
		CompanyID:   &companyID,
		Details: audit.TierChanged{
			OldTier:      string(old),
			NewTier:      string(p.Name),
			BillingCycle: string(cycle),
			Path:         PathAdmin,
		},
	})
	return nil
}

// Current returns the user's latest subscription row.
func (m *Manager) Current(ctx context.Context, userID int64) (Subscription, error) {
	return m.store.Latest(ctx, userID)
}

// Activate flips a pending row to active once the provider confirms
// payment. Activating an active row is a no-op.
func (m *Manager) Activate(ctx context.Context, id uuid.UUID, providerSubscriptionID string) error {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.IsActive() {
		return nil
	}
	u, err := m.user(ctx, s.UserID)
	if err != nil {
		return err
	}
	if err := m.deactivateOthers(ctx, s.UserID, id); err != nil {
		return err
	}

	now := m.now().UTC()
	sub, err := m.mutate(ctx, id, func(s *Subscription) error {
		if s.IsActive() {
			return errUnchanged
		}
		if err := s.transition(StatusActive); err != nil {
			return err
		}
		s.StartedAt = &now
		s.ExpiresAt = plan.ExpiresAt(s.Tier, s.BillingCycle, now)
		s.CancelledAt = nil
		if providerSubscriptionID != "" {
			s.ProviderSubscriptionID = providerSubscriptionID
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := m.writeTierFields(ctx, u, sub.Tier, sub.BillingCycle, sub.ExpiresAt); err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}
	m.trail.Append(ctx, audit.Entry{
		ActorUserID:  &u.ID,
		TargetUserID: &u.ID,
		CompanyID:    u.CompanyID,
		Details: audit.SubscriptionActivated{
			SubscriptionID:         sub.ID.String(),
			ProviderSubscriptionID: sub.ProviderSubscriptionID,
		},
	})
	m.auditTierChange(ctx, u.ID, u, sub.Tier, sub.BillingCycle, PathCheckout)
	return nil
}

// Fail marks a pending row failed. Failing a failed row is a no-op.
func (m *Manager) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	changed := false
	sub, err := m.mutate(ctx, id, func(s *Subscription) error {
		if s.Status == StatusFailed {
			return errUnchanged
		}
		changed = true
		return s.transition(StatusFailed)
	})
	if err != nil || !changed {
		return err
	}
	m.trail.Append(ctx, audit.Entry{
		TargetUserID: &sub.UserID,
		CompanyID:    sub.CompanyID,
		Details:      audit.SubscriptionFailed{SubscriptionID: sub.ID.String(), Reason: reason},
	})
	return nil
}

// Expire resets a user whose subscription has lapsed to the free tier and
// marks the active row expired. It does nothing for a current subscription.
// Only the user's tier fields change, even for company admins.
func (m *Manager) Expire(ctx context.Context, userID int64) error {
	u, err := m.user(ctx, userID)
	if err != nil {
		return err
	}
	now := m.now().UTC()
	if u.SubscriptionExpiresAt == nil || u.SubscriptionExpiresAt.After(now) {
		return nil
	}

	var subID string
	latest, err := m.store.Latest(ctx, userID)
	switch {
	case err == nil && latest.IsExpiredAt(now):
		expired, err := m.mutate(ctx, latest.ID, func(s *Subscription) error {
			if !s.IsActive() {
				return errUnchanged
			}
			return s.transition(StatusExpired)
		})
		if err != nil {
			return err
		}
		subID = expired.ID.String()
	case err != nil && !errors.Is(err, ErrSubscriptionNotFound):
		return err
	}

	// The company record lapses on its own schedule through ExpireCompany.
	if err := m.users.UpdateUserSubscription(ctx, u.ID, string(plan.TierFree), string(plan.CycleMonthly), nil); err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}
	m.trail.Append(ctx, audit.Entry{
		TargetUserID: &u.ID,
		CompanyID:    u.CompanyID,
		Details: audit.SubscriptionExpired{
			SubscriptionID: subID,
			Tier:           string(plan.NormalizeTier(u.SubscriptionTier)),
		},
	})
	return nil
}

// ExpireCompany resets a company whose paid period has lapsed to free.
func (m *Manager) ExpireCompany(ctx context.Context, companyID int64) error {
	info, err := m.users.GetPaymentInfo(ctx, companyID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil
		}
		return err
	}
	now := m.now().UTC()
	if info.SubscriptionExpiresAt == nil || info.SubscriptionExpiresAt.After(now) {
		return nil
	}

	if err := m.users.UpsertPaymentInfo(ctx, entity.PaymentInfo{
		CompanyID:        companyID,
		SubscriptionTier: string(plan.TierFree),
		BillingCycle:     string(plan.CycleMonthly),
		UpdatedAt:        now,
	}); err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}
	m.trail.Append(ctx, audit.Entry{
		CompanyID: &companyID,
		Details:   audit.SubscriptionExpired{Tier: string(plan.NormalizeTier(info.SubscriptionTier))},
	})
	return nil
}

// applyTier is the direct update. It converges the user's rows on a single
// active row for p, copies the tier onto the user and, for company admins,
// onto the company payment record, and records the change.
func (m *Manager) applyTier(ctx context.Context, u entity.User, p plan.Plan, cycle plan.BillingCycle, actorID int64, path string) (Subscription, error) {
	now := m.now().UTC()
	expires := plan.ExpiresAt(p.Name, cycle, now)

	var (
		sub Subscription
		err error
	)
	for range m.maxRetries + 1 {
		sub, err = m.upsertActive(ctx, u, p.Name, cycle, now, expires)
		if !errors.Is(err, ErrConflict) {
			break
		}
	}
	if err != nil {
		return Subscription{}, err
	}

	if err := m.writeTierFields(ctx, u, p.Name, cycle, expires); err != nil {
		return Subscription{}, err
	}
	m.auditTierChange(ctx, actorID, u, p.Name, cycle, path)
	return sub, nil
}

// upsertActive updates the latest row in place, reviving it whatever its
// status, or inserts the first row. Other active rows are cancelled.
func (m *Manager) upsertActive(ctx context.Context, u entity.User, tier plan.Tier, cycle plan.BillingCycle, now time.Time, expires *time.Time) (Subscription, error) {
	latest, err := m.store.Latest(ctx, u.ID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return m.store.Create(ctx, Subscription{
			ID:           m.newID(),
			UserID:       u.ID,
			CompanyID:    u.CompanyID,
			Tier:         tier,
			BillingCycle: cycle,
			Status:       StatusActive,
			StartedAt:    &now,
			ExpiresAt:    expires,
		})
	}
	if err != nil {
		return Subscription{}, err
	}
	if err := m.deactivateOthers(ctx, u.ID, latest.ID); err != nil {
		return Subscription{}, err
	}
	return m.mutate(ctx, latest.ID, func(s *Subscription) error {
		s.CompanyID = u.CompanyID
		s.Tier = tier
		s.BillingCycle = cycle
		s.Status = StatusActive
		s.StartedAt = &now
		s.ExpiresAt = expires
		s.CancelledAt = nil
		return nil
	})
}

// cancelOpen cancels the user's provider-linked active rows and abandoned
// checkouts ahead of a switch. Active rows without a provider subscription
// are left for Activate or the direct update to supersede. Rows already
// cancelled are skipped, so a retried switch does not fail.
func (m *Manager) cancelOpen(ctx context.Context, u entity.User) error {
	rows, err := m.store.ListByUser(ctx, u.ID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		switch {
		case row.IsPending():
		case row.IsActive() && row.ProviderSubscriptionID != "":
		default:
			continue
		}

		var providerErr string
		if row.IsActive() && row.ProviderSubscriptionID != "" {
			if err := m.provider.CancelSubscription(ctx, row.ProviderSubscriptionID); err != nil {
				providerErr = err.Error()
				m.log.WarnContext(ctx, "provider cancellation failed, cancelling locally",
					logger.SubscriptionID(row.ID),
					logger.Provider(m.provider.Name()),
					logger.Error(err),
				)
				metrics.SubscriptionFallbacks.WithLabelValues("cancel_failed").Inc()
			}
		}

		cancelled, changed, err := m.cancelLocally(ctx, row.ID)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}
		m.trail.Append(ctx, audit.Entry{
			ActorUserID:  &u.ID,
			TargetUserID: &u.ID,
			CompanyID:    u.CompanyID,
			Details: audit.SubscriptionCancelled{
				SubscriptionID:         cancelled.ID.String(),
				ProviderSubscriptionID: cancelled.ProviderSubscriptionID,
				ProviderError:          providerErr,
			},
		})
	}
	return nil
}

// deactivateOthers cancels every active row of the user except keep.
func (m *Manager) deactivateOthers(ctx context.Context, userID int64, keep uuid.UUID) error {
	rows, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.ID == keep || !row.IsActive() {
			continue
		}
		if _, _, err := m.cancelLocally(ctx, row.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) cancelLocally(ctx context.Context, id uuid.UUID) (Subscription, bool, error) {
	changed := false
	now := m.now().UTC()
	s, err := m.mutate(ctx, id, func(s *Subscription) error {
		if !s.IsActive() && !s.IsPending() {
			return errUnchanged
		}
		if err := s.transition(StatusCancelled); err != nil {
			return err
		}
		s.CancelledAt = &now
		changed = true
		return nil
	})
	return s, changed, err
}

// errUnchanged tells mutate that fn left the row as it was.
var errUnchanged = errors.New("subscription: unchanged")

// mutate applies fn to a fresh copy of the row and writes it back,
// re-reading and retrying on compare-and-swap conflicts.
func (m *Manager) mutate(ctx context.Context, id uuid.UUID, fn func(*Subscription) error) (Subscription, error) {
	for attempt := 0; ; attempt++ {
		s, err := m.store.Get(ctx, id)
		if err != nil {
			return Subscription{}, err
		}
		if err := fn(&s); err != nil {
			if errors.Is(err, errUnchanged) {
				return s, nil
			}
			return Subscription{}, err
		}
		updated, err := m.store.Update(ctx, s)
		if errors.Is(err, ErrConflict) && attempt < m.maxRetries {
			continue
		}
		return updated, err
	}
}

// writeTierFields copies the tier onto the user and, when the user
// administers a company, onto its payment record.
func (m *Manager) writeTierFields(ctx context.Context, u entity.User, tier plan.Tier, cycle plan.BillingCycle, expires *time.Time) error {
	if err := m.users.UpdateUserSubscription(ctx, u.ID, string(tier), string(cycle), expires); err != nil {
		return err
	}
	if !u.IsCompanyAdmin || u.CompanyID == nil {
		return nil
	}
	return m.users.UpsertPaymentInfo(ctx, entity.PaymentInfo{
		CompanyID:             *u.CompanyID,
		SubscriptionTier:      string(tier),
		BillingCycle:          string(cycle),
		SubscriptionExpiresAt: expires,
		UpdatedAt:             m.now().UTC(),
	})
}

func (m *Manager) auditTierChange(ctx context.Context, actorID int64, u entity.User, tier plan.Tier, cycle plan.BillingCycle, path string) {
	old := plan.TierFree
	if u.SubscriptionTier != "" {
		old = plan.NormalizeTier(u.SubscriptionTier)
	}
	m.trail.Append(ctx, audit.Entry{
		ActorUserID:  &actorID,
		TargetUserID: &u.ID,
		CompanyID:    u.CompanyID,
		Details: audit.TierChanged{
			OldTier:      string(old),
			NewTier:      string(tier),
			BillingCycle: string(cycle),
			Path:         path,
		},
	})
}

func (m *Manager) checkoutRequest(u entity.User, p plan.Plan, cycle plan.BillingCycle, id uuid.UUID) billing.CheckoutRequest {
	return billing.CheckoutRequest{
		CustomerEmail: u.Email,
		Price: billing.PriceSpec{
			Tier:            p.Name,
			DisplayName:     p.DisplayName,
			Cycle:           cycle,
			AmountCents:     p.Price(cycle),
			Currency:        cmp.Or(p.Currency, m.currency),
			ProviderPriceID: p.PriceID(cycle),
		},
		SuccessURL: m.successURL,
		CancelURL:  m.cancelURL,
		Metadata: map[string]string{
			billing.MetadataSubscriptionID: id.String(),
			"user_id":                      strconv.FormatInt(u.ID, 10),
		},
	}
}

func (m *Manager) user(ctx context.Context, id int64) (entity.User, error) {
	u, err := m.users.GetUser(ctx, id)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.User{}, ErrUserNotFound
	}
	return u, err
}

func (m *Manager) plan(ctx context.Context, name string) (plan.Plan, error) {
	p, err := m.plans.GetPlan(ctx, name)
	if errors.Is(err, plan.ErrPlanNotFound) {
		return plan.Plan{}, ErrPlanNotFound
	}
	return p, err
}

// adminPlan loads a plan for an admin override: it must exist and be
// active, and only hyper admins may hand out the internal tier.
func (m *Manager) adminPlan(ctx context.Context, admin entity.User, name string) (plan.Plan, error) {
	p, err := m.plan(ctx, name)
	if err != nil {
		return plan.Plan{}, err
	}
	if p.Name == plan.TierInternal && !admin.IsHyperAdmin {
		return plan.Plan{}, ErrUnauthorized
	}
	if !p.IsActive {
		return plan.Plan{}, ErrPlanNotAvailable
	}
	return p, nil
}

func administers(admin entity.User, companyID *int64) bool {
	return admin.IsHyperAdmin || (admin.IsCompanyAdmin && entity.SameCompany(admin.CompanyID, companyID))
}
