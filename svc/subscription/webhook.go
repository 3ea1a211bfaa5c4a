package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/kanbax/pkg/audit"
	"github.com/dmitrymomot/kanbax/pkg/billing"
	"github.com/dmitrymomot/kanbax/pkg/logger"
	"github.com/dmitrymomot/kanbax/pkg/plan"
)

// HandleWebhook applies a verified provider event. Events for unknown rows
// and moves the row cannot make are logged and acknowledged, since
// redelivery would not change the outcome.
func (m *Manager) HandleWebhook(ctx context.Context, evt billing.WebhookEvent) error {
	if evt.Kind == billing.EventIgnored {
		return nil
	}

	sub, err := m.resolve(ctx, evt)
	if err != nil {
		return m.acknowledge(ctx, evt, err)
	}

	switch evt.Kind {
	case billing.EventPaymentSucceeded:
		err = m.Activate(ctx, sub.ID, evt.ProviderSubscriptionID)
	case billing.EventPaymentFailed:
		err = m.Fail(ctx, sub.ID, evt.ProviderEventType)
	case billing.EventSubscriptionCancelled:
		err = m.cancelFromProvider(ctx, sub)
	}
	return m.acknowledge(ctx, evt, err)
}

func (m *Manager) resolve(ctx context.Context, evt billing.WebhookEvent) (Subscription, error) {
	if evt.SubscriptionID != "" {
		id, err := uuid.Parse(evt.SubscriptionID)
		if err != nil {
			return Subscription{}, ErrSubscriptionNotFound
		}
		return m.store.Get(ctx, id)
	}
	return m.store.GetByProviderID(ctx, evt.ProviderSubscriptionID)
}

func (m *Manager) acknowledge(ctx context.Context, evt billing.WebhookEvent, err error) error {
	if errors.Is(err, ErrSubscriptionNotFound) || errors.Is(err, ErrInvalidTransition) {
		m.log.WarnContext(ctx, "webhook event not applied",
			logger.Provider(evt.Provider),
			logger.Action(evt.ProviderEventType),
			logger.SubscriptionID(evt.SubscriptionID),
			logger.Error(err),
		)
		return nil
	}
	return err
}

// cancelFromProvider ends a subscription the provider cancelled. The user
// drops to free only when the cancelled row was the active one.
func (m *Manager) cancelFromProvider(ctx context.Context, sub Subscription) error {
	wasActive := sub.IsActive()
	cancelled, changed, err := m.cancelLocally(ctx, sub.ID)
	if err != nil || !changed {
		return err
	}
	if wasActive {
		u, err := m.user(ctx, sub.UserID)
		if err != nil {
			return err
		}
		if err := m.writeTierFields(ctx, u, plan.TierFree, plan.CycleMonthly, nil); err != nil {
			return errors.Join(ErrUpdateFailed, err)
		}
		m.auditTierChange(ctx, u.ID, u, plan.TierFree, plan.CycleMonthly, PathProvider)
	}
	m.trail.Append(ctx, audit.Entry{
		TargetUserID: &cancelled.UserID,
		CompanyID:    cancelled.CompanyID,
		Details: audit.SubscriptionCancelled{
			SubscriptionID:         cancelled.ID.String(),
			ProviderSubscriptionID: cancelled.ProviderSubscriptionID,
		},
	})
	return nil
}
