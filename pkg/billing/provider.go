package billing

import (
	"context"
	"time"

	"github.com/dmitrymomot/kanbax/pkg/plan"
)

// MetadataSubscriptionID is the metadata key carrying kanbax's own subscription
// id through the provider and back in webhooks.
const MetadataSubscriptionID = "subscription_id"

// Provider is a payment processor.
type Provider interface {
	// CreateCheckoutSession starts a hosted checkout for a recurring price.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// CancelSubscription stops the provider-side subscription immediately.
	CancelSubscription(ctx context.Context, providerSubscriptionID string) error
	Name() string
}

// PriceSpec describes what the customer is charged. ProviderPriceID, when
// set, refers to a price defined in the provider's catalog and wins over the
// inline amount.
type PriceSpec struct {
	Tier            plan.Tier
	DisplayName     string
	Cycle           plan.BillingCycle
	AmountCents     int64
	Currency        string
	ProviderPriceID string
}

// CheckoutRequest is a provider-neutral checkout request.
type CheckoutRequest struct {
	CustomerEmail string
	Price         PriceSpec
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Validate checks the fields every provider needs.
func (r CheckoutRequest) Validate() error {
	switch {
	case r.Metadata[MetadataSubscriptionID] == "":
		return ErrMissingSubscriptionID
	case r.Price.Tier == "":
		return ErrInvalidPrice
	case r.Price.ProviderPriceID == "" && r.Price.AmountCents <= 0:
		return ErrInvalidPrice
	}
	return nil
}

// CheckoutSession is a created checkout the user must complete.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt *time.Time
}

// Disabled is used when no provider is configured. Every call fails with
// ErrNotConfigured so callers take their fallback path.
type Disabled struct{}

var _ Provider = Disabled{}

func (Disabled) Name() string { return ProviderNone }

func (Disabled) CreateCheckoutSession(context.Context, CheckoutRequest) (*CheckoutSession, error) {
	return nil, ErrNotConfigured
}

func (Disabled) CancelSubscription(context.Context, string) error {
	return ErrNotConfigured
}

func interval(cycle plan.BillingCycle) string {
	if cycle == plan.CycleYearly {
		return "year"
	}
	return "month"
}
