package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// StripeSessions is the checkout-session part of the Stripe client.
type StripeSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeSubscriptions is the subscription part of the Stripe client.
type StripeSubscriptions interface {
	Cancel(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

// StripeProvider runs subscription-mode Checkout Sessions.
type StripeProvider struct {
	sessions      StripeSessions
	subscriptions StripeSubscriptions
	webhookSecret string
}

var (
	_ Provider      = (*StripeProvider)(nil)
	_ WebhookParser = (*StripeProvider)(nil)
)

type StripeOption func(*StripeProvider)

// WithStripeClients replaces the API clients, e.g. with fakes.
func WithStripeClients(sessions StripeSessions, subscriptions StripeSubscriptions) StripeOption {
	return func(p *StripeProvider) {
		if sessions != nil {
			p.sessions = sessions
		}
		if subscriptions != nil {
			p.subscriptions = subscriptions
		}
	}
}

func NewStripeProvider(cfg StripeConfig, opts ...StripeOption) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: stripe secret key", ErrMissingCredentials)
	}
	sc := client.New(cfg.SecretKey, nil)
	p := &StripeProvider{
		sessions:      sc.CheckoutSessions,
		subscriptions: sc.Subscriptions,
		webhookSecret: cfg.WebhookSecret,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *StripeProvider) Name() string { return ProviderStripe }

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if req.Price.ProviderPriceID != "" {
		item.Price = stripe.String(req.Price.ProviderPriceID)
	} else {
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(strings.ToLower(req.Price.Currency)),
			UnitAmount: stripe.Int64(req.Price.AmountCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(req.Price.DisplayName),
			},
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(interval(req.Price.Cycle)),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{item},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.Metadata[MetadataSubscriptionID]),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: maps.Clone(req.Metadata),
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if s.URL == "" {
		return nil, ErrNoCheckoutURL
	}
	out := &CheckoutSession{ID: s.ID, URL: s.URL}
	if s.ExpiresAt > 0 {
		t := time.Unix(s.ExpiresAt, 0).UTC()
		out.ExpiresAt = &t
	}
	return out, nil
}

func (p *StripeProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	if providerSubscriptionID == "" {
		return nil
	}
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := p.subscriptions.Cancel(providerSubscriptionID, params); err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Code == stripe.ErrorCodeResourceMissing {
			return nil
		}
		return fmt.Errorf("stripe: cancel subscription: %w", err)
	}
	return nil
}

func (p *StripeProvider) SignatureHeader() string { return "Stripe-Signature" }

// ParseWebhook verifies the signature and maps checkout and subscription
// events to WebhookEvent.
func (p *StripeProvider) ParseWebhook(_ context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	if p.webhookSecret == "" {
		return nil, fmt.Errorf("%w: stripe webhook secret", ErrMissingCredentials)
	}
	if err := webhook.ValidatePayload(payload, signature, p.webhookSecret); err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil || evt.Data == nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}

	out := &WebhookEvent{Provider: ProviderStripe, ProviderEventType: string(evt.Type)}
	switch evt.Type {
	case "checkout.session.completed", "checkout.session.expired", "checkout.session.async_payment_failed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		out.SubscriptionID = s.Metadata[MetadataSubscriptionID]
		if out.SubscriptionID == "" {
			out.SubscriptionID = s.ClientReferenceID
		}
		if s.Subscription != nil {
			out.ProviderSubscriptionID = s.Subscription.ID
		}
		out.Kind = EventPaymentFailed
		if evt.Type == "checkout.session.completed" {
			out.Kind = EventPaymentSucceeded
		}
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		out.Kind = EventSubscriptionCancelled
		out.SubscriptionID = sub.Metadata[MetadataSubscriptionID]
		out.ProviderSubscriptionID = sub.ID
	default:
		out.Kind = EventIgnored
	}
	return out, nil
}
