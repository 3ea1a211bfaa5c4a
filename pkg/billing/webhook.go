package billing

import "context"

// EventKind is the provider-neutral meaning of a webhook notification.
type EventKind string

const (
	EventPaymentSucceeded      EventKind = "payment_succeeded"
	EventPaymentFailed         EventKind = "payment_failed"
	EventSubscriptionCancelled EventKind = "subscription_cancelled"
	EventIgnored               EventKind = "ignored"
)

// WebhookEvent is a verified provider notification. SubscriptionID is the
// kanbax subscription id echoed back from checkout metadata.
type WebhookEvent struct {
	Kind                   EventKind
	Provider               string
	ProviderEventType      string
	SubscriptionID         string
	ProviderSubscriptionID string
}

// WebhookParser verifies and decodes provider notifications.
type WebhookParser interface {
	SignatureHeader() string
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}
