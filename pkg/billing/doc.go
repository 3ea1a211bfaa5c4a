// Package billing talks to payment processors.
//
// Provider is the narrow contract kanbax needs: start a hosted checkout for a
// recurring price, cancel a subscription, and name itself. StripeProvider and
// PaddleProvider implement it; Disabled stands in when nothing is configured.
//
// Callers should go through a Guard. It bounds each call with a deadline
// (DefaultTimeout) and a CircuitBreaker, and reports every failure as
// ErrProviderUnavailable:
//
//	guard, parser, err := billing.New(cfg, log)
//	session, err := guard.CreateCheckoutSession(ctx, req)
//	if errors.Is(err, billing.ErrProviderUnavailable) {
//		// take the fallback path
//	}
//
// Checkout metadata must carry the kanbax subscription id under
// MetadataSubscriptionID. Providers echo it back in webhooks, which
// WebhookParser verifies and maps to a provider-neutral WebhookEvent.
package billing
