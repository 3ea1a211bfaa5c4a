package billing

import "errors"

var (
	ErrNotConfigured         = errors.New("billing: provider not configured")
	ErrUnknownProvider       = errors.New("billing: unknown provider")
	ErrProviderUnavailable   = errors.New("billing: provider unavailable")
	ErrCircuitOpen           = errors.New("billing: circuit open")
	ErrTimeout               = errors.New("billing: provider call timed out")
	ErrMissingSubscriptionID = errors.New("billing: checkout metadata lacks subscription id")
	ErrInvalidPrice          = errors.New("billing: invalid price")
	ErrMissingPriceID        = errors.New("billing: provider price id required")
	ErrNoCheckoutURL         = errors.New("billing: provider returned no checkout url")
	ErrInvalidSignature      = errors.New("billing: invalid webhook signature")
	ErrInvalidPayload        = errors.New("billing: invalid webhook payload")
	ErrMissingCredentials    = errors.New("billing: missing provider credentials")
)
