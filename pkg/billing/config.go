package billing

import (
	"log/slog"
	"strings"
	"time"
)

const (
	ProviderNone   = "none"
	ProviderStripe = "stripe"
	ProviderPaddle = "paddle"
)

// Config selects and configures the payment provider.
type Config struct {
	Provider string        `env:"BILLING_PROVIDER" envDefault:"none"`
	Timeout  time.Duration `env:"BILLING_TIMEOUT" envDefault:"10s"`
	Currency string        `env:"BILLING_CURRENCY" envDefault:"eur"`

	SuccessURL string `env:"BILLING_SUCCESS_URL"`
	CancelURL  string `env:"BILLING_CANCEL_URL"`

	CircuitFailures  int           `env:"BILLING_CIRCUIT_FAILURES" envDefault:"5"`
	CircuitSuccesses int           `env:"BILLING_CIRCUIT_SUCCESSES" envDefault:"2"`
	CircuitRecovery  time.Duration `env:"BILLING_CIRCUIT_RECOVERY" envDefault:"30s"`

	Stripe StripeConfig
	Paddle PaddleConfig
}

// New builds the configured provider behind a Guard. The webhook parser is
// nil when the provider has none (ProviderNone).
func New(cfg Config, log *slog.Logger) (*Guard, WebhookParser, error) {
	var (
		p      Provider
		parser WebhookParser
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderNone:
		p = Disabled{}
	case ProviderStripe:
		sp, err := NewStripeProvider(cfg.Stripe)
		if err != nil {
			return nil, nil, err
		}
		p, parser = sp, sp
	case ProviderPaddle:
		pp, err := NewPaddleProvider(cfg.Paddle)
		if err != nil {
			return nil, nil, err
		}
		p, parser = pp, pp
	default:
		return nil, nil, ErrUnknownProvider
	}

	g := NewGuard(p,
		WithTimeout(cfg.Timeout),
		WithCircuitBreaker(NewCircuitBreaker(cfg.CircuitFailures, cfg.CircuitSuccesses, cfg.CircuitRecovery)),
		WithLogger(log),
	)
	return g, parser, nil
}
