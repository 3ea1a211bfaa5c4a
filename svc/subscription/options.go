package subscription

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxRetries bounds compare-and-swap retries per write.
const DefaultMaxRetries = 3

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides uuid.New for new subscription rows.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithCheckoutURLs sets where the provider sends the customer afterwards.
func WithCheckoutURLs(success, cancel string) Option {
	return func(m *Manager) {
		m.successURL = success
		m.cancelURL = cancel
	}
}

// WithCurrency sets the currency used when a plan does not name one.
func WithCurrency(currency string) Option {
	return func(m *Manager) {
		if currency != "" {
			m.currency = currency
		}
	}
}

// WithMaxRetries sets how often a conflicting write is retried.
func WithMaxRetries(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxRetries = n
		}
	}
}
