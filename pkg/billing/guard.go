package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/kanbax/pkg/logger"
	"github.com/dmitrymomot/kanbax/pkg/metrics"
)

// DefaultTimeout bounds every guarded provider call.
const DefaultTimeout = 10 * time.Second

// Guard wraps a Provider with a deadline and a circuit breaker. Any failure,
// including a timeout or an open circuit, is returned wrapped in
// ErrProviderUnavailable so callers need a single check.
type Guard struct {
	next    Provider
	timeout time.Duration
	breaker *CircuitBreaker
	log     *slog.Logger
}

var _ Provider = (*Guard)(nil)

type GuardOption func(*Guard)

func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) GuardOption {
	return func(g *Guard) {
		if cb != nil {
			g.breaker = cb
		}
	}
}

func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGuard panics on a nil provider.
func NewGuard(next Provider, opts ...GuardOption) *Guard {
	if next == nil {
		panic("billing: provider cannot be nil")
	}
	g := &Guard{
		next:    next,
		timeout: DefaultTimeout,
		breaker: NewCircuitBreaker(0, 0, 0),
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Name() string { return g.next.Name() }

// Breaker exposes the breaker for health reporting.
func (g *Guard) Breaker() *CircuitBreaker { return g.breaker }

func (g *Guard) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var session *CheckoutSession
	err := g.call(ctx, "checkout", func(ctx context.Context) error {
		s, err := g.next.CreateCheckoutSession(ctx, req)
		if err != nil {
			return err
		}
		if s == nil || s.URL == "" {
			return ErrNoCheckoutURL
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (g *Guard) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	return g.call(ctx, "cancel", func(ctx context.Context) error {
		return g.next.CancelSubscription(ctx, providerSubscriptionID)
	})
}

type callResult struct{ err error }

// call runs fn under the deadline. A provider that ignores ctx is abandoned
// when the deadline passes; its goroutine finishes in the background.
func (g *Guard) call(ctx context.Context, op string, fn func(context.Context) error) error {
	name := g.next.Name()
	if !g.breaker.Allow() {
		metrics.ProviderCalls.WithLabelValues(name, op, "rejected").Inc()
		return errors.Join(ErrProviderUnavailable, ErrCircuitOpen)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan callResult, 1)
	go func() { done <- callResult{err: fn(ctx)} }()

	var err error
	select {
	case res := <-done:
		err = res.err
	case <-ctx.Done():
		err = ErrTimeout
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = errors.Join(ErrTimeout, err)
	}

	switch {
	case err == nil:
		g.breaker.RecordSuccess()
		metrics.ProviderCalls.WithLabelValues(name, op, "success").Inc()
		return nil
	case errors.Is(err, ErrNotConfigured):
		metrics.ProviderCalls.WithLabelValues(name, op, "disabled").Inc()
	case errors.Is(err, ErrTimeout):
		g.breaker.RecordFailure()
		metrics.ProviderCalls.WithLabelValues(name, op, "timeout").Inc()
	default:
		g.breaker.RecordFailure()
		metrics.ProviderCalls.WithLabelValues(name, op, "error").Inc()
	}

	g.log.WarnContext(ctx, "billing provider call failed",
		logger.Provider(name),
		logger.Action(op),
		logger.Duration(time.Since(start)),
		slog.String("circuit", g.breaker.State().String()),
		logger.Error(err),
	)
	return errors.Join(ErrProviderUnavailable, err)
}
