package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dmitrymomot/kanbax/pkg/logger"
	"github.com/dmitrymomot/kanbax/pkg/metrics"
)

// Trail is the write and read entry point for audit entries.
type Trail struct {
	storage      Storage
	log          *slog.Logger
	now          func() time.Time
	newID        func() string
	storeTimeout time.Duration
}

// Option configures a Trail.
type Option func(*Trail)

func WithLogger(l *slog.Logger) Option {
	return func(t *Trail) {
		if l != nil {
			t.log = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Trail) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator overrides ULID generation.
func WithIDGenerator(fn func() string) Option {
	return func(t *Trail) {
		if fn != nil {
			t.newID = fn
		}
	}
}

// WithStoreTimeout bounds a single Append write. Defaults to 5s.
func WithStoreTimeout(d time.Duration) Option {
	return func(t *Trail) {
		if d > 0 {
			t.storeTimeout = d
		}
	}
}

// NewTrail panics on nil storage.
func NewTrail(storage Storage, opts ...Option) *Trail {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	t := &Trail{
		storage:      storage,
		log:          logger.Discard(),
		now:          time.Now,
		newID:        func() string { return ulid.Make().String() },
		storeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append records e. It never fails the caller: a failed write is logged and
// counted. Missing id, action and timestamp are filled in. The write outlives
// cancellation of ctx so a finished request still leaves its trace.
func (t *Trail) Append(ctx context.Context, e Entry) {
	if e.ID == "" {
		e.ID = t.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now().UTC()
	}
	if e.Action == "" && e.Details != nil {
		e.Action = e.Details.Action()
	}

	if err := e.Validate(); err != nil {
		t.fail(ctx, e, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.storeTimeout)
	defer cancel()
	if err := t.storage.Store(ctx, e); err != nil {
		t.fail(ctx, e, errors.Join(ErrStoreFailed, err))
	}
}

func (t *Trail) fail(ctx context.Context, e Entry, err error) {
	metrics.AuditAppendFailures.Inc()
	t.log.ErrorContext(ctx, "audit append failed",
		logger.Component("audit"),
		logger.Action(string(e.Action)),
		logger.CompanyID(e.CompanyID),
		logger.Error(err),
	)
}

// ListForCompany returns the company's entries newest first, at most
// DefaultListLimit of them.
func (t *Trail) ListForCompany(ctx context.Context, companyID int64) ([]Entry, error) {
	return t.Query(ctx, Criteria{CompanyID: &companyID})
}

// Query returns entries selected by c, newest first.
func (t *Trail) Query(ctx context.Context, c Criteria) ([]Entry, error) {
	c.Limit = c.EffectiveLimit()
	entries, err := t.storage.Query(ctx, c)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return entries, nil
}
