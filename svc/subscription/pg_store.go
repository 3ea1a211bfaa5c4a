package subscription

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/kanbax/pkg/pg"
	"github.com/dmitrymomot/kanbax/pkg/plan"
)

// PGStore implements Store on the subscriptions table. The partial unique
// index subscriptions_one_active_per_user backs the one-active-row rule.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps db. Panics on nil.
func NewPGStore(db *sql.DB) *PGStore {
	if db == nil {
		panic("subscription: nil database")
	}
	return &PGStore{db: db}
}

const selectColumns = `select id, user_id, company_id, tier, billing_cycle, status,
	provider_subscription_id, provider_session_id, started_at, expires_at, cancelled_at,
	created_at, updated_at, version
	from subscriptions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scan(row rowScanner) (Subscription, error) {
	var (
		s                    Subscription
		companyID            sql.NullInt64
		tier, cycle, status  string
		started, exp, cancel sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &companyID, &tier, &cycle, &status,
		&s.ProviderSubscriptionID, &s.ProviderSessionID, &started, &exp, &cancel,
		&s.CreatedAt, &s.UpdatedAt, &s.Version)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Subscription{}, ErrSubscriptionNotFound
		}
		return Subscription{}, err
	}
	if companyID.Valid {
		s.CompanyID = &companyID.Int64
	}
	s.Tier = plan.Tier(tier)
	s.BillingCycle = plan.BillingCycle(cycle)
	s.Status = Status(status)
	s.StartedAt = nullTime(started)
	s.ExpiresAt = nullTime(exp)
	s.CancelledAt = nullTime(cancel)
	return s, nil
}

func (p *PGStore) Get(ctx context.Context, id uuid.UUID) (Subscription, error) {
	return scan(p.db.QueryRowContext(ctx, selectColumns+` where id = $1`, id))
}

func (p *PGStore) GetByProviderID(ctx context.Context, providerSubscriptionID string) (Subscription, error) {
	if providerSubscriptionID == "" {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return scan(p.db.QueryRowContext(ctx,
		selectColumns+` where provider_subscription_id = $1 order by created_at desc limit 1`,
		providerSubscriptionID))
}

func (p *PGStore) Latest(ctx context.Context, userID int64) (Subscription, error) {
	return scan(p.db.QueryRowContext(ctx,
		selectColumns+` where user_id = $1 order by created_at desc limit 1`, userID))
}

func (p *PGStore) ListByUser(ctx context.Context, userID int64) ([]Subscription, error) {
	rows, err := p.db.QueryContext(ctx, selectColumns+` where user_id = $1 order by created_at desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Subscription{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PGStore) Create(ctx context.Context, s Subscription) (Subscription, error) {
	row := p.db.QueryRowContext(ctx, `
		insert into subscriptions (id, user_id, company_id, tier, billing_cycle, status,
			provider_subscription_id, provider_session_id, started_at, expires_at, cancelled_at, version)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		returning created_at, updated_at, version`,
		s.ID, s.UserID, s.CompanyID, string(s.Tier), string(s.BillingCycle), string(s.Status),
		s.ProviderSubscriptionID, s.ProviderSessionID, s.StartedAt, s.ExpiresAt, s.CancelledAt)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt, &s.Version); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Subscription{}, ErrConflict
		}
		return Subscription{}, err
	}
	return s, nil
}

func (p *PGStore) Update(ctx context.Context, s Subscription) (Subscription, error) {
	row := p.db.QueryRowContext(ctx, `
		update subscriptions
		set company_id = $3, tier = $4, billing_cycle = $5, status = $6,
			provider_subscription_id = $7, provider_session_id = $8,
			started_at = $9, expires_at = $10, cancelled_at = $11,
			updated_at = now(), version = version + 1
		where id = $1 and version = $2
		returning created_at, updated_at, version`,
		s.ID, s.Version, s.CompanyID, string(s.Tier), string(s.BillingCycle), string(s.Status),
		s.ProviderSubscriptionID, s.ProviderSessionID, s.StartedAt, s.ExpiresAt, s.CancelledAt)
	err := row.Scan(&s.CreatedAt, &s.UpdatedAt, &s.Version)
	switch {
	case err == nil:
		return s, nil
	case pg.IsDuplicateKeyError(err):
		return Subscription{}, ErrConflict
	case !pg.IsNotFoundError(err):
		return Subscription{}, err
	}

	// No row matched: tell a stale version from a missing row.
	var exists bool
	if err := p.db.QueryRowContext(ctx, `select exists(select 1 from subscriptions where id = $1)`, s.ID).Scan(&exists); err != nil {
		return Subscription{}, err
	}
	if exists {
		return Subscription{}, ErrConflict
	}
	return Subscription{}, ErrSubscriptionNotFound
}

func (p *PGStore) CountActive(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx,
		`select count(*) from subscriptions where user_id = $1 and status = 'active'`, userID).Scan(&n)
	return n, err
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
