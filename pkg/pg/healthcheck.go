package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Healthcheck pings the pool and confirms the kanbax schema is in place.
// A database that answers but was never migrated reports ErrSchemaMissing.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrUnavailable, err)
		}
		var migrated bool
		if err := pool.QueryRow(ctx, `select to_regclass('subscriptions') is not null`).Scan(&migrated); err != nil {
			return errors.Join(ErrUnavailable, err)
		}
		if !migrated {
			return ErrSchemaMissing
		}
		return nil
	}
}
