package plan

import (
	"context"
	"errors"
)

// Seed inserts plans (DefaultPlans when none are given) if the store holds
// no rows yet. It reports whether anything was inserted; calling it again is
// a no-op.
func Seed(ctx context.Context, store Store, plans ...Plan) (bool, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return false, errors.Join(ErrFailedToSeed, err)
	}
	if n > 0 {
		return false, nil
	}
	if len(plans) == 0 {
		plans = DefaultPlans()
	}
	if err := store.Insert(ctx, plans...); err != nil {
		return false, errors.Join(ErrFailedToSeed, err)
	}
	return true, nil
}
