package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("subscription: user not found")
	ErrCompanyNotFound      = errors.New("subscription: company not found")
	ErrPlanNotFound         = errors.New("subscription: plan not found")
	ErrPlanNotAvailable     = errors.New("subscription: plan not available")
	ErrCompanyRequired      = errors.New("subscription: plan requires a company")
	ErrUnauthorized         = errors.New("subscription: unauthorized")
	ErrSubscriptionNotFound = errors.New("subscription: not found")
	ErrInvalidTransition    = errors.New("subscription: invalid status transition")
	ErrUpdateFailed         = errors.New("subscription: update failed")

	// ErrConflict reports a stale compare-and-swap write. Retry after
	// re-reading the row.
	ErrConflict = errors.New("subscription: concurrent update conflict")
)

// NewErrInvalidTransition wraps ErrInvalidTransition with the attempted move.
func NewErrInvalidTransition(from, to Status) error {
	if from == StatusNone {
		from = "none"
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
