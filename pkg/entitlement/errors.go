package entitlement

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/kanbax/pkg/plan"
)

var (
	ErrLimitExceeded       = errors.New("entitlement: limit exceeded")
	ErrNoCounterRegistered = errors.New("entitlement: no counter registered")
	ErrInvalidScope        = errors.New("entitlement: invalid scope")
)

// LimitError is the structured denial returned by Check. It carries what a
// caller needs to render an upgrade prompt.
type LimitError struct {
	Resource      plan.Resource `json:"resource"`
	CurrentCount  int64         `json:"currentCount"`
	MaxCount      int64         `json:"maxCount"`
	CurrentPlan   plan.Tier     `json:"currentPlan"`
	SuggestedTier plan.Tier     `json:"suggestedTier,omitempty"`
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("entitlement: %s limit reached (%d/%d on %s plan)", e.Resource, e.CurrentCount, e.MaxCount, e.CurrentPlan)
}

// Is makes errors.Is(err, ErrLimitExceeded) hold for every LimitError.
func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}
