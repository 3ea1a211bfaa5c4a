package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/kanbax/pkg/plan"
)

// Status is the lifecycle state of a subscription row.
type Status string

const (
	StatusNone      Status = ""
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
)

// Subscription is the normalized record of a user's plan. The tier fields on
// users and company payment records are denormalized copies of the active row.
type Subscription struct {
	ID                     uuid.UUID
	UserID                 int64
	CompanyID              *int64
	Tier                   plan.Tier
	BillingCycle           plan.BillingCycle
	Status                 Status
	ProviderSubscriptionID string
	ProviderSessionID      string
	StartedAt              *time.Time
	ExpiresAt              *time.Time
	CancelledAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
	Version                int64 // bumped on every write, used for compare-and-swap
}

func (s Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s Subscription) IsPending() bool {
	return s.Status == StatusPending
}

// IsExpiredAt reports whether an active row has passed its expiry at now.
func (s Subscription) IsExpiredAt(now time.Time) bool {
	return s.IsActive() && s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// transitions lists the legal moves: [from][to]. Cancelled and expired rows
// are terminal; only the direct update path revives them in place.
var transitions = map[Status]map[Status]bool{
	StatusNone:    {StatusPending: true, StatusActive: true},
	StatusPending: {StatusActive: true, StatusFailed: true, StatusCancelled: true},
	StatusActive:  {StatusPending: true, StatusCancelled: true, StatusExpired: true},
}

// CanTransition reports whether a row may move from one status to another.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// transition moves s to status or returns ErrInvalidTransition.
func (s *Subscription) transition(to Status) error {
	if !CanTransition(s.Status, to) {
		return NewErrInvalidTransition(s.Status, to)
	}
	s.Status = to
	return nil
}
