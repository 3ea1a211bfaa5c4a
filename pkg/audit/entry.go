package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action names what happened. Each action has exactly one Details type.
type Action string

const (
	ActionTierChanged           Action = "subscription.tier_changed"
	ActionSubscriptionCancelled Action = "subscription.cancelled"
	ActionSubscriptionExpired   Action = "subscription.expired"
	ActionSubscriptionActivated Action = "subscription.activated"
	ActionSubscriptionFailed    Action = "subscription.failed"
	ActionResourceCreated       Action = "resource.created"
	ActionMemberAdded           Action = "member.added"
	ActionMemberRemoved         Action = "member.removed"
)

// Subject points at the resources an entry concerns. Unset ids are nil.
type Subject struct {
	BoardID   *int64 `json:"boardId,omitempty"`
	ProjectID *int64 `json:"projectId,omitempty"`
	TeamID    *int64 `json:"teamId,omitempty"`
	TaskID    *int64 `json:"taskId,omitempty"`
}

// Entry is one immutable audit record.
// ActorUserID is nil for system-initiated changes (expiry, provider callbacks).
type Entry struct {
	ID           string
	ActorUserID  *int64
	TargetUserID *int64
	CompanyID    *int64
	Action       Action
	Subject      Subject
	Details      Details
	CreatedAt    time.Time
}

// Details is the closed set of payloads an entry can carry.
type Details interface {
	Action() Action
	sealed()
}

// TierChanged records a user's or company's plan moving between tiers.
// Path tells which write path applied it (checkout, direct, fallback, admin).
type TierChanged struct {
	OldTier      string `json:"oldTier"`
	NewTier      string `json:"newTier"`
	BillingCycle string `json:"billingCycle"`
	Path         string `json:"path"`
}

type SubscriptionCancelled struct {
	SubscriptionID         string `json:"subscriptionId"`
	ProviderSubscriptionID string `json:"providerSubscriptionId,omitempty"`
	ProviderError          string `json:"providerError,omitempty"`
}

type SubscriptionExpired struct {
	SubscriptionID string `json:"subscriptionId,omitempty"`
	Tier           string `json:"tier"`
}

type SubscriptionActivated struct {
	SubscriptionID         string `json:"subscriptionId"`
	ProviderSubscriptionID string `json:"providerSubscriptionId,omitempty"`
}

type SubscriptionFailed struct {
	SubscriptionID string `json:"subscriptionId"`
	Reason         string `json:"reason"`
}

type ResourceCreated struct {
	Kind       string `json:"kind"`
	ResourceID int64  `json:"resourceId"`
	Title      string `json:"title,omitempty"`
}

type MemberAdded struct {
	Kind       string `json:"kind"`
	ResourceID int64  `json:"resourceId"`
	UserID     int64  `json:"userId"`
}

type MemberRemoved struct {
	Kind       string `json:"kind"`
	ResourceID int64  `json:"resourceId"`
	UserID     int64  `json:"userId"`
}

func (TierChanged) Action() Action           { return ActionTierChanged }
func (SubscriptionCancelled) Action() Action { return ActionSubscriptionCancelled }
func (SubscriptionExpired) Action() Action   { return ActionSubscriptionExpired }
func (SubscriptionActivated) Action() Action { return ActionSubscriptionActivated }
func (SubscriptionFailed) Action() Action    { return ActionSubscriptionFailed }
func (ResourceCreated) Action() Action       { return ActionResourceCreated }
func (MemberAdded) Action() Action           { return ActionMemberAdded }
func (MemberRemoved) Action() Action         { return ActionMemberRemoved }

func (TierChanged) sealed()           {}
func (SubscriptionCancelled) sealed() {}
func (SubscriptionExpired) sealed()   {}
func (SubscriptionActivated) sealed() {}
func (SubscriptionFailed) sealed()    {}
func (ResourceCreated) sealed()       {}
func (MemberAdded) sealed()           {}
func (MemberRemoved) sealed()         {}

// DecodeDetails turns a stored payload back into the Details type for action.
func DecodeDetails(action Action, raw []byte) (Details, error) {
	var d Details
	switch action {
	case ActionTierChanged:
		d = decodeAs[TierChanged](raw)
	case ActionSubscriptionCancelled:
		d = decodeAs[SubscriptionCancelled](raw)
	case ActionSubscriptionExpired:
		d = decodeAs[SubscriptionExpired](raw)
	case ActionSubscriptionActivated:
		d = decodeAs[SubscriptionActivated](raw)
	case ActionSubscriptionFailed:
		d = decodeAs[SubscriptionFailed](raw)
	case ActionResourceCreated:
		d = decodeAs[ResourceCreated](raw)
	case ActionMemberAdded:
		d = decodeAs[MemberAdded](raw)
	case ActionMemberRemoved:
		d = decodeAs[MemberRemoved](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDetails, action)
	}
	return d, nil
}

func decodeAs[T Details](raw []byte) Details {
	var v T
	if len(raw) == 0 {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func encodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

type entryJSON struct {
	ID           string          `json:"id"`
	ActorUserID  *int64          `json:"actorUserId,omitempty"`
	TargetUserID *int64          `json:"targetUserId,omitempty"`
	CompanyID    *int64          `json:"companyId,omitempty"`
	Action       Action          `json:"action"`
	Subject      Subject         `json:"subject"`
	Details      json.RawMessage `json:"details"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// MarshalJSON encodes the entry with its details under an action-tagged envelope.
func (e Entry) MarshalJSON() ([]byte, error) {
	raw, err := encodeDetails(e.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entryJSON{
		ID:           e.ID,
		ActorUserID:  e.ActorUserID,
		TargetUserID: e.TargetUserID,
		CompanyID:    e.CompanyID,
		Action:       e.Action,
		Subject:      e.Subject,
		Details:      raw,
		CreatedAt:    e.CreatedAt,
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var v entryJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	details, err := DecodeDetails(v.Action, v.Details)
	if err != nil {
		return err
	}
	*e = Entry{
		ID:           v.ID,
		ActorUserID:  v.ActorUserID,
		TargetUserID: v.TargetUserID,
		CompanyID:    v.CompanyID,
		Action:       v.Action,
		Subject:      v.Subject,
		Details:      details,
		CreatedAt:    v.CreatedAt,
	}
	return nil
}

// Validate reports whether the entry can be stored.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	}
	if e.Details == nil {
		return fmt.Errorf("%w: missing details", ErrInvalidEntry)
	}
	if e.Action != e.Details.Action() {
		return fmt.Errorf("%w: action %q does not match details %T", ErrInvalidEntry, e.Action, e.Details)
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEntry)
	}
	return nil
}
