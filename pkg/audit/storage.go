package audit

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// DefaultListLimit caps every listing.
const DefaultListLimit = 500

// Storage persists entries. Implementations are insert-only.
type Storage interface {
	Store(ctx context.Context, entries ...Entry) error
	Query(ctx context.Context, c Criteria) ([]Entry, error)
}

// Criteria selects entries for a listing, newest first.
//
// CompanyID scopes the listing: entries of that company, or entries without a
// company when nil. Involving, when set, further keeps only entries that touch
// any of the listed users or resources.
type Criteria struct {
	CompanyID *int64
	Involving *Involvement
	Limit     int
}

// Involvement is an OR over actor/target user and subject ids.
type Involvement struct {
	UserID     int64
	BoardIDs   []int64
	ProjectIDs []int64
	TeamIDs    []int64
	TaskIDs    []int64
}

// EffectiveLimit clamps Limit into (0, DefaultListLimit].
func (c Criteria) EffectiveLimit() int {
	if c.Limit <= 0 || c.Limit > DefaultListLimit {
		return DefaultListLimit
	}
	return c.Limit
}

// Matches reports whether e satisfies c. Storages that cannot push the filter
// down use it directly.
func (c Criteria) Matches(e Entry) bool {
	switch {
	case c.CompanyID == nil && e.CompanyID != nil:
		return false
	case c.CompanyID != nil && (e.CompanyID == nil || *e.CompanyID != *c.CompanyID):
		return false
	}
	if c.Involving == nil {
		return true
	}
	inv := c.Involving
	if eq(e.ActorUserID, inv.UserID) || eq(e.TargetUserID, inv.UserID) {
		return true
	}
	return in(e.Subject.BoardID, inv.BoardIDs) ||
		in(e.Subject.ProjectID, inv.ProjectIDs) ||
		in(e.Subject.TeamID, inv.TeamIDs) ||
		in(e.Subject.TaskID, inv.TaskIDs)
}

func eq(p *int64, v int64) bool { return p != nil && *p == v }

func in(p *int64, ids []int64) bool { return p != nil && slices.Contains(ids, *p) }

// newestFirst orders by creation time then id, both descending.
func newestFirst(a, b Entry) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// MemoryStorage keeps entries in process. Used by tests and single-node setups.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []Entry
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(ctx context.Context, entries ...Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStorage) Query(ctx context.Context, c Criteria) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Entry, 0)
	for _, e := range s.entries {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, newestFirst)
	if limit := c.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored entries.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
