package subscription

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists subscription rows. At most one row per user may be active.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Subscription, error)
	// GetByProviderID finds the row linked to a provider subscription.
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (Subscription, error)
	// Latest returns the user's most recently created row.
	Latest(ctx context.Context, userID int64) (Subscription, error)
	// ListByUser returns the user's rows, newest first.
	ListByUser(ctx context.Context, userID int64) ([]Subscription, error)
	// Create inserts s with Version 1.
	Create(ctx context.Context, s Subscription) (Subscription, error)
	// Update writes s if the stored Version still equals s.Version and
	// returns the row with the bumped version. A stale write fails with
	// ErrConflict.
	Update(ctx context.Context, s Subscription) (Subscription, error)
	CountActive(ctx context.Context, userID int64) (int64, error)
}

// MemoryStore is an in-process Store for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	now   func() time.Time
	seq   int64
	rows  map[uuid.UUID]Subscription
	order map[uuid.UUID]int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:   time.Now,
		rows:  make(map[uuid.UUID]Subscription),
		order: make(map[uuid.UUID]int64),
	}
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rows[id]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return s, nil
}

func (m *MemoryStore) GetByProviderID(_ context.Context, providerSubscriptionID string) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if providerSubscriptionID == "" {
		return Subscription{}, ErrSubscriptionNotFound
	}
	for _, s := range m.rows {
		if s.ProviderSubscriptionID == providerSubscriptionID {
			return s, nil
		}
	}
	return Subscription{}, ErrSubscriptionNotFound
}

func (m *MemoryStore) Latest(ctx context.Context, userID int64) (Subscription, error) {
	rows, _ := m.ListByUser(ctx, userID)
	if len(rows) == 0 {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return rows[0], nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID int64) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Subscription{}
	for _, s := range m.rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b Subscription) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(m.order[b.ID], m.order[a.ID])
	})
	return out, nil
}

func (m *MemoryStore) Create(_ context.Context, s Subscription) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; ok {
		return Subscription{}, ErrConflict
	}
	if s.IsActive() && m.activeOtherThan(s.UserID, s.ID) {
		return Subscription{}, ErrConflict
	}
	now := m.now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	s.Version = 1
	m.seq++
	m.order[s.ID] = m.seq
	m.rows[s.ID] = s
	return s, nil
}

func (m *MemoryStore) Update(_ context.Context, s Subscription) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[s.ID]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	if cur.Version != s.Version {
		return Subscription{}, ErrConflict
	}
	if s.IsActive() && m.activeOtherThan(s.UserID, s.ID) {
		return Subscription{}, ErrConflict
	}
	s.CreatedAt = cur.CreatedAt
	s.UpdatedAt = m.now().UTC()
	s.Version++
	m.rows[s.ID] = s
	return s, nil
}

func (m *MemoryStore) CountActive(_ context.Context, userID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, s := range m.rows {
		if s.UserID == userID && s.IsActive() {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) activeOtherThan(userID int64, id uuid.UUID) bool {
	for _, s := range m.rows {
		if s.UserID == userID && s.ID != id && s.IsActive() {
			return true
		}
	}
	return false
}
