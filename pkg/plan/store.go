package plan

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Store persists catalog entries.
type Store interface {
	Count(ctx context.Context) (int64, error)
	Insert(ctx context.Context, plans ...Plan) error
	Get(ctx context.Context, name Tier) (Plan, error)
	List(ctx context.Context) ([]Plan, error)
}

// MemoryStore keeps plans in a map. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	seq   int64
	plans map[Tier]Plan
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store pre-populated with plans.
func NewMemoryStore(plans ...Plan) *MemoryStore {
	s := &MemoryStore{plans: make(map[Tier]Plan, len(plans))}
	for _, p := range plans {
		s.seq++
		p.ID = s.seq
		s.plans[p.Name] = p
	}
	return s
}

func (s *MemoryStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.plans)), nil
}

// Insert adds plans atomically; nothing is stored if any name already exists.
func (s *MemoryStore) Insert(_ context.Context, plans ...Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range plans {
		if _, ok := s.plans[p.Name]; ok {
			return ErrDuplicatePlan
		}
	}
	for _, p := range plans {
		s.seq++
		p.ID = s.seq
		s.plans[p.Name] = p
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, name Tier) (Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[name]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

func (s *MemoryStore) List(context.Context) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sortPlans(out)
	return out, nil
}

func sortPlans(plans []Plan) {
	slices.SortFunc(plans, func(a, b Plan) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
