package entitlement

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/kanbax/pkg/entity"
	"github.com/dmitrymomot/kanbax/pkg/plan"
)

// CounterFunc returns the current usage of a resource within a scope.
type CounterFunc func(ctx context.Context, scope Scope) (int64, error)

// CounterRegistry maps a resource to its CounterFunc.
// Not thread-safe: register all counters at startup only.
type CounterRegistry map[plan.Resource]CounterFunc

// NewRegistry returns an empty CounterRegistry.
func NewRegistry() CounterRegistry {
	return make(CounterRegistry)
}

// Register sets or replaces the counter for res. Panics if fn is nil.
func (r CounterRegistry) Register(res plan.Resource, fn CounterFunc) {
	if fn == nil {
		panic(fmt.Sprintf("entitlement: CounterFunc for resource %q cannot be nil", res))
	}
	r[res] = fn
}

// DefaultCounters counts through the repository.
//
// Company scope counts rows created by any member of the company. Personal
// scope counts rows created by the user. Tasks carry no creator, so they are
// counted by assignment in both scopes. Archived projects, boards and tasks
// are not counted.
func DefaultCounters(repo Repository) CounterRegistry {
	r := NewRegistry()
	r.Register(plan.ResourceProjects, createdBy(repo, entity.KindProject, true))
	r.Register(plan.ResourceBoards, createdBy(repo, entity.KindBoard, true))
	r.Register(plan.ResourceTeams, createdBy(repo, entity.KindTeam, false))
	r.Register(plan.ResourceOKRs, createdBy(repo, entity.KindObjective, false))
	r.Register(plan.ResourceTasks, func(ctx context.Context, s Scope) (int64, error) {
		ids, err := scopeUserIDs(ctx, repo, s)
		if err != nil {
			return 0, err
		}
		return repo.Count(ctx, entity.CountQuery{Kind: entity.KindTask, AssigneeIDs: ids, ExcludeArchived: true})
	})
	// Users counts occupied seats. A personal account holds its own seat, so
	// at a cap of 1 it has no room to add anyone.
	r.Register(plan.ResourceUsers, func(ctx context.Context, s Scope) (int64, error) {
		if s.Kind == ScopePersonal {
			return 1, nil
		}
		return repo.Count(ctx, entity.CountQuery{Kind: entity.KindUser, CompanyID: entity.Ptr(s.ID)})
	})
	return r
}

func createdBy(repo Repository, kind entity.Kind, excludeArchived bool) CounterFunc {
	return func(ctx context.Context, s Scope) (int64, error) {
		ids, err := scopeUserIDs(ctx, repo, s)
		if err != nil {
			return 0, err
		}
		return repo.Count(ctx, entity.CountQuery{Kind: kind, CreatorIDs: ids, ExcludeArchived: excludeArchived})
	}
}

func scopeUserIDs(ctx context.Context, repo Repository, s Scope) ([]int64, error) {
	switch s.Kind {
	case ScopePersonal:
		return []int64{s.ID}, nil
	case ScopeCompany:
		return repo.CompanyUserIDs(ctx, s.ID)
	}
	return nil, ErrInvalidScope
}
