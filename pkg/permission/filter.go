package permission

import (
	"context"

	"github.com/dmitrymomot/kanbax/pkg/entity"
)

// keep returns the items allowed by pred, in input order.
func keep[T any](ctx context.Context, items []T, pred func(context.Context, T) (bool, error)) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, it := range items {
		ok, err := pred(ctx, it)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// FilterTeams keeps the teams actorID can access.
func (r *Resolver) FilterTeams(ctx context.Context, actorID int64, teams []entity.Team) ([]entity.Team, error) {
	return keep(ctx, teams, func(_ context.Context, t entity.Team) (bool, error) {
		return team(actorID, t), nil
	})
}

// FilterProjects keeps the projects actorID can access.
func (r *Resolver) FilterProjects(ctx context.Context, actorID int64, projects []entity.Project) ([]entity.Project, error) {
	a := r.actor(actorID)
	return keep(ctx, projects, func(ctx context.Context, p entity.Project) (bool, error) {
		return r.project(ctx, a, p)
	})
}

// FilterBoards keeps the boards actorID can access.
func (r *Resolver) FilterBoards(ctx context.Context, actorID int64, boards []entity.Board) ([]entity.Board, error) {
	a := r.actor(actorID)
	return keep(ctx, boards, func(ctx context.Context, b entity.Board) (bool, error) {
		return r.board(ctx, a, b)
	})
}

// FilterObjectives keeps the objectives actorID can access.
func (r *Resolver) FilterObjectives(ctx context.Context, actorID int64, objectives []entity.Objective) ([]entity.Objective, error) {
	a := r.actor(actorID)
	return keep(ctx, objectives, func(ctx context.Context, o entity.Objective) (bool, error) {
		return r.objective(ctx, a, o)
	})
}
