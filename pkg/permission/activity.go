package permission

import (
	"context"

	"github.com/dmitrymomot/kanbax/pkg/audit"
	"github.com/dmitrymomot/kanbax/pkg/logger"
)

// ActivityLimit caps the visible activity feed.
const ActivityLimit = 100

// ActivitySource runs audit queries. *audit.Trail implements it.
type ActivitySource interface {
	Query(ctx context.Context, c audit.Criteria) ([]audit.Entry, error)
}

// ActivityCriteria builds the feed query for actorID: entries of the actor's
// company where the actor is the subject or target, belongs to the affected
// board, project or team, or is assigned the affected task.
//
// This is a coarse OR of memberships, not a per-entry permission check.
func (r *Resolver) ActivityCriteria(ctx context.Context, actorID int64) (audit.Criteria, error) {
	u, err := r.repo.GetUser(ctx, actorID)
	if err != nil {
		return audit.Criteria{}, err
	}
	boards, err := r.repo.BoardIDsForUser(ctx, actorID)
	if err != nil {
		return audit.Criteria{}, err
	}
	projects, err := r.repo.ProjectIDsForUser(ctx, actorID)
	if err != nil {
		return audit.Criteria{}, err
	}
	teams, err := r.repo.TeamIDsForUser(ctx, actorID)
	if err != nil {
		return audit.Criteria{}, err
	}
	tasks, err := r.repo.TaskIDsForAssignee(ctx, actorID)
	if err != nil {
		return audit.Criteria{}, err
	}
	return audit.Criteria{
		CompanyID: u.CompanyID,
		Involving: &audit.Involvement{
			UserID:     actorID,
			BoardIDs:   boards,
			ProjectIDs: projects,
			TeamIDs:    teams,
			TaskIDs:    tasks,
		},
		Limit: ActivityLimit,
	}, nil
}

// VisibleActivity returns the actor's activity feed, newest first.
func (r *Resolver) VisibleActivity(ctx context.Context, src ActivitySource, actorID int64) ([]audit.Entry, error) {
	c, err := r.ActivityCriteria(ctx, actorID)
	if err != nil {
		return nil, err
	}
	entries, err := src.Query(ctx, c)
	if err != nil {
		r.log.ErrorContext(ctx, "activity feed query failed", logger.UserID(actorID), logger.Error(err))
		return nil, err
	}
	return entries, nil
}
