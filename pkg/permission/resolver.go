package permission

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/kanbax/pkg/entity"
	"github.com/dmitrymomot/kanbax/pkg/logger"
)

// Repository is the read surface the resolver needs.
type Repository interface {
	entity.UserReader
	entity.CompanyReader
	entity.ResourceReader
}

// Resolver decides whether a user may see or touch a resource.
//
// Every CanAccess* method returns false for a missing resource or actor.
// Only repository faults are returned as errors, unchanged.
type Resolver struct {
	repo Repository
	log  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver returns a Resolver over repo. Panics if repo is nil.
func NewResolver(repo Repository, opts ...Option) *Resolver {
	if repo == nil {
		panic("permission: repository cannot be nil")
	}
	r := &Resolver{repo: repo, log: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// actor loads the acting user once per check.
type actor struct {
	id   int64
	repo Repository

	user        *entity.User
	userLoaded  bool
	teams       []int64
	teamsLoaded bool
}

func (r *Resolver) actor(id int64) *actor {
	return &actor{id: id, repo: r.repo}
}

func (a *actor) load(ctx context.Context) (*entity.User, error) {
	if a.userLoaded {
		return a.user, nil
	}
	u, err := a.repo.GetUser(ctx, a.id)
	switch {
	case errors.Is(err, entity.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		a.user = &u
	}
	a.userLoaded = true
	return a.user, nil
}

// outside reports whether the actor fails the tenant gate for a resource
// owned by companyID.
func (a *actor) outside(ctx context.Context, companyID *int64) (bool, error) {
	if companyID == nil {
		return false, nil
	}
	u, err := a.load(ctx)
	if err != nil {
		return false, err
	}
	return u == nil || !u.InCompany(*companyID), nil
}

func (a *actor) inAnyTeam(ctx context.Context, teamIDs []int64) (bool, error) {
	if len(teamIDs) == 0 {
		return false, nil
	}
	if !a.teamsLoaded {
		ids, err := a.repo.TeamIDsForUser(ctx, a.id)
		if err != nil {
			return false, err
		}
		a.teams, a.teamsLoaded = ids, true
	}
	return slices.ContainsFunc(teamIDs, func(id int64) bool { return slices.Contains(a.teams, id) }), nil
}

// missing turns a not-found lookup into a plain denial.
func missing(err error) (bool, error) {
	if errors.Is(err, entity.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// CanAccessCompany reports whether actorID belongs to companyID.
func (r *Resolver) CanAccessCompany(ctx context.Context, actorID, companyID int64) (bool, error) {
	if _, err := r.repo.GetCompany(ctx, companyID); err != nil {
		return missing(err)
	}
	u, err := r.actor(actorID).load(ctx)
	if err != nil || u == nil {
		return false, err
	}
	return u.InCompany(companyID), nil
}

// CanAccessUser reports whether actorID may see targetID: themselves, or a
// user of the same company.
func (r *Resolver) CanAccessUser(ctx context.Context, actorID, targetID int64) (bool, error) {
	if actorID == targetID {
		return true, nil
	}
	a, err := r.repo.GetUser(ctx, actorID)
	if err != nil {
		return missing(err)
	}
	t, err := r.repo.GetUser(ctx, targetID)
	if err != nil {
		return missing(err)
	}
	return entity.SameCompany(a.CompanyID, t.CompanyID), nil
}

func (r *Resolver) CanAccessTeam(ctx context.Context, actorID, teamID int64) (bool, error) {
	t, err := r.repo.GetTeam(ctx, teamID)
	if err != nil {
		return missing(err)
	}
	return team(actorID, t), nil
}

// team has no membership table, parent or team list, so only the creator
// and listed members get through.
func team(actorID int64, t entity.Team) bool {
	return t.CreatorID == actorID || slices.Contains(t.MemberIDs, actorID)
}

func (r *Resolver) CanAccessProject(ctx context.Context, actorID, projectID int64) (bool, error) {
	p, err := r.repo.GetProject(ctx, projectID)
	if err != nil {
		return missing(err)
	}
	return r.project(ctx, r.actor(actorID), p)
}

func (r *Resolver) project(ctx context.Context, a *actor, p entity.Project) (bool, error) {
	if p.CreatorID == a.id || slices.Contains(p.AssignedUserIDs, a.id) {
		return true, nil
	}
	if out, err := a.outside(ctx, p.CompanyID); out || err != nil {
		return false, err
	}
	return a.inAnyTeam(ctx, p.TeamIDs)
}

func (r *Resolver) CanAccessBoard(ctx context.Context, actorID, boardID int64) (bool, error) {
	b, err := r.repo.GetBoard(ctx, boardID)
	if err != nil {
		return missing(err)
	}
	return r.board(ctx, r.actor(actorID), b)
}

func (r *Resolver) board(ctx context.Context, a *actor, b entity.Board) (bool, error) {
	if b.CreatorID == a.id || slices.Contains(b.AssignedUserIDs, a.id) {
		return true, nil
	}
	member, err := r.repo.IsBoardMember(ctx, b.ID, a.id)
	if member || err != nil {
		return member, err
	}
	if out, err := a.outside(ctx, b.CompanyID); out || err != nil {
		return false, err
	}
	if b.ProjectID != nil {
		ok, err := r.parentProject(ctx, a, *b.ProjectID)
		if ok || err != nil {
			return ok, err
		}
	}
	return a.inAnyTeam(ctx, b.TeamIDs)
}

func (r *Resolver) CanAccessObjective(ctx context.Context, actorID, objectiveID int64) (bool, error) {
	o, err := r.repo.GetObjective(ctx, objectiveID)
	if err != nil {
		return missing(err)
	}
	return r.objective(ctx, r.actor(actorID), o)
}

func (r *Resolver) objective(ctx context.Context, a *actor, o entity.Objective) (bool, error) {
	if o.CreatorID == a.id || slices.Contains(o.AssignedUserIDs, a.id) {
		return true, nil
	}
	member, err := r.repo.IsObjectiveMember(ctx, o.ID, a.id)
	if member || err != nil {
		return member, err
	}
	if out, err := a.outside(ctx, o.CompanyID); out || err != nil {
		return false, err
	}
	if o.ProjectID != nil {
		ok, err := r.parentProject(ctx, a, *o.ProjectID)
		if ok || err != nil {
			return ok, err
		}
	}
	if o.TeamID != nil {
		t, err := r.repo.GetTeam(ctx, *o.TeamID)
		switch {
		case errors.Is(err, entity.ErrNotFound):
		case err != nil:
			return false, err
		default:
			if team(a.id, t) {
				return true, nil
			}
		}
	}
	return a.inAnyTeam(ctx, o.TeamIDs)
}

// CanAccessTask grants assignees, then anyone who can access the task's
// board or, lacking a board, its project.
func (r *Resolver) CanAccessTask(ctx context.Context, actorID, taskID int64) (bool, error) {
	t, err := r.repo.GetTask(ctx, taskID)
	if err != nil {
		return missing(err)
	}
	a := r.actor(actorID)
	if slices.Contains(t.AssignedUserIDs, a.id) {
		return true, nil
	}
	if out, err := a.outside(ctx, t.CompanyID); out || err != nil {
		return false, err
	}
	switch {
	case t.BoardID != nil:
		b, err := r.repo.GetBoard(ctx, *t.BoardID)
		if err != nil {
			return missing(err)
		}
		return r.board(ctx, a, b)
	case t.ProjectID != nil:
		return r.parentProject(ctx, a, *t.ProjectID)
	}
	return false, nil
}

func (r *Resolver) parentProject(ctx context.Context, a *actor, projectID int64) (bool, error) {
	p, err := r.repo.GetProject(ctx, projectID)
	if err != nil {
		return missing(err)
	}
	return r.project(ctx, a, p)
}
