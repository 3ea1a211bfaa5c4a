package entity

import (
	"context"

	"github.com/dmitrymomot/kanbax/pkg/audit"
)

// Recorder receives audit entries. *audit.Trail implements it.
type Recorder interface {
	Append(ctx context.Context, e audit.Entry)
}

type actorKey struct{}

// WithActor attaches the acting user to ctx. AuditedStore records it as the
// actor of the entries it writes.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the user set by WithActor.
func ActorFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorKey{}).(int64)
	return id, ok && id > 0
}

// AuditedStore records resource creation and membership changes on the
// audit trail once the wrapped repository has stored them. Reads pass
// straight through.
type AuditedStore struct {
	Repository
	trail Recorder
}

// NewAuditedStore panics if repo or trail is nil.
func NewAuditedStore(repo Repository, trail Recorder) *AuditedStore {
	if repo == nil {
		panic("entity: repository cannot be nil")
	}
	if trail == nil {
		panic("entity: audit recorder cannot be nil")
	}
	return &AuditedStore{Repository: repo, trail: trail}
}

func (s *AuditedStore) CreateTeam(ctx context.Context, t Team) (Team, error) {
	t, err := s.Repository.CreateTeam(ctx, t)
	if err != nil {
		return Team{}, err
	}
	s.created(ctx, t.CreatorID, t.CompanyID, audit.Subject{TeamID: Ptr(t.ID)}, KindTeam, t.ID, t.Name)
	return t, nil
}

func (s *AuditedStore) CreateProject(ctx context.Context, p Project) (Project, error) {
	p, err := s.Repository.CreateProject(ctx, p)
	if err != nil {
		return Project{}, err
	}
	s.created(ctx, p.CreatorID, p.CompanyID, audit.Subject{ProjectID: Ptr(p.ID)}, KindProject, p.ID, p.Title)
	return p, nil
}

func (s *AuditedStore) CreateBoard(ctx context.Context, b Board) (Board, error) {
	b, err := s.Repository.CreateBoard(ctx, b)
	if err != nil {
		return Board{}, err
	}
	s.created(ctx, b.CreatorID, b.CompanyID,
		audit.Subject{BoardID: Ptr(b.ID), ProjectID: clonePtr(b.ProjectID)}, KindBoard, b.ID, b.Title)
	return b, nil
}

func (s *AuditedStore) CreateObjective(ctx context.Context, o Objective) (Objective, error) {
	o, err := s.Repository.CreateObjective(ctx, o)
	if err != nil {
		return Objective{}, err
	}
	s.created(ctx, o.CreatorID, o.CompanyID,
		audit.Subject{ProjectID: clonePtr(o.ProjectID), TeamID: clonePtr(o.TeamID)}, KindObjective, o.ID, o.Title)
	return o, nil
}

// CreateTask records the context actor, since tasks carry no creator.
func (s *AuditedStore) CreateTask(ctx context.Context, t Task) (Task, error) {
	t, err := s.Repository.CreateTask(ctx, t)
	if err != nil {
		return Task{}, err
	}
	s.created(ctx, 0, t.CompanyID,
		audit.Subject{TaskID: Ptr(t.ID), BoardID: clonePtr(t.BoardID), ProjectID: clonePtr(t.ProjectID)}, KindTask, t.ID, t.Title)
	return t, nil
}

func (s *AuditedStore) AddBoardMember(ctx context.Context, m Member) error {
	if err := s.Repository.AddBoardMember(ctx, m); err != nil {
		return err
	}
	companyID, subject := s.boardRef(ctx, m.ResourceID)
	s.record(ctx, 0, &m.UserID, companyID, subject,
		audit.MemberAdded{Kind: string(KindBoard), ResourceID: m.ResourceID, UserID: m.UserID})
	return nil
}

func (s *AuditedStore) RemoveBoardMember(ctx context.Context, boardID, userID int64) error {
	if err := s.Repository.RemoveBoardMember(ctx, boardID, userID); err != nil {
		return err
	}
	companyID, subject := s.boardRef(ctx, boardID)
	s.record(ctx, 0, &userID, companyID, subject,
		audit.MemberRemoved{Kind: string(KindBoard), ResourceID: boardID, UserID: userID})
	return nil
}

func (s *AuditedStore) AddObjectiveMember(ctx context.Context, m Member) error {
	if err := s.Repository.AddObjectiveMember(ctx, m); err != nil {
		return err
	}
	companyID, subject := s.objectiveRef(ctx, m.ResourceID)
	s.record(ctx, 0, &m.UserID, companyID, subject,
		audit.MemberAdded{Kind: string(KindObjective), ResourceID: m.ResourceID, UserID: m.UserID})
	return nil
}

func (s *AuditedStore) RemoveObjectiveMember(ctx context.Context, objectiveID, userID int64) error {
	if err := s.Repository.RemoveObjectiveMember(ctx, objectiveID, userID); err != nil {
		return err
	}
	companyID, subject := s.objectiveRef(ctx, objectiveID)
	s.record(ctx, 0, &userID, companyID, subject,
		audit.MemberRemoved{Kind: string(KindObjective), ResourceID: objectiveID, UserID: userID})
	return nil
}

func (s *AuditedStore) created(ctx context.Context, creatorID int64, companyID *int64, subject audit.Subject, kind Kind, id int64, title string) {
	s.record(ctx, creatorID, nil, companyID, subject,
		audit.ResourceCreated{Kind: string(kind), ResourceID: id, Title: title})
}

// record prefers the context actor over fallbackActor. Zero means none.
func (s *AuditedStore) record(ctx context.Context, fallbackActor int64, target, companyID *int64, subject audit.Subject, d audit.Details) {
	var actor *int64
	if id, ok := ActorFromContext(ctx); ok {
		actor = &id
	} else if fallbackActor > 0 {
		actor = &fallbackActor
	}
	s.trail.Append(ctx, audit.Entry{
		ActorUserID:  actor,
		TargetUserID: clonePtr(target),
		CompanyID:    clonePtr(companyID),
		Subject:      subject,
		Details:      d,
	})
}

// boardRef resolves the tenant and project of a board. A failed lookup
// still records the entry, without them.
func (s *AuditedStore) boardRef(ctx context.Context, boardID int64) (*int64, audit.Subject) {
	subject := audit.Subject{BoardID: Ptr(boardID)}
	b, err := s.Repository.GetBoard(ctx, boardID)
	if err != nil {
		return nil, subject
	}
	subject.ProjectID = clonePtr(b.ProjectID)
	return b.CompanyID, subject
}

func (s *AuditedStore) objectiveRef(ctx context.Context, objectiveID int64) (*int64, audit.Subject) {
	o, err := s.Repository.GetObjective(ctx, objectiveID)
	if err != nil {
		return nil, audit.Subject{}
	}
	return o.CompanyID, audit.Subject{ProjectID: clonePtr(o.ProjectID), TeamID: clonePtr(o.TeamID)}
}
