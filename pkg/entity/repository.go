package entity

import (
	"context"
	"time"
)

// CountQuery selects the rows counted against a plan cap. Exactly which
// fields apply depends on Kind:
//
//   - projects, boards, teams, objectives: rows created by any of CreatorIDs
//   - tasks: distinct tasks assigned to any of AssigneeIDs
//   - users: members of CompanyID
//
// ExcludeArchived drops archived projects, boards and tasks.
type CountQuery struct {
	Kind            Kind
	CreatorIDs      []int64
	AssigneeIDs     []int64
	CompanyID       *int64
	ExcludeArchived bool
}

// ListFilter narrows List* calls. Zero fields are ignored.
type ListFilter struct {
	OwnerID   int64
	CompanyID *int64
}

// UserReader reads users and company membership.
type UserReader interface {
	GetUser(ctx context.Context, id int64) (User, error)
	CompanyUserIDs(ctx context.Context, companyID int64) ([]int64, error)
}

// CompanyReader reads companies and their billing records.
type CompanyReader interface {
	GetCompany(ctx context.Context, id int64) (Company, error)
	GetPaymentInfo(ctx context.Context, companyID int64) (PaymentInfo, error)
}

// ResourceReader exposes the lookups used by permission checks.
type ResourceReader interface {
	GetTeam(ctx context.Context, id int64) (Team, error)
	GetProject(ctx context.Context, id int64) (Project, error)
	GetBoard(ctx context.Context, id int64) (Board, error)
	GetObjective(ctx context.Context, id int64) (Objective, error)
	GetTask(ctx context.Context, id int64) (Task, error)

	IsBoardMember(ctx context.Context, boardID, userID int64) (bool, error)
	IsObjectiveMember(ctx context.Context, objectiveID, userID int64) (bool, error)

	TeamIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	ProjectIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	BoardIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	TaskIDsForAssignee(ctx context.Context, userID int64) ([]int64, error)
}

// Counter counts rows for entitlement checks.
type Counter interface {
	Count(ctx context.Context, q CountQuery) (int64, error)
}

// SubscriptionWriter persists the denormalized tier fields on users and
// company payment records.
type SubscriptionWriter interface {
	UpdateUserSubscription(ctx context.Context, userID int64, tier, cycle string, expiresAt *time.Time) error
	UpsertPaymentInfo(ctx context.Context, info PaymentInfo) error
}

// Lister enumerates resources for a route layer that then filters them.
type Lister interface {
	ListTeams(ctx context.Context, f ListFilter) ([]Team, error)
	ListProjects(ctx context.Context, f ListFilter) ([]Project, error)
	ListBoards(ctx context.Context, f ListFilter) ([]Board, error)
	ListObjectives(ctx context.Context, f ListFilter) ([]Objective, error)
}

// Writer creates records. Create* return the stored record with its id set.
type Writer interface {
	CreateCompany(ctx context.Context, c Company) (Company, error)
	CreateUser(ctx context.Context, u User) (User, error)
	CreateTeam(ctx context.Context, t Team) (Team, error)
	CreateProject(ctx context.Context, p Project) (Project, error)
	CreateBoard(ctx context.Context, b Board) (Board, error)
	CreateObjective(ctx context.Context, o Objective) (Objective, error)
	CreateTask(ctx context.Context, t Task) (Task, error)
	AddBoardMember(ctx context.Context, m Member) error
	AddObjectiveMember(ctx context.Context, m Member) error
	// Remove*Member return ErrNotFound when the membership does not exist.
	RemoveBoardMember(ctx context.Context, boardID, userID int64) error
	RemoveObjectiveMember(ctx context.Context, objectiveID, userID int64) error
}

// Repository is the full data-access contract.
type Repository interface {
	UserReader
	CompanyReader
	ResourceReader
	Counter
	SubscriptionWriter
	Lister
	Writer
}
