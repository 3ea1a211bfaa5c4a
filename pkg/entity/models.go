package entity

import (
	"slices"
	"time"
)

// Kind names a resource type for counting and activity references.
type Kind string

const (
	KindUser      Kind = "user"
	KindTeam      Kind = "team"
	KindProject   Kind = "project"
	KindBoard     Kind = "board"
	KindObjective Kind = "objective"
	KindTask      Kind = "task"
)

// MemberRole is the role held in a board or objective membership table.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleEditor MemberRole = "editor"
	RoleViewer MemberRole = "viewer"
)

// User is an account. IsActive and IsPaused are account status flags kept
// for the host application; permission and quota checks do not read them.
type User struct {
	ID                       int64      `json:"id"`
	Email                    string     `json:"email"`
	Name                     string     `json:"name"`
	CompanyID                *int64     `json:"companyId,omitempty"`
	IsCompanyAdmin           bool       `json:"isCompanyAdmin"`
	IsHyperAdmin             bool       `json:"isHyperAdmin"`
	IsActive                 bool       `json:"isActive"`
	IsPaused                 bool       `json:"isPaused"`
	SubscriptionTier         string     `json:"subscriptionTier"`
	SubscriptionBillingCycle string     `json:"subscriptionBillingCycle"`
	SubscriptionExpiresAt    *time.Time `json:"subscriptionExpiresAt,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
}

// InCompany reports whether the user belongs to the given company.
func (u User) InCompany(companyID int64) bool {
	return u.CompanyID != nil && *u.CompanyID == companyID
}

type Company struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"inviteCode,omitempty"`
	IsPaused   bool      `json:"isPaused"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PaymentInfo is the company-level billing record. Its tier governs every
// limit checked in company scope.
type PaymentInfo struct {
	CompanyID             int64      `json:"companyId"`
	SubscriptionTier      string     `json:"subscriptionTier"`
	BillingCycle          string     `json:"billingCycle"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt,omitempty"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatorID int64     `json:"creatorId"`
	CompanyID *int64    `json:"companyId,omitempty"`
	MemberIDs []int64   `json:"memberIds"`
	CreatedAt time.Time `json:"createdAt"`
}

type Project struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	CreatorID       int64     `json:"creatorId"`
	CompanyID       *int64    `json:"companyId,omitempty"`
	AssignedUserIDs []int64   `json:"assignedUserIds"`
	TeamIDs         []int64   `json:"teamIds"`
	Archived        bool      `json:"archived"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Board struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	CreatorID       int64     `json:"creatorId"`
	CompanyID       *int64    `json:"companyId,omitempty"`
	ProjectID       *int64    `json:"projectId,omitempty"`
	AssignedUserIDs []int64   `json:"assignedUserIds"`
	TeamIDs         []int64   `json:"teamIds"`
	Archived        bool      `json:"archived"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Objective struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	CreatorID       int64     `json:"creatorId"`
	CompanyID       *int64    `json:"companyId,omitempty"`
	ProjectID       *int64    `json:"projectId,omitempty"`
	TeamID          *int64    `json:"teamId,omitempty"`
	AssignedUserIDs []int64   `json:"userIds"`
	TeamIDs         []int64   `json:"teamIds"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Task carries no creator; ownership is expressed through assignees.
type Task struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	BoardID         *int64    `json:"boardId,omitempty"`
	ProjectID       *int64    `json:"projectId,omitempty"`
	CompanyID       *int64    `json:"companyId,omitempty"`
	AssignedUserIDs []int64   `json:"assignedUserIds"`
	Archived        bool      `json:"archived"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Member is a row of a board or objective membership table.
type Member struct {
	ResourceID int64      `json:"resourceId"`
	UserID     int64      `json:"userId"`
	Role       MemberRole `json:"role"`
}

// Ptr returns a pointer to v. Handy for optional foreign keys.
func Ptr[T any](v T) *T {
	return &v
}

// SameCompany reports whether both ids are set and equal.
func SameCompany(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}

func cloneIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return slices.Clone(ids)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
