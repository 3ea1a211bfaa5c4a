package entitlement

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/kanbax/pkg/entity"
)

// ScopeKind tells whether usage is accounted per company or per user.
type ScopeKind string

const (
	ScopeCompany  ScopeKind = "company"
	ScopePersonal ScopeKind = "personal"
)

// Scope is the accounting unit for usage counting.
type Scope struct {
	Kind ScopeKind
	ID   int64
}

// Company returns a company scope.
func Company(id int64) Scope { return Scope{Kind: ScopeCompany, ID: id} }

// Personal returns the scope of a user without a company.
func Personal(userID int64) Scope { return Scope{Kind: ScopePersonal, ID: userID} }

func (s Scope) String() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// Valid reports whether the scope names a known kind and a positive id.
func (s Scope) Valid() bool {
	return (s.Kind == ScopeCompany || s.Kind == ScopePersonal) && s.ID > 0
}

// ScopeFor returns the company scope for company members and the personal
// scope otherwise.
func ScopeFor(u entity.User) Scope {
	if u.CompanyID != nil {
		return Company(*u.CompanyID)
	}
	return Personal(u.ID)
}

// ScopeForUser loads the user and returns its accounting scope.
func (e *Engine) ScopeForUser(ctx context.Context, userID int64) (Scope, error) {
	u, err := e.repo.GetUser(ctx, userID)
	if err != nil {
		return Scope{}, err
	}
	return ScopeFor(u), nil
}
