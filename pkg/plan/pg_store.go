package plan

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrymomot/kanbax/pkg/pg"
)

// PGStore reads and writes the subscription_plans table.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// NewPGStore wraps db. Panics on nil.
func NewPGStore(db *sql.DB) *PGStore {
	if db == nil {
		panic("plan: nil database")
	}
	return &PGStore{db: db}
}

const planColumns = `id, name, display_name,
	max_projects, max_boards, max_teams, max_users_per_company, max_tasks, max_okrs,
	has_gantt_view, has_advanced_reporting, has_api_access, has_custom_branding,
	has_priority_support, has_team_features, has_okr_features,
	requires_company, is_active, monthly_price_cents, yearly_price_cents, currency,
	monthly_price_id, yearly_price_id, sort_order, version`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Name, &p.DisplayName,
		&p.MaxProjects, &p.MaxBoards, &p.MaxTeams, &p.MaxUsersPerCompany, &p.MaxTasks, &p.MaxOkrs,
		&p.HasGanttView, &p.HasAdvancedReporting, &p.HasAPIAccess, &p.HasCustomBranding,
		&p.HasPrioritySupport, &p.HasTeamFeatures, &p.HasOKRFeatures,
		&p.RequiresCompany, &p.IsActive, &p.MonthlyPriceCents, &p.YearlyPriceCents, &p.Currency,
		&p.MonthlyPriceID, &p.YearlyPriceID, &p.SortOrder, &p.Version)
	return p, err
}

func (s *PGStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `select count(*) from subscription_plans`).Scan(&n)
	return n, err
}

// Insert writes all plans in one transaction.
func (s *PGStore) Insert(ctx context.Context, plans ...Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range plans {
		_, err := tx.ExecContext(ctx, `
			insert into subscription_plans (name, display_name,
				max_projects, max_boards, max_teams, max_users_per_company, max_tasks, max_okrs,
				has_gantt_view, has_advanced_reporting, has_api_access, has_custom_branding,
				has_priority_support, has_team_features, has_okr_features,
				requires_company, is_active, monthly_price_cents, yearly_price_cents, currency,
				monthly_price_id, yearly_price_id, sort_order, version)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		`, string(p.Name), p.DisplayName,
			p.MaxProjects, p.MaxBoards, p.MaxTeams, p.MaxUsersPerCompany, p.MaxTasks, p.MaxOkrs,
			p.HasGanttView, p.HasAdvancedReporting, p.HasAPIAccess, p.HasCustomBranding,
			p.HasPrioritySupport, p.HasTeamFeatures, p.HasOKRFeatures,
			p.RequiresCompany, p.IsActive, p.MonthlyPriceCents, p.YearlyPriceCents, p.Currency,
			p.MonthlyPriceID, p.YearlyPriceID, p.SortOrder, max(p.Version, 1))
		if err != nil {
			_ = tx.Rollback()
			if pg.IsDuplicateKeyError(err) {
				return ErrDuplicatePlan
			}
			return err
		}
	}
	return tx.Commit()
}

func (s *PGStore) Get(ctx context.Context, name Tier) (Plan, error) {
	p, err := scanPlan(s.db.QueryRowContext(ctx, `select `+planColumns+` from subscription_plans where name = $1`, string(name)))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}
	return p, nil
}

func (s *PGStore) List(ctx context.Context) ([]Plan, error) {
	rows, err := s.db.QueryContext(ctx, `select `+planColumns+` from subscription_plans order by sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoad, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
