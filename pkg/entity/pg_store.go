package entity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/kanbax/pkg/pg"
)

// PGStore implements Repository on Postgres. Membership lists are folded into
// each row as JSON arrays so a resource loads in a single round trip.
type PGStore struct {
	db *sql.DB
}

var _ Repository = (*PGStore)(nil)

// NewPGStore wraps db. Panics on nil.
func NewPGStore(db *sql.DB) *PGStore {
	if db == nil {
		panic("entity: nil database")
	}
	return &PGStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// idList scans a JSON array of ids.
type idList []int64

func (l *idList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = idList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("entity: cannot scan %T into id list", src)
	}
	ids := []int64{}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("entity: decode id list: %w", err)
	}
	*l = ids
	return nil
}

func nullID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func notFound(err error) error {
	if pg.IsNotFoundError(err) {
		return ErrNotFound
	}
	return err
}

const userColumns = `id, email, name, company_id, is_company_admin, is_hyper_admin,
	is_active, is_paused, subscription_tier, subscription_billing_cycle, subscription_expires_at, created_at`

func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		companyID sql.NullInt64
		expiresAt sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &companyID, &u.IsCompanyAdmin, &u.IsHyperAdmin,
		&u.IsActive, &u.IsPaused, &u.SubscriptionTier, &u.SubscriptionBillingCycle, &expiresAt, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.CompanyID = nullID(companyID)
	u.SubscriptionExpiresAt = nullTime(expiresAt)
	return u, nil
}

func (s *PGStore) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
	if err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

func (s *PGStore) CompanyUserIDs(ctx context.Context, companyID int64) ([]int64, error) {
	return s.ids(ctx, `select id from users where company_id = $1 order by id`, companyID)
}

func (s *PGStore) GetCompany(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := s.db.QueryRowContext(ctx, `
		select id, name, invite_code, is_paused, created_at
		from companies where id = $1
	`, id).Scan(&c.ID, &c.Name, &c.InviteCode, &c.IsPaused, &c.CreatedAt)
	if err != nil {
		return Company{}, notFound(err)
	}
	return c, nil
}

func (s *PGStore) GetPaymentInfo(ctx context.Context, companyID int64) (PaymentInfo, error) {
	var (
		p         PaymentInfo
		expiresAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select company_id, subscription_tier, billing_cycle, subscription_expires_at, updated_at
		from company_payment_info where company_id = $1
	`, companyID).Scan(&p.CompanyID, &p.SubscriptionTier, &p.BillingCycle, &expiresAt, &p.UpdatedAt)
	if err != nil {
		return PaymentInfo{}, notFound(err)
	}
	p.SubscriptionExpiresAt = nullTime(expiresAt)
	return p, nil
}

const teamSelect = `
	select t.id, t.name, t.creator_id, t.company_id, t.created_at,
		coalesce((select json_agg(m.user_id order by m.user_id) from team_members m where m.team_id = t.id), '[]')
	from teams t`

func scanTeam(row rowScanner) (Team, error) {
	var (
		t         Team
		companyID sql.NullInt64
		members   idList
	)
	if err := row.Scan(&t.ID, &t.Name, &t.CreatorID, &companyID, &t.CreatedAt, &members); err != nil {
		return Team{}, err
	}
	t.CompanyID = nullID(companyID)
	t.MemberIDs = members
	return t, nil
}

func (s *PGStore) GetTeam(ctx context.Context, id int64) (Team, error) {
	t, err := scanTeam(s.db.QueryRowContext(ctx, teamSelect+` where t.id = $1`, id))
	if err != nil {
		return Team{}, notFound(err)
	}
	return t, nil
}

const projectSelect = `
	select p.id, p.title, p.creator_id, p.company_id, p.archived, p.created_at,
		coalesce((select json_agg(a.user_id order by a.user_id) from project_assignees a where a.project_id = p.id), '[]'),
		coalesce((select json_agg(pt.team_id order by pt.team_id) from project_teams pt where pt.project_id = p.id), '[]')
	from projects p`

func scanProject(row rowScanner) (Project, error) {
	var (
		p         Project
		companyID sql.NullInt64
		assignees idList
		teams     idList
	)
	if err := row.Scan(&p.ID, &p.Title, &p.CreatorID, &companyID, &p.Archived, &p.CreatedAt, &assignees, &teams); err != nil {
		return Project{}, err
	}
	p.CompanyID = nullID(companyID)
	p.AssignedUserIDs = assignees
	p.TeamIDs = teams
	return p, nil
}

func (s *PGStore) GetProject(ctx context.Context, id int64) (Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, projectSelect+` where p.id = $1`, id))
	if err != nil {
		return Project{}, notFound(err)
	}
	return p, nil
}

const boardSelect = `
	select b.id, b.title, b.creator_id, b.company_id, b.project_id, b.archived, b.created_at,
		coalesce((select json_agg(a.user_id order by a.user_id) from board_assignees a where a.board_id = b.id), '[]'),
		coalesce((select json_agg(bt.team_id order by bt.team_id) from board_teams bt where bt.board_id = b.id), '[]')
	from boards b`

func scanBoard(row rowScanner) (Board, error) {
	var (
		b         Board
		companyID sql.NullInt64
		projectID sql.NullInt64
		assignees idList
		teams     idList
	)
	if err := row.Scan(&b.ID, &b.Title, &b.CreatorID, &companyID, &projectID, &b.Archived, &b.CreatedAt, &assignees, &teams); err != nil {
		return Board{}, err
	}
	b.CompanyID = nullID(companyID)
	b.ProjectID = nullID(projectID)
	b.AssignedUserIDs = assignees
	b.TeamIDs = teams
	return b, nil
}

func (s *PGStore) GetBoard(ctx context.Context, id int64) (Board, error) {
	b, err := scanBoard(s.db.QueryRowContext(ctx, boardSelect+` where b.id = $1`, id))
	if err != nil {
		return Board{}, notFound(err)
	}
	return b, nil
}

const objectiveSelect = `
	select o.id, o.title, o.creator_id, o.company_id, o.project_id, o.team_id, o.created_at,
		coalesce((select json_agg(a.user_id order by a.user_id) from objective_assignees a where a.objective_id = o.id), '[]'),
		coalesce((select json_agg(ot.team_id order by ot.team_id) from objective_teams ot where ot.objective_id = o.id), '[]')
	from objectives o`

func scanObjective(row rowScanner) (Objective, error) {
	var (
		o         Objective
		companyID sql.NullInt64
		projectID sql.NullInt64
		teamID    sql.NullInt64
		assignees idList
		teams     idList
	)
	if err := row.Scan(&o.ID, &o.Title, &o.CreatorID, &companyID, &projectID, &teamID, &o.CreatedAt, &assignees, &teams); err != nil {
		return Objective{}, err
	}
	o.CompanyID = nullID(companyID)
	o.ProjectID = nullID(projectID)
	o.TeamID = nullID(teamID)
	o.AssignedUserIDs = assignees
	o.TeamIDs = teams
	return o, nil
}

func (s *PGStore) GetObjective(ctx context.Context, id int64) (Objective, error) {
	o, err := scanObjective(s.db.QueryRowContext(ctx, objectiveSelect+` where o.id = $1`, id))
	if err != nil {
		return Objective{}, notFound(err)
	}
	return o, nil
}

func (s *PGStore) GetTask(ctx context.Context, id int64) (Task, error) {
	var (
		t         Task
		boardID   sql.NullInt64
		projectID sql.NullInt64
		companyID sql.NullInt64
		assignees idList
	)
	err := s.db.QueryRowContext(ctx, `
		select t.id, t.title, t.board_id, t.project_id, t.company_id, t.archived, t.created_at,
			coalesce((select json_agg(a.user_id order by a.user_id) from task_assignees a where a.task_id = t.id), '[]')
		from tasks t where t.id = $1
	`, id).Scan(&t.ID, &t.Title, &boardID, &projectID, &companyID, &t.Archived, &t.CreatedAt, &assignees)
	if err != nil {
		return Task{}, notFound(err)
	}
	t.BoardID = nullID(boardID)
	t.ProjectID = nullID(projectID)
	t.CompanyID = nullID(companyID)
	t.AssignedUserIDs = assignees
	return t, nil
}

func (s *PGStore) IsBoardMember(ctx context.Context, boardID, userID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from board_members where board_id = $1 and user_id = $2)`,
		boardID, userID).Scan(&ok)
	return ok, err
}

func (s *PGStore) IsObjectiveMember(ctx context.Context, objectiveID, userID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from objective_members where objective_id = $1 and user_id = $2)`,
		objectiveID, userID).Scan(&ok)
	return ok, err
}

func (s *PGStore) TeamIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.ids(ctx, `select team_id from team_members where user_id = $1 order by team_id`, userID)
}

func (s *PGStore) ProjectIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.ids(ctx, `select project_id from project_assignees where user_id = $1 order by project_id`, userID)
}

func (s *PGStore) BoardIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.ids(ctx, `
		select board_id from board_assignees where user_id = $1
		union
		select board_id from board_members where user_id = $1
		order by 1
	`, userID)
}

func (s *PGStore) TaskIDsForAssignee(ctx context.Context, userID int64) ([]int64, error) {
	return s.ids(ctx, `select task_id from task_assignees where user_id = $1 order by task_id`, userID)
}

func (s *PGStore) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// inList renders "$n, $n+1, ..." for ids starting at placeholder start.
func inList(start int, ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "$" + strconv.Itoa(start+i)
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

var creatorTables = map[Kind]string{
	KindTeam:      "teams",
	KindProject:   "projects",
	KindBoard:     "boards",
	KindObjective: "objectives",
}

func (s *PGStore) Count(ctx context.Context, q CountQuery) (int64, error) {
	var (
		query string
		args  []any
	)
	switch q.Kind {
	case KindUser:
		if q.CompanyID == nil {
			return 0, nil
		}
		query, args = `select count(*) from users where company_id = $1`, []any{*q.CompanyID}
	case KindTask:
		if len(q.AssigneeIDs) == 0 {
			return 0, nil
		}
		marks, ids := inList(1, q.AssigneeIDs)
		query = `select count(distinct t.id) from tasks t join task_assignees a on a.task_id = t.id where a.user_id in (` + marks + `)`
		if q.ExcludeArchived {
			query += ` and not t.archived`
		}
		args = ids
	default:
		table, ok := creatorTables[q.Kind]
		if !ok {
			return 0, ErrInvalidKind
		}
		if len(q.CreatorIDs) == 0 {
			return 0, nil
		}
		marks, ids := inList(1, q.CreatorIDs)
		query = `select count(*) from ` + table + ` where creator_id in (` + marks + `)`
		if q.ExcludeArchived && (q.Kind == KindProject || q.Kind == KindBoard) {
			query += ` and not archived`
		}
		args = ids
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PGStore) UpdateUserSubscription(ctx context.Context, userID int64, tier, cycle string, expiresAt *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set subscription_tier = $1, subscription_billing_cycle = $2, subscription_expires_at = $3
		where id = $4
	`, tier, cycle, expiresAt, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpsertPaymentInfo(ctx context.Context, info PaymentInfo) error {
	_, err := s.db.ExecContext(ctx, `
		insert into company_payment_info (company_id, subscription_tier, billing_cycle, subscription_expires_at, updated_at)
		values ($1, $2, $3, $4, now())
		on conflict (company_id) do update
		set subscription_tier = excluded.subscription_tier,
			billing_cycle = excluded.billing_cycle,
			subscription_expires_at = excluded.subscription_expires_at,
			updated_at = now()
	`, info.CompanyID, info.SubscriptionTier, info.BillingCycle, info.SubscriptionExpiresAt)
	if pg.IsForeignKeyViolationError(err) {
		return ErrNotFound
	}
	return err
}

// where renders the ListFilter against a table alias.
func (f ListFilter) where(alias string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != 0 {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("%s.creator_id = $%d", alias, len(args)))
	}
	if f.CompanyID != nil {
		args = append(args, *f.CompanyID)
		conds = append(conds, fmt.Sprintf("%s.company_id = $%d", alias, len(args)))
	}
	if len(conds) == 0 {
		return " order by " + alias + ".id", nil
	}
	return " where " + strings.Join(conds, " and ") + " order by " + alias + ".id", args
}

func list[T any](ctx context.Context, db *sql.DB, query string, args []any, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PGStore) ListTeams(ctx context.Context, f ListFilter) ([]Team, error) {
	where, args := f.where("t")
	return list(ctx, s.db, teamSelect+where, args, scanTeam)
}

func (s *PGStore) ListProjects(ctx context.Context, f ListFilter) ([]Project, error) {
	where, args := f.where("p")
	return list(ctx, s.db, projectSelect+where, args, scanProject)
}

func (s *PGStore) ListBoards(ctx context.Context, f ListFilter) ([]Board, error) {
	where, args := f.where("b")
	return list(ctx, s.db, boardSelect+where, args, scanBoard)
}

func (s *PGStore) ListObjectives(ctx context.Context, f ListFilter) ([]Objective, error) {
	where, args := f.where("o")
	return list(ctx, s.db, objectiveSelect+where, args, scanObjective)
}

func (s *PGStore) CreateCompany(ctx context.Context, c Company) (Company, error) {
	err := s.db.QueryRowContext(ctx, `
		insert into companies (name, invite_code, is_paused)
		values ($1, $2, $3)
		returning id, created_at
	`, c.Name, c.InviteCode, c.IsPaused).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *PGStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = "free"
	}
	if u.SubscriptionBillingCycle == "" {
		u.SubscriptionBillingCycle = "monthly"
	}
	err := s.db.QueryRowContext(ctx, `
		insert into users (email, name, company_id, is_company_admin, is_hyper_admin,
			is_active, is_paused, subscription_tier, subscription_billing_cycle, subscription_expires_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning id, created_at
	`, u.Email, u.Name, u.CompanyID, u.IsCompanyAdmin, u.IsHyperAdmin,
		u.IsActive, u.IsPaused, u.SubscriptionTier, u.SubscriptionBillingCycle, u.SubscriptionExpiresAt).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return User{}, ErrAlreadyExists
		}
		return User{}, err
	}
	return u, nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *PGStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

func insertLinks(ctx context.Context, tx *sql.Tx, query string, ownerID int64, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, ownerID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *PGStore) CreateTeam(ctx context.Context, t Team) (Team, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			insert into teams (name, creator_id, company_id) values ($1, $2, $3)
			returning id, created_at
		`, t.Name, t.CreatorID, t.CompanyID).Scan(&t.ID, &t.CreatedAt); err != nil {
			return err
		}
		return insertLinks(ctx, tx, `insert into team_members (team_id, user_id) values ($1, $2)`, t.ID, t.MemberIDs)
	})
	if err != nil {
		return Team{}, err
	}
	t.MemberIDs = cloneIDs(t.MemberIDs)
	return t, nil
}

func (s *PGStore) CreateProject(ctx context.Context, p Project) (Project, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			insert into projects (title, creator_id, company_id, archived) values ($1, $2, $3, $4)
			returning id, created_at
		`, p.Title, p.CreatorID, p.CompanyID, p.Archived).Scan(&p.ID, &p.CreatedAt); err != nil {
			return err
		}
		if err := insertLinks(ctx, tx, `insert into project_assignees (project_id, user_id) values ($1, $2)`, p.ID, p.AssignedUserIDs); err != nil {
			return err
		}
		return insertLinks(ctx, tx, `insert into project_teams (project_id, team_id) values ($1, $2)`, p.ID, p.TeamIDs)
	})
	if err != nil {
		return Project{}, err
	}
	return copyProject(p), nil
}

func (s *PGStore) CreateBoard(ctx context.Context, b Board) (Board, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			insert into boards (title, creator_id, company_id, project_id, archived) values ($1, $2, $3, $4, $5)
			returning id, created_at
		`, b.Title, b.CreatorID, b.CompanyID, b.ProjectID, b.Archived).Scan(&b.ID, &b.CreatedAt); err != nil {
			return err
		}
		if err := insertLinks(ctx, tx, `insert into board_assignees (board_id, user_id) values ($1, $2)`, b.ID, b.AssignedUserIDs); err != nil {
			return err
		}
		return insertLinks(ctx, tx, `insert into board_teams (board_id, team_id) values ($1, $2)`, b.ID, b.TeamIDs)
	})
	if err != nil {
		return Board{}, err
	}
	return copyBoard(b), nil
}

func (s *PGStore) CreateObjective(ctx context.Context, o Objective) (Objective, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			insert into objectives (title, creator_id, company_id, project_id, team_id) values ($1, $2, $3, $4, $5)
			returning id, created_at
		`, o.Title, o.CreatorID, o.CompanyID, o.ProjectID, o.TeamID).Scan(&o.ID, &o.CreatedAt); err != nil {
			return err
		}
		if err := insertLinks(ctx, tx, `insert into objective_assignees (objective_id, user_id) values ($1, $2)`, o.ID, o.AssignedUserIDs); err != nil {
			return err
		}
		return insertLinks(ctx, tx, `insert into objective_teams (objective_id, team_id) values ($1, $2)`, o.ID, o.TeamIDs)
	})
	if err != nil {
		return Objective{}, err
	}
	return copyObjective(o), nil
}

func (s *PGStore) CreateTask(ctx context.Context, t Task) (Task, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			insert into tasks (title, board_id, project_id, company_id, archived) values ($1, $2, $3, $4, $5)
			returning id, created_at
		`, t.Title, t.BoardID, t.ProjectID, t.CompanyID, t.Archived).Scan(&t.ID, &t.CreatedAt); err != nil {
			return err
		}
		return insertLinks(ctx, tx, `insert into task_assignees (task_id, user_id) values ($1, $2)`, t.ID, t.AssignedUserIDs)
	})
	if err != nil {
		return Task{}, err
	}
	return copyTask(t), nil
}

func (s *PGStore) AddBoardMember(ctx context.Context, m Member) error {
	_, err := s.db.ExecContext(ctx, `
		insert into board_members (board_id, user_id, role) values ($1, $2, $3)
		on conflict (board_id, user_id) do update set role = excluded.role
	`, m.ResourceID, m.UserID, string(m.Role))
	if pg.IsForeignKeyViolationError(err) {
		return ErrNotFound
	}
	return err
}

func (s *PGStore) AddObjectiveMember(ctx context.Context, m Member) error {
	_, err := s.db.ExecContext(ctx, `
		insert into objective_members (objective_id, user_id, role) values ($1, $2, $3)
		on conflict (objective_id, user_id) do update set role = excluded.role
	`, m.ResourceID, m.UserID, string(m.Role))
	if pg.IsForeignKeyViolationError(err) {
		return ErrNotFound
	}
	return err
}

func (s *PGStore) RemoveBoardMember(ctx context.Context, boardID, userID int64) error {
	return s.deleteOne(ctx, `delete from board_members where board_id = $1 and user_id = $2`, boardID, userID)
}

func (s *PGStore) RemoveObjectiveMember(ctx context.Context, objectiveID, userID int64) error {
	return s.deleteOne(ctx, `delete from objective_members where objective_id = $1 and user_id = $2`, objectiveID, userID)
}

func (s *PGStore) deleteOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
