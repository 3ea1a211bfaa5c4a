package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PGStorage stores entries in the append-only audit_log table.
type PGStorage struct {
	db *sql.DB
}

var _ Storage = (*PGStorage)(nil)

func NewPGStorage(db *sql.DB) *PGStorage {
	if db == nil {
		panic("audit: nil database")
	}
	return &PGStorage{db: db}
}

const insertColumns = 11

// Store writes all entries in one statement.
func (s *PGStorage) Store(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO audit_log (id, actor_user_id, target_user_id, company_id, action, board_id, project_id, team_id, task_id, details, created_at) VALUES `)
	args := make([]any, 0, len(entries)*insertColumns)
	for i, e := range entries {
		details, err := encodeDetails(e.Details)
		if err != nil {
			return errors.Join(ErrInvalidDetails, err)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range insertColumns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("$" + strconv.Itoa(i*insertColumns+j+1))
		}
		b.WriteByte(')')
		args = append(args,
			e.ID, e.ActorUserID, e.TargetUserID, e.CompanyID, string(e.Action),
			e.Subject.BoardID, e.Subject.ProjectID, e.Subject.TeamID, e.Subject.TaskID,
			string(details), e.CreatedAt,
		)
	}
	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("audit: insert entries: %w", err)
	}
	return nil
}

func (s *PGStorage) Query(ctx context.Context, c Criteria) ([]Entry, error) {
	query, args := buildPGQuery(c)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query entries: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var (
			e                          Entry
			actor, target, company     sql.NullInt64
			board, project, team, task sql.NullInt64
			action                     string
			details                    []byte
			createdAt                  time.Time
		)
		if err := rows.Scan(&e.ID, &actor, &target, &company, &action,
			&board, &project, &team, &task, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Action = Action(action)
		if e.Details, err = DecodeDetails(e.Action, details); err != nil {
			return nil, err
		}
		e.ActorUserID = nullID(actor)
		e.TargetUserID = nullID(target)
		e.CompanyID = nullID(company)
		e.Subject = Subject{
			BoardID:   nullID(board),
			ProjectID: nullID(project),
			TeamID:    nullID(team),
			TaskID:    nullID(task),
		}
		e.CreatedAt = createdAt
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate entries: %w", err)
	}
	return out, nil
}

func buildPGQuery(c Criteria) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	b.WriteString(`SELECT id, actor_user_id, target_user_id, company_id, action, board_id, project_id, team_id, task_id, details, created_at FROM audit_log WHERE `)
	if c.CompanyID != nil {
		b.WriteString("company_id = " + next(*c.CompanyID))
	} else {
		b.WriteString("company_id IS NULL")
	}

	if inv := c.Involving; inv != nil {
		uid := next(inv.UserID)
		or := []string{"actor_user_id = " + uid, "target_user_id = " + uid}
		for _, col := range []struct {
			name string
			ids  []int64
		}{
			{"board_id", inv.BoardIDs},
			{"project_id", inv.ProjectIDs},
			{"team_id", inv.TeamIDs},
			{"task_id", inv.TaskIDs},
		} {
			if len(col.ids) == 0 {
				continue
			}
			marks := make([]string, len(col.ids))
			for i, id := range col.ids {
				marks[i] = next(id)
			}
			or = append(or, col.name+" IN ("+strings.Join(marks, ", ")+")")
		}
		b.WriteString(" AND (" + strings.Join(or, " OR ") + ")")
	}

	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT " + next(c.EffectiveLimit()))
	return b.String(), args
}

func nullID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
