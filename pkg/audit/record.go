package audit

import "time"

// record is the flat document shape shared by the document stores.
// Details stay JSON-encoded so every action round-trips through DecodeDetails.
type record struct {
	ID           string    `json:"id" bson:"_id"`
	ActorUserID  *int64    `json:"actor_user_id,omitempty" bson:"actor_user_id,omitempty"`
	TargetUserID *int64    `json:"target_user_id,omitempty" bson:"target_user_id,omitempty"`
	CompanyID    *int64    `json:"company_id,omitempty" bson:"company_id,omitempty"`
	Action       string    `json:"action" bson:"action"`
	BoardID      *int64    `json:"board_id,omitempty" bson:"board_id,omitempty"`
	ProjectID    *int64    `json:"project_id,omitempty" bson:"project_id,omitempty"`
	TeamID       *int64    `json:"team_id,omitempty" bson:"team_id,omitempty"`
	TaskID       *int64    `json:"task_id,omitempty" bson:"task_id,omitempty"`
	Details      string    `json:"details" bson:"details"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

func toRecord(e Entry) (record, error) {
	details, err := encodeDetails(e.Details)
	if err != nil {
		return record{}, err
	}
	return record{
		ID:           e.ID,
		ActorUserID:  e.ActorUserID,
		TargetUserID: e.TargetUserID,
		CompanyID:    e.CompanyID,
		Action:       string(e.Action),
		BoardID:      e.Subject.BoardID,
		ProjectID:    e.Subject.ProjectID,
		TeamID:       e.Subject.TeamID,
		TaskID:       e.Subject.TaskID,
		Details:      string(details),
		CreatedAt:    e.CreatedAt.UTC(),
	}, nil
}

func (r record) entry() (Entry, error) {
	details, err := DecodeDetails(Action(r.Action), []byte(r.Details))
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:           r.ID,
		ActorUserID:  r.ActorUserID,
		TargetUserID: r.TargetUserID,
		CompanyID:    r.CompanyID,
		Action:       Action(r.Action),
		Subject: Subject{
			BoardID:   r.BoardID,
			ProjectID: r.ProjectID,
			TeamID:    r.TeamID,
			TaskID:    r.TaskID,
		},
		Details:   details,
		CreatedAt: r.CreatedAt,
	}, nil
}

// involvementTerms lists field/value pairs any of which marks an entry as
// involving the user.
func involvementTerms(inv *Involvement) map[string][]int64 {
	terms := map[string][]int64{
		"actor_user_id":  {inv.UserID},
		"target_user_id": {inv.UserID},
	}
	for field, ids := range map[string][]int64{
		"board_id":   inv.BoardIDs,
		"project_id": inv.ProjectIDs,
		"team_id":    inv.TeamIDs,
		"task_id":    inv.TaskIDs,
	} {
		if len(ids) > 0 {
			terms[field] = ids
		}
	}
	return terms
}
