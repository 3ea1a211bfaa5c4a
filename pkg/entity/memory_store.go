package entity

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Repository. Records are copied on the way in
// and out so callers never share slices with the store.
type MemoryStore struct {
	mu sync.RWMutex

	seq          int64
	now          func() time.Time
	companies    map[int64]Company
	users        map[int64]User
	paymentInfos map[int64]PaymentInfo
	teams        map[int64]Team
	projects     map[int64]Project
	boards       map[int64]Board
	objectives   map[int64]Objective
	tasks        map[int64]Task

	boardMembers     map[int64]map[int64]MemberRole
	objectiveMembers map[int64]map[int64]MemberRole
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:              time.Now,
		companies:        make(map[int64]Company),
		users:            make(map[int64]User),
		paymentInfos:     make(map[int64]PaymentInfo),
		teams:            make(map[int64]Team),
		projects:         make(map[int64]Project),
		boards:           make(map[int64]Board),
		objectives:       make(map[int64]Objective),
		tasks:            make(map[int64]Task),
		boardMembers:     make(map[int64]map[int64]MemberRole),
		objectiveMembers: make(map[int64]map[int64]MemberRole),
	}
}

// nextID honours explicit ids so fixtures can pin them.
func (s *MemoryStore) nextID(explicit int64) int64 {
	if explicit > 0 {
		s.seq = max(s.seq, explicit)
		return explicit
	}
	s.seq++
	return s.seq
}

func (s *MemoryStore) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) CompanyUserIDs(_ context.Context, companyID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []int64{}
	for _, u := range s.users {
		if u.InCompany(companyID) {
			ids = append(ids, u.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) GetCompany(_ context.Context, id int64) (Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) GetPaymentInfo(_ context.Context, companyID int64) (PaymentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paymentInfos[companyID]
	if !ok {
		return PaymentInfo{}, ErrNotFound
	}
	p.SubscriptionExpiresAt = clonePtr(p.SubscriptionExpiresAt)
	return p, nil
}

func (s *MemoryStore) GetTeam(_ context.Context, id int64) (Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return Team{}, ErrNotFound
	}
	return copyTeam(t), nil
}

func (s *MemoryStore) GetProject(_ context.Context, id int64) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return copyProject(p), nil
}

func (s *MemoryStore) GetBoard(_ context.Context, id int64) (Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	if !ok {
		return Board{}, ErrNotFound
	}
	return copyBoard(b), nil
}

func (s *MemoryStore) GetObjective(_ context.Context, id int64) (Objective, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objectives[id]
	if !ok {
		return Objective{}, ErrNotFound
	}
	return copyObjective(o), nil
}

func (s *MemoryStore) GetTask(_ context.Context, id int64) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return copyTask(t), nil
}

func (s *MemoryStore) IsBoardMember(_ context.Context, boardID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.boardMembers[boardID][userID]
	return ok, nil
}

func (s *MemoryStore) IsObjectiveMember(_ context.Context, objectiveID, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objectiveMembers[objectiveID][userID]
	return ok, nil
}

func (s *MemoryStore) TeamIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []int64{}
	for _, t := range s.teams {
		if slices.Contains(t.MemberIDs, userID) {
			ids = append(ids, t.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) ProjectIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []int64{}
	for _, p := range s.projects {
		if slices.Contains(p.AssignedUserIDs, userID) {
			ids = append(ids, p.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) BoardIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []int64{}
	for _, b := range s.boards {
		_, member := s.boardMembers[b.ID][userID]
		if member || slices.Contains(b.AssignedUserIDs, userID) {
			ids = append(ids, b.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) TaskIDsForAssignee(_ context.Context, userID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []int64{}
	for _, t := range s.tasks {
		if slices.Contains(t.AssignedUserIDs, userID) {
			ids = append(ids, t.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) Count(_ context.Context, q CountQuery) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	createdBy := func(creatorID int64) bool { return slices.Contains(q.CreatorIDs, creatorID) }

	var n int64
	switch q.Kind {
	case KindUser:
		if q.CompanyID == nil {
			return 0, nil
		}
		for _, u := range s.users {
			if u.InCompany(*q.CompanyID) {
				n++
			}
		}
	case KindTeam:
		for _, t := range s.teams {
			if createdBy(t.CreatorID) {
				n++
			}
		}
	case KindProject:
		for _, p := range s.projects {
			if createdBy(p.CreatorID) && !(q.ExcludeArchived && p.Archived) {
				n++
			}
		}
	case KindBoard:
		for _, b := range s.boards {
			if createdBy(b.CreatorID) && !(q.ExcludeArchived && b.Archived) {
				n++
			}
		}
	case KindObjective:
		for _, o := range s.objectives {
			if createdBy(o.CreatorID) {
				n++
			}
		}
	case KindTask:
		for _, t := range s.tasks {
			if q.ExcludeArchived && t.Archived {
				continue
			}
			if slices.ContainsFunc(t.AssignedUserIDs, func(id int64) bool { return slices.Contains(q.AssigneeIDs, id) }) {
				n++
			}
		}
	default:
		return 0, ErrInvalidKind
	}
	return n, nil
}

func (s *MemoryStore) UpdateUserSubscription(_ context.Context, userID int64, tier, cycle string, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.SubscriptionTier = tier
	u.SubscriptionBillingCycle = cycle
	u.SubscriptionExpiresAt = clonePtr(expiresAt)
	s.users[userID] = u
	return nil
}

func (s *MemoryStore) UpsertPaymentInfo(_ context.Context, info PaymentInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[info.CompanyID]; !ok {
		return ErrNotFound
	}
	info.SubscriptionExpiresAt = clonePtr(info.SubscriptionExpiresAt)
	info.UpdatedAt = s.now()
	s.paymentInfos[info.CompanyID] = info
	return nil
}

func (s *MemoryStore) ListTeams(_ context.Context, f ListFilter) ([]Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Team{}
	for _, t := range s.teams {
		if f.matches(t.CreatorID, t.CompanyID) {
			out = append(out, copyTeam(t))
		}
	}
	slices.SortFunc(out, func(a, b Team) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) ListProjects(_ context.Context, f ListFilter) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Project{}
	for _, p := range s.projects {
		if f.matches(p.CreatorID, p.CompanyID) {
			out = append(out, copyProject(p))
		}
	}
	slices.SortFunc(out, func(a, b Project) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) ListBoards(_ context.Context, f ListFilter) ([]Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Board{}
	for _, b := range s.boards {
		if f.matches(b.CreatorID, b.CompanyID) {
			out = append(out, copyBoard(b))
		}
	}
	slices.SortFunc(out, func(a, b Board) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) ListObjectives(_ context.Context, f ListFilter) ([]Objective, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Objective{}
	for _, o := range s.objectives {
		if f.matches(o.CreatorID, o.CompanyID) {
			out = append(out, copyObjective(o))
		}
	}
	slices.SortFunc(out, func(a, b Objective) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) CreateCompany(_ context.Context, c Company) (Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[c.ID]; ok && c.ID > 0 {
		return Company{}, ErrAlreadyExists
	}
	c.ID = s.nextID(c.ID)
	c.CreatedAt = s.stamp(c.CreatedAt)
	s.companies[c.ID] = c
	return c, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok && u.ID > 0 {
		return User{}, ErrAlreadyExists
	}
	u.ID = s.nextID(u.ID)
	u.CreatedAt = s.stamp(u.CreatedAt)
	u = copyUser(u)
	s.users[u.ID] = u
	return copyUser(u), nil
}

func (s *MemoryStore) CreateTeam(_ context.Context, t Team) (Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; ok && t.ID > 0 {
		return Team{}, ErrAlreadyExists
	}
	t.ID = s.nextID(t.ID)
	t.CreatedAt = s.stamp(t.CreatedAt)
	s.teams[t.ID] = copyTeam(t)
	return copyTeam(t), nil
}

func (s *MemoryStore) CreateProject(_ context.Context, p Project) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok && p.ID > 0 {
		return Project{}, ErrAlreadyExists
	}
	p.ID = s.nextID(p.ID)
	p.CreatedAt = s.stamp(p.CreatedAt)
	s.projects[p.ID] = copyProject(p)
	return copyProject(p), nil
}

func (s *MemoryStore) CreateBoard(_ context.Context, b Board) (Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[b.ID]; ok && b.ID > 0 {
		return Board{}, ErrAlreadyExists
	}
	b.ID = s.nextID(b.ID)
	b.CreatedAt = s.stamp(b.CreatedAt)
	s.boards[b.ID] = copyBoard(b)
	return copyBoard(b), nil
}

func (s *MemoryStore) CreateObjective(_ context.Context, o Objective) (Objective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objectives[o.ID]; ok && o.ID > 0 {
		return Objective{}, ErrAlreadyExists
	}
	o.ID = s.nextID(o.ID)
	o.CreatedAt = s.stamp(o.CreatedAt)
	s.objectives[o.ID] = copyObjective(o)
	return copyObjective(o), nil
}

func (s *MemoryStore) CreateTask(_ context.Context, t Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok && t.ID > 0 {
		return Task{}, ErrAlreadyExists
	}
	t.ID = s.nextID(t.ID)
	t.CreatedAt = s.stamp(t.CreatedAt)
	s.tasks[t.ID] = copyTask(t)
	return copyTask(t), nil
}

func (s *MemoryStore) AddBoardMember(_ context.Context, m Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[m.ResourceID]; !ok {
		return ErrNotFound
	}
	if s.boardMembers[m.ResourceID] == nil {
		s.boardMembers[m.ResourceID] = make(map[int64]MemberRole)
	}
	s.boardMembers[m.ResourceID][m.UserID] = m.Role
	return nil
}

func (s *MemoryStore) AddObjectiveMember(_ context.Context, m Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objectives[m.ResourceID]; !ok {
		return ErrNotFound
	}
	if s.objectiveMembers[m.ResourceID] == nil {
		s.objectiveMembers[m.ResourceID] = make(map[int64]MemberRole)
	}
	s.objectiveMembers[m.ResourceID][m.UserID] = m.Role
	return nil
}

func (s *MemoryStore) RemoveBoardMember(_ context.Context, boardID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boardMembers[boardID][userID]; !ok {
		return ErrNotFound
	}
	delete(s.boardMembers[boardID], userID)
	return nil
}

func (s *MemoryStore) RemoveObjectiveMember(_ context.Context, objectiveID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objectiveMembers[objectiveID][userID]; !ok {
		return ErrNotFound
	}
	delete(s.objectiveMembers[objectiveID], userID)
	return nil
}

func (f ListFilter) matches(creatorID int64, companyID *int64) bool {
	if f.OwnerID != 0 && creatorID != f.OwnerID {
		return false
	}
	if f.CompanyID != nil && !SameCompany(f.CompanyID, companyID) {
		return false
	}
	return true
}

func copyUser(u User) User {
	u.CompanyID = clonePtr(u.CompanyID)
	u.SubscriptionExpiresAt = clonePtr(u.SubscriptionExpiresAt)
	return u
}

func copyTeam(t Team) Team {
	t.CompanyID = clonePtr(t.CompanyID)
	t.MemberIDs = cloneIDs(t.MemberIDs)
	return t
}

func copyProject(p Project) Project {
	p.CompanyID = clonePtr(p.CompanyID)
	p.AssignedUserIDs = cloneIDs(p.AssignedUserIDs)
	p.TeamIDs = cloneIDs(p.TeamIDs)
	return p
}

func copyBoard(b Board) Board {
	b.CompanyID = clonePtr(b.CompanyID)
	b.ProjectID = clonePtr(b.ProjectID)
	b.AssignedUserIDs = cloneIDs(b.AssignedUserIDs)
	b.TeamIDs = cloneIDs(b.TeamIDs)
	return b
}

func copyObjective(o Objective) Objective {
	o.CompanyID = clonePtr(o.CompanyID)
	o.ProjectID = clonePtr(o.ProjectID)
	o.TeamID = clonePtr(o.TeamID)
	o.AssignedUserIDs = cloneIDs(o.AssignedUserIDs)
	o.TeamIDs = cloneIDs(o.TeamIDs)
	return o
}

func copyTask(t Task) Task {
	t.BoardID = clonePtr(t.BoardID)
	t.ProjectID = clonePtr(t.ProjectID)
	t.CompanyID = clonePtr(t.CompanyID)
	t.AssignedUserIDs = cloneIDs(t.AssignedUserIDs)
	return t
}
