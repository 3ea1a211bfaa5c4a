package entity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/audit"
	"github.com/dmitrymomot/kanbax/pkg/entity"
)

func newAuditedStore(t *testing.T) (*entity.AuditedStore, *audit.MemoryStorage) {
	t.Helper()
	ctx := context.Background()
	mem := entity.NewMemoryStore()
	_, err := mem.CreateCompany(ctx, entity.Company{ID: 10, Name: "Acme"})
	require.NoError(t, err)
	for _, u := range []entity.User{
		{ID: 7, Email: "a@acme.io", CompanyID: entity.Ptr(int64(10))},
		{ID: 8, Email: "b@acme.io", CompanyID: entity.Ptr(int64(10))},
	} {
		_, err := mem.CreateUser(ctx, u)
		require.NoError(t, err)
	}
	storage := audit.NewMemoryStorage()
	return entity.NewAuditedStore(mem, audit.NewTrail(storage)), storage
}

func entriesFor(t *testing.T, storage *audit.MemoryStorage, action audit.Action) []audit.Entry {
	t.Helper()
	var out []audit.Entry
	for _, companyID := range []*int64{nil, entity.Ptr(int64(10))} {
		all, err := storage.Query(context.Background(), audit.Criteria{CompanyID: companyID})
		require.NoError(t, err)
		for _, e := range all {
			if e.Action == action {
				out = append(out, e)
			}
		}
	}
	return out
}

func TestAuditedStore_RecordsCreation(t *testing.T) {
	t.Parallel()

	t.Run("creator is the actor", func(t *testing.T) {
		t.Parallel()
		store, storage := newAuditedStore(t)

		board, err := store.CreateBoard(context.Background(), entity.Board{
			Title: "Roadmap", CreatorID: 7, CompanyID: entity.Ptr(int64(10)), ProjectID: entity.Ptr(int64(4)),
		})
		require.NoError(t, err)

		entries := entriesFor(t, storage, audit.ActionResourceCreated)
		require.Len(t, entries, 1)
		e := entries[0]
		assert.Equal(t, audit.ResourceCreated{Kind: "board", ResourceID: board.ID, Title: "Roadmap"}, e.Details)
		require.NotNil(t, e.ActorUserID)
		assert.Equal(t, int64(7), *e.ActorUserID)
		require.NotNil(t, e.CompanyID)
		assert.Equal(t, int64(10), *e.CompanyID)
		require.NotNil(t, e.Subject.BoardID)
		assert.Equal(t, board.ID, *e.Subject.BoardID)
		require.NotNil(t, e.Subject.ProjectID)
		assert.Equal(t, int64(4), *e.Subject.ProjectID)
	})

	t.Run("tasks take the context actor", func(t *testing.T) {
		t.Parallel()
		store, storage := newAuditedStore(t)
		ctx := entity.WithActor(context.Background(), 8)

		task, err := store.CreateTask(ctx, entity.Task{Title: "Ship", CompanyID: entity.Ptr(int64(10))})
		require.NoError(t, err)

		entries := entriesFor(t, storage, audit.ActionResourceCreated)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].ActorUserID)
		assert.Equal(t, int64(8), *entries[0].ActorUserID)
		require.NotNil(t, entries[0].Subject.TaskID)
		assert.Equal(t, task.ID, *entries[0].Subject.TaskID)
	})

	t.Run("task without an actor", func(t *testing.T) {
		t.Parallel()
		store, storage := newAuditedStore(t)

		_, err := store.CreateTask(context.Background(), entity.Task{Title: "Ship"})
		require.NoError(t, err)

		entries := entriesFor(t, storage, audit.ActionResourceCreated)
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].ActorUserID)
	})

	t.Run("every resource kind", func(t *testing.T) {
		t.Parallel()
		store, storage := newAuditedStore(t)
		ctx := context.Background()

		_, err := store.CreateTeam(ctx, entity.Team{Name: "Core", CreatorID: 7})
		require.NoError(t, err)
		_, err = store.CreateProject(ctx, entity.Project{Title: "Launch", CreatorID: 7})
		require.NoError(t, err)
		_, err = store.CreateObjective(ctx, entity.Objective{Title: "Grow", CreatorID: 7})
		require.NoError(t, err)

		kinds := []string{}
		for _, e := range entriesFor(t, storage, audit.ActionResourceCreated) {
			kinds = append(kinds, e.Details.(audit.ResourceCreated).Kind)
		}
		assert.ElementsMatch(t, []string{"team", "project", "objective"}, kinds)
	})
}

func TestAuditedStore_RecordsMembership(t *testing.T) {
	t.Parallel()
	ctx := entity.WithActor(context.Background(), 7)

	t.Run("board", func(t *testing.T) {
		t.Parallel()
		store, storage := newAuditedStore(t)
		board, err := store.CreateBoard(ctx, entity.Board{Title: "Roadmap", CreatorID: 7, CompanyID: entity.Ptr(int64(10))})
		require.NoError(t, err)

		require.NoError(t, store.AddBoardMember(ctx, entity.Member{ResourceID: board.ID, UserID: 8, Role: entity.RoleEditor}))
		ok, err := store.IsBoardMember(ctx, board.ID, 8)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, store.RemoveBoardMember(ctx, board.ID, 8))
		ok, err = store.IsBoardMember(ctx, board.ID, 8)
		require.NoError(t, err)
		assert.False(t, ok)

		added := entriesFor(t, storage, audit.ActionMemberAdded)
		require.Len(t, added, 1)
		assert.Equal(t, audit.MemberAdded{Kind: "board", ResourceID: board.ID, UserID: 8}, added[0].Details)
		require.NotNil(t, added[0].TargetUserID)
		assert.Equal(t, int64(8), *added[0].TargetUserID)
		require.NotNil(t, added[0].CompanyID, "tenant resolved from the board")
		assert.Equal(t, int64(10), *added[0].CompanyID)

		removed := entriesFor(t, storage, audit.ActionMemberRemoved)
		require.Len(t, removed, 1)
		assert.Equal(t, audit.MemberRemoved{Kind: "board", ResourceID: board.ID, UserID: 8}, removed[0].Details)
		require.NotNil(t, removed[0].ActorUserID)
		assert.Equal(t, int64(7), *removed[0].ActorUserID)
	})

	t.Run("objective", func(t *testing.T) {
		t.Parallel()
		store, storage := newAuditedStore(t)
		obj, err := store.CreateObjective(ctx, entity.Objective{Title: "Grow", CreatorID: 7, CompanyID: entity.Ptr(int64(10))})
		require.NoError(t, err)

		require.NoError(t, store.AddObjectiveMember(ctx, entity.Member{ResourceID: obj.ID, UserID: 8, Role: entity.RoleViewer}))
		require.NoError(t, store.RemoveObjectiveMember(ctx, obj.ID, 8))

		assert.Len(t, entriesFor(t, storage, audit.ActionMemberAdded), 1)
		removed := entriesFor(t, storage, audit.ActionMemberRemoved)
		require.Len(t, removed, 1)
		assert.Equal(t, audit.MemberRemoved{Kind: "objective", ResourceID: obj.ID, UserID: 8}, removed[0].Details)
	})

	t.Run("failed writes record nothing", func(t *testing.T) {
		t.Parallel()
		store, storage := newAuditedStore(t)

		err := store.AddBoardMember(ctx, entity.Member{ResourceID: 404, UserID: 8})
		assert.ErrorIs(t, err, entity.ErrNotFound)
		err = store.RemoveBoardMember(ctx, 404, 8)
		assert.ErrorIs(t, err, entity.ErrNotFound)
		err = store.RemoveObjectiveMember(ctx, 404, 8)
		assert.ErrorIs(t, err, entity.ErrNotFound)

		assert.Zero(t, storage.Len())
	})
}

func TestNewAuditedStore_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { entity.NewAuditedStore(nil, audit.NewTrail(audit.NewMemoryStorage())) })
	assert.Panics(t, func() { entity.NewAuditedStore(entity.NewMemoryStore(), nil) })
}
