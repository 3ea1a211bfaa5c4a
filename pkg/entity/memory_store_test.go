package entity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/entity"
)

func TestMemoryStore_Lookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := entity.NewMemoryStore()

	company, err := store.CreateCompany(ctx, entity.Company{ID: 10, Name: "Acme"})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, entity.User{ID: 7, Email: "a@acme.io", CompanyID: entity.Ptr(company.ID)})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, entity.User{ID: 8, Email: "b@acme.io", CompanyID: entity.Ptr(company.ID)})
	require.NoError(t, err)

	board, err := store.CreateBoard(ctx, entity.Board{Title: "Roadmap", CreatorID: 7, CompanyID: entity.Ptr(company.ID), AssignedUserIDs: []int64{8}})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		_, err := store.GetBoard(ctx, 999)
		assert.ErrorIs(t, err, entity.ErrNotFound)
		_, err = store.GetUser(ctx, 999)
		assert.ErrorIs(t, err, entity.ErrNotFound)
		_, err = store.GetPaymentInfo(ctx, company.ID)
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		t.Parallel()
		got, err := store.GetBoard(ctx, board.ID)
		require.NoError(t, err)
		got.AssignedUserIDs[0] = 99

		again, err := store.GetBoard(ctx, board.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{8}, again.AssignedUserIDs)
	})

	t.Run("company users", func(t *testing.T) {
		t.Parallel()
		ids, err := store.CompanyUserIDs(ctx, company.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 8}, ids)
	})

	t.Run("board ids include assignees", func(t *testing.T) {
		t.Parallel()
		ids, err := store.BoardIDsForUser(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, []int64{board.ID}, ids)
	})
}

func TestMemoryStore_Count(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := entity.NewMemoryStore()

	_, err := store.CreateCompany(ctx, entity.Company{ID: 1, Name: "Acme"})
	require.NoError(t, err)
	for _, u := range []entity.User{{ID: 2, CompanyID: entity.Ptr(int64(1))}, {ID: 3, CompanyID: entity.Ptr(int64(1))}, {ID: 4}} {
		_, err := store.CreateUser(ctx, u)
		require.NoError(t, err)
	}

	_, err = store.CreateProject(ctx, entity.Project{Title: "live", CreatorID: 2})
	require.NoError(t, err)
	_, err = store.CreateProject(ctx, entity.Project{Title: "old", CreatorID: 2, Archived: true})
	require.NoError(t, err)
	_, err = store.CreateProject(ctx, entity.Project{Title: "other", CreatorID: 4})
	require.NoError(t, err)

	_, err = store.CreateTask(ctx, entity.Task{Title: "a", AssignedUserIDs: []int64{2, 3}})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, entity.Task{Title: "b", AssignedUserIDs: []int64{4}})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query entity.CountQuery
		want  int64
	}{
		{"projects excluding archived", entity.CountQuery{Kind: entity.KindProject, CreatorIDs: []int64{2, 3}, ExcludeArchived: true}, 1},
		{"projects including archived", entity.CountQuery{Kind: entity.KindProject, CreatorIDs: []int64{2}}, 2},
		{"tasks counted once per task", entity.CountQuery{Kind: entity.KindTask, AssigneeIDs: []int64{2, 3}}, 1},
		{"company users", entity.CountQuery{Kind: entity.KindUser, CompanyID: entity.Ptr(int64(1))}, 2},
		{"users without company", entity.CountQuery{Kind: entity.KindUser}, 0},
		{"no creators", entity.CountQuery{Kind: entity.KindBoard}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := store.Count(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	t.Run("invalid kind", func(t *testing.T) {
		t.Parallel()
		_, err := store.Count(ctx, entity.CountQuery{Kind: "widget"})
		assert.ErrorIs(t, err, entity.ErrInvalidKind)
	})
}

func TestMemoryStore_SubscriptionWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := entity.NewMemoryStore()

	_, err := store.CreateCompany(ctx, entity.Company{ID: 1})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, entity.User{ID: 5, SubscriptionTier: "free"})
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour)
	require.NoError(t, store.UpdateUserSubscription(ctx, 5, "freelancer", "yearly", &expires))

	u, err := store.GetUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "freelancer", u.SubscriptionTier)
	assert.Equal(t, "yearly", u.SubscriptionBillingCycle)
	require.NotNil(t, u.SubscriptionExpiresAt)
	assert.WithinDuration(t, expires, *u.SubscriptionExpiresAt, 0)

	assert.ErrorIs(t, store.UpdateUserSubscription(ctx, 404, "free", "monthly", nil), entity.ErrNotFound)

	require.NoError(t, store.UpsertPaymentInfo(ctx, entity.PaymentInfo{CompanyID: 1, SubscriptionTier: "organisation", BillingCycle: "monthly"}))
	info, err := store.GetPaymentInfo(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "organisation", info.SubscriptionTier)

	assert.ErrorIs(t, store.UpsertPaymentInfo(ctx, entity.PaymentInfo{CompanyID: 2}), entity.ErrNotFound)
}
