package subscription_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/svc/subscription"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("compare and swap", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()

		s, err := store.Create(ctx, subscription.Subscription{ID: uuidFor(1), UserID: 1, Status: subscription.StatusPending})
		require.NoError(t, err)
		assert.Equal(t, int64(1), s.Version)

		first := s
		first.ProviderSessionID = "cs_1"
		updated, err := store.Update(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)
		assert.Equal(t, s.CreatedAt, updated.CreatedAt)

		stale := s
		stale.ProviderSessionID = "cs_2"
		_, err = store.Update(ctx, stale)
		assert.ErrorIs(t, err, subscription.ErrConflict)

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "cs_1", got.ProviderSessionID)

		_, err = store.Update(ctx, subscription.Subscription{ID: uuidFor(9)})
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})

	t.Run("one active row per user", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()

		_, err := store.Create(ctx, subscription.Subscription{ID: uuidFor(1), UserID: 1, Status: subscription.StatusActive})
		require.NoError(t, err)
		_, err = store.Create(ctx, subscription.Subscription{ID: uuidFor(2), UserID: 1, Status: subscription.StatusActive})
		assert.ErrorIs(t, err, subscription.ErrConflict)

		pending, err := store.Create(ctx, subscription.Subscription{ID: uuidFor(3), UserID: 1, Status: subscription.StatusPending})
		require.NoError(t, err)
		pending.Status = subscription.StatusActive
		_, err = store.Update(ctx, pending)
		assert.ErrorIs(t, err, subscription.ErrConflict)

		_, err = store.Create(ctx, subscription.Subscription{ID: uuidFor(4), UserID: 2, Status: subscription.StatusActive})
		assert.NoError(t, err, "other users are independent")

		n, err := store.CountActive(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("latest and listing order", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()

		_, err := store.Latest(ctx, 1)
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)

		for i := byte(1); i <= 3; i++ {
			_, err := store.Create(ctx, subscription.Subscription{ID: uuidFor(i), UserID: 1, Status: subscription.StatusCancelled})
			require.NoError(t, err)
		}
		latest, err := store.Latest(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uuidFor(3), latest.ID)

		rows, err := store.ListByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, uuidFor(1), rows[2].ID)
	})

	t.Run("lookup by provider id", func(t *testing.T) {
		t.Parallel()
		store := subscription.NewMemoryStore()
		_, err := store.Create(ctx, subscription.Subscription{ID: uuidFor(1), UserID: 1, ProviderSubscriptionID: "sub_1"})
		require.NoError(t, err)

		got, err := store.GetByProviderID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, uuidFor(1), got.ID)

		_, err = store.GetByProviderID(ctx, "")
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to subscription.Status
		want     bool
	}{
		{subscription.StatusNone, subscription.StatusPending, true},
		{subscription.StatusNone, subscription.StatusActive, true},
		{subscription.StatusPending, subscription.StatusActive, true},
		{subscription.StatusPending, subscription.StatusFailed, true},
		{subscription.StatusPending, subscription.StatusCancelled, true},
		{subscription.StatusPending, subscription.StatusExpired, false},
		{subscription.StatusActive, subscription.StatusPending, true},
		{subscription.StatusActive, subscription.StatusCancelled, true},
		{subscription.StatusActive, subscription.StatusExpired, true},
		{subscription.StatusActive, subscription.StatusFailed, false},
		{subscription.StatusCancelled, subscription.StatusActive, false},
		{subscription.StatusExpired, subscription.StatusActive, false},
		{subscription.StatusFailed, subscription.StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, subscription.CanTransition(tt.from, tt.to))
		})
	}
}

func TestNewErrInvalidTransition(t *testing.T) {
	t.Parallel()

	err := subscription.NewErrInvalidTransition(subscription.StatusNone, subscription.StatusFailed)
	assert.ErrorIs(t, err, subscription.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "none -> failed")
}
