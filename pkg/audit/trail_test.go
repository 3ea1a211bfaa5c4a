package audit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/kanbax/pkg/audit"
)

type failingStorage struct {
	mu    sync.Mutex
	calls int
}

func (s *failingStorage) Store(context.Context, ...audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return errors.New("disk full")
}

func (s *failingStorage) Query(context.Context, audit.Criteria) ([]audit.Entry, error) {
	return nil, errors.New("disk full")
}

// steppingClock returns a time one second later on every call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func TestTrail_Append(t *testing.T) {
	t.Parallel()

	t.Run("fills id, action and timestamp", func(t *testing.T) {
		t.Parallel()
		store := audit.NewMemoryStorage()
		trail := audit.NewTrail(store)

		trail.Append(context.Background(), audit.Entry{
			ActorUserID: ptr(1),
			CompanyID:   ptr(10),
			Details:     audit.SubscriptionActivated{SubscriptionID: "sub-1"},
		})

		entries, err := trail.ListForCompany(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Len(t, entries[0].ID, 26)
		assert.Equal(t, audit.ActionSubscriptionActivated, entries[0].Action)
		assert.False(t, entries[0].CreatedAt.IsZero())
	})

	t.Run("storage failure does not reach the caller", func(t *testing.T) {
		t.Parallel()
		store := &failingStorage{}
		trail := audit.NewTrail(store)

		assert.NotPanics(t, func() {
			trail.Append(context.Background(), audit.Entry{Details: audit.SubscriptionExpired{Tier: "free"}})
		})
		assert.Equal(t, 1, store.calls)
	})

	t.Run("cancelled request context still stores", func(t *testing.T) {
		t.Parallel()
		store := audit.NewMemoryStorage()
		trail := audit.NewTrail(store)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		trail.Append(ctx, audit.Entry{Details: audit.SubscriptionExpired{Tier: "free"}})

		assert.Equal(t, 1, store.Len())
	})

	t.Run("invalid entry is dropped", func(t *testing.T) {
		t.Parallel()
		store := audit.NewMemoryStorage()
		trail := audit.NewTrail(store)

		trail.Append(context.Background(), audit.Entry{Action: audit.ActionMemberAdded})
		assert.Equal(t, 0, store.Len())
	})
}

func TestTrail_ListForCompany(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage()
	trail := audit.NewTrail(store, audit.WithClock(steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	for i := range 3 {
		trail.Append(ctx, audit.Entry{
			CompanyID: ptr(10),
			Details:   audit.ResourceCreated{Kind: "board", ResourceID: int64(i + 1)},
		})
	}
	trail.Append(ctx, audit.Entry{CompanyID: ptr(11), Details: audit.ResourceCreated{Kind: "board", ResourceID: 99}})
	trail.Append(ctx, audit.Entry{Details: audit.ResourceCreated{Kind: "board", ResourceID: 100}})

	entries, err := trail.ListForCompany(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, want := range []int64{3, 2, 1} {
		assert.Equal(t, want, entries[i].Details.(audit.ResourceCreated).ResourceID)
	}
}

func TestTrail_ListForCompanyCap(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage()
	trail := audit.NewTrail(store)
	ctx := context.Background()

	batch := make([]audit.Entry, 0, audit.DefaultListLimit+20)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range audit.DefaultListLimit + 20 {
		batch = append(batch, audit.Entry{
			ID:        fmt.Sprintf("%06d", i),
			CompanyID: ptr(10),
			Action:    audit.ActionSubscriptionExpired,
			Details:   audit.SubscriptionExpired{Tier: "free"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, store.Store(ctx, batch...))

	entries, err := trail.ListForCompany(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, audit.DefaultListLimit)
	assert.Equal(t, fmt.Sprintf("%06d", audit.DefaultListLimit+19), entries[0].ID)
}

func TestTrail_QueryInvolving(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage()
	trail := audit.NewTrail(store, audit.WithClock(steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	trail.Append(ctx, audit.Entry{ActorUserID: ptr(8), CompanyID: ptr(10), Details: audit.ResourceCreated{Kind: "task", ResourceID: 1}})
	trail.Append(ctx, audit.Entry{ActorUserID: ptr(2), CompanyID: ptr(10), Subject: audit.Subject{BoardID: ptr(3)}, Details: audit.ResourceCreated{Kind: "task", ResourceID: 2}})
	trail.Append(ctx, audit.Entry{ActorUserID: ptr(2), CompanyID: ptr(10), Subject: audit.Subject{BoardID: ptr(4)}, Details: audit.ResourceCreated{Kind: "task", ResourceID: 3}})
	trail.Append(ctx, audit.Entry{ActorUserID: ptr(2), TargetUserID: ptr(8), CompanyID: ptr(10), Details: audit.MemberAdded{Kind: "team", ResourceID: 5, UserID: 8}})

	entries, err := trail.Query(ctx, audit.Criteria{
		CompanyID: ptr(10),
		Involving: &audit.Involvement{UserID: 8, BoardIDs: []int64{3}},
		Limit:     100,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, audit.ActionMemberAdded, entries[0].Action)
	assert.Equal(t, int64(2), entries[1].Details.(audit.ResourceCreated).ResourceID)
	assert.Equal(t, int64(1), entries[2].Details.(audit.ResourceCreated).ResourceID)
}

func TestTrail_QueryFailure(t *testing.T) {
	t.Parallel()

	trail := audit.NewTrail(&failingStorage{})
	_, err := trail.ListForCompany(context.Background(), 1)
	assert.ErrorIs(t, err, audit.ErrQueryFailed)
}
