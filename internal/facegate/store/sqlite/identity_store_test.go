package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
	sqlitestore "github.com/BrandonDHaskell/facegate/internal/facegate/store/sqlite"
)

func TestIdentityStore_InsertAndGet(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewIdentityStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	want := newIdentity("Ada", "ada@example.com", 4, 0.1, 0.2, 0.3)
	require.NoError(t, s.InsertIdentity(ctx, want))

	got, err := s.GetIdentity(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIdentityStore_GetMissing(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewIdentityStore(conn, newTestWriter(t, conn))

	_, err := s.GetIdentity(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIdentityStore_DuplicateEmailRejected(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewIdentityStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	require.NoError(t, s.InsertIdentity(ctx, newIdentity("Ada", "ada@example.com", 1, 1, 2)))
	err := s.InsertIdentity(ctx, newIdentity("Imposter", "ada@example.com", 9, 3, 4))
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	all, err := s.ListIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ada", all[0].Name)
}

func TestIdentityStore_ConcurrentSameEmail_OneWins(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewIdentityStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	const racers = 8
	results := make([]error, racers)
	var g errgroup.Group
	for i := 0; i < racers; i++ {
		g.Go(func() error {
			results[i] = s.InsertIdentity(ctx, newIdentity(fmt.Sprintf("racer-%d", i), "same@example.com", 1, 1, 1))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, store.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, wins)
}

func TestIdentityStore_ListInEnrollmentOrder(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewIdentityStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	emails := []string{"c@example.com", "a@example.com", "b@example.com"}
	for _, e := range emails {
		require.NoError(t, s.InsertIdentity(ctx, newIdentity(e, e, 1, 0, 0)))
	}

	all, err := s.ListIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range emails {
		assert.Equal(t, e, all[i].Email)
	}
}

func TestIdentityStore_UpdateAccessLevelAndActive(t *testing.T) {
	conn := openTestDB(t)
	s := sqlitestore.NewIdentityStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	rec := newIdentity("Ada", "ada@example.com", 1, 1, 2)
	require.NoError(t, s.InsertIdentity(ctx, rec))

	later := rec.EnrolledAt.Add(time.Hour)
	updated, err := s.UpdateAccessLevel(ctx, rec.ID, 7, later)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.AccessLevel)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, rec.EnrolledAt, updated.EnrolledAt)

	updated, err = s.SetActive(ctx, rec.ID, false, later)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	_, err = s.UpdateAccessLevel(ctx, uuid.New(), 2, later)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.SetActive(ctx, uuid.New(), true, later)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
