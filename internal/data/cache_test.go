package data

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgator/databucket-app/internal/cache"
	"github.com/amgator/databucket-app/internal/rulesql"
)

func newCachedService(t *testing.T) (*Service, rulesql.Scope) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), mr.Addr(), 60)
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	return newTestService(t, rc)
}

func TestGetOne_ReadsThroughCache(t *testing.T) {
	svc, scope := newCachedService(t)
	ctx := context.Background()
	ids := createRecords(t, svc, scope, "new")

	// Create primes the cache; a read serves from it either way.
	row, err := svc.GetOne(ctx, scope, ids[0], nil)
	require.NoError(t, err)
	assert.Equal(t, ids[0], row["id"])
}

func TestModify_InvalidatesCachedRecords(t *testing.T) {
	svc, scope := newCachedService(t)
	ctx := context.Background()
	ids := createRecords(t, svc, scope, "new")

	// Prime the cache.
	_, err := svc.GetOne(ctx, scope, ids[0], nil)
	require.NoError(t, err)

	_, err = svc.Modify(ctx, scope, Caller{Username: "editor"}, statusFilter("new"), rulesql.Update{
		SetProperties: map[string]any{"status": "verified"},
	})
	require.NoError(t, err)

	// The read reflects the mutation, not a stale cached copy.
	row, err := svc.GetOne(ctx, scope, ids[0], nil)
	require.NoError(t, err)
	props := row["properties"].(map[string]any)
	assert.Equal(t, "verified", props["status"])
}

func TestDelete_InvalidatesCachedRecords(t *testing.T) {
	svc, scope := newCachedService(t)
	ctx := context.Background()
	ids := createRecords(t, svc, scope, "new")

	_, err := svc.GetOne(ctx, scope, ids[0], nil)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, scope, Caller{Username: "editor"}, Target{IDs: ids})
	require.NoError(t, err)

	_, err = svc.GetOne(ctx, scope, ids[0], nil)
	require.Error(t, err)
}

func TestReserve_InvalidatesClaimedRecords(t *testing.T) {
	svc, scope := newCachedService(t)
	ctx := context.Background()
	ids := createRecords(t, svc, scope, "new", "new")

	for _, id := range ids {
		_, err := svc.GetOne(ctx, scope, id, nil)
		require.NoError(t, err)
	}

	_, err := svc.Reserve(ctx, scope, Caller{Username: "worker1"}, ReserveRequest{Limit: 2})
	require.NoError(t, err)

	for _, id := range ids {
		row, err := svc.GetOne(ctx, scope, id, nil)
		require.NoError(t, err)
		assert.Equal(t, true, row["reserved"], "record %d", id)
	}
}
