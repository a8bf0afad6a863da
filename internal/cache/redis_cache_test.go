package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgator/databucket-app/internal/store"
)

func createTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), mr.Addr(), 60)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testRecord(id int64) *store.Record {
	return &store.Record{
		ID:         id,
		Properties: map[string]any{"status": "new", "weight": 12.5},
		CreatedAt:  "2024-03-01T10:00:00Z",
		CreatedBy:  "tester",
		ModifiedAt: "2024-03-01T10:00:00Z",
		ModifiedBy: "tester",
	}
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c := createTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetRecord(ctx, 1, 2, testRecord(7)))

	got, err := c.GetRecord(ctx, 1, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, testRecord(7), got)
}

func TestRedisCache_MissReturnsNotFound(t *testing.T) {
	c := createTestCache(t)

	_, err := c.GetRecord(context.Background(), 1, 2, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisCache_DeleteRecord(t *testing.T) {
	c := createTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetRecord(ctx, 1, 2, testRecord(7)))
	require.NoError(t, c.DeleteRecord(ctx, 1, 2, 7))

	_, err := c.GetRecord(ctx, 1, 2, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisCache_DeleteBucketIsScoped(t *testing.T) {
	c := createTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetRecord(ctx, 1, 2, testRecord(7)))
	require.NoError(t, c.SetRecord(ctx, 1, 2, testRecord(8)))
	require.NoError(t, c.SetRecord(ctx, 1, 3, testRecord(9)))

	require.NoError(t, c.DeleteBucket(ctx, 1, 2))

	_, err := c.GetRecord(ctx, 1, 2, 7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.GetRecord(ctx, 1, 2, 8)
	assert.ErrorIs(t, err, ErrNotFound)

	// The neighboring bucket's record survives.
	got, err := c.GetRecord(ctx, 1, 3, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
}

func TestNoOpCache(t *testing.T) {
	c := &NoOpCache{}
	ctx := context.Background()

	require.NoError(t, c.SetRecord(ctx, 1, 2, testRecord(7)))
	_, err := c.GetRecord(ctx, 1, 2, 7)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, c.DeleteRecord(ctx, 1, 2, 7))
	require.NoError(t, c.DeleteBucket(ctx, 1, 2))
}
