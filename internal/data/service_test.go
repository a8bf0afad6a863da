package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amgator/databucket-app/internal/cache"
	"github.com/amgator/databucket-app/internal/rule"
	"github.com/amgator/databucket-app/internal/rulesql"
	"github.com/amgator/databucket-app/internal/store"
)

var testClock = func() time.Time {
	return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, c cache.Cache) (*Service, rulesql.Scope) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	bucketID, err := st.CreateBucket(context.Background(), store.Bucket{
		ProjectID: 1,
		Name:      "goods",
		CreatedAt: "2024-03-01T10:00:00Z",
		CreatedBy: "tester",
	})
	require.NoError(t, err)

	svc := New(st, Options{Cache: c, Clock: testClock})
	return svc, rulesql.Scope{ProjectID: 1, BucketID: bucketID}
}

func createRecords(t *testing.T, svc *Service, scope rulesql.Scope, statuses ...string) []int64 {
	t.Helper()
	var ids []int64
	for _, status := range statuses {
		rec, err := svc.Create(context.Background(), scope, Caller{Username: "tester"}, CreateRequest{
			Properties: map[string]any{"status": status, "weight": 12.5},
		})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	return ids
}

// statusFilter builds a server-rules filter on $.status.
func statusFilter(status string) Target {
	return Target{Filter: rule.Filter{Rules: map[string]any{"$.status": status}}}
}
