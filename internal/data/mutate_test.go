package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgator/databucket-app/internal/rulesql"
	"github.com/amgator/databucket-app/internal/store"
)

func TestCreate_StampsCaller(t *testing.T) {
	svc, scope := newTestService(t, nil)

	rec, err := svc.Create(context.Background(), scope, Caller{Username: "alice"}, CreateRequest{
		Properties: map[string]any{"status": "new"},
	})
	require.NoError(t, err)

	assert.NotZero(t, rec.ID)
	assert.Equal(t, "alice", rec.CreatedBy)
	assert.Equal(t, "2024-03-01T10:00:00Z", rec.CreatedAt)
	assert.Equal(t, map[string]any{"status": "new"}, rec.Properties)
}

func TestCreate_UnknownTag(t *testing.T) {
	svc, scope := newTestService(t, nil)

	missing := int64(99)
	_, err := svc.Create(context.Background(), scope, Caller{Username: "alice"}, CreateRequest{
		TagID: &missing,
	})
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestModify_ByRules(t *testing.T) {
	svc, scope := newTestService(t, nil)
	ids := createRecords(t, svc, scope, "new", "new", "done")
	caller := Caller{Username: "editor"}

	affected, err := svc.Modify(context.Background(), scope, caller, statusFilter("new"), rulesql.Update{
		SetProperties: map[string]any{"status": "verified"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	row, err := svc.GetOne(context.Background(), scope, ids[0], nil)
	require.NoError(t, err)
	props := row["properties"].(map[string]any)
	assert.Equal(t, "verified", props["status"])
	assert.Equal(t, "editor", row["modifiedBy"])

	// The non-matching record is untouched.
	row, err = svc.GetOne(context.Background(), scope, ids[2], nil)
	require.NoError(t, err)
	props = row["properties"].(map[string]any)
	assert.Equal(t, "done", props["status"])
}

func TestModify_ByIDs(t *testing.T) {
	svc, scope := newTestService(t, nil)
	ids := createRecords(t, svc, scope, "new", "new")

	affected, err := svc.Modify(context.Background(), scope, Caller{Username: "editor"},
		Target{IDs: ids[:1]}, rulesql.Update{
			RemoveProperties: []string{"weight"},
		})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	row, err := svc.GetOne(context.Background(), scope, ids[0], nil)
	require.NoError(t, err)
	props := row["properties"].(map[string]any)
	assert.NotContains(t, props, "weight")
}

func TestDelete_ByRules(t *testing.T) {
	svc, scope := newTestService(t, nil)
	createRecords(t, svc, scope, "new", "new", "done")

	deleted, err := svc.Delete(context.Background(), scope, Caller{Username: "editor"}, statusFilter("new"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	page, err := svc.Get(context.Background(), scope, Query{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestDelete_ByIDs(t *testing.T) {
	svc, scope := newTestService(t, nil)
	ids := createRecords(t, svc, scope, "new", "new")

	deleted, err := svc.Delete(context.Background(), scope, Caller{Username: "editor"}, Target{IDs: ids[1:]})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = svc.GetOne(context.Background(), scope, ids[1], nil)
	assert.True(t, store.IsNotFound(err))
}
