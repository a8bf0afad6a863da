package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amgator/databucket-app/internal/rulesql"
)

const testTime = "2024-03-01T10:00:00Z"

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedBucket creates a bucket and returns its scope.
func seedBucket(t *testing.T, s *Store, projectID int64, name string) rulesql.Scope {
	t.Helper()
	id, err := s.CreateBucket(context.Background(), Bucket{
		ProjectID: projectID,
		Name:      name,
		CreatedAt: testTime,
		CreatedBy: "tester",
	})
	if err != nil {
		t.Fatalf("CreateBucket() failed: %v", err)
	}
	return rulesql.Scope{ProjectID: projectID, BucketID: id}
}

// seedTag creates a tag in a scope and returns its id.
func seedTag(t *testing.T, s *Store, scope rulesql.Scope, name string) int64 {
	t.Helper()
	id, err := s.CreateTag(context.Background(), Tag{
		ProjectID: scope.ProjectID,
		BucketID:  scope.BucketID,
		Name:      name,
	})
	if err != nil {
		t.Fatalf("CreateTag() failed: %v", err)
	}
	return id
}

// seedRecord inserts a data record in a scope and returns its id.
func seedRecord(t *testing.T, s *Store, scope rulesql.Scope, tagID *int64, props map[string]any) int64 {
	t.Helper()
	id, err := s.InsertData(context.Background(), NewRecord{
		ProjectID:  scope.ProjectID,
		BucketID:   scope.BucketID,
		TagID:      tagID,
		Properties: props,
		CreatedAt:  testTime,
		CreatedBy:  "tester",
	})
	if err != nil {
		t.Fatalf("InsertData() failed: %v", err)
	}
	return id
}

// scopeFragment compiles the bare scope constraint (no caller filter).
func scopeFragment(t *testing.T, scope rulesql.Scope) rulesql.Fragment {
	t.Helper()
	frag, err := rulesql.Compile(nil, scope)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return frag
}
