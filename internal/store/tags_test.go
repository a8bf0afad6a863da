package store

import (
	"context"
	"testing"
)

func TestCreateBucket_Resolve(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateBucket(ctx, Bucket{
		ProjectID: 1, Name: "goods", Description: "warehouse stock",
		CreatedAt: testTime, CreatedBy: "tester",
	})
	if err != nil {
		t.Fatalf("CreateBucket() failed: %v", err)
	}

	b, err := s.ResolveBucket(ctx, 1, "goods")
	if err != nil {
		t.Fatalf("ResolveBucket() failed: %v", err)
	}
	if b.ID != id || b.Description != "warehouse stock" {
		t.Errorf("bucket = %+v", b)
	}
}

func TestResolveBucket_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ResolveBucket(context.Background(), 1, "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected BucketNotFound, got %v", err)
	}
}

func TestCreateBucket_DuplicateNameRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b := Bucket{ProjectID: 1, Name: "goods", CreatedAt: testTime, CreatedBy: "tester"}
	if _, err := s.CreateBucket(ctx, b); err != nil {
		t.Fatalf("CreateBucket() failed: %v", err)
	}
	if _, err := s.CreateBucket(ctx, b); err == nil {
		t.Fatal("duplicate bucket name accepted")
	}

	// The same name is fine under another project.
	b.ProjectID = 2
	if _, err := s.CreateBucket(ctx, b); err != nil {
		t.Fatalf("CreateBucket() in another project failed: %v", err)
	}
}

func TestCreateTag_RequiresName(t *testing.T) {
	s := createTestStore(t)
	scope := seedBucket(t, s, 1, "goods")

	_, err := s.CreateTag(context.Background(), Tag{
		ProjectID: scope.ProjectID, BucketID: scope.BucketID,
	})
	if err == nil {
		t.Fatal("tag without a name accepted")
	}
}

func TestCreateTag_RequiresBucket(t *testing.T) {
	s := createTestStore(t)

	_, err := s.CreateTag(context.Background(), Tag{
		ProjectID: 1, BucketID: 42, Name: "incoming",
	})
	if !IsNotFound(err) {
		t.Fatalf("expected BucketNotFound, got %v", err)
	}
}

func TestListTags(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	scope := seedBucket(t, s, 1, "goods")

	// Empty bucket: empty slice, not nil.
	tags, err := s.ListTags(ctx, scope.ProjectID, scope.BucketID)
	if err != nil {
		t.Fatalf("ListTags() failed: %v", err)
	}
	if tags == nil || len(tags) != 0 {
		t.Errorf("tags = %v, expected empty slice", tags)
	}

	seedTag(t, s, scope, "incoming")
	seedTag(t, s, scope, "verified")

	tags, err = s.ListTags(ctx, scope.ProjectID, scope.BucketID)
	if err != nil {
		t.Fatalf("ListTags() failed: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "incoming" || tags[1].Name != "verified" {
		t.Errorf("tags = %v", tags)
	}
}
