package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Bucket groups data records under a project.
type Bucket struct {
	ID          int64
	ProjectID   int64
	Name        string
	Description string
	CreatedAt   string
	CreatedBy   string
}

// Tag classifies data records within a bucket.
type Tag struct {
	ID          int64
	ProjectID   int64
	BucketID    int64
	Name        string
	Description string
}

// CreateBucket inserts a bucket and returns its id. Bucket names are
// unique per project.
func (s *Store) CreateBucket(ctx context.Context, b Bucket) (int64, error) {
	if b.Name == "" {
		return 0, fmt.Errorf("create bucket: name is required")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO buckets (project_id, bucket_name, description, created_at, created_by)
		VALUES (?, ?, ?, ?, ?)
	`, b.ProjectID, b.Name, b.Description, b.CreatedAt, b.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("create bucket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create bucket: last insert id: %w", err)
	}
	return id, nil
}

// ResolveBucket looks a bucket up by name within a project.
// Returns BucketNotFound if no bucket has that name.
func (s *Store) ResolveBucket(ctx context.Context, projectID int64, name string) (Bucket, error) {
	var b Bucket
	err := s.db.QueryRowContext(ctx, `
		SELECT bucket_id, project_id, bucket_name, description, created_at, created_by
		FROM buckets
		WHERE project_id = ? AND bucket_name = ?
	`, projectID, name).Scan(&b.ID, &b.ProjectID, &b.Name, &b.Description, &b.CreatedAt, &b.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return Bucket{}, bucketNotFound(name)
	}
	if err != nil {
		return Bucket{}, fmt.Errorf("resolve bucket: %w", err)
	}
	return b, nil
}

// CreateTag inserts a tag and returns its id. Tag names are unique per
// bucket, and the bucket must exist within the tag's project.
func (s *Store) CreateTag(ctx context.Context, t Tag) (int64, error) {
	if t.Name == "" {
		return 0, fmt.Errorf("create tag: name is required")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM buckets WHERE project_id = ? AND bucket_id = ?
	`, t.ProjectID, t.BucketID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("create tag: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("create tag: %w",
			&StoreError{Code: ErrCodeBucketNotFound, Message: "bucket not found", ID: t.BucketID})
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (project_id, bucket_id, tag_name, description)
		VALUES (?, ?, ?, ?)
	`, t.ProjectID, t.BucketID, t.Name, t.Description)
	if err != nil {
		return 0, fmt.Errorf("create tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create tag: last insert id: %w", err)
	}
	return id, nil
}

// ListTags returns all tags of a bucket ordered by id.
// Returns an empty slice (not nil) when the bucket has no tags.
func (s *Store) ListTags(ctx context.Context, projectID, bucketID int64) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id, project_id, bucket_id, tag_name, description
		FROM tags
		WHERE project_id = ? AND bucket_id = ?
		ORDER BY tag_id ASC
	`, projectID, bucketID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.BucketID, &t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("list tags: %w", err)
		}
		tags = append(tags, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	if tags == nil {
		tags = []Tag{}
	}
	return tags, nil
}

// checkTag verifies that a tag exists within the given scope before a data
// row references it.
func (s *Store) checkTag(ctx context.Context, projectID, bucketID, tagID int64) error {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tags
		WHERE project_id = ? AND bucket_id = ? AND tag_id = ?
	`, projectID, bucketID, tagID).Scan(&count)
	if err != nil {
		return fmt.Errorf("check tag: %w", err)
	}
	if count == 0 {
		return tagNotFound(tagID)
	}
	return nil
}
