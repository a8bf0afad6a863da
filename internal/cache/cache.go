// Package cache provides an optional read-through cache for projected
// records. Caching is transparent to semantics: every mutation path
// invalidates the affected keys, and a cache miss always falls back to the
// store.
package cache

import (
	"context"
	"errors"

	"github.com/amgator/databucket-app/internal/store"
)

// ErrNotFound is returned when a record is not in the cache.
var ErrNotFound = errors.New("record not found in cache")

// Cache defines the interface for record caching operations.
type Cache interface {
	GetRecord(ctx context.Context, projectID, bucketID, recordID int64) (*store.Record, error)
	SetRecord(ctx context.Context, projectID, bucketID int64, rec *store.Record) error
	DeleteRecord(ctx context.Context, projectID, bucketID, recordID int64) error

	// DeleteBucket drops every cached record of a bucket. Used after bulk
	// mutations, where the affected ids are not individually known.
	DeleteBucket(ctx context.Context, projectID, bucketID int64) error
}

// NoOpCache implements the Cache interface but does nothing.
type NoOpCache struct{}

// GetRecord returns a not found error
func (c *NoOpCache) GetRecord(ctx context.Context, projectID, bucketID, recordID int64) (*store.Record, error) {
	return nil, ErrNotFound
}

// SetRecord does nothing
func (c *NoOpCache) SetRecord(ctx context.Context, projectID, bucketID int64, rec *store.Record) error {
	return nil
}

// DeleteRecord does nothing
func (c *NoOpCache) DeleteRecord(ctx context.Context, projectID, bucketID, recordID int64) error {
	return nil
}

// DeleteBucket does nothing
func (c *NoOpCache) DeleteBucket(ctx context.Context, projectID, bucketID int64) error {
	return nil
}
