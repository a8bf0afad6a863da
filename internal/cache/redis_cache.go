package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/amgator/databucket-app/internal/store"
)

// RedisCache implements the Cache interface using Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(ctx context.Context, address string, ttlSeconds int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        address,
		Password:    "", // no password
		DB:          0,  // use default DB
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})

	// Test connection with the provided context
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}, nil
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func recordKey(projectID, bucketID, recordID int64) string {
	return fmt.Sprintf("record:%d:%d:%d", projectID, bucketID, recordID)
}

func bucketPattern(projectID, bucketID int64) string {
	return fmt.Sprintf("record:%d:%d:*", projectID, bucketID)
}

// GetRecord gets a record from the cache
func (c *RedisCache) GetRecord(ctx context.Context, projectID, bucketID, recordID int64) (*store.Record, error) {
	data, err := c.client.Get(ctx, recordKey(projectID, bucketID, recordID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

// SetRecord sets a record in the cache
func (c *RedisCache) SetRecord(ctx context.Context, projectID, bucketID int64, rec *store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, recordKey(projectID, bucketID, rec.ID), data, c.ttl).Err()
}

// DeleteRecord deletes a record from the cache
func (c *RedisCache) DeleteRecord(ctx context.Context, projectID, bucketID, recordID int64) error {
	return c.client.Del(ctx, recordKey(projectID, bucketID, recordID)).Err()
}

// DeleteBucket deletes every cached record of a bucket by key pattern.
func (c *RedisCache) DeleteBucket(ctx context.Context, projectID, bucketID int64) error {
	iter := c.client.Scan(ctx, 0, bucketPattern(projectID, bucketID), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
