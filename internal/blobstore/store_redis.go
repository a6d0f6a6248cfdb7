package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dim/internal/sentinel"
	"dim/pkg/domain"
)

const redisBlobKeyPrefix = "dim:blob:"

// RedisStore persists blobs in Redis. Blobs are write-once and never expire.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores data under its content locator.
//
// Side effects: performs a Redis SETNX; an existing blob is never overwritten.
//
// Errors: wraps sentinel.ErrUnavailable when Redis cannot be reached.
func (s *RedisStore) Put(ctx context.Context, data []byte) (domain.Locator, error) {
	loc := LocatorFor(data)
	if err := s.client.SetNX(ctx, blobKey(loc), data, 0).Err(); err != nil {
		return "", fmt.Errorf("put blob: %w: %w", sentinel.ErrUnavailable, err)
	}
	return loc, nil
}

// Get loads a blob and checks it against its locator.
//
// Errors: returns sentinel.ErrNotFound on a miss, sentinel.ErrInvalidState on a content mismatch.
func (s *RedisStore) Get(ctx context.Context, locator domain.Locator) ([]byte, error) {
	data, err := s.client.Get(ctx, blobKey(locator)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get blob: %w: %w", sentinel.ErrUnavailable, err)
	}
	if err := Verify(locator, data); err != nil {
		return nil, err
	}
	return data, nil
}

func blobKey(loc domain.Locator) string {
	return redisBlobKeyPrefix + ContentID(loc)
}
