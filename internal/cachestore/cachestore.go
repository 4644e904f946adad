// Package cachestore persists ClusterDescriptor results keyed by pet, with
// a TTL and explicit invalidation, on the same Redis backend as the stream.
package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
)

// Store is the per-pet cluster cache.
type Store interface {
	Put(ctx context.Context, petID string, descriptor domain.ClusterDescriptor, ttl time.Duration) error
	Get(ctx context.Context, petID string) (domain.ClusterDescriptor, error)
	Delete(ctx context.Context, petID string) (bool, error)
}

type redisStore struct {
	rdb       *redis.Client
	namespace string
}

// New builds a Redis-backed Store. namespace prefixes every key, so
// multiple environments can share one Redis instance.
func New(rdb *redis.Client, namespace string) Store {
	return &redisStore{rdb: rdb, namespace: namespace}
}

func (s *redisStore) key(petID string) string {
	return fmt.Sprintf("%s:pets:%s:cluster", s.namespace, petID)
}

// Put writes descriptor with an absolute TTL, overwriting any prior value.
func (s *redisStore) Put(ctx context.Context, petID string, descriptor domain.ClusterDescriptor, ttl time.Duration) error {
	data, err := json.Marshal(descriptor)
	if err != nil {
		return apperrors.New(apperrors.KindFatal, fmt.Errorf("cachestore: marshal descriptor for %s: %w", petID, err))
	}
	if err := s.rdb.Set(ctx, s.key(petID), data, ttl).Err(); err != nil {
		return apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("cachestore: set %s: %w", petID, err))
	}
	return nil
}

// Get returns the cached descriptor for petID, or a CacheMiss error if it
// has expired or was never written.
func (s *redisStore) Get(ctx context.Context, petID string) (domain.ClusterDescriptor, error) {
	data, err := s.rdb.Get(ctx, s.key(petID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ClusterDescriptor{}, apperrors.New(apperrors.KindCacheMiss, fmt.Errorf("no cluster cached for pet %s", petID))
		}
		return domain.ClusterDescriptor{}, apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("cachestore: get %s: %w", petID, err))
	}

	var descriptor domain.ClusterDescriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return domain.ClusterDescriptor{}, apperrors.New(apperrors.KindFatal, fmt.Errorf("cachestore: unmarshal %s: %w", petID, err))
	}
	return descriptor, nil
}

// Delete removes any cached descriptor for petID, reporting whether a key
// actually existed so callers can distinguish removed from noop. Deleting
// a key that does not exist is not an error.
func (s *redisStore) Delete(ctx context.Context, petID string) (bool, error) {
	n, err := s.rdb.Del(ctx, s.key(petID)).Result()
	if err != nil {
		return false, apperrors.New(apperrors.KindBrokerTransient, fmt.Errorf("cachestore: del %s: %w", petID, err))
	}
	return n > 0, nil
}
