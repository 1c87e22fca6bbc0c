// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authcore/oidcauth/pkg/logger"
)

// RedisStore is a KVStore backed by Redis, for multi-instance deployments
// where the authorization server runs behind a load balancer and every
// replica must observe the same authorization-code/refresh-token state.
// Redis's per-key command ordering gives the linearizability spec §6
// requires, and GETDEL gives the atomic remove-and-return spec §5 demands
// for authorization-code redemption.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing *redis.Client. The caller owns the
// client's lifecycle: Close on this store does nothing and does not close
// the underlying client, so one client can be shared across several stores.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements KVStore.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set implements KVStore.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Remove implements KVStore.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// GetAndRemove implements KVStore using Redis's GETDEL, which atomically
// fetches and deletes the key server-side.
func (s *RedisStore) GetAndRemove(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Close releases no resources of its own; the *redis.Client it wraps is
// owned by the caller. It exists to satisfy KVStore.
func (s *RedisStore) Close() error {
	logger.Debug("redis store closed")
	return nil
}

var _ KVStore = (*RedisStore)(nil)
var _ KVStore = (*MemoryStore)(nil)
