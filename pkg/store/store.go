// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package store defines the abstract KV store spec §6 treats as an
// external collaborator ("the underlying distributed cache" is out of
// core scope) along with two reference implementations: an in-memory store
// for single-instance deployments and tests, and a Redis-backed store for
// distributed deployments.
//
// Every record the core owns (auth codes, refresh-token registry entries,
// device/CIBA requests, rate-limit state, sessions, consents) is stored as
// opaque bytes under a typed key produced by the functions in keys.go; the
// store itself never interprets the payload.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get and GetAndRemove when the key does not
// exist or has expired.
var ErrNotFound = errors.New("store: key not found")

// KVStore is the narrow storage interface of spec §6:
//
//	get(key)->bytes?, set(key,bytes,ttl), remove(key)
//
// plus GetAndRemove, the atomic primitive spec §5 requires for
// single-use authorization-code redemption ("a single atomic
// remove-and-return; the store must guarantee at-most-once successful
// read"). Implementations must linearize operations per key.
type KVStore interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key with the given TTL. A zero TTL means the
	// entry never expires on its own (callers are expected to Remove it).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// GetAndRemove atomically fetches and deletes key in one step, or
	// returns ErrNotFound if the key did not exist. Exactly one concurrent
	// caller observes a non-ErrNotFound result for any given key.
	GetAndRemove(ctx context.Context, key string) ([]byte, error)

	// Close releases any background resources (e.g. a cleanup goroutine).
	Close() error
}
