// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry implements the token registry of spec §3/§4.2/§4.6
// (component A): a revocation bitset keyed by token id (jti), TTL-bounded
// so entries auto-evict once they pass their expiry.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/logger"
	"github.com/authcore/oidcauth/pkg/store"
)

// Status is a registry entry's revocation state.
type Status string

// Status values per spec §3.
const (
	Active  Status = "active"
	Revoked Status = "revoked"
)

// ErrNotFound is returned when a jti has no registry entry (never
// registered, or evicted past its expiry).
var ErrNotFound = errors.New("registry: not found")

// Entry is the Token-registry entry of spec §3.
type Entry struct {
	Status Status    `json:"status"`
	Expiry time.Time `json:"expiry"`
}

// Registry is the token registry, component A.
type Registry struct {
	backing store.KVStore
	clock   clock.TimeSource
}

// New creates a Registry over backing.
func New(backing store.KVStore, clk clock.TimeSource) *Registry {
	return &Registry{backing: backing, clock: clk}
}

func (r *Registry) keyFor(jti string, refresh bool) string {
	if refresh {
		return store.RefreshTokenKey(jti)
	}
	return store.AccessTokenKey(jti)
}

// PutRefresh registers jti (a refresh token's id) as Active until expiry.
func (r *Registry) PutRefresh(ctx context.Context, jti string, expiry time.Time) error {
	return r.put(ctx, r.keyFor(jti, true), Entry{Status: Active, Expiry: expiry})
}

// PutAccess registers jti (an access token's id) as Active until expiry.
// Access tokens are registered so Introspection (§4.6) can report
// active:true/false without re-verifying the JWT signature.
func (r *Registry) PutAccess(ctx context.Context, jti string, expiry time.Time) error {
	return r.put(ctx, r.keyFor(jti, false), Entry{Status: Active, Expiry: expiry})
}

func (r *Registry) put(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("registry encode: %w", err)
	}
	ttl := e.Expiry.Sub(r.clock.Now())
	if ttl <= 0 {
		ttl = time.Second // already-expiring entries still get a minimal TTL so a racing Get can observe them
	}
	if err := r.backing.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("registry put: %w", err)
	}
	return nil
}

// GetRefresh returns the registry entry for a refresh-token jti.
func (r *Registry) GetRefresh(ctx context.Context, jti string) (*Entry, error) {
	return r.get(ctx, r.keyFor(jti, true))
}

// GetAccess returns the registry entry for an access-token jti.
func (r *Registry) GetAccess(ctx context.Context, jti string) (*Entry, error) {
	return r.get(ctx, r.keyFor(jti, false))
}

func (r *Registry) get(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.backing.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("registry decode: %w", err)
	}
	if r.clock.Now().After(e.Expiry) {
		return nil, ErrNotFound
	}
	return &e, nil
}

// RevokeRefresh flips a refresh-token jti's status to Revoked, keeping
// expiry so the entry evicts at the same time it would have naturally.
// This is the refresh-rotation invariant's core primitive (spec §4.2,
// §5: "status-flip to Revoked on the old jti MUST be durable before the
// new refresh token is returned to the client").
func (r *Registry) RevokeRefresh(ctx context.Context, jti string, expiry time.Time) error {
	if err := r.put(ctx, r.keyFor(jti, true), Entry{Status: Revoked, Expiry: expiry}); err != nil {
		return err
	}
	logger.Debugw("refresh token revoked", "jti", jti)
	return nil
}

// RevokeAccess flips an access-token jti's status to Revoked (spec §4.6
// Revocation).
func (r *Registry) RevokeAccess(ctx context.Context, jti string, expiry time.Time) error {
	if err := r.put(ctx, r.keyFor(jti, false), Entry{Status: Revoked, Expiry: expiry}); err != nil {
		return err
	}
	logger.Debugw("access token revoked", "jti", jti)
	return nil
}

// IsActive reports whether e is a non-nil, non-revoked entry. A nil entry
// (not found / evicted) is never active.
func (e *Entry) IsActive() bool {
	return e != nil && e.Status == Active
}
