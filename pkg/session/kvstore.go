// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package session

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

// KVStore adapts a store.KVStore into a session.Store, the way every other
// record kind in this repository (auth codes, device/CIBA requests, rate
// limits) is a thin typed view over the same abstract KV store (spec §3's
// Ownership paragraph).
//
// Because the underlying KVStore interface only offers "set with TTL" (no
// "extend" or "read remaining TTL" primitive), KVStore wraps each session in
// an envelope that carries its own absolute expiry. That lets
// AppendAffectedClient re-persist the session (spec §4.1 step 6's "sign-in
// tick") without truncating or resetting its remaining lifetime.
type KVStore struct {
	backing store.KVStore
	clock   clock.TimeSource
}

// NewKVStore wraps backing as a session.Store.
func NewKVStore(backing store.KVStore, clk clock.TimeSource) *KVStore {
	return &KVStore{backing: backing, clock: clk}
}

type envelope struct {
	Session   AuthSession `json:"session"`
	ExpiresAt time.Time   `json:"expires_at,omitempty"` // zero means no expiry
}

// Get implements Store.
func (k *KVStore) Get(ctx context.Context, sessionID string) (*AuthSession, error) {
	env, err := k.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &env.Session, nil
}

func (k *KVStore) load(ctx context.Context, sessionID string) (*envelope, error) {
	raw, err := k.backing.Get(ctx, store.SessionKey(sessionID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session store get: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("session store decode: %w", err)
	}
	if !env.ExpiresAt.IsZero() && k.clock.Now().After(env.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &env, nil
}

func (k *KVStore) save(ctx context.Context, env *envelope, ttl time.Duration) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("session store encode: %w", err)
	}
	return k.backing.Set(ctx, store.SessionKey(env.Session.SessionID), raw, ttl)
}

// Put implements Store.
func (k *KVStore) Put(ctx context.Context, s *AuthSession, ttl time.Duration) error {
	env := &envelope{Session: *s}
	if ttl > 0 {
		env.ExpiresAt = k.clock.Now().Add(ttl)
	}
	if err := k.save(ctx, env, ttl); err != nil {
		return fmt.Errorf("session store put: %w", err)
	}
	if err := k.indexSubject(ctx, s.Subject, s.SessionID, ttl); err != nil {
		return fmt.Errorf("session store index: %w", err)
	}
	logger.Debugw("session stored", "sessionID", s.SessionID, "subject", s.Subject)
	return nil
}

// indexSubject adds sessionID to subject's session-id index, deduplicating
// and reusing the longer of the index's current TTL and ttl so the index
// never expires before any session it still names.
func (k *KVStore) indexSubject(ctx context.Context, subject, sessionID string, ttl time.Duration) error {
	key := store.SubjectSessionsKey(subject)
	ids, err := k.loadIndex(ctx, key)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == sessionID {
			return nil
		}
	}
	ids = append(ids, sessionID)
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding subject index: %w", err)
	}
	return k.backing.Set(ctx, key, raw, ttl)
}

func (k *KVStore) loadIndex(ctx context.Context, key string) ([]string, error) {
	raw, err := k.backing.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading subject index: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decoding subject index: %w", err)
	}
	return ids, nil
}

// ListBySubject implements authorize.SessionEnumerator: every session
// belonging to subject that has not yet expired or been destroyed. Entries
// the index still names but that have since evicted from the backing
// store are skipped rather than surfaced as an error.
func (k *KVStore) ListBySubject(ctx context.Context, subject string) ([]*AuthSession, error) {
	ids, err := k.loadIndex(ctx, store.SubjectSessionsKey(subject))
	if err != nil {
		return nil, err
	}
	sessions := make([]*AuthSession, 0, len(ids))
	for _, id := range ids {
		s, err := k.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("session store list by subject: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// AppendAffectedClient implements Store.
func (k *KVStore) AppendAffectedClient(ctx context.Context, sessionID, clientID string) error {
	env, err := k.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if env.Session.HasClient(clientID) {
		return nil
	}
	env.Session.AffectedClientIDs = append(env.Session.AffectedClientIDs, clientID)

	var remaining time.Duration
	if !env.ExpiresAt.IsZero() {
		remaining = env.ExpiresAt.Sub(k.clock.Now())
		if remaining <= 0 {
			return ErrNotFound
		}
	}
	if err := k.save(ctx, env, remaining); err != nil {
		return fmt.Errorf("session store append client: %w", err)
	}
	logger.Debugw("session sign-in tick", "sessionID", sessionID, "clientID", clientID)
	return nil
}

// Delete implements Store.
func (k *KVStore) Delete(ctx context.Context, sessionID string) error {
	if err := k.backing.Remove(ctx, store.SessionKey(sessionID)); err != nil {
		return fmt.Errorf("session store delete: %w", err)
	}
	logger.Debugw("session destroyed", "sessionID", sessionID)
	return nil
}

var _ Store = (*KVStore)(nil)
