// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package authorize implements the Authorization Pipeline of spec §4.1:
// session enumeration under prompt/max_age/acr_values constraints,
// consent aggregation, the sign-in tick, and minting whichever of
// code/access-token/identity-token the response type calls for.
package authorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/model"
	"github.com/authcore/oidcauth/pkg/store"
)

// ErrCodeNotFound is returned when an authorization code names no record
// (never issued, already redeemed, or expired).
var ErrCodeNotFound = errors.New("authorize: code not found")

// CodeStore is the single-use authorization-code record store of spec §3:
// "{grant, expires_at}, single-use, keyed by an opaque code; removed on
// first redemption."
type CodeStore struct {
	backing store.KVStore
	clock   clock.TimeSource
}

// NewCodeStore builds a CodeStore over backing.
func NewCodeStore(backing store.KVStore, clk clock.TimeSource) *CodeStore {
	return &CodeStore{backing: backing, clock: clk}
}

// Issue generates a fresh opaque code and stores grant under it with the
// given TTL, returning the code.
func (s *CodeStore) Issue(ctx context.Context, grant model.AuthorizedGrant, ttl time.Duration) (string, error) {
	code := uuid.NewString()
	rec := model.AuthorizationCodeRecord{Grant: grant, ExpiresAt: s.clock.Now().Add(ttl)}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("authorize: encoding code record: %w", err)
	}
	if err := s.backing.Set(ctx, store.AuthCodeKey(code), raw, ttl); err != nil {
		return "", fmt.Errorf("authorize: storing code: %w", err)
	}
	return code, nil
}

// Redeem atomically removes and returns the record for code, per spec
// §5's "single atomic remove-and-return; the store must guarantee
// at-most-once successful read." A second Redeem of the same code, even
// concurrent with the first, observes ErrCodeNotFound.
func (s *CodeStore) Redeem(ctx context.Context, code string) (*model.AuthorizationCodeRecord, error) {
	raw, err := s.backing.GetAndRemove(ctx, store.AuthCodeKey(code))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authorize: redeeming code: %w", err)
	}
	var rec model.AuthorizationCodeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("authorize: decoding code record: %w", err)
	}
	if s.clock.Now().After(rec.ExpiresAt) {
		return nil, ErrCodeNotFound
	}
	return &rec, nil
}
