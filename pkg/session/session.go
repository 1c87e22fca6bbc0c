// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements the authenticated-user session record and
// store described in spec §3 (AuthSession) and §6 (Session store,
// component D).
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id names no session (never
// existed, was destroyed, or expired).
var ErrNotFound = errors.New("session: not found")

// AuthSession is the authenticated-user session record of spec §3.
type AuthSession struct {
	Subject             string
	SessionID           string
	AuthenticationTime  time.Time
	IdentityProvider    string
	ACR                 string // optional; empty means unset
	AffectedClientIDs   []string
}

// HasClient reports whether clientID already appears in AffectedClientIDs.
func (s *AuthSession) HasClient(clientID string) bool {
	for _, id := range s.AffectedClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

// Store is the narrow Session-store collaborator of spec §6/component D.
// Sessions are "created on interactive login; mutated by appending to
// affected_client_ids; destroyed on logout or TTL expiry" (spec §3).
type Store interface {
	// Get returns the session named by sessionID, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*AuthSession, error)

	// Put creates or replaces a session with the given TTL.
	Put(ctx context.Context, s *AuthSession, ttl time.Duration) error

	// AppendAffectedClient performs the sign-in tick of spec §4.1 step 6:
	// appending clientID to the session's affected-client set and
	// persisting it, without disturbing the session's TTL.
	AppendAffectedClient(ctx context.Context, sessionID, clientID string) error

	// Delete destroys a session (logout).
	Delete(ctx context.Context, sessionID string) error
}
