// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package model holds the shared record types of spec §3 that do not
// belong to any single component: the authorization agreement produced by
// the authorization pipeline and consumed by every downstream token
// operation, the device-flow and CIBA request records, and rate-limiter
// state.
package model

import "time"

// RequestedClaims is the id-token/userinfo claim-name subsets a client
// asked for via the OIDC "claims" request parameter.
type RequestedClaims struct {
	IDToken  []string
	Userinfo []string
}

// AuthorizationContext is the authorization agreement of spec §3: the
// client/scope/resource/PKCE/nonce facts the authorization pipeline
// settles on, immutable once produced.
type AuthorizationContext struct {
	ClientID            string
	Scope                []string
	Resources            []string
	Nonce                string
	RedirectURI          string
	CodeChallenge        string
	CodeChallengeMethod  string
	RequestedClaims      RequestedClaims
}

// AuthorizedGrant is the tuple (AuthSession, AuthorizationContext) that
// every downstream token operation consumes (spec §3). Session is stored
// as the opaque session id rather than the full record, since it is
// re-fetched from the session store at redemption time to pick up any
// intervening mutation (e.g. a later sign-in tick appending another
// client).
type AuthorizedGrant struct {
	SessionID string
	Context   AuthorizationContext
}

// AuthorizationCodeRecord is the single-use authorization-code record of
// spec §3: `{grant, expires_at}`, removed on first redemption.
type AuthorizationCodeRecord struct {
	Grant     AuthorizedGrant
	ExpiresAt time.Time
}

// DeviceStatus is a DeviceRequest's lifecycle state (spec §3).
type DeviceStatus string

// Device-flow status values.
const (
	DevicePending    DeviceStatus = "pending"
	DeviceAuthorized DeviceStatus = "authorized"
	DeviceDenied     DeviceStatus = "denied"
	DeviceExpired    DeviceStatus = "expired"
)

// DeviceRequest is the RFC 8628 device-authorization record of spec §3,
// dual-indexed by device_code (primary) and user_code (secondary).
type DeviceRequest struct {
	DeviceCode string
	UserCode   string
	ClientID   string
	Scope      []string
	Resources  []string
	Status     DeviceStatus
	Grant      *AuthorizedGrant // set once Status == DeviceAuthorized
	Interval   time.Duration
	ExpiresAt  time.Time
}

// CIBAStatus is a CIBARequest's lifecycle state (spec §3, §4.3).
type CIBAStatus string

// CIBA status values.
const (
	CIBAPending      CIBAStatus = "pending"
	CIBAAuthenticated CIBAStatus = "authenticated"
	CIBADenied        CIBAStatus = "denied"
	CIBAExpired       CIBAStatus = "expired"
)

// CIBARequest is the backchannel-authentication record of spec §3/§4.3.
type CIBARequest struct {
	AuthReqID                   string
	ClientID                    string
	Grant                       *AuthorizedGrant // set once Status == CIBAAuthenticated
	Status                      CIBAStatus
	ClientNotificationEndpoint  string
	ClientNotificationToken     string
	Interval                    time.Duration
	ExpiresAt                   time.Time
}

// RateLimitState is the device-flow user-code rate-limiter record of
// spec §3/§4.4.
type RateLimitState struct {
	FirstFailureAt time.Time
	LastFailureAt  time.Time
	FailureCount   int
	BlockedUntil   time.Time
}

// Blocked reports whether the rate limiter is currently backing off.
func (s *RateLimitState) Blocked(now time.Time) bool {
	return s != nil && !s.BlockedUntil.IsZero() && now.Before(s.BlockedUntil)
}
