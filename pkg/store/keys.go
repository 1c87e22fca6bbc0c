// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package store

import "fmt"

// The functions below are the "typed key factory" spec §3's Ownership
// paragraph calls for: every record kind gets its own namespaced prefix so
// a single flat KVStore can multiplex all of them without collision.
const (
	prefixClient           = "client"
	prefixAuthCode         = "authcode"
	prefixAccessToken      = "access"
	prefixRefreshToken     = "refresh"
	prefixPKCE             = "pkce"
	prefixSession          = "session"
	prefixConsent          = "consent"
	prefixDeviceCode       = "device"
	prefixUserCode         = "usercode"
	prefixDeviceRateLimit  = "devicerl"
	prefixDeviceIPRate     = "devicerlip"
	prefixCIBA             = "ciba"
	prefixClientAssertion  = "cassertjwt"
	prefixSubjectSessions  = "subjsess"
)

// ClientKey returns the store key for a registered client's cached record.
func ClientKey(clientID string) string { return prefixClient + ":" + clientID }

// AuthCodeKey returns the store key for an authorization-code record.
func AuthCodeKey(code string) string { return prefixAuthCode + ":" + code }

// AccessTokenKey returns the store key for an access-token registry entry.
func AccessTokenKey(jti string) string { return prefixAccessToken + ":" + jti }

// RefreshTokenKey returns the store key for a refresh-token registry entry.
func RefreshTokenKey(jti string) string { return prefixRefreshToken + ":" + jti }

// PKCEKey returns the store key for a PKCE code-challenge record, keyed by
// the same opaque id as its authorization code.
func PKCEKey(code string) string { return prefixPKCE + ":" + code }

// SessionKey returns the store key for an AuthSession.
func SessionKey(sessionID string) string { return prefixSession + ":" + sessionID }

// ConsentKey returns the store key for a subject+client consent record.
func ConsentKey(subject, clientID string) string {
	return fmt.Sprintf("%s:%s:%s", prefixConsent, subject, clientID)
}

// DeviceCodeKey returns the store key for a DeviceRequest keyed by its
// primary index, the device_code.
func DeviceCodeKey(deviceCode string) string { return prefixDeviceCode + ":" + deviceCode }

// UserCodeKey returns the store key for the user_code -> device_code
// secondary index.
func UserCodeKey(userCode string) string { return prefixUserCode + ":" + userCode }

// DeviceRateLimitKey returns the store key for a user-code's per-code
// backoff state.
func DeviceRateLimitKey(userCode string) string { return prefixDeviceRateLimit + ":" + userCode }

// DeviceIPRateLimitKey returns the store key for a client IP's sliding-window
// failure count.
func DeviceIPRateLimitKey(ip string) string { return prefixDeviceIPRate + ":" + ip }

// CIBAKey returns the store key for a CIBA request keyed by auth_req_id.
func CIBAKey(authReqID string) string { return prefixCIBA + ":" + authReqID }

// ClientAssertionJWTKey returns the store key used to guard against replay
// of a client-assertion JWT's jti.
func ClientAssertionJWTKey(jti string) string { return prefixClientAssertion + ":" + jti }

// SubjectSessionsKey returns the store key for a subject's session-id
// index, the secondary index session.KVStore maintains so the
// authorization pipeline can enumerate a subject's existing sessions
// (spec §4.1 step 1) without a full store scan.
func SubjectSessionsKey(subject string) string { return prefixSubjectSessions + ":" + subject }
