// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package device implements the RFC 8628 device-authorization engine of
// spec §4.4 (component J): dual-indexed device/user-code records, a
// per-user-code exponential backoff limiter, and a per-IP sliding-window
// limiter, plus the token-endpoint redemption side of the state machine.
package device

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/logger"
	"github.com/authcore/oidcauth/pkg/model"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/store"
	"github.com/authcore/oidcauth/pkg/token"
)

// ErrNotFound is returned when a device_code or user_code names no record.
var ErrNotFound = errors.New("device: not found")

// userCodeAlphabet excludes visually ambiguous characters (0/O, 1/I/L),
// matching RFC 8628 §6.1's recommendation.
const userCodeAlphabet = "BCDFGHJKMNPQRSTVWXZ23456789"

// Policy bounds the device-flow rate limiters (spec §4.4). All fields
// have sane defaults applied by NewEngine when left zero.
type Policy struct {
	// MaxFailuresBeforeBackoff is the number of mismatched user-code
	// lookups tolerated before a code starts backing off. Defaults to 5.
	MaxFailuresBeforeBackoff int
	// MaxBackoffDuration caps the exponential backoff window. Defaults to
	// 5 minutes.
	MaxBackoffDuration time.Duration
	// RateLimitSlidingWindow is the per-IP sliding window over which
	// failures are counted. Defaults to 1 minute.
	RateLimitSlidingWindow time.Duration
	// MaxIPFailuresPerMinute is the failure threshold within the sliding
	// window before an IP is rejected. Defaults to 20.
	MaxIPFailuresPerMinute int
}

func (p *Policy) applyDefaults() {
	if p.MaxFailuresBeforeBackoff == 0 {
		p.MaxFailuresBeforeBackoff = 5
	}
	if p.MaxBackoffDuration == 0 {
		p.MaxBackoffDuration = 5 * time.Minute
	}
	if p.RateLimitSlidingWindow == 0 {
		p.RateLimitSlidingWindow = time.Minute
	}
	if p.MaxIPFailuresPerMinute == 0 {
		p.MaxIPFailuresPerMinute = 20
	}
}

// Engine drives device-authorization requests.
type Engine struct {
	backing store.KVStore
	clients client.ClientInfoProvider
	tokens  *token.Pipeline
	clock   clock.TimeSource
	policy  Policy
}

// NewEngine builds an Engine over its collaborators.
func NewEngine(backing store.KVStore, clients client.ClientInfoProvider, tokens *token.Pipeline, clk clock.TimeSource, policy Policy) *Engine {
	policy.applyDefaults()
	return &Engine{backing: backing, clients: clients, tokens: tokens, clock: clk, policy: policy}
}

// Initiate creates a new Pending device-authorization record, dual-indexed
// by device_code (primary) and user_code (secondary), with matching TTLs.
func (e *Engine) Initiate(ctx context.Context, clientID string, scope, resources []string, interval, ttl time.Duration) (*model.DeviceRequest, error) {
	deviceCode, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("device: generating device_code: %w", err)
	}
	userCode, err := randomUserCode()
	if err != nil {
		return nil, fmt.Errorf("device: generating user_code: %w", err)
	}

	req := &model.DeviceRequest{
		DeviceCode: deviceCode,
		UserCode:   userCode,
		ClientID:   clientID,
		Scope:      scope,
		Resources:  resources,
		Status:     model.DevicePending,
		Interval:   interval,
		ExpiresAt:  e.clock.Now().Add(ttl),
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("device: encoding request: %w", err)
	}
	if err := e.backing.Set(ctx, store.DeviceCodeKey(deviceCode), raw, ttl); err != nil {
		return nil, fmt.Errorf("device: storing primary record: %w", err)
	}
	if err := e.backing.Set(ctx, store.UserCodeKey(userCode), []byte(deviceCode), ttl); err != nil {
		return nil, fmt.Errorf("device: storing secondary index: %w", err)
	}
	return req, nil
}

func (e *Engine) loadByDeviceCode(ctx context.Context, deviceCode string) (*model.DeviceRequest, error) {
	raw, err := e.backing.Get(ctx, store.DeviceCodeKey(deviceCode))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("device: loading request: %w", err)
	}
	var req model.DeviceRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("device: decoding request: %w", err)
	}
	return &req, nil
}

// LoadByUserCode resolves the user-facing verification code to its
// pending request, used by the verification-page handler.
func (e *Engine) LoadByUserCode(ctx context.Context, userCode string) (*model.DeviceRequest, error) {
	deviceCode, err := e.backing.Get(ctx, store.UserCodeKey(userCode))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("device: loading user_code index: %w", err)
	}
	return e.loadByDeviceCode(ctx, string(deviceCode))
}

func (e *Engine) remainingTTL(expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(e.clock.Now())
	if d <= 0 {
		return time.Second
	}
	return d
}

func (e *Engine) save(ctx context.Context, req *model.DeviceRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("device: encoding request: %w", err)
	}
	ttl := e.remainingTTL(req.ExpiresAt)
	if err := e.backing.Set(ctx, store.DeviceCodeKey(req.DeviceCode), raw, ttl); err != nil {
		return fmt.Errorf("device: storing primary record: %w", err)
	}
	return nil
}

// Complete transitions a Pending request to Authorized (carrying the
// grant) or Denied, resolved from its user_code by the verification-page
// handler.
func (e *Engine) Complete(ctx context.Context, userCode string, approved bool, grant *model.AuthorizedGrant) error {
	req, err := e.LoadByUserCode(ctx, userCode)
	if err != nil {
		return err
	}
	if approved {
		req.Status = model.DeviceAuthorized
		req.Grant = grant
	} else {
		req.Status = model.DeviceDenied
	}
	return e.save(ctx, req)
}

// CheckAsync enforces the per-user-code backoff and per-IP sliding-window
// limiters (spec §4.4, testable property 9) before a user-code lookup is
// permitted to proceed. Returns nil to proceed, or a *oidcerr.Error
// (slow_down-shaped with a retry_after hint) to reject.
func (e *Engine) CheckAsync(ctx context.Context, userCode, remoteIP string) error {
	now := e.clock.Now()

	ipState, err := e.loadRateLimit(ctx, store.DeviceIPRateLimitKey(remoteIP))
	if err != nil {
		return err
	}
	if ipState != nil && now.Sub(ipState.FirstFailureAt) < e.policy.RateLimitSlidingWindow && ipState.FailureCount >= e.policy.MaxIPFailuresPerMinute {
		retryAfter := e.policy.RateLimitSlidingWindow - now.Sub(ipState.FirstFailureAt)
		logger.Warnw("device-flow per-ip rate limit exceeded", "remoteIP", remoteIP, "retryAfter", retryAfter)
		return oidcerr.WithHint(oidcerr.SlowDown, fmt.Sprintf("retry_after=%d", int(retryAfter.Seconds())))
	}

	codeState, err := e.loadRateLimit(ctx, store.DeviceRateLimitKey(userCode))
	if err != nil {
		return err
	}
	if codeState.Blocked(now) {
		retryAfter := codeState.BlockedUntil.Sub(now)
		logger.Warnw("device-flow user-code backoff active", "userCode", userCode, "retryAfter", retryAfter)
		return oidcerr.WithHint(oidcerr.SlowDown, fmt.Sprintf("retry_after=%d", int(retryAfter.Seconds())))
	}
	return nil
}

// RecordFailure registers a mismatched user-code lookup against both the
// per-code backoff limiter and the per-IP sliding window, per spec §4.4.
func (e *Engine) RecordFailure(ctx context.Context, userCode, remoteIP string) error {
	now := e.clock.Now()

	codeState, err := e.loadRateLimit(ctx, store.DeviceRateLimitKey(userCode))
	if err != nil {
		return err
	}
	if codeState == nil {
		codeState = &model.RateLimitState{FirstFailureAt: now}
	}
	codeState.LastFailureAt = now
	codeState.FailureCount++
	if codeState.FailureCount > e.policy.MaxFailuresBeforeBackoff {
		n := codeState.FailureCount - e.policy.MaxFailuresBeforeBackoff
		backoff := time.Duration(math.Pow(2, float64(n))) * time.Second
		if backoff > e.policy.MaxBackoffDuration {
			backoff = e.policy.MaxBackoffDuration
		}
		codeState.BlockedUntil = now.Add(backoff)
		logger.Warnw("device-flow user-code blocked", "userCode", userCode, "failureCount", codeState.FailureCount, "blockedUntil", codeState.BlockedUntil)
	}
	if err := e.saveRateLimit(ctx, store.DeviceRateLimitKey(userCode), codeState, e.policy.MaxBackoffDuration); err != nil {
		return err
	}

	ipState, err := e.loadRateLimit(ctx, store.DeviceIPRateLimitKey(remoteIP))
	if err != nil {
		return err
	}
	if ipState == nil || now.Sub(ipState.FirstFailureAt) >= e.policy.RateLimitSlidingWindow {
		ipState = &model.RateLimitState{FirstFailureAt: now}
	}
	ipState.LastFailureAt = now
	ipState.FailureCount++
	if ipState.FailureCount >= e.policy.MaxIPFailuresPerMinute {
		logger.Warnw("device-flow per-ip rate limit tripped", "remoteIP", remoteIP, "failureCount", ipState.FailureCount)
	}
	return e.saveRateLimit(ctx, store.DeviceIPRateLimitKey(remoteIP), ipState, e.policy.RateLimitSlidingWindow)
}

func (e *Engine) loadRateLimit(ctx context.Context, key string) (*model.RateLimitState, error) {
	raw, err := e.backing.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("device: loading rate-limit state: %w", err)
	}
	var state model.RateLimitState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("device: decoding rate-limit state: %w", err)
	}
	return &state, nil
}

func (e *Engine) saveRateLimit(ctx context.Context, key string, state *model.RateLimitState, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("device: encoding rate-limit state: %w", err)
	}
	if err := e.backing.Set(ctx, key, raw, ttl); err != nil {
		return fmt.Errorf("device: storing rate-limit state: %w", err)
	}
	return nil
}

// Redeem is the token endpoint's urn:ietf:params:oauth:grant-type:device_code
// handler: Pending returns authorization_pending (or slow_down when polled
// faster than Interval), Denied/Expired return the matching protocol
// error, Authorized atomically removes both records and mints tokens.
func (e *Engine) Redeem(ctx context.Context, deviceCode string, lastPolledAt time.Time) (*token.TokenIssued, time.Time, error) {
	req, err := e.loadByDeviceCode(ctx, deviceCode)
	if err != nil {
		return nil, time.Time{}, oidcerr.New("invalid_grant", "unknown device_code", 400)
	}
	now := e.clock.Now()
	if now.After(req.ExpiresAt) {
		return nil, lastPolledAt, oidcerr.ExpiredToken
	}

	if !lastPolledAt.IsZero() && now.Sub(lastPolledAt) < req.Interval {
		return nil, lastPolledAt, oidcerr.SlowDown
	}

	switch req.Status {
	case model.DevicePending:
		return nil, now, oidcerr.AuthorizationPending
	case model.DeviceDenied:
		return nil, now, oidcerr.AccessDenied
	case model.DeviceExpired:
		return nil, now, oidcerr.ExpiredToken
	}

	c, err := e.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, now, oidcerr.New("invalid_client", "unknown client", 401)
	}
	if err := e.remove(ctx, req); err != nil {
		return nil, now, err
	}
	issued, err := e.tokens.IssueForGrant(ctx, c, *req.Grant)
	return issued, now, err
}

func (e *Engine) remove(ctx context.Context, req *model.DeviceRequest) error {
	if _, err := e.backing.GetAndRemove(ctx, store.DeviceCodeKey(req.DeviceCode)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return oidcerr.New("invalid_grant", "unknown device_code", 400)
		}
		return fmt.Errorf("device: removing primary record: %w", err)
	}
	if err := e.backing.Remove(ctx, store.UserCodeKey(req.UserCode)); err != nil {
		return fmt.Errorf("device: removing user_code index: %w", err)
	}
	return nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	const hexAlphabet = "0123456789abcdef"
	out := make([]byte, 2*n)
	for i, v := range b {
		out[2*i] = hexAlphabet[v>>4]
		out[2*i+1] = hexAlphabet[v&0x0f]
	}
	return string(out), nil
}

func randomUserCode() (string, error) {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		if i == 4 {
			sb.WriteByte('-')
		}
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(userCodeAlphabet))))
		if err != nil {
			return "", err
		}
		sb.WriteByte(userCodeAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}
