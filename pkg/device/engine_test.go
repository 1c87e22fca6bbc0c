// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/oidcauth/pkg/authorize"
	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/mint"
	"github.com/authcore/oidcauth/pkg/model"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/oidctest"
	"github.com/authcore/oidcauth/pkg/registry"
	"github.com/authcore/oidcauth/pkg/session"
	"github.com/authcore/oidcauth/pkg/store"
	"github.com/authcore/oidcauth/pkg/token"
)

func testEngine(t *testing.T, clk clock.TimeSource, policy Policy) (*Engine, *session.KVStore) {
	t.Helper()
	backing := store.NewMemoryStore()
	t.Cleanup(func() { backing.Close() })

	sessions := session.NewKVStore(backing, clk)
	codes := authorize.NewCodeStore(backing, clk)
	reg := registry.New(backing, clk)
	signer := oidctest.NewTestSigner(t)
	minter := mint.NewMinter(signer, mint.StaticIssuer("https://issuer.example.com"), []byte("pairwise-secret-pairwise-secret!"), clk)
	c := &client.ClientInfo{
		ID:                     "client-a",
		AllowedScopes:          []string{"openid"},
		AccessTokenLifespan:    time.Hour,
		IdentityTokenLifespan:  time.Hour,
	}
	clients := oidctest.NewClientStore(c)
	auth := oidctest.NewUserAuthenticator()
	tokens := token.NewPipeline(clients, sessions, codes, reg, minter, signer, auth, clk)

	return NewEngine(backing, clients, tokens, clk, policy), sessions
}

func TestEngine_InitiateAssignsDualIndexedRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	e, _ := testEngine(t, clk, Policy{})

	req, err := e.Initiate(ctx, "client-a", []string{"openid"}, nil, 5*time.Second, time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, req.DeviceCode)
	assert.NotEmpty(t, req.UserCode)
	assert.Equal(t, model.DevicePending, req.Status)

	byUserCode, err := e.LoadByUserCode(ctx, req.UserCode)
	require.NoError(t, err)
	assert.Equal(t, req.DeviceCode, byUserCode.DeviceCode)
}

func TestEngine_Redeem_PendingThenAuthorized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	e, sessions := testEngine(t, clk, Policy{})
	require.NoError(t, sessions.Put(ctx, &session.AuthSession{Subject: "u1", SessionID: "sess-1"}, time.Hour))

	req, err := e.Initiate(ctx, "client-a", []string{"openid"}, nil, 5*time.Second, time.Minute)
	require.NoError(t, err)

	_, _, err = e.Redeem(ctx, req.DeviceCode, time.Time{})
	assert.ErrorIs(t, err, oidcerr.AuthorizationPending)

	grant := &model.AuthorizedGrant{SessionID: "sess-1", Context: model.AuthorizationContext{ClientID: "client-a", Scope: []string{"openid"}}}
	require.NoError(t, e.Complete(ctx, req.UserCode, true, grant))

	issued, _, err := e.Redeem(ctx, req.DeviceCode, time.Time{})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.AccessToken)

	_, _, err = e.Redeem(ctx, req.DeviceCode, time.Time{})
	assert.True(t, oidcerr.IsCode(err, "invalid_grant"))
}

func TestEngine_Redeem_Denied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	e, _ := testEngine(t, clk, Policy{})

	req, err := e.Initiate(ctx, "client-a", []string{"openid"}, nil, 5*time.Second, time.Minute)
	require.NoError(t, err)

	require.NoError(t, e.Complete(ctx, req.UserCode, false, nil))

	_, _, err = e.Redeem(ctx, req.DeviceCode, time.Time{})
	assert.ErrorIs(t, err, oidcerr.AccessDenied)
}

func TestEngine_Redeem_PollTooFastYieldsSlowDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.NewMutable(time.Unix(1_700_000_000, 0))
	e, _ := testEngine(t, clk, Policy{})

	req, err := e.Initiate(ctx, "client-a", []string{"openid"}, nil, 5*time.Second, time.Minute)
	require.NoError(t, err)

	_, lastPolledAt, err := e.Redeem(ctx, req.DeviceCode, time.Time{})
	assert.ErrorIs(t, err, oidcerr.AuthorizationPending)

	clk.Advance(time.Second)
	_, lastPolledAt, err = e.Redeem(ctx, req.DeviceCode, lastPolledAt)
	assert.ErrorIs(t, err, oidcerr.SlowDown)

	clk.Advance(6 * time.Second)
	_, _, err = e.Redeem(ctx, req.DeviceCode, lastPolledAt)
	assert.ErrorIs(t, err, oidcerr.AuthorizationPending)
}

func TestEngine_Redeem_Expired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.NewMutable(time.Unix(1_700_000_000, 0))
	e, _ := testEngine(t, clk, Policy{})

	req, err := e.Initiate(ctx, "client-a", []string{"openid"}, nil, 5*time.Second, time.Second)
	require.NoError(t, err)

	clk.Advance(2 * time.Second)
	_, _, err = e.Redeem(ctx, req.DeviceCode, time.Time{})
	assert.ErrorIs(t, err, oidcerr.ExpiredToken)
}

func TestEngine_CheckAsync_BacksOffAfterThreshold(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.NewMutable(time.Unix(1_700_000_000, 0))
	e, _ := testEngine(t, clk, Policy{MaxFailuresBeforeBackoff: 2, MaxBackoffDuration: time.Minute})

	userCode := "AAAA-BBBB"
	for i := 0; i < 2; i++ {
		require.NoError(t, e.CheckAsync(ctx, userCode, "10.0.0.1"))
		require.NoError(t, e.RecordFailure(ctx, userCode, "10.0.0.1"))
	}

	// third failure crosses the threshold and should trip backoff.
	require.NoError(t, e.CheckAsync(ctx, userCode, "10.0.0.1"))
	require.NoError(t, e.RecordFailure(ctx, userCode, "10.0.0.1"))

	err := e.CheckAsync(ctx, userCode, "10.0.0.1")
	assert.True(t, oidcerr.IsCode(err, "slow_down"))

	clk.Advance(3 * time.Second)
	assert.NoError(t, e.CheckAsync(ctx, userCode, "10.0.0.1"))
}

func TestEngine_CheckAsync_PerIPWindowRejectsBurst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.NewMutable(time.Unix(1_700_000_000, 0))
	e, _ := testEngine(t, clk, Policy{MaxIPFailuresPerMinute: 3, RateLimitSlidingWindow: time.Minute, MaxFailuresBeforeBackoff: 1000})

	for i := 0; i < 3; i++ {
		require.NoError(t, e.RecordFailure(ctx, "code-1", "10.0.0.2"))
	}

	err := e.CheckAsync(ctx, "code-2", "10.0.0.2")
	assert.True(t, oidcerr.IsCode(err, "slow_down"))

	clk.Advance(61 * time.Second)
	assert.NoError(t, e.CheckAsync(ctx, "code-2", "10.0.0.2"))
}
