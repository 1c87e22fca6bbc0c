// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/mint"
	"github.com/authcore/oidcauth/pkg/oidctest"
	"github.com/authcore/oidcauth/pkg/registry"
	"github.com/authcore/oidcauth/pkg/session"
	"github.com/authcore/oidcauth/pkg/store"
)

func testService(t *testing.T, clk clock.TimeSource) (*Service, *mint.Minter, *registry.Registry) {
	t.Helper()
	backing := store.NewMemoryStore()
	t.Cleanup(func() { backing.Close() })

	signer := oidctest.NewTestSigner(t)
	minter := mint.NewMinter(signer, mint.StaticIssuer("https://issuer.example.com"), []byte("pairwise-secret-pairwise-secret!"), clk)
	reg := registry.New(backing, clk)
	return NewService(signer, reg), minter, reg
}

func TestService_Introspect_ActiveAccessToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	svc, minter, reg := testService(t, clk)

	c := &client.ClientInfo{ID: "client-a", AccessTokenLifespan: time.Hour}
	sess := &session.AuthSession{Subject: "u1", SessionID: "sess-1"}
	minted, err := minter.MintAccessToken(ctx, c, sess, []string{"openid"}, nil)
	require.NoError(t, err)
	require.NoError(t, reg.PutAccess(ctx, minted.JTI, minted.ExpiresAt))

	resp, err := svc.Introspect(ctx, minted.JWS)
	require.NoError(t, err)
	assert.True(t, resp.Active)
	assert.Equal(t, "u1", resp.Claims["sub"])

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, true, decoded["active"])
	assert.Equal(t, "u1", decoded["sub"])
}

func TestService_Introspect_InactiveWhenNotRegistered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	svc, minter, _ := testService(t, clk)

	c := &client.ClientInfo{ID: "client-a", AccessTokenLifespan: time.Hour}
	sess := &session.AuthSession{Subject: "u1", SessionID: "sess-1"}
	minted, err := minter.MintAccessToken(ctx, c, sess, []string{"openid"}, nil)
	require.NoError(t, err)

	resp, err := svc.Introspect(ctx, minted.JWS)
	require.NoError(t, err)
	assert.False(t, resp.Active)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"active":false}`, string(raw))
}

func TestService_Introspect_InactiveAfterRevocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	svc, minter, reg := testService(t, clk)

	c := &client.ClientInfo{ID: "client-a", AccessTokenLifespan: time.Hour}
	sess := &session.AuthSession{Subject: "u1", SessionID: "sess-1"}
	minted, err := minter.MintAccessToken(ctx, c, sess, []string{"openid"}, nil)
	require.NoError(t, err)
	require.NoError(t, reg.PutAccess(ctx, minted.JTI, minted.ExpiresAt))

	require.NoError(t, svc.Revoke(ctx, minted.JWS))

	resp, err := svc.Introspect(ctx, minted.JWS)
	require.NoError(t, err)
	assert.False(t, resp.Active)
}

func TestService_Introspect_InactiveOnBadSignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	svc, _, _ := testService(t, clk)

	resp, err := svc.Introspect(ctx, "not-a-jwt")
	require.NoError(t, err)
	assert.False(t, resp.Active)
}

func TestService_Revoke_RefreshTokenFlipsRegistryEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	svc, minter, reg := testService(t, clk)

	c := &client.ClientInfo{ID: "client-a", RefreshTokenAbsoluteExpiry: time.Hour, RefreshTokenSlidingExpiry: time.Hour}
	sess := &session.AuthSession{Subject: "u1", SessionID: "sess-1"}
	minted, err := minter.MintRefreshToken(ctx, c, sess, []string{"openid"}, nil, time.Time{})
	require.NoError(t, err)
	require.NoError(t, reg.PutRefresh(ctx, minted.JTI, minted.ExpiresAt))

	require.NoError(t, svc.Revoke(ctx, minted.JWS))

	entry, err := reg.GetRefresh(ctx, minted.JTI)
	require.NoError(t, err)
	assert.Equal(t, registry.Revoked, entry.Status)
}

func TestService_Revoke_UnknownTokenIsNotAnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := clock.Fixed(time.Unix(1_700_000_000, 0))
	svc, _, _ := testService(t, clk)

	assert.NoError(t, svc.Revoke(ctx, "garbage"))
}
