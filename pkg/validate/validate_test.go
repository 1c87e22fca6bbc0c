// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/oidctest"
	"github.com/authcore/oidcauth/pkg/store"
)

func testClient() *client.ClientInfo {
	return &client.ClientInfo{
		ID:            "client-a",
		RedirectURIs:  []string{"https://app.example.com/callback"},
		ResponseTypes: []string{"code"},
		AllowedScopes: []string{"openid", "profile"},
		RequirePKCE:   true,
	}
}

func TestValidator_Authorization_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := NewValidator(oidctest.NewClientStore(testClient()))

	req, err := v.Authorization(ctx, RawAuthorizationRequest{
		ClientID:            "client-a",
		ResponseType:        "code",
		Scope:               "openid profile",
		RedirectURI:         "https://app.example.com/callback",
		CodeChallenge:       "challenge",
		CodeChallengeMethod: "S256",
		MaxAge:              "300",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, req.ResponseTypes)
	assert.Equal(t, []string{"openid", "profile"}, req.Scope)
	require.NotNil(t, req.MaxAge)
	assert.Equal(t, 300*time.Second, *req.MaxAge)
}

func TestValidator_Authorization_UnknownClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := NewValidator(oidctest.NewClientStore())

	_, err := v.Authorization(ctx, RawAuthorizationRequest{ClientID: "ghost", ResponseType: "code"})
	require.Error(t, err)
	assert.True(t, oidcerr.IsCode(err, "invalid_client"))
}

func TestValidator_Authorization_RedirectURIMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := NewValidator(oidctest.NewClientStore(testClient()))

	_, err := v.Authorization(ctx, RawAuthorizationRequest{
		ClientID:     "client-a",
		ResponseType: "code",
		RedirectURI:  "https://evil.example.com/callback",
	})
	require.Error(t, err)
	assert.True(t, oidcerr.IsCode(err, "invalid_request"))
}

func TestValidator_Authorization_UnsupportedResponseType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := NewValidator(oidctest.NewClientStore(testClient()))

	_, err := v.Authorization(ctx, RawAuthorizationRequest{
		ClientID:     "client-a",
		ResponseType: "token",
		RedirectURI:  "https://app.example.com/callback",
	})
	require.Error(t, err)
	assert.True(t, oidcerr.IsCode(err, "unsupported_response_type"))
}

func TestValidator_Authorization_ScopeNotAllowed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := NewValidator(oidctest.NewClientStore(testClient()))

	_, err := v.Authorization(ctx, RawAuthorizationRequest{
		ClientID:     "client-a",
		ResponseType: "code",
		RedirectURI:  "https://app.example.com/callback",
		Scope:        "openid admin",
	})
	require.Error(t, err)
	assert.True(t, oidcerr.IsCode(err, "invalid_scope"))
}

func TestValidator_Authorization_RequiresPKCE(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := NewValidator(oidctest.NewClientStore(testClient()))

	_, err := v.Authorization(ctx, RawAuthorizationRequest{
		ClientID:     "client-a",
		ResponseType: "code",
		RedirectURI:  "https://app.example.com/callback",
	})
	require.Error(t, err)
	assert.True(t, oidcerr.IsCode(err, "invalid_request"))
}

func TestValidator_Authorization_RejectsBadMaxAge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := NewValidator(oidctest.NewClientStore(testClient()))

	_, err := v.Authorization(ctx, RawAuthorizationRequest{
		ClientID:            "client-a",
		ResponseType:        "code",
		RedirectURI:         "https://app.example.com/callback",
		CodeChallenge:       "c",
		CodeChallengeMethod: "S256",
		MaxAge:              "not-a-number",
	})
	require.Error(t, err)
	assert.True(t, oidcerr.IsCode(err, "invalid_request"))
}

func TestResourceNarrowing(t *testing.T) {
	t.Parallel()

	err := ResourceNarrowing([]string{"https://api.example.com"}, nil)
	assert.NoError(t, err)

	err = ResourceNarrowing([]string{"https://api.example.com"}, []string{"https://api.example.com"})
	assert.NoError(t, err)

	err = ResourceNarrowing([]string{"https://api.example.com"}, []string{"https://other.example.com"})
	require.Error(t, err)
	assert.True(t, oidcerr.IsCode(err, "invalid_target"))
}

func TestRedirectURI(t *testing.T) {
	t.Parallel()

	c := &client.ClientInfo{AllowInsecureLocalhost: true}
	assert.NoError(t, RedirectURI(c, "https://app.example.com/callback"))
	assert.NoError(t, RedirectURI(c, "http://localhost:8080/callback"))
	assert.Error(t, RedirectURI(c, "http://app.example.com/callback"))

	restricted := &client.ClientInfo{AllowInsecureLocalhost: false}
	assert.Error(t, RedirectURI(restricted, "http://localhost:8080/callback"))
}

func TestClientAssertionGuard_DetectsReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := store.NewMemoryStore()
	t.Cleanup(func() { backing.Close() })
	guard := NewClientAssertionGuard(backing)

	require.NoError(t, guard.Check(ctx, "jti-1", time.Minute))
	err := guard.Check(ctx, "jti-1", time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplayed)
}

func TestClientAssertionGuard_DistinctJTIsDoNotCollide(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := store.NewMemoryStore()
	t.Cleanup(func() { backing.Close() })
	guard := NewClientAssertionGuard(backing)

	require.NoError(t, guard.Check(ctx, "jti-1", time.Minute))
	require.NoError(t, guard.Check(ctx, "jti-2", time.Minute))
}
