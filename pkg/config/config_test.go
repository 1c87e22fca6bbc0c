// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSigningKey(t *testing.T) SigningKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return SigningKey{KeyID: "key-1", Algorithm: "RS256", Key: key}
}

func baseConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Issuer:         "https://issuer.example",
		SigningKey:     validSigningKey(t),
		PairwiseSecret: []byte("01234567890123456789012345678901"),
	}
}

func TestClientConfig_validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		client  ClientConfig
		wantErr string
	}{
		{name: "missing id", client: ClientConfig{RedirectURIs: []string{"https://app.example/cb"}}, wantErr: "client id is required"},
		{name: "missing redirect uris", client: ClientConfig{ID: "c"}, wantErr: "at least one redirect_uri is required"},
		{name: "confidential without secret", client: ClientConfig{ID: "c", RedirectURIs: []string{"https://app.example/cb"}}, wantErr: "secret is required"},
		{name: "valid confidential", client: ClientConfig{ID: "c", Secret: "s", RedirectURIs: []string{"https://app.example/cb"}}},
		{name: "valid public", client: ClientConfig{ID: "c", Public: true, RedirectURIs: []string{"https://app.example/cb"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.client.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSigningKey_Validate(t *testing.T) {
	t.Parallel()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	smallRSAKey, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	ecdsaKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name    string
		key     SigningKey
		wantErr string
	}{
		{name: "missing key id", key: SigningKey{Algorithm: "RS256", Key: rsaKey}, wantErr: "key id is required"},
		{name: "missing algorithm", key: SigningKey{KeyID: "k", Key: rsaKey}, wantErr: "algorithm is required"},
		{name: "missing key", key: SigningKey{KeyID: "k", Algorithm: "RS256"}, wantErr: "key is required"},
		{name: "rsa key too small", key: SigningKey{KeyID: "k", Algorithm: "RS256", Key: smallRSAKey}, wantErr: "must be at least"},
		{name: "rsa algorithm wrong key type", key: SigningKey{KeyID: "k", Algorithm: "RS256", Key: ecdsaKey}, wantErr: "requires *rsa.PrivateKey"},
		{name: "valid rsa", key: SigningKey{KeyID: "k", Algorithm: "RS256", Key: rsaKey}},
		{name: "ecdsa wrong curve", key: SigningKey{KeyID: "k", Algorithm: "ES384", Key: ecdsaKey}, wantErr: "requires curve"},
		{name: "valid ecdsa", key: SigningKey{KeyID: "k", Algorithm: "ES256", Key: ecdsaKey}},
		{name: "hmac secret too short", key: SigningKey{KeyID: "k", Algorithm: "HS256", Key: []byte("short")}, wantErr: "at least"},
		{name: "valid hmac", key: SigningKey{KeyID: "k", Algorithm: "HS256", Key: []byte("0123456789abcdef0123456789abcdef")}},
		{name: "unsupported algorithm", key: SigningKey{KeyID: "k", Algorithm: "EdDSA", Key: rsaKey}, wantErr: "unsupported algorithm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.key.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("missing issuer", func(t *testing.T) {
		t.Parallel()
		c := baseConfig(t)
		c.Issuer = ""
		assert.ErrorContains(t, c.Validate(), "issuer is required")
	})

	t.Run("short pairwise secret", func(t *testing.T) {
		t.Parallel()
		c := baseConfig(t)
		c.PairwiseSecret = []byte("short")
		assert.ErrorContains(t, c.Validate(), "pairwise secret")
	})

	t.Run("invalid client propagates with index", func(t *testing.T) {
		t.Parallel()
		c := baseConfig(t)
		c.Clients = []ClientConfig{{ID: "bad"}}
		assert.ErrorContains(t, c.Validate(), "client 0 (bad)")
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		c := baseConfig(t)
		assert.NoError(t, c.Validate())
	})
}

func TestConfig_Resolve_HashesSecretAndAppliesDefaults(t *testing.T) {
	t.Parallel()
	c := baseConfig(t)
	c.Clients = []ClientConfig{{
		ID:           "client-a",
		Secret:       "plaintext-secret",
		RedirectURIs: []string{"https://app.example/cb"},
		GrantTypes:   []string{"authorization_code"},
	}}

	infos, err := c.Resolve()
	require.NoError(t, err)
	require.Len(t, infos, 1)

	info := infos[0]
	assert.NotEqual(t, "plaintext-secret", string(info.SecretHash))
	assert.NotEmpty(t, info.SecretHash)
	assert.Equal(t, time.Hour, info.AccessTokenLifespan)
	assert.Equal(t, 30*24*time.Hour, info.RefreshTokenAbsoluteExpiry)
}

func TestConfig_Resolve_ClientOverridesServerDefault(t *testing.T) {
	t.Parallel()
	c := baseConfig(t)
	c.AccessTokenLifespan = time.Hour
	c.Clients = []ClientConfig{{
		ID:                  "client-a",
		Public:              true,
		RedirectURIs:        []string{"https://app.example/cb"},
		AccessTokenLifespan: 5 * time.Minute,
	}}

	infos, err := c.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, infos[0].AccessTokenLifespan)
}

func TestConfig_Resolve_InvalidConfigRejected(t *testing.T) {
	t.Parallel()
	c := baseConfig(t)
	c.Issuer = ""

	_, err := c.Resolve()
	assert.Error(t, err)
}

func TestConfig_Resolve_ClientFailingClientInfoValidateRejected(t *testing.T) {
	t.Parallel()
	c := baseConfig(t)
	// Passes ClientConfig.validate (has id/secret/redirect), but fails
	// client.ClientInfo.Validate()'s https-only invariant.
	c.Clients = []ClientConfig{{
		ID:           "client-a",
		Secret:       "s",
		RedirectURIs: []string{"http://app.example/cb"},
	}}

	_, err := c.Resolve()
	assert.ErrorContains(t, err, "must use https")
}
