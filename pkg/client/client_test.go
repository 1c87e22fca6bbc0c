// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseClient() *ClientInfo {
	return &ClientInfo{
		ID:            "c1",
		SecretHash:    []byte("hashed"),
		RedirectURIs:  []string{"https://c1.example.com/cb"},
		GrantTypes:    []string{"authorization_code"},
		ResponseTypes: []string{"code"},
		AllowedScopes: []string{"openid", "profile"},
		SubjectType:   SubjectPublic,
	}
}

func TestMatchRedirectURI_ExactOnly(t *testing.T) {
	t.Parallel()
	c := baseClient()

	assert.True(t, c.MatchRedirectURI("https://c1.example.com/cb"))
	assert.False(t, c.MatchRedirectURI("https://c1.example.com/cb/"))
	assert.False(t, c.MatchRedirectURI("https://c1.example.com/cb?x=1"))
	assert.False(t, c.MatchRedirectURI("http://127.0.0.1:9999/cb"))
}

func TestHasUnambiguousRedirectHost(t *testing.T) {
	t.Parallel()

	c := baseClient()
	c.RedirectURIs = []string{"https://a.example.com/one", "https://a.example.com/two"}
	assert.True(t, c.HasUnambiguousRedirectHost())

	c.RedirectURIs = []string{"https://a.example.com/one", "https://b.example.com/two"}
	assert.False(t, c.HasUnambiguousRedirectHost())

	c.RedirectURIs = nil
	assert.False(t, c.HasUnambiguousRedirectHost())
}

func TestSectorHost(t *testing.T) {
	t.Parallel()

	t.Run("uses sector identifier uri when present", func(t *testing.T) {
		t.Parallel()
		c := baseClient()
		c.SectorIdentifierURI = "https://sector.example.com/clients.json"
		c.RedirectURIs = []string{"https://a.example.com/one", "https://b.example.com/two"}
		host, err := c.SectorHost()
		require.NoError(t, err)
		assert.Equal(t, "sector.example.com", host)
	})

	t.Run("falls back to unambiguous redirect host", func(t *testing.T) {
		t.Parallel()
		c := baseClient()
		c.RedirectURIs = []string{"https://a.example.com/one", "https://a.example.com/two"}
		host, err := c.SectorHost()
		require.NoError(t, err)
		assert.Equal(t, "a.example.com", host)
	})

	t.Run("errors when ambiguous and no sector uri", func(t *testing.T) {
		t.Parallel()
		c := baseClient()
		c.RedirectURIs = []string{"https://a.example.com/one", "https://b.example.com/two"}
		_, err := c.SectorHost()
		assert.Error(t, err)
	})
}

func TestIsLoopbackHost(t *testing.T) {
	t.Parallel()
	assert.True(t, IsLoopbackHost("localhost"))
	assert.True(t, IsLoopbackHost("LOCALHOST"))
	assert.True(t, IsLoopbackHost("127.0.0.1"))
	assert.True(t, IsLoopbackHost("::1"))
	assert.False(t, IsLoopbackHost("example.com"))
}

func TestAllowsGrantAndResponseType(t *testing.T) {
	t.Parallel()
	c := baseClient()
	assert.True(t, c.AllowsGrantType("authorization_code"))
	assert.False(t, c.AllowsGrantType("client_credentials"))
	assert.True(t, c.AllowsResponseType("code"))
	assert.False(t, c.AllowsResponseType("token"))
}
