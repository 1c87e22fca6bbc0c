// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package mint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaims_MarshalJSON_PreservesOrder(t *testing.T) {
	t.Parallel()
	c := NewClaims().Set("iss", "https://issuer.example").Set("sub", "u1").Set("aud", []string{"client-a"})

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"iss":"https://issuer.example","sub":"u1","aud":["client-a"]}`, string(raw))
}

func TestClaims_Set_OverwriteKeepsPosition(t *testing.T) {
	t.Parallel()
	c := NewClaims().Set("a", 1).Set("b", 2).Set("a", 3)

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"b":2}`, string(raw))
}

func TestClaims_SetIfNotZero(t *testing.T) {
	t.Parallel()
	c := NewClaims().SetIfNotZero("acr", "").SetIfNotZero("scope", []string{}).SetIfNotZero("nonce", "abc")

	_, ok := c.Get("acr")
	assert.False(t, ok)
	_, ok = c.Get("scope")
	assert.False(t, ok)
	v, ok := c.Get("nonce")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestClaims_Get_Missing(t *testing.T) {
	t.Parallel()
	c := NewClaims()
	_, ok := c.Get("missing")
	assert.False(t, ok)
}
