// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package mint

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyPKCE_Plain(t *testing.T) {
	t.Parallel()
	assert.NoError(t, VerifyPKCE(PKCEPlain, "verifier-value", "verifier-value"))
	assert.Error(t, VerifyPKCE(PKCEPlain, "verifier-value", "other"))
}

func TestVerifyPKCE_S256(t *testing.T) {
	t.Parallel()
	sum := sha256.Sum256([]byte("verifier-value"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	assert.NoError(t, VerifyPKCE(PKCES256, "verifier-value", challenge))
	assert.Error(t, VerifyPKCE(PKCES256, "verifier-value", "wrong-challenge"))
}

func TestVerifyPKCE_S512(t *testing.T) {
	t.Parallel()
	sum := sha512.Sum512([]byte("verifier-value"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	assert.NoError(t, VerifyPKCE(PKCES512, "verifier-value", challenge))
}

func TestVerifyPKCE_UnknownMethod(t *testing.T) {
	t.Parallel()
	assert.Error(t, VerifyPKCE("S1", "verifier-value", "whatever"))
}

func TestComputePKCEChallenge_Plain(t *testing.T) {
	t.Parallel()
	got, err := ComputePKCEChallenge(PKCEPlain, "abc")
	assert.NoError(t, err)
	assert.Equal(t, "abc", got)
}
