// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package mint

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeArtifactHash_RS256(t *testing.T) {
	t.Parallel()
	got, err := ComputeArtifactHash("the-authorization-code", "RS256")
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("the-authorization-code"))
	want := base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
	assert.Equal(t, want, got)
}

func TestComputeArtifactHash_UnknownAlgorithm(t *testing.T) {
	t.Parallel()
	_, err := ComputeArtifactHash("x", "EdDSA")
	assert.Error(t, err)
}

func TestComputeArtifactHash_AlgorithmFamilies(t *testing.T) {
	t.Parallel()
	for _, alg := range []string{"RS256", "ES256", "HS256", "PS256", "RS384", "ES384", "RS512", "ES512", "HS512"} {
		alg := alg
		t.Run(alg, func(t *testing.T) {
			t.Parallel()
			_, err := ComputeArtifactHash("artifact", alg)
			assert.NoError(t, err)
		})
	}
}
