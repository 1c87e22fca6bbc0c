// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package mint

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"
)

// ComputeArtifactHash implements spec §4.7's c_hash/at_hash recipe:
// "ASCII-encode the code/token, hash with the algorithm paired to the
// id-token signing algorithm (e.g. RS256→SHA-256), take the leftmost half
// of the digest, base64url-encode." idTokenAlg is the id-token's JOSE
// signing algorithm (e.g. "RS256", "ES384", "HS512").
func ComputeArtifactHash(artifact, idTokenAlg string) (string, error) {
	h, err := pairedHash(idTokenAlg)
	if err != nil {
		return "", err
	}
	h.Write([]byte(artifact))
	digest := h.Sum(nil)
	half := digest[:len(digest)/2]
	return base64.RawURLEncoding.EncodeToString(half), nil
}

// pairedHash returns the hash.Hash paired to a JOSE signing algorithm's
// bit strength: *256 algorithms pair with SHA-256, *384/*512 with
// SHA-384/SHA-512 respectively.
func pairedHash(alg string) (hash.Hash, error) {
	switch {
	case strings.HasSuffix(alg, "256"):
		return sha256.New(), nil
	case strings.HasSuffix(alg, "384"):
		return sha512.New384(), nil
	case strings.HasSuffix(alg, "512"):
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("mint: no paired hash for signing algorithm %q", alg)
	}
}
