// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package mint

import "github.com/go-jose/go-jose/v4"

// KeySet aggregates the public-key views of one or more Signers, for
// deployments that keep a retiring key reachable at jwks_uri during a
// rollover grace period while a new Signer handles new signatures.
type KeySet struct {
	signers []Signer
}

// NewKeySet builds a KeySet over signers, ordered newest-first.
func NewKeySet(signers ...Signer) *KeySet {
	return &KeySet{signers: signers}
}

// Publish returns the merged JWKS view, suitable for serving verbatim at
// the jwks_uri endpoint.
func (k *KeySet) Publish() jose.JSONWebKeySet {
	var merged jose.JSONWebKeySet
	for _, s := range k.signers {
		merged.Keys = append(merged.Keys, s.JWKS().Keys...)
	}
	return merged
}
