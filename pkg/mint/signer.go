// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package mint

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// Header is the subset of JWS protected-header fields the minting
// subsystem cares about (spec §6 Signer: "sign(header,payload)->jws").
type Header struct {
	// Type is the JOSE "typ" header, e.g. "JWT" or "refresh+jwt" (spec
	// §4.7: refresh tokens carry typ=refresh+jwt so rotation/revocation
	// can be enforced purely from the registry without decoding claims).
	Type string
	// KeyID overrides the signer's default kid for this signature, for
	// multi-key rollover. Empty uses the signer's configured key id.
	KeyID string
}

// ErrInvalidSignature is returned by Verify when a JWS fails signature
// verification or was signed with an algorithm the verifier does not
// allow.
var ErrInvalidSignature = errors.New("mint: invalid signature")

// Signer is the narrow external collaborator of spec §6: JWT
// cryptographic primitives are treated as a black-box signer/verifier,
// never implemented against directly by the protocol pipelines.
type Signer interface {
	// Sign produces a compact JWS over payload, set under header.
	Sign(ctx context.Context, header Header, payload *Claims) (jws string, err error)
	// Verify checks jws's signature and returns its header and payload.
	// Returns ErrInvalidSignature (wrapped) on any verification failure.
	Verify(ctx context.Context, jws string) (header Header, payload *Claims, err error)
	// Algorithm reports the signing algorithm in use, so callers can pick
	// the paired hash for c_hash/at_hash (spec §4.7).
	Algorithm() jose.SignatureAlgorithm
	// JWKS returns the public-key view publishable at the jwks_uri.
	JWKS() jose.JSONWebKeySet
}

// JoseSigner is the default Signer, backed by go-jose. It holds exactly
// one signing key and verifies only signatures made with that key; a
// KeySet can publish the public keys of several JoseSigners together, but
// Verify does not fall back to any other signer's key.
type JoseSigner struct {
	alg         jose.SignatureAlgorithm
	keyID       string
	privateKey  any // crypto.Signer, or []byte for HS*
	publicKey   any // crypto.PublicKey; nil for HS*
	allowedAlgs []jose.SignatureAlgorithm
}

// NewJoseSigner builds a Signer for an asymmetric algorithm (RS*, PS*,
// ES*), where privateKey implements crypto.Signer and publicKey is its
// corresponding public key.
func NewJoseSigner(alg jose.SignatureAlgorithm, keyID string, privateKey crypto.Signer, publicKey crypto.PublicKey) *JoseSigner {
	return &JoseSigner{
		alg:         alg,
		keyID:       keyID,
		privateKey:  privateKey,
		publicKey:   publicKey,
		allowedAlgs: []jose.SignatureAlgorithm{alg},
	}
}

// NewJoseHMACSigner builds a Signer for HS256/HS384/HS512, where secret is
// the shared symmetric key. HMAC signers have no publishable public key;
// JWKS returns an empty set.
func NewJoseHMACSigner(alg jose.SignatureAlgorithm, keyID string, secret []byte) *JoseSigner {
	return &JoseSigner{
		alg:         alg,
		keyID:       keyID,
		privateKey:  secret,
		allowedAlgs: []jose.SignatureAlgorithm{alg},
	}
}

// Algorithm implements Signer.
func (s *JoseSigner) Algorithm() jose.SignatureAlgorithm { return s.alg }

// Sign implements Signer. The payload is marshaled through Claims'
// ordered MarshalJSON and signed as-is (not re-wrapped through go-jose's
// jwt.Builder) so callers get byte-stable output for a fixed Claims
// insertion order.
func (s *JoseSigner) Sign(_ context.Context, header Header, payload *Claims) (string, error) {
	opts := &jose.SignerOptions{}
	kid := header.KeyID
	if kid == "" {
		kid = s.keyID
	}
	if kid != "" {
		opts = opts.WithHeader("kid", kid)
	}
	typ := header.Type
	if typ == "" {
		typ = "JWT"
	}
	opts = opts.WithType(jose.ContentType(typ))

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: s.alg, Key: s.privateKey}, opts)
	if err != nil {
		return "", fmt.Errorf("mint: building signer: %w", err)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("mint: encoding claims: %w", err)
	}

	jws, err := signer.Sign(payloadBytes)
	if err != nil {
		return "", fmt.Errorf("mint: signing: %w", err)
	}
	compact, err := jws.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("mint: serializing jws: %w", err)
	}
	return compact, nil
}

// Verify implements Signer.
func (s *JoseSigner) Verify(_ context.Context, token string) (Header, *Claims, error) {
	sig, err := jose.ParseSigned(token, s.allowedAlgs)
	if err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	verifyKey := s.publicKey
	if verifyKey == nil {
		verifyKey = s.privateKey // HMAC: same secret verifies and signs
	}
	payloadBytes, err := sig.Verify(verifyKey)
	if err != nil {
		return Header{}, nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var data map[string]any
	if err := json.Unmarshal(payloadBytes, &data); err != nil {
		return Header{}, nil, fmt.Errorf("mint: decoding claims: %w", err)
	}
	claims := NewClaims()
	for k, v := range data {
		claims.Set(k, v)
	}

	protected := sig.Signatures[0].Header
	header := Header{KeyID: protected.KeyID}
	if typ, ok := protected.ExtraHeaders[jose.HeaderKey("typ")]; ok {
		if typStr, ok := typ.(string); ok {
			header.Type = typStr
		}
	}
	return header, claims, nil
}

// JWKS implements Signer.
func (s *JoseSigner) JWKS() jose.JSONWebKeySet {
	if s.publicKey == nil {
		return jose.JSONWebKeySet{}
	}
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{
			Key:       s.publicKey,
			KeyID:     s.keyID,
			Algorithm: string(s.alg),
			Use:       "sig",
		},
	}}
}

var _ Signer = (*JoseSigner)(nil)
