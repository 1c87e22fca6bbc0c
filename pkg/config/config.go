// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the pure, fully-resolved configuration for the
// authorization server: no file paths, no environment variables, no I/O.
// Resolve bcrypt-hashes client secrets and validates policy invariants,
// turning a ClientConfig list into runtime client.ClientInfo records.
package config

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/logger"
)

// MinRSAKeyBits is the minimum accepted RSA signing-key size, per NIST SP
// 800-57.
const MinRSAKeyBits = 2048

// MinHMACSecretLength is the minimum accepted length, in bytes, for the
// server-wide pairwise-subject salt.
const MinHMACSecretLength = 32

// Config is the pure configuration for the authorization server.
type Config struct {
	// Issuer is the issuer identifier included in the "iss" claim of every
	// issued JWT (spec §6 IssuerProvider).
	Issuer string

	// SigningKey signs access/identity/refresh/logout JWTs (spec §4.7).
	SigningKey SigningKey

	// PairwiseSecret salts pairwise-subject derivation (spec §4.7). Must be
	// at least MinHMACSecretLength bytes, cryptographically random, and
	// stable across restarts and replicas. Rotating it silently changes
	// every pairwise client's view of every subject.
	PairwiseSecret []byte

	// AccessTokenLifespan is the default access-token lifetime applied to
	// any client that does not set its own. Defaults to 1 hour.
	AccessTokenLifespan time.Duration
	// IdentityTokenLifespan is the default identity-token lifetime.
	// Defaults to 1 hour.
	IdentityTokenLifespan time.Duration
	// RefreshTokenAbsoluteExpiry is the default refresh-token absolute
	// lifetime. Defaults to 30 days.
	RefreshTokenAbsoluteExpiry time.Duration
	// RefreshTokenSlidingExpiry is the default refresh-token sliding
	// lifetime. Defaults to 7 days.
	RefreshTokenSlidingExpiry time.Duration
	// AuthCodeLifespan is the default authorization-code lifetime.
	// Defaults to 10 minutes.
	AuthCodeLifespan time.Duration

	// Clients is the list of pre-registered OAuth/OIDC clients.
	Clients []ClientConfig
}

// SigningKey configures the JWT signing key (spec §4.7's black-box
// Signer, concretely backed by pkg/mint.JoseSigner).
type SigningKey struct {
	// KeyID is the unique identifier used in the JWT "kid" header.
	KeyID string
	// Algorithm is the JOSE signing algorithm, e.g. "RS256", "ES256".
	Algorithm string
	// Key is the private signing key. Must implement crypto.Signer, except
	// for HS* algorithms where it is a []byte HMAC secret (not validated
	// against crypto.Signer below).
	Key any
}

// ClientConfig is a pre-registered client's input configuration: a
// plaintext secret (hashed by Resolve), not yet validated against
// client.ClientInfo's invariants.
type ClientConfig struct {
	ID                         string
	Secret                     string // plaintext; hashed by Resolve. Empty for public clients.
	Public                     bool
	RedirectURIs               []string
	PostLogoutRedirectURIs     []string
	GrantTypes                 []string
	ResponseTypes              []string
	AllowedScopes              []string
	SectorIdentifierURI        string
	SubjectType                client.SubjectType
	RequirePKCE                bool
	AllowOfflineAccess         bool
	AccessTokenLifespan        time.Duration
	IdentityTokenLifespan      time.Duration
	RefreshTokenLifespan       time.Duration
	AuthCodeLifespan           time.Duration
	RefreshTokenAllowReuse     bool
	RefreshTokenAbsoluteExpiry time.Duration
	RefreshTokenSlidingExpiry  time.Duration
	IDTokenSignedResponseAlg   string
	ForceUserClaimsInIDToken   bool
	FrontChannelLogoutURI         string
	FrontChannelLogoutSessionReqd bool
	BackChannelLogoutURI          string
	BackChannelLogoutSessionReqd  bool
	CIBAClientNotificationEndpoint string
	CIBADeliveryMode                client.CIBADeliveryMode
	AllowInsecureLocalhost bool
}

// Validate checks Config's invariants, independent of defaulting.
func (c *Config) Validate() error {
	logger.Debugw("validating server config", "issuer", c.Issuer)

	if c.Issuer == "" {
		return fmt.Errorf("issuer is required")
	}
	if err := c.SigningKey.Validate(); err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	if len(c.PairwiseSecret) < MinHMACSecretLength {
		return fmt.Errorf("pairwise secret must be at least %d bytes", MinHMACSecretLength)
	}
	for i, cc := range c.Clients {
		if err := cc.validate(); err != nil {
			return fmt.Errorf("client %d (%s): %w", i, cc.ID, err)
		}
	}

	logger.Debugw("server config validation passed", "clientCount", len(c.Clients))
	return nil
}

// Validate checks the SigningKey's algorithm/key-type pairing.
func (k *SigningKey) Validate() error {
	if k.KeyID == "" {
		return fmt.Errorf("key id is required")
	}
	if k.Algorithm == "" {
		return fmt.Errorf("algorithm is required")
	}
	if k.Key == nil {
		return fmt.Errorf("key is required")
	}

	switch k.Algorithm {
	case "RS256", "RS384", "RS512", "PS256", "PS384", "PS512":
		rsaKey, ok := k.Key.(*rsa.PrivateKey)
		if !ok {
			return fmt.Errorf("algorithm %s requires *rsa.PrivateKey, got %T", k.Algorithm, k.Key)
		}
		if rsaKey.N.BitLen() < MinRSAKeyBits {
			return fmt.Errorf("RSA key must be at least %d bits, got %d", MinRSAKeyBits, rsaKey.N.BitLen())
		}
	case "ES256", "ES384", "ES512":
		ecdsaKey, ok := k.Key.(*ecdsa.PrivateKey)
		if !ok {
			return fmt.Errorf("algorithm %s requires *ecdsa.PrivateKey, got %T", k.Algorithm, k.Key)
		}
		expectedCurve := map[string]string{"ES256": "P-256", "ES384": "P-384", "ES512": "P-521"}[k.Algorithm]
		if ecdsaKey.Curve.Params().Name != expectedCurve {
			return fmt.Errorf("algorithm %s requires curve %s, got %s", k.Algorithm, expectedCurve, ecdsaKey.Curve.Params().Name)
		}
	case "HS256", "HS384", "HS512":
		secret, ok := k.Key.([]byte)
		if !ok {
			return fmt.Errorf("algorithm %s requires a []byte secret, got %T", k.Algorithm, k.Key)
		}
		if len(secret) < MinHMACSecretLength {
			return fmt.Errorf("HMAC signing secret must be at least %d bytes", MinHMACSecretLength)
		}
	default:
		return fmt.Errorf("unsupported algorithm: %s", k.Algorithm)
	}
	return nil
}

// Signer reports whether Key is a crypto.Signer (asymmetric algorithms).
func (k *SigningKey) Signer() (crypto.Signer, bool) {
	s, ok := k.Key.(crypto.Signer)
	return s, ok
}

func (c *ClientConfig) validate() error {
	if c.ID == "" {
		return fmt.Errorf("client id is required")
	}
	if len(c.RedirectURIs) == 0 {
		return fmt.Errorf("at least one redirect_uri is required")
	}
	if !c.Public && c.Secret == "" {
		return fmt.Errorf("secret is required for confidential clients")
	}
	return nil
}

// applyDefaults fills zero-valued fields with the package defaults,
// defaulting only fields the caller left unset.
func (c *Config) applyDefaults() {
	if c.AccessTokenLifespan == 0 {
		c.AccessTokenLifespan = time.Hour
	}
	if c.IdentityTokenLifespan == 0 {
		c.IdentityTokenLifespan = time.Hour
	}
	if c.RefreshTokenAbsoluteExpiry == 0 {
		c.RefreshTokenAbsoluteExpiry = 30 * 24 * time.Hour
	}
	if c.RefreshTokenSlidingExpiry == 0 {
		c.RefreshTokenSlidingExpiry = 7 * 24 * time.Hour
	}
	if c.AuthCodeLifespan == 0 {
		c.AuthCodeLifespan = 10 * time.Minute
	}
}

// Resolve validates c, applies defaults, bcrypt-hashes every client
// secret, and builds the runtime client.ClientInfo records, each
// re-validated through client.ClientInfo.Validate() so a malformed
// ClientConfig never reaches the protocol pipelines.
func (c *Config) Resolve() ([]*client.ClientInfo, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	infos := make([]*client.ClientInfo, 0, len(c.Clients))
	for _, cc := range c.Clients {
		info, err := cc.resolve(c)
		if err != nil {
			return nil, fmt.Errorf("resolving client %q: %w", cc.ID, err)
		}
		infos = append(infos, info)
	}
	logger.Infow("server config resolved", "issuer", c.Issuer, "clientCount", len(infos))
	return infos, nil
}

func (cc *ClientConfig) resolve(c *Config) (*client.ClientInfo, error) {
	var hash []byte
	if !cc.Public {
		h, err := bcrypt.GenerateFromPassword([]byte(cc.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing secret: %w", err)
		}
		hash = h
	}

	info := &client.ClientInfo{
		ID:                             cc.ID,
		SecretHash:                     hash,
		Public:                         cc.Public,
		GrantTypes:                     cc.GrantTypes,
		ResponseTypes:                  cc.ResponseTypes,
		RedirectURIs:                   cc.RedirectURIs,
		PostLogoutRedirectURIs:         cc.PostLogoutRedirectURIs,
		SectorIdentifierURI:            cc.SectorIdentifierURI,
		SubjectType:                    cc.SubjectType,
		RequirePKCE:                    cc.RequirePKCE,
		AllowedScopes:                  cc.AllowedScopes,
		AllowOfflineAccess:             cc.AllowOfflineAccess,
		AccessTokenLifespan:            orDefault(cc.AccessTokenLifespan, c.AccessTokenLifespan),
		IdentityTokenLifespan:          orDefault(cc.IdentityTokenLifespan, c.IdentityTokenLifespan),
		RefreshTokenLifespan:           cc.RefreshTokenLifespan,
		AuthCodeLifespan:               orDefault(cc.AuthCodeLifespan, c.AuthCodeLifespan),
		RefreshTokenAllowReuse:         cc.RefreshTokenAllowReuse,
		RefreshTokenAbsoluteExpiry:     orDefault(cc.RefreshTokenAbsoluteExpiry, c.RefreshTokenAbsoluteExpiry),
		RefreshTokenSlidingExpiry:      orDefault(cc.RefreshTokenSlidingExpiry, c.RefreshTokenSlidingExpiry),
		IDTokenSignedResponseAlg:       cc.IDTokenSignedResponseAlg,
		ForceUserClaimsInIDToken:       cc.ForceUserClaimsInIDToken,
		FrontChannelLogoutURI:          cc.FrontChannelLogoutURI,
		FrontChannelLogoutSessionReqd:  cc.FrontChannelLogoutSessionReqd,
		BackChannelLogoutURI:           cc.BackChannelLogoutURI,
		BackChannelLogoutSessionReqd:   cc.BackChannelLogoutSessionReqd,
		CIBAClientNotificationEndpoint: cc.CIBAClientNotificationEndpoint,
		CIBADeliveryMode:               cc.CIBADeliveryMode,
		AllowInsecureLocalhost:         cc.AllowInsecureLocalhost,
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

func orDefault(v, fallback time.Duration) time.Duration {
	if v == 0 {
		return fallback
	}
	return v
}
