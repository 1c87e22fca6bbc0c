// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package mint

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/session"
)

// BackChannelLogoutEvent is the event-claim URI RFC back-channel-logout
// tokens carry, per OpenID Connect Back-Channel Logout 1.0.
const BackChannelLogoutEvent = "http://schemas.openid.net/event/backchannel-logout"

// IssuerProvider is the narrow external collaborator of spec §6:
// "()->issuer_uri".
type IssuerProvider interface {
	IssuerURI(ctx context.Context) (string, error)
}

// StaticIssuer is an IssuerProvider that always returns the same URI, for
// single-issuer deployments and tests.
type StaticIssuer string

// IssuerURI implements IssuerProvider.
func (s StaticIssuer) IssuerURI(context.Context) (string, error) { return string(s), nil }

// Minted describes a signed JWT's identity alongside its compact
// serialization, for callers (the token registry, the response adapters)
// that need jti/exp without re-parsing the JWS.
type Minted struct {
	JWS       string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IdentityTokenOptions carries the per-response-type trimmings spec §4.7
// and §4.1 step 6 require of an identity token: the nonce to echo, the
// authorization code and/or access token to bind via c_hash/at_hash, and
// whether userinfo-scoped claims should be embedded inline.
type IdentityTokenOptions struct {
	Nonce              string
	AuthorizationCode  string // set only when a code is also returned alongside the id-token
	AccessToken        string // set only when an access token is also returned alongside the id-token
	IncludeUserClaims  bool
	UserClaims         map[string]any
}

// Minter assembles, signs, and encodes the four JWT kinds spec §4.7
// describes. It holds no mutable state beyond its injected collaborators.
type Minter struct {
	signer         Signer
	issuer         IssuerProvider
	pairwiseSecret []byte
	clock          clock.TimeSource
}

// NewMinter builds a Minter. pairwiseSecret salts pairwise-subject
// derivation (spec §4.7); it must be stable for the lifetime of every
// pairwise subject issued, since rotating it silently changes every
// pairwise client's view of every subject.
func NewMinter(signer Signer, issuer IssuerProvider, pairwiseSecret []byte, clk clock.TimeSource) *Minter {
	return &Minter{signer: signer, issuer: issuer, pairwiseSecret: pairwiseSecret, clock: clk}
}

// MintAccessToken produces the access-token claims of spec §4.7:
// {iss, aud=[client_id], sub, sid, iat, nbf, exp=iat+client.access_lifetime,
// jti, scope, resources}.
func (m *Minter) MintAccessToken(ctx context.Context, c *client.ClientInfo, sess *session.AuthSession, scope, resources []string) (*Minted, error) {
	iss, err := m.issuer.IssuerURI(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint: resolving issuer: %w", err)
	}
	now := m.clock.Now()
	jti := uuid.NewString()
	exp := now.Add(c.AccessTokenLifespan)

	claims := NewClaims().
		Set("iss", iss).
		Set("aud", []string{c.ID}).
		Set("sub", sess.Subject).
		Set("sid", sess.SessionID).
		Set("iat", now.Unix()).
		Set("nbf", now.Unix()).
		Set("exp", exp.Unix()).
		Set("jti", jti).
		Set("scope", scope).
		SetIfNotZero("resources", resources)

	jws, err := m.signer.Sign(ctx, Header{Type: "JWT"}, claims)
	if err != nil {
		return nil, fmt.Errorf("mint: access token: %w", err)
	}
	return &Minted{JWS: jws, JTI: jti, IssuedAt: now, ExpiresAt: exp}, nil
}

// MintIdentityToken produces the identity-token claims of spec §4.7:
// standard claims, pairwise-or-public sub, echoed nonce, auth_time and acr
// from the session, userinfo-scoped claims merged atop when
// opts.IncludeUserClaims (spec §4.1 step 6: only when id_token is the sole
// response type or the client forces it), and c_hash/at_hash bound to
// whichever of code/access-token are also being returned.
func (m *Minter) MintIdentityToken(ctx context.Context, c *client.ClientInfo, sess *session.AuthSession, opts IdentityTokenOptions) (*Minted, error) {
	iss, err := m.issuer.IssuerURI(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint: resolving issuer: %w", err)
	}
	now := m.clock.Now()
	jti := uuid.NewString()
	lifespan := c.IdentityTokenLifespan
	exp := now.Add(lifespan)

	sub := sess.Subject
	if c.SubjectType == client.SubjectPairwise {
		host, err := c.SectorHost()
		if err != nil {
			return nil, fmt.Errorf("mint: identity token: %w", err)
		}
		sub = DerivePairwiseSubject(sess.Subject, host, m.pairwiseSecret)
	}

	claims := NewClaims().
		Set("iss", iss).
		Set("aud", []string{c.ID}).
		Set("sub", sub).
		Set("iat", now.Unix()).
		Set("exp", exp.Unix()).
		SetIfNotZero("acr", sess.ACR).
		Set("sid", sess.SessionID).
		Set("jti", jti).
		SetIfNotZero("nonce", opts.Nonce)
	if !sess.AuthenticationTime.IsZero() {
		claims.Set("auth_time", sess.AuthenticationTime.Unix())
	}

	alg := string(m.signer.Algorithm())
	if opts.AuthorizationCode != "" {
		h, err := ComputeArtifactHash(opts.AuthorizationCode, alg)
		if err != nil {
			return nil, fmt.Errorf("mint: c_hash: %w", err)
		}
		claims.Set("c_hash", h)
	}
	if opts.AccessToken != "" {
		h, err := ComputeArtifactHash(opts.AccessToken, alg)
		if err != nil {
			return nil, fmt.Errorf("mint: at_hash: %w", err)
		}
		claims.Set("at_hash", h)
	}

	if opts.IncludeUserClaims {
		for k, v := range opts.UserClaims {
			claims.SetIfNotZero(k, v)
		}
	}

	jws, err := m.signer.Sign(ctx, Header{Type: "JWT"}, claims)
	if err != nil {
		return nil, fmt.Errorf("mint: identity token: %w", err)
	}
	return &Minted{JWS: jws, JTI: jti, IssuedAt: now, ExpiresAt: exp}, nil
}

// MintRefreshToken produces the refresh-token JWT of spec §4.7:
// {jti, sub, sid, iat, nbf, exp, aud=client_id, scope, resources, orig_iat},
// typ "refresh+jwt". originalIssuedAt anchors the absolute-expiry boundary
// across rotation: pass the zero time on first issuance (the anchor becomes
// this mint's own iat); pass the original token's orig_iat when minting a
// replacement during rotation, so a chain of rotated tokens shares one
// absolute deadline instead of each hop resetting it. exp = min(orig_iat+
// absolute, now+sliding) per spec §3.
func (m *Minter) MintRefreshToken(ctx context.Context, c *client.ClientInfo, sess *session.AuthSession, scope, resources []string, originalIssuedAt time.Time) (*Minted, error) {
	now := m.clock.Now()
	jti := uuid.NewString()

	anchor := originalIssuedAt
	if anchor.IsZero() {
		anchor = now
	}

	absolute := anchor.Add(c.RefreshTokenAbsoluteExpiry)
	sliding := now.Add(c.RefreshTokenSlidingExpiry)
	exp := absolute
	if c.RefreshTokenSlidingExpiry > 0 && sliding.Before(absolute) {
		exp = sliding
	}

	claims := NewClaims().
		Set("jti", jti).
		Set("sub", sess.Subject).
		Set("sid", sess.SessionID).
		Set("iat", now.Unix()).
		Set("nbf", now.Unix()).
		Set("exp", exp.Unix()).
		Set("aud", c.ID).
		Set("scope", scope).
		SetIfNotZero("resources", resources).
		Set("orig_iat", anchor.Unix())

	jws, err := m.signer.Sign(ctx, Header{Type: "refresh+jwt"}, claims)
	if err != nil {
		return nil, fmt.Errorf("mint: refresh token: %w", err)
	}
	return &Minted{JWS: jws, JTI: jti, IssuedAt: now, ExpiresAt: exp}, nil
}

// MintLogoutToken produces a back-channel logout token per OpenID Connect
// Back-Channel Logout 1.0, dispatched by the logout orchestrator (spec
// §4.5). includeSessionID controls whether sid is embedded, per the
// client's BackChannelLogoutSessionReqd flag.
func (m *Minter) MintLogoutToken(ctx context.Context, c *client.ClientInfo, sess *session.AuthSession, includeSessionID bool) (*Minted, error) {
	iss, err := m.issuer.IssuerURI(ctx)
	if err != nil {
		return nil, fmt.Errorf("mint: resolving issuer: %w", err)
	}
	now := m.clock.Now()
	jti := uuid.NewString()

	claims := NewClaims().
		Set("iss", iss).
		Set("aud", []string{c.ID}).
		Set("sub", sess.Subject).
		Set("iat", now.Unix()).
		Set("jti", jti).
		Set("events", map[string]any{BackChannelLogoutEvent: map[string]any{}})
	if includeSessionID {
		claims.Set("sid", sess.SessionID)
	}

	jws, err := m.signer.Sign(ctx, Header{Type: "JWT"}, claims)
	if err != nil {
		return nil, fmt.Errorf("mint: logout token: %w", err)
	}
	return &Minted{JWS: jws, JTI: jti, IssuedAt: now, ExpiresAt: now}, nil
}
