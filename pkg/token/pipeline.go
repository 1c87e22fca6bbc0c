// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package token implements the Token Pipeline of spec §4.2 (component H):
// one variant per grant type, each producing a TokenIssued. CIBA and
// device-flow completion (spec §4.3, §4.4) build their AuthorizedGrant
// separately and call IssueForGrant to produce the same TokenIssued shape.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authcore/oidcauth/pkg/authorize"
	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/clock"
	"github.com/authcore/oidcauth/pkg/identity"
	"github.com/authcore/oidcauth/pkg/logger"
	"github.com/authcore/oidcauth/pkg/mint"
	"github.com/authcore/oidcauth/pkg/model"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/registry"
	"github.com/authcore/oidcauth/pkg/session"
)

// ScopeOpenID and ScopeOfflineAccess are the two scope values the token
// pipeline treats specially: the former gates identity-token issuance, the
// latter gates refresh-token issuance.
const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"
)

// IssuedTokenType is the RFC 8693-style value echoed back in TokenIssued,
// naming what kind of artifact access_token is.
const IssuedTokenType = "urn:ietf:params:oauth:token-type:access_token"

// TokenIssued is the uniform output every grant variant produces (spec
// §4.2), with the wire field names spec §6 names for the token-endpoint
// JSON response.
type TokenIssued struct {
	AccessToken     string `json:"access_token"`
	TokenType       string `json:"token_type"`
	ExpiresIn       int64  `json:"expires_in"`
	RefreshToken    string `json:"refresh_token,omitempty"`
	IDToken         string `json:"id_token,omitempty"`
	IssuedTokenType string `json:"issued_token_type,omitempty"`
}

// Pipeline drives the Token endpoint.
type Pipeline struct {
	clients  client.ClientInfoProvider
	sessions session.Store
	codes    *authorize.CodeStore
	registry *registry.Registry
	minter   *mint.Minter
	signer   mint.Signer
	auth     identity.UserAuthenticator
	clock    clock.TimeSource
}

// NewPipeline builds a Pipeline over its collaborators. signer must be the
// same Signer minter was built over, since the refresh-token grant needs
// to verify (not just mint) JWTs.
func NewPipeline(
	clients client.ClientInfoProvider,
	sessions session.Store,
	codes *authorize.CodeStore,
	reg *registry.Registry,
	minter *mint.Minter,
	signer mint.Signer,
	auth identity.UserAuthenticator,
	clk clock.TimeSource,
) *Pipeline {
	return &Pipeline{
		clients:  clients,
		sessions: sessions,
		codes:    codes,
		registry: reg,
		minter:   minter,
		signer:   signer,
		auth:     auth,
		clock:    clk,
	}
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// AuthorizationCodeRequest is the authorization_code grant's input.
type AuthorizationCodeRequest struct {
	ClientID     string
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// AuthorizationCode redeems an authorization code for tokens (spec §4.2).
func (p *Pipeline) AuthorizationCode(ctx context.Context, req AuthorizationCodeRequest) (*TokenIssued, error) {
	rec, err := p.codes.Redeem(ctx, req.Code)
	if err != nil {
		return nil, oidcerr.New("invalid_grant", "the authorization code is invalid, expired, or already used", 400)
	}

	authCtx := rec.Grant.Context
	if authCtx.ClientID != req.ClientID {
		return nil, oidcerr.New("invalid_grant", "the authorization code was not issued to this client", 400)
	}
	if authCtx.RedirectURI != req.RedirectURI {
		return nil, oidcerr.New("invalid_grant", "redirect_uri does not match the one used to obtain the code", 400)
	}
	if authCtx.CodeChallenge != "" {
		if err := mint.VerifyPKCE(authCtx.CodeChallengeMethod, req.CodeVerifier, authCtx.CodeChallenge); err != nil {
			return nil, oidcerr.New("invalid_grant", "PKCE verification failed", 400)
		}
	}

	c, err := p.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, oidcerr.New("invalid_client", "unknown client", 401)
	}

	sess, err := p.sessions.Get(ctx, rec.Grant.SessionID)
	if err != nil {
		return nil, oidcerr.New("invalid_grant", "the session backing this code no longer exists", 400)
	}

	wantRefresh := containsString(authCtx.Scope, ScopeOfflineAccess) && c.AllowOfflineAccess
	return p.issueForGrant(ctx, c, sess, authCtx, wantRefresh, time.Time{})
}

// RefreshTokenRequest is the refresh_token grant's input.
type RefreshTokenRequest struct {
	ClientID     string
	RefreshToken string
}

// RefreshToken redeems a refresh token, rotating it per client policy
// (spec §4.2, §3, §5's durability-before-reissue invariant, and the
// allow_reuse Open Question decision recorded in DESIGN.md).
func (p *Pipeline) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenIssued, error) {
	header, claims, err := p.signer.Verify(ctx, req.RefreshToken)
	if err != nil {
		return nil, oidcerr.New("invalid_grant", "the refresh token is malformed or its signature is invalid", 400)
	}
	if header.Type != "refresh+jwt" {
		return nil, oidcerr.New("invalid_grant", "not a refresh token", 400)
	}

	jti, _ := claims.Get("jti")
	jtiStr, _ := jti.(string)
	aud, _ := claims.Get("aud")
	audStr, _ := aud.(string)
	if audStr != req.ClientID {
		return nil, oidcerr.New("invalid_grant", "the refresh token was not issued to this client", 400)
	}

	c, err := p.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, oidcerr.New("invalid_client", "unknown client", 401)
	}

	entry, err := p.registry.GetRefresh(ctx, jtiStr)
	if err != nil || !entry.IsActive() {
		return nil, oidcerr.New("invalid_grant", "the refresh token has been revoked or is unknown", 400)
	}

	sub, _ := claims.Get("sub")
	subStr, _ := sub.(string)
	sid, _ := claims.Get("sid")
	sidStr, _ := sid.(string)
	scope := toStringSlice(mustGet(claims, "scope"))
	resources := toStringSlice(mustGet(claims, "resources"))
	origIat := toUnixTime(mustGet(claims, "orig_iat"))

	sess, err := p.sessions.Get(ctx, sidStr)
	if err != nil {
		// The session backing this refresh token has been destroyed
		// (logout, expiry); reconstruct the minimal facts the claims
		// still carry so the rotation can proceed without acr/auth_time.
		sess = &session.AuthSession{Subject: subStr, SessionID: sidStr}
	}

	authCtx := model.AuthorizationContext{ClientID: req.ClientID, Scope: scope, Resources: resources}

	if !c.RefreshTokenAllowReuse {
		if err := p.registry.RevokeRefresh(ctx, jtiStr, toUnixTime(mustGet(claims, "exp"))); err != nil {
			return nil, fmt.Errorf("token: revoking old refresh token: %w", err)
		}
	}

	return p.issueForGrant(ctx, c, sess, authCtx, true, origIat)
}

// ClientCredentials mints an access-only token for the client itself (spec
// §4.2): sub = client_id, no refresh, no identity token.
func (p *Pipeline) ClientCredentials(ctx context.Context, c *client.ClientInfo, scope, resources []string) (*TokenIssued, error) {
	sess := &session.AuthSession{Subject: c.ID}
	minted, err := p.minter.MintAccessToken(ctx, c, sess, scope, resources)
	if err != nil {
		return nil, fmt.Errorf("token: client_credentials: %w", err)
	}
	if err := p.registry.PutAccess(ctx, minted.JTI, minted.ExpiresAt); err != nil {
		return nil, fmt.Errorf("token: registering access token: %w", err)
	}
	return &TokenIssued{
		AccessToken:     minted.JWS,
		TokenType:       "Bearer",
		ExpiresIn:       int64(c.AccessTokenLifespan.Seconds()),
		IssuedTokenType: IssuedTokenType,
	}, nil
}

// Password delegates credential verification to the injected
// UserAuthenticator (spec §4.2); forbidden for public clients.
func (p *Pipeline) Password(ctx context.Context, c *client.ClientInfo, username, password string, scope, resources []string) (*TokenIssued, error) {
	if c.Public {
		return nil, oidcerr.New("unauthorized_client", "the password grant is not available to public clients", 400)
	}
	sess, err := p.auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, oidcerr.New("invalid_grant", "the provided username or password is invalid", 400)
	}
	authCtx := model.AuthorizationContext{ClientID: c.ID, Scope: scope, Resources: resources}
	wantRefresh := containsString(scope, ScopeOfflineAccess) && c.AllowOfflineAccess
	return p.issueForGrant(ctx, c, sess, authCtx, wantRefresh, time.Time{})
}

// IssueForGrant mints the access/identity/refresh-token trio for an
// already-authorized grant, for use by the CIBA and device-flow engines
// once their own state machines reach a terminal success. The refresh-token
// absolute-expiry anchor it passes on is always the zero time, since a
// freshly authorized grant has no prior rotation to anchor to.
func (p *Pipeline) IssueForGrant(ctx context.Context, c *client.ClientInfo, grant model.AuthorizedGrant) (*TokenIssued, error) {
	sess, err := p.sessions.Get(ctx, grant.SessionID)
	if err != nil {
		return nil, fmt.Errorf("token: loading session for grant: %w", err)
	}
	wantRefresh := containsString(grant.Context.Scope, ScopeOfflineAccess) && c.AllowOfflineAccess
	return p.issueForGrant(ctx, c, sess, grant.Context, wantRefresh, time.Time{})
}

func (p *Pipeline) issueForGrant(ctx context.Context, c *client.ClientInfo, sess *session.AuthSession, authCtx model.AuthorizationContext, wantRefresh bool, refreshAnchor time.Time) (*TokenIssued, error) {
	access, err := p.minter.MintAccessToken(ctx, c, sess, authCtx.Scope, authCtx.Resources)
	if err != nil {
		return nil, fmt.Errorf("token: minting access token: %w", err)
	}
	if err := p.registry.PutAccess(ctx, access.JTI, access.ExpiresAt); err != nil {
		return nil, fmt.Errorf("token: registering access token: %w", err)
	}

	out := &TokenIssued{
		AccessToken:     access.JWS,
		TokenType:       "Bearer",
		ExpiresIn:       int64(access.ExpiresAt.Sub(p.clock.Now()).Seconds()),
		IssuedTokenType: IssuedTokenType,
	}

	if containsString(authCtx.Scope, ScopeOpenID) {
		idToken, err := p.minter.MintIdentityToken(ctx, c, sess, mint.IdentityTokenOptions{
			AccessToken:       access.JWS,
			IncludeUserClaims: c.ForceUserClaimsInIDToken,
		})
		if err != nil {
			return nil, fmt.Errorf("token: minting identity token: %w", err)
		}
		out.IDToken = idToken.JWS
	}

	if wantRefresh {
		refresh, err := p.minter.MintRefreshToken(ctx, c, sess, authCtx.Scope, authCtx.Resources, refreshAnchor)
		if err != nil {
			return nil, fmt.Errorf("token: minting refresh token: %w", err)
		}
		if refresh.ExpiresAt.After(p.clock.Now()) {
			if err := p.registry.PutRefresh(ctx, refresh.JTI, refresh.ExpiresAt); err != nil {
				return nil, fmt.Errorf("token: registering refresh token: %w", err)
			}
			out.RefreshToken = refresh.JWS
		} else {
			// New exp already in the past: the rotation chain has run out
			// its absolute lifetime. Per spec §4.2, issue no refresh token.
			logger.Debugw("refresh rotation reached absolute expiry", "clientID", c.ID, "sessionID", sess.SessionID)
		}
	}

	return out, nil
}

func mustGet(c *mint.Claims, key string) any {
	v, _ := c.Get(key)
	return v
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toUnixTime(v any) time.Time {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC()
	case int64:
		return time.Unix(t, 0).UTC()
	default:
		return time.Time{}
	}
}

// ErrUnknownGrantType is returned by callers dispatching on a grant_type
// string this pipeline does not recognize (the HTTP layer's concern, kept
// here so tests can assert against one sentinel).
var ErrUnknownGrantType = errors.New("token: unknown grant_type")
