// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package client holds the registered-client record (spec §3 ClientInfo)
// and the narrow ClientInfoProvider lookup interface (spec §6). ClientInfo
// itself satisfies fosite.Client so it can be handed directly to
// fosite-shaped validation helpers.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ory/fosite"
)

// SubjectType selects how the "sub" claim is derived for a client.
type SubjectType string

// Subject-type values per spec §3.
const (
	SubjectPublic   SubjectType = "public"
	SubjectPairwise SubjectType = "pairwise"
)

// CIBADeliveryMode selects how a CIBA completion is delivered to the client
// (spec §4.3).
type CIBADeliveryMode string

// Delivery-mode values per spec §4.3.
const (
	CIBAModePoll CIBADeliveryMode = "poll"
	CIBAModePing CIBADeliveryMode = "ping"
	CIBAModePush CIBADeliveryMode = "push"
)

// ClientInfo is the registered-client record described in spec §3.
type ClientInfo struct {
	// Identity
	ID          string
	SecretHash  []byte // bcrypt hash; empty for public clients
	JWKSInline  []byte // inline JWK set, mutually exclusive with JWKSURI
	JWKSURI     string

	// Policy
	GrantTypes           []string
	ResponseTypes        []string
	RedirectURIs         []string
	PostLogoutRedirectURIs []string
	SectorIdentifierURI  string
	SubjectType          SubjectType
	RequirePKCE          bool
	AllowedScopes        []string
	AllowOfflineAccess   bool

	// Token shaping
	AccessTokenLifespan   time.Duration
	IdentityTokenLifespan time.Duration
	RefreshTokenLifespan  time.Duration
	AuthCodeLifespan      time.Duration
	RefreshTokenAllowReuse      bool
	RefreshTokenAbsoluteExpiry  time.Duration
	RefreshTokenSlidingExpiry   time.Duration
	IDTokenSignedResponseAlg      string
	UserinfoSignedResponseAlg     string
	RequestObjectSigningAlg       string
	ForceUserClaimsInIDToken      bool

	// Endpoints
	FrontChannelLogoutURI          string
	FrontChannelLogoutSessionReqd  bool
	BackChannelLogoutURI           string
	BackChannelLogoutSessionReqd   bool
	CIBAClientNotificationEndpoint string
	CIBADeliveryMode               CIBADeliveryMode

	// AllowInsecureLocalhost permits http://localhost URIs in any of the
	// URI fields above, for local development/testing clients only.
	AllowInsecureLocalhost bool

	Public bool
}

// ClientInfoProvider is the narrow external collaborator of spec §6:
// "Lookup and validation of registered-client metadata".
type ClientInfoProvider interface {
	GetClient(ctx context.Context, clientID string) (*ClientInfo, error)
}

// --- fosite.Client ---

// GetID implements fosite.Client.
func (c *ClientInfo) GetID() string { return c.ID }

// GetHashedSecret implements fosite.Client.
func (c *ClientInfo) GetHashedSecret() []byte { return c.SecretHash }

// GetRedirectURIs implements fosite.Client.
func (c *ClientInfo) GetRedirectURIs() []string { return c.RedirectURIs }

// GetGrantTypes implements fosite.Client.
func (c *ClientInfo) GetGrantTypes() fosite.Arguments { return c.GrantTypes }

// GetResponseTypes implements fosite.Client.
func (c *ClientInfo) GetResponseTypes() fosite.Arguments { return c.ResponseTypes }

// GetScopes implements fosite.Client.
func (c *ClientInfo) GetScopes() fosite.Arguments { return c.AllowedScopes }

// IsPublic implements fosite.Client.
func (c *ClientInfo) IsPublic() bool { return c.Public }

// GetAudience implements fosite.Client.
func (*ClientInfo) GetAudience() fosite.Arguments { return nil }

var _ fosite.Client = (*ClientInfo)(nil)

// MatchRedirectURI reports whether requestedURI is one of the client's
// registered redirect URIs. Per spec §4.1's edge policy, matching is exact
// string equality, with no wildcard and no loopback-port leniency.
func (c *ClientInfo) MatchRedirectURI(requestedURI string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == requestedURI {
			return true
		}
	}
	return false
}

// HasUnambiguousRedirectHost reports whether every registered redirect URI
// shares the same host, which spec §3 allows as an alternative to a
// sector-identifier URI when deriving a pairwise subject.
func (c *ClientInfo) HasUnambiguousRedirectHost() bool {
	if len(c.RedirectURIs) == 0 {
		return false
	}
	var host string
	for i, raw := range c.RedirectURIs {
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		if i == 0 {
			host = u.Hostname()
			continue
		}
		if !strings.EqualFold(u.Hostname(), host) {
			return false
		}
	}
	return true
}

// SectorHost returns the host used to salt a pairwise subject: the
// sector-identifier URI's host if set, otherwise the client's unambiguous
// redirect-URI host.
func (c *ClientInfo) SectorHost() (string, error) {
	if c.SectorIdentifierURI != "" {
		u, err := url.Parse(c.SectorIdentifierURI)
		if err != nil {
			return "", fmt.Errorf("parsing sector_identifier_uri: %w", err)
		}
		return u.Hostname(), nil
	}
	if c.HasUnambiguousRedirectHost() {
		u, err := url.Parse(c.RedirectURIs[0])
		if err != nil {
			return "", fmt.Errorf("parsing redirect_uri: %w", err)
		}
		return u.Hostname(), nil
	}
	return "", fmt.Errorf("client %s: pairwise subject requires a sector_identifier_uri or an unambiguous redirect-uri host", c.ID)
}

// AllowsGrantType reports whether grantType is in the client's allow-list.
func (c *ClientInfo) AllowsGrantType(grantType string) bool {
	return contains(c.GrantTypes, grantType)
}

// AllowsResponseType reports whether responseType is in the client's
// allow-list.
func (c *ClientInfo) AllowsResponseType(responseType string) bool {
	return contains(c.ResponseTypes, responseType)
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
