// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package validate implements the request validator set of spec §4
// preamble (component F): per-endpoint syntactic and semantic validation
// that runs ahead of the authorization and token pipelines, combining
// client-info, session, and consent lookups into either a typed request
// the pipeline can run directly or a protocol error.
package validate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/authcore/oidcauth/pkg/authorize"
	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/store"
)

// RawAuthorizationRequest is the authorization endpoint's request before
// semantic validation: every field as decoded off the wire (space-
// separated lists still joined, max_age still a numeric string), per spec
// §6's wire-format description.
type RawAuthorizationRequest struct {
	ClientID            string
	ResponseType        string
	Scope               string
	Resources           []string
	RedirectURI         string
	Nonce               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	MaxAge              string
	ACRValues           string
	Prompt              string
	Request             string // RFC 9101 JWT-secured request object, inline
	RequestURI          string // RFC 9101 JWT-secured request object, by reference
	Subject             string
}

// Validator runs the Request Validator Set (component F) against a
// ClientInfoProvider; it holds no other state.
type Validator struct {
	clients client.ClientInfoProvider
}

// NewValidator builds a Validator over clients.
func NewValidator(clients client.ClientInfoProvider) *Validator {
	return &Validator{clients: clients}
}

// Authorization validates raw and resolves it to a pipeline-ready
// authorize.Request, or a protocol error. Ordering follows spec §4.1's own
// input assumptions: client/redirect-uri/response-type checks must all
// pass before scope or PKCE checks are meaningful. The request/request_uri
// rule is not checked here; pkg/wire applies it when decoding.
func (v *Validator) Authorization(ctx context.Context, raw RawAuthorizationRequest) (*authorize.Request, error) {
	if raw.ClientID == "" {
		return nil, oidcerr.New("invalid_request", "client_id is required", 400)
	}

	c, err := v.clients.GetClient(ctx, raw.ClientID)
	if err != nil {
		return nil, oidcerr.New("invalid_client", "unknown client", 401)
	}

	if !c.MatchRedirectURI(raw.RedirectURI) {
		return nil, oidcerr.New("invalid_request", "redirect_uri does not match a registered uri", 400)
	}

	responseTypes := splitSpace(raw.ResponseType)
	if len(responseTypes) == 0 {
		return nil, oidcerr.New("invalid_request", "response_type is required", 400)
	}
	for _, rt := range responseTypes {
		if !c.AllowsResponseType(rt) {
			return nil, oidcerr.New("unsupported_response_type", fmt.Sprintf("response_type %q is not registered for this client", rt), 400)
		}
	}

	requestedScopes := splitSpace(raw.Scope)
	for _, s := range requestedScopes {
		if !contains(c.AllowedScopes, s) {
			return nil, oidcerr.New("invalid_scope", fmt.Sprintf("scope %q is not allowed for this client", s), 400)
		}
	}

	if c.RequirePKCE && raw.CodeChallenge == "" {
		return nil, oidcerr.New("invalid_request", "code_challenge is required for this client", 400)
	}
	if raw.CodeChallengeMethod != "" && raw.CodeChallengeMethod != "plain" && raw.CodeChallengeMethod != "S256" && raw.CodeChallengeMethod != "S512" {
		return nil, oidcerr.New("invalid_request", fmt.Sprintf("unsupported code_challenge_method %q", raw.CodeChallengeMethod), 400)
	}

	var maxAge *time.Duration
	if raw.MaxAge != "" {
		seconds, err := strconv.ParseInt(raw.MaxAge, 10, 64)
		if err != nil || seconds < 0 {
			return nil, oidcerr.New("invalid_request", "max_age must be a non-negative integer", 400)
		}
		d := time.Duration(seconds) * time.Second
		maxAge = &d
	}

	return &authorize.Request{
		ClientID:            raw.ClientID,
		ResponseTypes:       responseTypes,
		Scope:               requestedScopes,
		Resources:           raw.Resources,
		RedirectURI:         raw.RedirectURI,
		Nonce:               raw.Nonce,
		State:               raw.State,
		CodeChallenge:       raw.CodeChallenge,
		CodeChallengeMethod: raw.CodeChallengeMethod,
		MaxAge:              maxAge,
		ACRValues:           splitSpace(raw.ACRValues),
		Prompt:              raw.Prompt,
		Subject:             raw.Subject,
	}, nil
}

// ResourceNarrowing enforces the RFC 8707 rule spec.md's distillation
// names but leaves unvalidated: a token-endpoint `resource` request must
// be a subset of the resources already granted in the original
// authorization, never a superset. requested may be empty (no narrowing
// requested, the full granted set applies).
func ResourceNarrowing(granted, requested []string) error {
	if len(requested) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(granted))
	for _, r := range granted {
		allowed[r] = struct{}{}
	}
	for _, r := range requested {
		if _, ok := allowed[r]; !ok {
			return oidcerr.New("invalid_target", fmt.Sprintf("resource %q was not granted to this token", r), 400)
		}
	}
	return nil
}

// RedirectURI validates a bare redirect_uri for a client registration
// (component C's URI invariant from spec §3): absolute HTTPS, or HTTP
// against localhost only when the client explicitly allows it.
func RedirectURI(c *client.ClientInfo, uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("validate: parsing uri %q: %w", uri, err)
	}
	if parsed.Scheme == "https" {
		return nil
	}
	if parsed.Scheme == "http" && c.AllowInsecureLocalhost && isLocalhost(parsed.Hostname()) {
		return nil
	}
	return fmt.Errorf("validate: uri %q must be absolute https (or http to localhost when explicitly allowed)", uri)
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func splitSpace(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// ErrReplayed is returned by ClientAssertionGuard.Check when a
// private_key_jwt client assertion's jti has already been seen.
var ErrReplayed = errors.New("validate: client assertion jti already used")

// ClientAssertionGuard implements a minimal replay guard for
// private_key_jwt client assertions: a single Check call over the jti,
// TTL-bounded by the assertion's own expiry, not a full private_key_jwt
// validator (JWT cryptographic primitives are out of scope per spec §1).
type ClientAssertionGuard struct {
	backing store.KVStore
}

// NewClientAssertionGuard builds a ClientAssertionGuard over backing.
func NewClientAssertionGuard(backing store.KVStore) *ClientAssertionGuard {
	return &ClientAssertionGuard{backing: backing}
}

// Check marks jti as seen, returning ErrReplayed if it was already
// present. ttl should be set to the assertion's remaining validity window
// so the guard entry evicts no later than the assertion itself expires.
func (g *ClientAssertionGuard) Check(ctx context.Context, jti string, ttl time.Duration) error {
	key := store.ClientAssertionJWTKey(jti)
	_, err := g.backing.Get(ctx, key)
	if err == nil {
		return ErrReplayed
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("validate: checking client assertion replay guard: %w", err)
	}
	if err := g.backing.Set(ctx, key, []byte{1}, ttl); err != nil {
		return fmt.Errorf("validate: recording client assertion jti: %w", err)
	}
	return nil
}
