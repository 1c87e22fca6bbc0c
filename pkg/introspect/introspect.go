// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package introspect implements token introspection and revocation (spec
// §4.6, component L): RFC 7662 and RFC 7009 respectively, both reading
// and writing the token registry rather than re-deriving state from the
// JWT alone.
package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/authcore/oidcauth/pkg/mint"
	"github.com/authcore/oidcauth/pkg/registry"
)

// Response is the RFC 7662 introspection response. Inactive tokens carry
// no other field, so no claim leaks per spec §4.6.
type Response struct {
	Active bool           `json:"active"`
	Claims map[string]any `json:"-"`
}

// MarshalJSON implements json.Marshaler, flattening Claims alongside
// active:true and omitting every field but active when inactive.
func (r Response) MarshalJSON() ([]byte, error) {
	if !r.Active {
		return []byte(`{"active":false}`), nil
	}
	payload := make(map[string]any, len(r.Claims)+1)
	for k, v := range r.Claims {
		payload[k] = v
	}
	payload["active"] = true
	return json.Marshal(payload)
}

// Service implements introspection and revocation over a Signer and the
// token registry.
type Service struct {
	signer   mint.Signer
	registry *registry.Registry
}

// NewService builds a Service over its collaborators.
func NewService(signer mint.Signer, reg *registry.Registry) *Service {
	return &Service{signer: signer, registry: reg}
}

// Introspect validates token (an access or refresh JWT) and reports its
// active state. A token is inactive when it fails signature
// verification, has no matching registry entry, or that entry's status
// is Revoked. It never re-derives expiry from the claims alone, since
// revocation is tracked only in the registry.
func (s *Service) Introspect(ctx context.Context, token string) (*Response, error) {
	_, claims, err := s.signer.Verify(ctx, token)
	if err != nil {
		return &Response{Active: false}, nil
	}

	jti, _ := claims.Get("jti")
	jtiStr, _ := jti.(string)
	if jtiStr == "" {
		return &Response{Active: false}, nil
	}

	entry, err := s.registry.GetAccess(ctx, jtiStr)
	if errors.Is(err, registry.ErrNotFound) {
		entry, err = s.registry.GetRefresh(ctx, jtiStr)
	}
	if errors.Is(err, registry.ErrNotFound) {
		return &Response{Active: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("introspect: loading registry entry: %w", err)
	}
	if !entry.IsActive() {
		return &Response{Active: false}, nil
	}

	return &Response{Active: true, Claims: claims.Map()}, nil
}

// Revoke implements RFC 7009: flips the token's registry entry to Revoked,
// keeping the token's own expiry (per spec §4.6). A token that does not
// verify or carries no jti is ignored. Revoking an unknown or already-revoked token is not an
// error, so the caller can always return HTTP 200.
func (s *Service) Revoke(ctx context.Context, token string) error {
	header, claims, err := s.signer.Verify(ctx, token)
	if err != nil {
		return nil
	}
	jti, _ := claims.Get("jti")
	jtiStr, _ := jti.(string)
	if jtiStr == "" {
		return nil
	}
	expUnix, _ := claims.Get("exp")
	exp := toUnixTime(expUnix)

	if header.Type == "refresh+jwt" {
		if err := s.registry.RevokeRefresh(ctx, jtiStr, exp); err != nil {
			return fmt.Errorf("introspect: revoking refresh token: %w", err)
		}
		return nil
	}
	if err := s.registry.RevokeAccess(ctx, jtiStr, exp); err != nil {
		return fmt.Errorf("introspect: revoking access token: %w", err)
	}
	return nil
}
