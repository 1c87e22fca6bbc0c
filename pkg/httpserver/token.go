// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/crypto/bcrypt"

	"github.com/authcore/oidcauth/pkg/client"
	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/token"
	"github.com/authcore/oidcauth/pkg/wire"
)

// handleToken implements the token endpoint (spec §4.2): dispatch on
// grant_type to the matching token.Pipeline method, or to the device/CIBA
// engines' Redeem for their own grant-type URNs.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := decodeForm(w, r); err != nil {
		writeProtocolError(w, err)
		return
	}
	form := r.Form
	grantType := form.Get("grant_type")

	switch grantType {
	case wire.GrantTypeAuthorizationCode:
		if _, err := s.authenticateClient(ctx, r, form); err != nil {
			writeProtocolError(w, err)
			return
		}
		issued, err := s.tokens.AuthorizationCode(ctx, wire.DecodeAuthorizationCodeRequest(form))
		respondToken(w, issued, err)

	case wire.GrantTypeRefreshToken:
		if _, err := s.authenticateClient(ctx, r, form); err != nil {
			writeProtocolError(w, err)
			return
		}
		issued, err := s.tokens.RefreshToken(ctx, wire.DecodeRefreshTokenRequest(form))
		respondToken(w, issued, err)

	case wire.GrantTypeClientCredentials:
		req := wire.DecodeClientCredentialsRequest(form)
		c, err := s.authenticateClient(ctx, r, form)
		if err != nil {
			writeProtocolError(w, err)
			return
		}
		issued, err := s.tokens.ClientCredentials(ctx, c, req.Scope, req.Resources)
		respondToken(w, issued, err)

	case wire.GrantTypePassword:
		req := wire.DecodePasswordRequest(form)
		c, err := s.authenticateClient(ctx, r, form)
		if err != nil {
			writeProtocolError(w, err)
			return
		}
		issued, err := s.tokens.Password(ctx, c, req.Username, req.Password, req.Scope, req.Resources)
		respondToken(w, issued, err)

	case wire.GrantTypeCIBA:
		req := wire.DecodeCIBATokenRequest(form)
		issued, err := s.ciba.Redeem(ctx, req.AuthReqID)
		respondToken(w, issued, err)

	case wire.GrantTypeDeviceCode:
		s.handleDeviceTokenGrant(w, r)

	default:
		writeProtocolError(w, oidcerr.New("unsupported_grant_type", "grant_type is missing or not recognized", 400))
	}
}

// authenticateClient resolves the client presenting the request and, for
// confidential clients, verifies the secret it presented against the
// registered bcrypt hash. The secret may arrive via HTTP Basic auth
// (client_secret_basic) or as a client_secret form field
// (client_secret_post); public clients need present no secret at all.
func (s *Server) authenticateClient(ctx context.Context, r *http.Request, form url.Values) (*client.ClientInfo, error) {
	clientID, secret, ok := r.BasicAuth()
	if !ok {
		clientID = form.Get("client_id")
		secret = form.Get("client_secret")
	}
	if clientID == "" {
		return nil, oidcerr.New("invalid_client", "client_id is required", 401)
	}

	c, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, oidcerr.New("invalid_client", "unknown client", 401)
	}
	if c.Public {
		return c, nil
	}
	if secret == "" {
		return nil, oidcerr.New("invalid_client", "client authentication is required", 401)
	}
	if err := bcrypt.CompareHashAndPassword(c.GetHashedSecret(), []byte(secret)); err != nil {
		return nil, oidcerr.New("invalid_client", "client authentication failed", 401)
	}
	return c, nil
}

func (s *Server) handleDeviceTokenGrant(w http.ResponseWriter, r *http.Request) {
	req := wire.DecodeDeviceTokenRequest(r.Form)
	lastPolledAt := s.devicePoll.get(req.DeviceCode)
	issued, now, err := s.device.Redeem(r.Context(), req.DeviceCode, lastPolledAt)
	s.devicePoll.set(req.DeviceCode, now)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	s.devicePoll.forget(req.DeviceCode)
	respondToken(w, issued, nil)
}

func respondToken(w http.ResponseWriter, issued *token.TokenIssued, err error) {
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	body, encodeErr := wire.EncodeTokenResponse(issued)
	if encodeErr != nil {
		writeProtocolError(w, encodeErr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
