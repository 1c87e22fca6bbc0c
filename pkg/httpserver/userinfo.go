// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"
	"strings"

	"github.com/authcore/oidcauth/pkg/oidcerr"
)

// standardScopeClaims maps the OpenID Connect standard scopes (Core
// §5.4) to the claim names they authorize, beyond the always-present sub.
var standardScopeClaims = map[string][]string{
	"profile": {
		"name", "family_name", "given_name", "middle_name", "nickname",
		"preferred_username", "profile", "picture", "website", "gender",
		"birthdate", "zoneinfo", "locale", "updated_at",
	},
	"email":   {"email", "email_verified"},
	"address": {"address"},
	"phone":   {"phone_number", "phone_number_verified"},
}

// claimNamesForScope collects the claim names token's granted scope
// authorizes the userinfo endpoint to return.
func claimNamesForScope(scope []string) []string {
	var names []string
	for _, s := range scope {
		names = append(names, standardScopeClaims[s]...)
	}
	return names
}

// handleUserInfo implements the OpenID Connect UserInfo endpoint (Core
// §5.3): a bearer access token resolves to a subject and a granted scope,
// and identity.UserInfoProvider.Claims supplies the claims that scope
// authorizes. The access token is validated the same way introspection
// validates one, rather than re-verifying it separately, since "is this
// access token still active" is exactly what introspect.Service already
// answers.
func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if s.userinfo == nil {
		writeProtocolError(w, oidcerr.New("server_error", "no userinfo provider is configured", 500))
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeProtocolError(w, oidcerr.New("invalid_token", "a bearer access token is required", 401))
		return
	}

	resp, err := s.introspect.Introspect(r.Context(), token)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	if !resp.Active {
		writeProtocolError(w, oidcerr.New("invalid_token", "the access token is expired or revoked", 401))
		return
	}

	subject, _ := resp.Claims["sub"].(string)
	if subject == "" {
		writeProtocolError(w, oidcerr.New("invalid_token", "token carries no subject", 401))
		return
	}
	scope, _ := resp.Claims["scope"].([]string)
	if scope == nil {
		if raw, ok := resp.Claims["scope"].([]any); ok {
			for _, v := range raw {
				if str, ok := v.(string); ok {
					scope = append(scope, str)
				}
			}
		}
	}

	claims, err := s.userinfo.Claims(r.Context(), subject, claimNamesForScope(scope))
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	body := make(map[string]any, len(claims)+1)
	for k, v := range claims {
		body[k] = v
	}
	body["sub"] = subject

	writeJSON(w, http.StatusOK, body)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header, returning "" when absent or malformed.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
