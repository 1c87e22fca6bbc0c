// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import "net/http"

// handleJWKS serves the signer's published key set at /jwks.json,
// alongside the configuration document below.
func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.keys.Publish())
}

// discoveryDocument is a minimal OpenID Connect Discovery 1.0 provider
// configuration: just the endpoints and capabilities this core actually
// implements (spec §4's six endpoint pipelines plus logout and
// introspection/revocation), not the full metadata surface OIDC discovery
// allows.
type discoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	DeviceAuthorizationEndpoint       string   `json:"device_authorization_endpoint"`
	BackchannelAuthenticationEndpoint string   `json:"backchannel_authentication_endpoint"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	BackchannelTokenDeliveryModesSupported []string `json:"backchannel_token_delivery_modes_supported"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	base := s.issuer
	writeJSON(w, http.StatusOK, discoveryDocument{
		Issuer:                            s.issuer,
		AuthorizationEndpoint:             base + "/oauth/authorize",
		TokenEndpoint:                     base + "/oauth/token",
		UserinfoEndpoint:                  base + "/oauth/userinfo",
		IntrospectionEndpoint:             base + "/oauth/introspect",
		RevocationEndpoint:                base + "/oauth/revoke",
		DeviceAuthorizationEndpoint:       base + "/oauth/device_authorization",
		BackchannelAuthenticationEndpoint: base + "/oauth/backchannel/authenticate",
		EndSessionEndpoint:                base + "/oauth/logout",
		JWKSURI:                           base + "/.well-known/jwks.json",
		ResponseTypesSupported:           []string{"code", "token", "id_token", "code token", "code id_token", "token id_token", "code token id_token"},
		GrantTypesSupported: []string{
			"authorization_code", "refresh_token", "client_credentials", "password",
			"urn:openid:params:grant-type:ciba", "urn:ietf:params:oauth:grant-type:device_code",
		},
		SubjectTypesSupported:                  []string{"public", "pairwise"},
		CodeChallengeMethodsSupported:           []string{"plain", "S256", "S512"},
		BackchannelTokenDeliveryModesSupported: []string{"poll", "ping", "push"},
	})
}
