// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"net/url"

	"github.com/authcore/oidcauth/pkg/token"
)

// Grant-type values the token endpoint dispatches on (spec §4.2, §6).
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypePassword          = "password"
	GrantTypeCIBA              = "urn:openid:params:grant-type:ciba"
	GrantTypeDeviceCode        = "urn:ietf:params:oauth:grant-type:device_code"
)

// DecodeAuthorizationCodeRequest reads the authorization_code grant's
// form fields (spec §6: application/x-www-form-urlencoded).
func DecodeAuthorizationCodeRequest(form url.Values) token.AuthorizationCodeRequest {
	return token.AuthorizationCodeRequest{
		ClientID:     form.Get("client_id"),
		Code:         form.Get("code"),
		RedirectURI:  form.Get("redirect_uri"),
		CodeVerifier: form.Get("code_verifier"),
	}
}

// DecodeRefreshTokenRequest reads the refresh_token grant's form fields.
func DecodeRefreshTokenRequest(form url.Values) token.RefreshTokenRequest {
	return token.RefreshTokenRequest{
		ClientID:     form.Get("client_id"),
		RefreshToken: form.Get("refresh_token"),
	}
}

// ClientCredentialsRequest is the client_credentials grant's decoded form.
type ClientCredentialsRequest struct {
	ClientID  string
	Scope     []string
	Resources []string
}

// DecodeClientCredentialsRequest reads the client_credentials grant's
// form fields.
func DecodeClientCredentialsRequest(form url.Values) ClientCredentialsRequest {
	return ClientCredentialsRequest{
		ClientID:  form.Get("client_id"),
		Scope:     splitSpace(form.Get("scope")),
		Resources: form["resource"],
	}
}

// PasswordRequest is the password grant's decoded form.
type PasswordRequest struct {
	ClientID  string
	Username  string
	Password  string
	Scope     []string
	Resources []string
}

// DecodePasswordRequest reads the password grant's form fields.
func DecodePasswordRequest(form url.Values) PasswordRequest {
	return PasswordRequest{
		ClientID:  form.Get("client_id"),
		Username:  form.Get("username"),
		Password:  form.Get("password"),
		Scope:     splitSpace(form.Get("scope")),
		Resources: form["resource"],
	}
}

// CIBATokenRequest is the CIBA grant's decoded form.
type CIBATokenRequest struct {
	AuthReqID string
	Resources []string
}

// DecodeCIBATokenRequest reads the urn:openid:params:grant-type:ciba
// grant's form fields.
func DecodeCIBATokenRequest(form url.Values) CIBATokenRequest {
	return CIBATokenRequest{AuthReqID: form.Get("auth_req_id"), Resources: form["resource"]}
}

// DeviceTokenRequest is the device-code grant's decoded form.
type DeviceTokenRequest struct {
	DeviceCode string
	Resources  []string
}

// DecodeDeviceTokenRequest reads the
// urn:ietf:params:oauth:grant-type:device_code grant's form fields.
func DecodeDeviceTokenRequest(form url.Values) DeviceTokenRequest {
	return DeviceTokenRequest{DeviceCode: form.Get("device_code"), Resources: form["resource"]}
}

// EncodeTokenResponse marshals a TokenIssued to the exact JSON shape spec
// §6 names; TokenIssued's own json tags already match it (access_token,
// token_type, expires_in, refresh_token?, id_token?, issued_token_type?).
func EncodeTokenResponse(issued *token.TokenIssued) ([]byte, error) {
	return json.Marshal(issued)
}

// EncodeProtocolError renders any error as the RFC 6749 `{error,
// error_description}` JSON body (spec §7), returning the HTTP status to
// use alongside it. Errors that are not already an oidcerr/fosite
// RFC6749Error are treated as server_error per spec §7's "Server fault".
func EncodeProtocolError(err error) ([]byte, int) {
	code, description, status := "server_error", err.Error(), 500
	if rfcErr, ok := asRFC6749Error(err); ok {
		code, description, status = rfcErr.ErrorField, rfcErr.DescriptionField, rfcErr.CodeField
	}
	body, marshalErr := json.Marshal(protocolErrorBody{Error: code, ErrorDescription: description})
	if marshalErr != nil {
		return []byte(`{"error":"server_error"}`), 500
	}
	if status == 0 {
		status = 500
	}
	return body, status
}

type protocolErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
