// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"html"
	"net/url"

	"github.com/authcore/oidcauth/pkg/authorize"
)

// Response-mode values spec §4.1's "Edge policies" names.
const (
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
	ResponseModeFormPost = "form_post"
)

// DefaultResponseMode picks the implicit response_mode for responseTypes
// per spec §4.1: "query for code, fragment for implicit/hybrid".
func DefaultResponseMode(responseTypes []string) string {
	if len(responseTypes) == 1 && responseTypes[0] == authorize.ResponseTypeCode {
		return ResponseModeQuery
	}
	return ResponseModeFragment
}

// AuthorizationRedirect is a fully assembled authorization-endpoint
// response: either redirect the user agent to URL, or (when Mode is
// form_post) render Body as an auto-submitting HTML form per OAuth 2.0
// Form Post Response Mode.
type AuthorizationRedirect struct {
	Mode string
	URL  string
	Body string
}

// EncodeAuthorizationSuccess builds the redirect for a KindSuccess Result,
// placing the returned artifacts in the query, fragment, or a form-post
// body depending on mode (spec §4.1 edge policies, spec §6 wire formats).
func EncodeAuthorizationSuccess(redirectURI string, result *authorize.Result, state, mode string) (*AuthorizationRedirect, error) {
	if mode == "" {
		mode = ResponseModeFragment
	}
	values := url.Values{}
	if result.Code != "" {
		values.Set("code", result.Code)
	}
	if result.AccessToken != "" {
		values.Set("access_token", result.AccessToken)
		values.Set("token_type", result.TokenType)
	}
	if result.IDToken != "" {
		values.Set("id_token", result.IDToken)
	}
	if state != "" {
		values.Set("state", state)
	}
	return assembleRedirect(redirectURI, values, mode)
}

// EncodeAuthorizationError builds the redirect for a protocol error that
// occurred after redirect_uri has already been validated (spec §4.1): the
// error is delivered back to the client rather than rendered directly,
// per OAuth 2.0 §4.1.2.1. Errors discovered before redirect_uri is known
// to be trustworthy (unknown client, redirect_uri mismatch) MUST NOT use
// this function; render them directly instead.
func EncodeAuthorizationError(redirectURI string, err error, state, mode string) (*AuthorizationRedirect, error) {
	if mode == "" {
		mode = ResponseModeFragment
	}
	code, description := "server_error", err.Error()
	if rfcErr, ok := asRFC6749Error(err); ok {
		code, description = rfcErr.ErrorField, rfcErr.DescriptionField
	}
	values := url.Values{}
	values.Set("error", code)
	if description != "" {
		values.Set("error_description", description)
	}
	if state != "" {
		values.Set("state", state)
	}
	return assembleRedirect(redirectURI, values, mode)
}

func assembleRedirect(redirectURI string, values url.Values, mode string) (*AuthorizationRedirect, error) {
	switch mode {
	case ResponseModeQuery:
		u, err := url.Parse(redirectURI)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for k, vs := range values {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return &AuthorizationRedirect{Mode: mode, URL: u.String()}, nil
	case ResponseModeFragment:
		u, err := url.Parse(redirectURI)
		if err != nil {
			return nil, err
		}
		u.Fragment = values.Encode()
		return &AuthorizationRedirect{Mode: mode, URL: u.String()}, nil
	case ResponseModeFormPost:
		return &AuthorizationRedirect{Mode: mode, Body: formPostHTML(redirectURI, values)}, nil
	default:
		return nil, errUnsupportedResponseMode(mode)
	}
}

func formPostHTML(redirectURI string, values url.Values) string {
	body := "<!DOCTYPE html><html><head><title>Submit</title></head><body onload=\"document.forms[0].submit()\">" +
		"<form method=\"post\" action=\"" + htmlEscape(redirectURI) + "\">"
	for k, vs := range values {
		for _, v := range vs {
			body += "<input type=\"hidden\" name=\"" + htmlEscape(k) + "\" value=\"" + htmlEscape(v) + "\">"
		}
	}
	body += "</form></body></html>"
	return body
}

func htmlEscape(s string) string {
	return html.EscapeString(s)
}

type unsupportedResponseModeError string

func (e unsupportedResponseModeError) Error() string { return "wire: unsupported response_mode " + string(e) }

func errUnsupportedResponseMode(mode string) error { return unsupportedResponseModeError(mode) }
