// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the request→response adapters of spec §6
// (component M): decoding query/form/JSON bodies into the typed request
// shapes the validator set and pipelines consume, and encoding pipeline
// output back into the exact wire formats spec §6 names. No pipeline
// logic lives here, only shape translation.
package wire

import (
	"net/url"
	"strings"

	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/validate"
)

// DecodeAuthorizationRequest builds a validate.RawAuthorizationRequest
// from an authorization endpoint's query or form values (spec §6: "query
// or form; space-separated scope, response_type, acr_values"). This is
// where the request+request_uri mutual-exclusivity rule lives (spec §9's
// Open Question, resolved in DESIGN.md): OIDC core allows either alone,
// never both.
func DecodeAuthorizationRequest(values url.Values) (validate.RawAuthorizationRequest, error) {
	raw := validate.RawAuthorizationRequest{
		ClientID:            values.Get("client_id"),
		ResponseType:        values.Get("response_type"),
		Scope:               values.Get("scope"),
		Resources:           values["resource"],
		RedirectURI:         values.Get("redirect_uri"),
		Nonce:               values.Get("nonce"),
		State:               values.Get("state"),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: values.Get("code_challenge_method"),
		MaxAge:              values.Get("max_age"),
		ACRValues:           values.Get("acr_values"),
		Prompt:              values.Get("prompt"),
		Request:             values.Get("request"),
		RequestURI:          values.Get("request_uri"),
	}
	if raw.Request != "" && raw.RequestURI != "" {
		return validate.RawAuthorizationRequest{}, oidcerr.New("invalid_request", "request and request_uri are mutually exclusive", 400)
	}
	return raw, nil
}

func splitSpace(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
