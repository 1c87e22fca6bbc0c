// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package oidcerr defines the protocol-error vocabulary (spec §7) as
// *fosite.RFC6749Error values, the same wire shape fosite itself returns
// from its own validators. Endpoint handlers can therefore treat every
// error the same way, whether it originates from fosite or from this
// package.
package oidcerr

import (
	"net/http"

	"github.com/ory/fosite"
)

// New builds an RFC6749-shaped protocol error with the given error code,
// description and HTTP status. Use the pre-built variables below for the
// codes spec.md names; New exists for one-off descriptions.
func New(code, description string, status int) *fosite.RFC6749Error {
	return &fosite.RFC6749Error{
		ErrorField:       code,
		DescriptionField: description,
		CodeField:        status,
	}
}

// WithHint returns a copy of err with a more specific hint appended to the
// description, mirroring fosite.RFC6749Error.WithHint.
func WithHint(err *fosite.RFC6749Error, hint string) *fosite.RFC6749Error {
	return err.WithHint(hint)
}

// Domain decisions and protocol errors that fosite does not define natively
// because they belong to OIDC's interactive-authorization surface (§4.1,
// §4.3, §4.4) rather than bare OAuth2.
var (
	// LoginRequired indicates prompt=none was requested with no usable
	// session (spec §4.1 step 4).
	LoginRequired = New("login_required", "The authorization server requires end-user authentication.", http.StatusBadRequest)

	// AccountSelectionRequired indicates prompt=none with more than one
	// candidate session and no way to disambiguate.
	AccountSelectionRequired = New("account_selection_required", "The end-user must select a session at the authorization server.", http.StatusBadRequest)

	// ConsentRequired indicates prompt=none with outstanding ungranted
	// scopes or resources.
	ConsentRequired = New("consent_required", "The authorization server requires end-user consent.", http.StatusBadRequest)

	// InteractionRequired is the generic fallback for any other interaction
	// the server would need but prompt=none forbids.
	InteractionRequired = New("interaction_required", "The authorization server requires end-user interaction of some form.", http.StatusBadRequest)

	// AuthorizationPending indicates a CIBA or device-flow request is still
	// awaiting user action (spec §4.2, §4.3, §4.4).
	AuthorizationPending = New("authorization_pending", "The authorization request is still pending as the end user hasn't yet completed the user-interaction steps.", http.StatusBadRequest)

	// SlowDown indicates the client polled faster than the configured
	// interval.
	SlowDown = New("slow_down", "The client is polling too quickly; increase the polling interval.", http.StatusBadRequest)

	// ExpiredToken indicates a device/CIBA request or token expired before
	// completion/redemption.
	ExpiredToken = New("expired_token", "The device_code or auth_req_id has expired.", http.StatusBadRequest)

	// AccessDenied indicates the end user (or a CIBA/device approver)
	// declined the request.
	AccessDenied = New("access_denied", "The resource owner or authorization server denied the request.", http.StatusForbidden)
)

// IsCode reports whether err is an *fosite.RFC6749Error carrying the given
// error code.
func IsCode(err error, code string) bool {
	rfcErr, ok := err.(*fosite.RFC6749Error)
	if !ok {
		return false
	}
	return rfcErr.ErrorField == code
}
