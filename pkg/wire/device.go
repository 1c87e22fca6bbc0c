// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"

	"github.com/authcore/oidcauth/pkg/model"
)

// DeviceAuthorizationResponse is the RFC 8628 device-authorization
// response shape (spec §6).
type DeviceAuthorizationResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}

// EncodeDeviceAuthorizationResponse builds the wire response for a freshly
// initiated DeviceRequest. verificationURI is the host-configured
// end-user verification page; when it is non-empty the "complete" variant
// embeds req.UserCode as a query parameter so the end user can follow a
// single link.
func EncodeDeviceAuthorizationResponse(req *model.DeviceRequest, verificationURI string, expiresIn int64) *DeviceAuthorizationResponse {
	resp := &DeviceAuthorizationResponse{
		DeviceCode:      req.DeviceCode,
		UserCode:        req.UserCode,
		VerificationURI: verificationURI,
		ExpiresIn:       expiresIn,
		Interval:        int64(req.Interval.Seconds()),
	}
	if verificationURI != "" {
		resp.VerificationURIComplete = verificationURI + "?user_code=" + req.UserCode
	}
	return resp
}

// EncodeJSON marshals resp as the device-authorization endpoint's JSON body.
func (resp *DeviceAuthorizationResponse) EncodeJSON() ([]byte, error) {
	return json.Marshal(resp)
}

// PushedAuthorizationResponse is the RFC 9126 PAR response shape spec §6
// names. The core does not model a dedicated pushed-request store as one
// of its lettered components (spec §2's table has none), so this is the
// wire shape alone; a host wiring PAR support owns the request_uri ↔
// parameters mapping itself.
type PushedAuthorizationResponse struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int64  `json:"expires_in"`
}

// EncodeJSON marshals resp as the PAR endpoint's JSON body.
func (resp *PushedAuthorizationResponse) EncodeJSON() ([]byte, error) {
	return json.Marshal(resp)
}
