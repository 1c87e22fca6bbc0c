// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"

	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/wire"
)

var errMissingToken = oidcerr.New("invalid_request", "token is required", 400)

// handleIntrospect implements RFC 7662 token introspection (spec §4.6).
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if err := decodeForm(w, r); err != nil {
		writeProtocolError(w, err)
		return
	}
	req := wire.DecodeTokenHintRequest(r.Form)
	if req.Token == "" {
		writeProtocolError(w, errMissingToken)
		return
	}
	resp, err := s.introspect.Introspect(r.Context(), req.Token)
	if err != nil {
		writeProtocolError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRevoke implements RFC 7009 token revocation (spec §4.6). Revocation
// always responds 200 regardless of whether token was known, valid, or
// already revoked, per the RFC.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := decodeForm(w, r); err != nil {
		writeProtocolError(w, err)
		return
	}
	req := wire.DecodeTokenHintRequest(r.Form)
	if req.Token == "" {
		writeProtocolError(w, errMissingToken)
		return
	}
	if err := s.introspect.Revoke(r.Context(), req.Token); err != nil {
		writeProtocolError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
