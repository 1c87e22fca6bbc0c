// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/authcore/oidcauth/pkg/oidcerr"
	"github.com/authcore/oidcauth/pkg/wire"
)

func badRequestErr(description string) error {
	return oidcerr.New("invalid_request", description, http.StatusBadRequest)
}

// maxBodySize bounds a decoded request body, the same defensive limit
// every handler below applies before calling decodeForm/decodeJSON.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProtocolError renders err as the RFC 6749 {error, error_description}
// body spec §7 names, via wire.EncodeProtocolError.
func writeProtocolError(w http.ResponseWriter, err error) {
	body, status := wire.EncodeProtocolError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func decodeForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return r.ParseForm()
}

// decodeJSON decodes r's body into v, writing a protocol error and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeProtocolError(w, badRequestErr("request body is not valid JSON"))
		return false
	}
	return true
}
